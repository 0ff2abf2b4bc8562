package workflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	oteltrace "go.opentelemetry.io/otel/trace"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/Apurer/pet-adoption-engine/internal/domains/pets/domain"
	"github.com/Apurer/pet-adoption-engine/internal/domains/pets/ports"
	petworkflows "github.com/Apurer/pet-adoption-engine/internal/durable/temporal/workflows/pets"
)

var (
	_ ports.StatusFinalizer = (*TemporalFinalizer)(nil)
	_ ports.StatusFinalizer = (*InlineFinalizer)(nil)
)

// DefaultFinalizeWait bounds how long a finalizer holds up the hand-off.
const DefaultFinalizeWait = 15 * time.Second

// ErrStatusPending reports a status workflow that did not finish within the
// wait. The workflow keeps running on the worker.
var ErrStatusPending = errors.New("adopted status workflow still running")

// TemporalFinalizer runs the Adopted status write as a Temporal workflow so it
// keeps retrying after the client gives up waiting.
type TemporalFinalizer struct {
	client    client.Client
	taskQueue string
	wait      time.Duration
}

// TemporalOption configures a TemporalFinalizer.
type TemporalOption func(*TemporalFinalizer)

// WithWait overrides how long MarkAdopted waits for the workflow result.
func WithWait(d time.Duration) TemporalOption {
	return func(f *TemporalFinalizer) {
		if d > 0 {
			f.wait = d
		}
	}
}

// NewTemporalFinalizer wires a Temporal client into the finalizer.
func NewTemporalFinalizer(c client.Client, opts ...TemporalOption) *TemporalFinalizer {
	f := &TemporalFinalizer{client: c, taskQueue: petworkflows.AdoptedStatusTaskQueue, wait: DefaultFinalizeWait}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// MarkAdopted starts (or joins) the status workflow for petID and waits for it
// at most the configured wait. Without a worker on the task queue the wait
// runs out and ErrStatusPending is returned.
func (f *TemporalFinalizer) MarkAdopted(ctx context.Context, petID int64) error {
	if f == nil || f.client == nil {
		return errors.New("temporal finalizer not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, f.wait)
	defer cancel()
	traceID := workflowTraceID(ctx)
	workflowID := fmt.Sprintf("pet-adopted-status-%d", petID)
	options := client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: f.taskQueue,
	}
	run, err := f.client.ExecuteWorkflow(ctx, options, petworkflows.AdoptedStatusWorkflow,
		petworkflows.AdoptedStatusWorkflowInput{PetID: petID, TraceID: traceID})
	if err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if !errors.As(err, &alreadyStarted) {
			return err
		}
		run = f.client.GetWorkflow(ctx, workflowID, alreadyStarted.RunId)
	}
	if err := run.Get(ctx, nil); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s after %s", ErrStatusPending, workflowID, f.wait)
		}
		return err
	}
	return nil
}

// InlineFinalizer writes the status directly, useful for tests or when Temporal is disabled.
type InlineFinalizer struct {
	directory ports.Directory
	timeout   time.Duration
}

// NewInlineFinalizer wraps the backend directory for synchronous execution.
func NewInlineFinalizer(directory ports.Directory) *InlineFinalizer {
	return &InlineFinalizer{directory: directory, timeout: DefaultFinalizeWait}
}

// MarkAdopted sets the pet status to Adopted.
func (f *InlineFinalizer) MarkAdopted(ctx context.Context, petID int64) error {
	if f == nil || f.directory == nil {
		return errors.New("inline finalizer not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	return f.directory.UpdateStatus(ctx, petID, domain.StatusAdopted)
}

func workflowTraceID(ctx context.Context) string {
	span := oteltrace.SpanFromContext(ctx)
	if span == nil {
		return ""
	}
	spanCtx := span.SpanContext()
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}
