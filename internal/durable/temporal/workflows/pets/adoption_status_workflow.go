package pets

import (
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/pet-adoption-engine/internal/durable/temporal/sequences"
)

const (
	// AdoptedStatusWorkflowName is the public identifier for registering the workflow.
	AdoptedStatusWorkflowName = "pets.workflows.AdoptedStatus"
	// AdoptedStatusTaskQueue is the queue consumed by the worker finalizing adoptions.
	AdoptedStatusTaskQueue = "PET_ADOPTED_STATUS"
)

// AdoptedStatusWorkflowInput captures the pet to finalize.
type AdoptedStatusWorkflowInput struct {
	PetID   int64
	TraceID string
}

// AdoptedStatusWorkflow marks a pet Adopted after the adoption hand-off.
func AdoptedStatusWorkflow(ctx workflow.Context, input AdoptedStatusWorkflowInput) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("AdoptedStatusWorkflow started", withTraceID(input.TraceID, "petId", input.PetID)...)
	if err := sequences.RunAdoptedStatusSequence(ctx, input.PetID); err != nil {
		logger.Error("AdoptedStatusWorkflow failed", withTraceID(input.TraceID, "petId", input.PetID, "error", err)...)
		return err
	}
	logger.Info("AdoptedStatusWorkflow completed", withTraceID(input.TraceID, "petId", input.PetID)...)
	return nil
}

func withTraceID(traceID string, keyvals ...interface{}) []interface{} {
	if traceID == "" {
		return keyvals
	}
	return append(keyvals, "traceId", traceID)
}
