package pets

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"

	"github.com/Apurer/pet-adoption-engine/internal/domains/pets/domain"
	petsports "github.com/Apurer/pet-adoption-engine/internal/domains/pets/ports"
	petactivities "github.com/Apurer/pet-adoption-engine/internal/durable/temporal/activities/pets"
	"github.com/Apurer/pet-adoption-engine/internal/shared/remoteerr"
)

type scriptedDirectory struct {
	mu      sync.Mutex
	errs    []error
	updates []int64
}

func (d *scriptedDirectory) GetPet(context.Context, int64) (*domain.Pet, error) { return nil, nil }

func (d *scriptedDirectory) ListPets(context.Context, petsports.PetQuery) ([]*domain.Pet, error) {
	return nil, nil
}

func (d *scriptedDirectory) UpdateStatus(_ context.Context, id int64, status domain.Status) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.updates = append(d.updates, id)
	if len(d.errs) > 0 {
		err := d.errs[0]
		d.errs = d.errs[1:]
		return err
	}
	if status != domain.StatusAdopted {
		return remoteerr.New("update status", remoteerr.KindValidation, "unexpected status")
	}
	return nil
}

func runWorkflow(t *testing.T, dir *scriptedDirectory) error {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	acts := petactivities.NewActivities(dir)
	env.RegisterActivityWithOptions(acts.MarkAdopted, activity.RegisterOptions{Name: petactivities.MarkAdoptedActivityName})
	env.ExecuteWorkflow(AdoptedStatusWorkflow, AdoptedStatusWorkflowInput{PetID: 42, TraceID: "trace-1"})
	require.True(t, env.IsWorkflowCompleted())
	return env.GetWorkflowError()
}

func TestAdoptedStatusWorkflow_Succeeds(t *testing.T) {
	dir := &scriptedDirectory{}
	require.NoError(t, runWorkflow(t, dir))
	require.Equal(t, []int64{42}, dir.updates)
}

func TestAdoptedStatusWorkflow_RetriesTransientFailures(t *testing.T) {
	dir := &scriptedDirectory{errs: []error{remoteerr.Classify("update status", 503, "unavailable")}}
	require.NoError(t, runWorkflow(t, dir))
	require.Equal(t, []int64{42, 42}, dir.updates)
}

func TestAdoptedStatusWorkflow_StopsOnSessionExpiry(t *testing.T) {
	dir := &scriptedDirectory{errs: []error{remoteerr.Classify("update status", 401, "Token expirado")}}
	require.Error(t, runWorkflow(t, dir))
	require.Equal(t, []int64{42}, dir.updates)
}
