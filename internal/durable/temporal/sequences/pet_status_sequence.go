package sequences

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	petactivities "github.com/Apurer/pet-adoption-engine/internal/durable/temporal/activities/pets"
)

// RunAdoptedStatusSequence writes the Adopted status with bounded retries.
func RunAdoptedStatusSequence(ctx workflow.Context, petID int64) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("adopted status sequence started", "petId", petID)
	options := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    5,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, options)

	input := petactivities.StatusInput{PetID: petID}
	if err := workflow.ExecuteActivity(ctx, petactivities.MarkAdoptedActivityName, input).Get(ctx, nil); err != nil {
		logger.Error("adopted status sequence failed", "petId", petID, "error", err)
		return err
	}
	logger.Info("adopted status sequence completed", "petId", petID)
	return nil
}
