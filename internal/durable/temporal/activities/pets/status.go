package pets

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/Apurer/pet-adoption-engine/internal/domains/pets/domain"
	petsports "github.com/Apurer/pet-adoption-engine/internal/domains/pets/ports"
	"github.com/Apurer/pet-adoption-engine/internal/shared/remoteerr"
)

// MarkAdoptedActivityName writes the Adopted status of a pet to the backend.
const MarkAdoptedActivityName = "pets.activities.MarkAdopted"

// StatusInput identifies the pet whose status is written.
type StatusInput struct {
	PetID int64
}

// Activities groups activities that operate on the pets bounded context.
type Activities struct {
	directory petsports.Directory
}

// NewActivities wires the backend directory into the Temporal activities bundle.
func NewActivities(directory petsports.Directory) *Activities {
	return &Activities{directory: directory}
}

// MarkAdopted sets the pet status to Adopted. Failures that a retry cannot fix
// are returned as non-retryable so the workflow gives up early.
func (a *Activities) MarkAdopted(ctx context.Context, input StatusInput) error {
	logger := activity.GetLogger(ctx)
	if a == nil || a.directory == nil {
		logger.Error("mark adopted activity not initialized", "petId", input.PetID)
		return errors.New("mark adopted activity not initialized")
	}
	logger.Info("MarkAdopted activity started", "petId", input.PetID)
	if err := a.directory.UpdateStatus(ctx, input.PetID, domain.StatusAdopted); err != nil {
		kind := remoteerr.KindOf(err)
		logger.Error("MarkAdopted activity failed", "petId", input.PetID, "kind", kind.String(), "error", err)
		if !kind.Retryable() {
			return temporal.NewNonRetryableApplicationError(err.Error(), kind.String(), err)
		}
		return err
	}
	logger.Info("MarkAdopted activity completed", "petId", input.PetID)
	return nil
}
