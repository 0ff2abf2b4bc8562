package application

import (
	"errors"
	"fmt"

	"github.com/Apurer/pet-adoption-engine/internal/domains/users/domain"
)

var (
	// ErrInvalidInput signals the request violated a domain invariant.
	ErrInvalidInput = errors.New("invalid user input")
	// ErrNotOwnProfile is returned when updating a profile other than the signed-in user's.
	ErrNotOwnProfile = errors.New("only the signed-in user's profile can be updated")
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrMissingUser) ||
		errors.Is(err, domain.ErrEmptyName) ||
		errors.Is(err, domain.ErrInvalidEmail) ||
		errors.Is(err, domain.ErrEmptyToken) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return err
}
