package ports

import "context"

// StatusFinalizer marks a pet Adopted once the messaging hand-off is reached.
type StatusFinalizer interface {
	MarkAdopted(ctx context.Context, petID int64) error
}
