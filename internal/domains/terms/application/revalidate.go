package application

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Apurer/pet-adoption-engine/internal/domains/terms/domain"
)

// Revalidation reports how the sent cache compares with the server.
type Revalidation struct {
	// Confirmed are pets whose adoption term the server reports as emailed.
	Confirmed []int64
	// Unconfirmed are cached pets the server does not report as emailed.
	Unconfirmed []int64
}

// Revalidate fetches the adopter's terms for petIDs, or for every cached pet
// when petIDs is empty, and records the server-confirmed ones in the cache.
func (t *Terms) Revalidate(ctx context.Context, adopterID int64, petIDs []int64) (Revalidation, error) {
	cached, err := t.cache.Emailed(ctx, adopterID)
	if err != nil {
		return Revalidation{}, fmt.Errorf("read sent cache: %w", err)
	}
	if len(petIDs) == 0 {
		petIDs = cached
	}

	var (
		mu        sync.Mutex
		confirmed []int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.limit)
	for _, petID := range petIDs {
		g.Go(func() error {
			term, err := t.fetch(gctx, domain.AdoptionKey(petID, adopterID))
			if err != nil {
				return fmt.Errorf("fetch term for pet %d: %w", petID, err)
			}
			if term == nil || !term.Emailed() {
				return nil
			}
			mu.Lock()
			confirmed = append(confirmed, petID)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Revalidation{}, err
	}

	slices.Sort(confirmed)
	for _, petID := range confirmed {
		if err := t.cache.MarkEmailed(ctx, adopterID, petID); err != nil {
			return Revalidation{}, fmt.Errorf("update sent cache: %w", err)
		}
	}
	var unconfirmed []int64
	for _, petID := range cached {
		if !slices.Contains(confirmed, petID) && slices.Contains(petIDs, petID) {
			unconfirmed = append(unconfirmed, petID)
		}
	}
	slices.Sort(unconfirmed)
	return Revalidation{Confirmed: confirmed, Unconfirmed: unconfirmed}, nil
}
