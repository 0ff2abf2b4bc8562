package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Apurer/pet-adoption-engine/internal/domains/terms/domain"
)

// AdoptionTermEmailed reports whether the adoption term between petID's donor
// and adopterID was emailed to both parties and still matches their profiles.
//
// The sent cache is read first: a pet missing from it is refused without a
// remote call, and the adopter has to load the term to refresh the hint. A
// cached pet is confirmed against the server before it is trusted.
func (t *Terms) AdoptionTermEmailed(ctx context.Context, petID, adopterID int64) (bool, error) {
	key := domain.AdoptionKey(petID, adopterID)
	if err := key.Validate(); err != nil {
		return false, err
	}
	attrs := []slog.Attr{slog.Int64("pet.id", petID), slog.Int64("user.id", adopterID)}

	cached, err := t.cache.Has(ctx, adopterID, petID)
	if err != nil {
		return false, fmt.Errorf("read sent cache: %w", err)
	}
	if !cached {
		t.logger.LogAttrs(ctx, slog.LevelDebug, "adoption term not in sent cache", attrs...)
		return false, nil
	}

	term, err := t.fetch(ctx, key)
	if err != nil {
		return false, fmt.Errorf("fetch adoption term: %w", err)
	}
	if term == nil || !term.Emailed() {
		t.logger.LogAttrs(ctx, slog.LevelWarn, "sent cache entry not confirmed by server", attrs...)
		return false, nil
	}
	donor, adopter, err := t.parties(ctx, key)
	if err != nil {
		return false, err
	}
	if stale := term.StaleFields(donor, adopter); len(stale) > 0 {
		t.logger.LogAttrs(ctx, slog.LevelInfo, "adoption term stale",
			append(attrs, slog.String("term.stale_fields", strings.Join(stale, ",")))...)
		return false, nil
	}
	return true, nil
}
