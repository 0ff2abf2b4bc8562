package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Apurer/pet-adoption-engine/internal/domains/terms/domain"
)

// Decision is the outcome of a donation gate check. When Allowed is false,
// State tells the UI where the donation term controller must pick up.
type Decision struct {
	Allowed bool
	State   domain.State
	Reason  string
}

// DonationGate decides whether a donor may list pets.
type DonationGate struct {
	terms *Terms
}

// DonationGate returns the gate backed by this service's session state.
func (t *Terms) DonationGate() *DonationGate {
	return &DonationGate{terms: t}
}

// Check allows the donor when their donation term is emailed and still matches
// their profile, or when they re-signed it in this session.
func (g *DonationGate) Check(ctx context.Context, donorID int64) (Decision, error) {
	key := domain.DonationKey(donorID)
	if err := key.Validate(); err != nil {
		return Decision{}, err
	}
	if g.terms.Resigned(key) {
		return Decision{Allowed: true, State: domain.StateCreated, Reason: "donation term re-signed in this session"}, nil
	}

	term, err := g.terms.fetch(ctx, key)
	if err != nil {
		return Decision{}, fmt.Errorf("fetch donation term: %w", err)
	}
	if term == nil {
		return Decision{State: domain.StateNone, Reason: "donation term not signed"}, nil
	}
	donor, _, err := g.terms.parties(ctx, key)
	if err != nil {
		return Decision{}, err
	}
	if stale := term.StaleFields(donor, nil); len(stale) > 0 {
		g.terms.logger.LogAttrs(ctx, slog.LevelInfo, "donation term stale",
			slog.Int64("user.id", donorID), slog.String("term.stale_fields", strings.Join(stale, ",")))
		return Decision{State: domain.StateStale, Reason: "personal data changed since the donation term was signed"}, nil
	}
	if !term.Emailed() {
		return Decision{State: domain.StateCreated, Reason: "donation term not emailed"}, nil
	}
	return Decision{Allowed: true, State: domain.StateEmailed}, nil
}
