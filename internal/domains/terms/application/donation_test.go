package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Apurer/pet-adoption-engine/internal/domains/terms/domain"
)

func TestDonationGate(t *testing.T) {
	f := newTermsFixture(t)
	ctx := context.Background()
	gate := f.svc.DonationGate()

	decision, err := gate.Check(ctx, 10)
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.Equal(t, domain.StateNone, decision.State)

	c := f.controller(t, domain.DonationKey(10))
	_, err = c.Load(ctx)
	require.NoError(t, err)
	_, err = c.Submit(ctx, "Bruno", "")
	require.ErrorIs(t, err, domain.ErrMissingMotive)
	_, err = c.Submit(ctx, "Bruno", "Mudança de cidade")
	require.NoError(t, err)

	decision, err = gate.Check(ctx, 10)
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.Equal(t, domain.StateCreated, decision.State)

	view, err := c.SendEmail(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.StateEmailed, view.State)
	require.Empty(t, f.cached(t, 10))

	decision, err = gate.Check(ctx, 10)
	require.NoError(t, err)
	require.True(t, decision.Allowed)
}

func TestDonationGate_StaleUntilResigned(t *testing.T) {
	f := newTermsFixture(t)
	ctx := context.Background()
	c := f.controller(t, domain.DonationKey(10))
	_, err := c.Load(ctx)
	require.NoError(t, err)
	_, err = c.Submit(ctx, "Bruno", "Mudança de cidade")
	require.NoError(t, err)
	_, err = c.SendEmail(ctx)
	require.NoError(t, err)

	moved := bruno()
	moved.City = "Caruaru"
	f.profiles.set(moved)

	gate := f.svc.DonationGate()
	decision, err := gate.Check(ctx, 10)
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.Equal(t, domain.StateStale, decision.State)

	resign := f.controller(t, domain.DonationKey(10))
	view, err := resign.Load(ctx)
	require.NoError(t, err)
	require.True(t, view.Update)
	_, err = resign.Submit(ctx, view.Draft.Signature, "Mudança de cidade")
	require.NoError(t, err)
	require.True(t, resign.Resigned())

	decision, err = gate.Check(ctx, 10)
	require.NoError(t, err)
	require.True(t, decision.Allowed)
}
