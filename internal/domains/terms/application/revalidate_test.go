package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Apurer/pet-adoption-engine/internal/domains/terms/domain"
	"github.com/Apurer/pet-adoption-engine/internal/shared/remoteerr"
)

func emailedTerm(petID int64) *domain.Term {
	sent := time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)
	adopter := ana()
	return &domain.Term{Kind: domain.KindAdoption, PetID: petID, Donor: bruno(), Adopter: &adopter, Signature: "Ana", EmailSentAt: &sent}
}

func TestRevalidate_ConfirmsAgainstServer(t *testing.T) {
	f := newTermsFixture(t)
	ctx := context.Background()
	require.NoError(t, f.cache.MarkEmailed(ctx, 20, 42))
	require.NoError(t, f.cache.MarkEmailed(ctx, 20, 43))
	f.gateway.put(emailedTerm(43))

	result, err := f.svc.Revalidate(ctx, 20, nil)
	require.NoError(t, err)
	require.Equal(t, []int64{43}, result.Confirmed)
	require.Equal(t, []int64{42}, result.Unconfirmed)
	require.Equal(t, 2, f.gateway.fetches)
}

func TestRevalidate_RecordsServerConfirmedPets(t *testing.T) {
	f := newTermsFixture(t)
	ctx := context.Background()
	f.gateway.put(emailedTerm(44))
	unsent := emailedTerm(42)
	unsent.EmailSentAt = nil
	f.gateway.put(unsent)

	result, err := f.svc.Revalidate(ctx, 20, []int64{42, 44})
	require.NoError(t, err)
	require.Equal(t, []int64{44}, result.Confirmed)
	require.Empty(t, result.Unconfirmed)
	require.Equal(t, []int64{44}, f.cached(t, 20))
}

func TestRevalidate_PropagatesRemoteFailure(t *testing.T) {
	f := newTermsFixture(t)
	ctx := context.Background()
	failing := &failingFetchGateway{fakeGateway: f.gateway, err: remoteerr.Classify("fetch term", 401, "Token expirado")}
	svc := NewTerms(failing, f.profiles, f.gateway.owners, f.cache)
	_, err := svc.Revalidate(ctx, 20, []int64{42, 43})
	require.ErrorIs(t, err, remoteerr.ErrSession)
}

type failingFetchGateway struct {
	*fakeGateway
	err error
}

func (g *failingFetchGateway) Fetch(context.Context, domain.Key) (*domain.Term, error) {
	return nil, g.err
}
