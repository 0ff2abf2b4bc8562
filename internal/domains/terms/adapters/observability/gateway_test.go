package observability

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Apurer/pet-adoption-engine/internal/domains/terms/domain"
	"github.com/Apurer/pet-adoption-engine/internal/domains/terms/ports"
	"github.com/Apurer/pet-adoption-engine/internal/shared/remoteerr"
)

type stubGateway struct {
	fetchErr error
	delivery domain.Delivery
}

func (s stubGateway) Save(_ context.Context, req ports.SaveRequest) (*domain.Term, error) {
	return &domain.Term{ID: 7, Kind: req.Key.Kind, PetID: req.Key.PetID}, nil
}

func (s stubGateway) Fetch(context.Context, domain.Key) (*domain.Term, error) {
	return nil, s.fetchErr
}

func (s stubGateway) SendEmail(context.Context, domain.Kind, int64) (domain.Delivery, error) {
	return s.delivery, nil
}

func TestGatewayLogsPartialDeliveryAsWarning(t *testing.T) {
	var buf bytes.Buffer
	g := New(stubGateway{delivery: domain.Delivery{Recipients: []domain.RecipientStatus{
		{Role: domain.RoleDonor, Email: "bruno@example.com", Delivered: true},
		{Role: domain.RoleAdopter, Email: "caio.bounce@example.com", Error: "mailbox unavailable"},
	}}}, WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	delivery, err := g.SendEmail(context.Background(), domain.KindAdoption, 7)
	require.NoError(t, err)
	require.False(t, delivery.Complete())
	require.Contains(t, buf.String(), "level=WARN")
	require.Contains(t, buf.String(), "recipient.role=adopter")
}

func TestGatewayDoesNotLogMissingTerm(t *testing.T) {
	var buf bytes.Buffer
	g := New(stubGateway{fetchErr: remoteerr.New("fetch term", remoteerr.KindNotFound, "Termo não encontrado")},
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	_, err := g.Fetch(context.Background(), domain.AdoptionKey(42, 20))
	require.ErrorIs(t, err, remoteerr.ErrNotFound)
	require.Empty(t, buf.String())

	g = New(stubGateway{fetchErr: remoteerr.New("fetch term", remoteerr.KindTransient, "timeout")},
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	_, err = g.Fetch(context.Background(), domain.AdoptionKey(42, 20))
	require.Error(t, err)
	require.Contains(t, buf.String(), "error.kind=transient")
}
