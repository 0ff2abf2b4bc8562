package engine

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/pet-adoption-engine/internal/clients/http/adoption"
	petdomain "github.com/Apurer/pet-adoption-engine/internal/domains/pets/domain"
	petsapp "github.com/Apurer/pet-adoption-engine/internal/domains/pets/application"
	pettypes "github.com/Apurer/pet-adoption-engine/internal/domains/pets/application/types"
	termdomain "github.com/Apurer/pet-adoption-engine/internal/domains/terms/domain"
	"github.com/Apurer/pet-adoption-engine/internal/platform/devicestore"
	"github.com/Apurer/pet-adoption-engine/internal/sandbox"
	"github.com/Apurer/pet-adoption-engine/internal/shared/remoteerr"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	backend := sandbox.NewBackend(sandbox.NewMemoryStore())
	require.NoError(t, sandbox.Seed(context.Background(), backend))
	srv := httptest.NewServer(sandbox.NewRouter(sandbox.NewAPI(backend), ""))
	t.Cleanup(srv.Close)

	cfg := Config{
		APIURL:           srv.URL,
		APITimeout:       2 * time.Second,
		DeviceStore:      DeviceStoreMemory,
		TemporalDisabled: true,
	}
	store := devicestore.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	e, err := New(context.Background(), cfg,
		WithDeviceStore(store),
		WithClientOptions(adoption.WithRetry(1, time.Millisecond)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, e.Close()) })
	return e
}

func TestEngine_AdoptionScenario(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Client.GetPet(ctx, 42)
	require.ErrorIs(t, err, remoteerr.ErrSession, "calls before sign-in carry no token")

	require.NoError(t, e.Session.SignIn(ctx, sandbox.UserAna, sandbox.TokenAna))

	res, err := e.Adoption.RequestAdopt(ctx, 42, sandbox.UserAna)
	require.NoError(t, err)
	require.Equal(t, pettypes.OutcomeAdded, res.Outcome)

	pet, err := e.Client.GetPet(ctx, 42)
	require.NoError(t, err)
	require.Equal(t, petdomain.StatusAvailable, pet.Status)

	_, err = e.Adoption.CompleteAdoption(ctx, 42, sandbox.UserAna, nil)
	require.ErrorIs(t, err, petsapp.ErrTermNotEmailed)

	c, err := e.Terms.For(termdomain.AdoptionKey(42, sandbox.UserAna))
	require.NoError(t, err)
	defer c.Close()
	view, err := c.Load(ctx)
	require.NoError(t, err)
	require.True(t, view.FormOpen)
	view, err = c.Submit(ctx, view.Draft.Signature, "")
	require.NoError(t, err)
	require.Equal(t, termdomain.StateCreated, view.State)
	view, err = c.SendEmail(ctx)
	require.NoError(t, err)
	require.Equal(t, termdomain.StateEmailed, view.State)

	handedOff := false
	done, err := e.Adoption.CompleteAdoption(ctx, 42, sandbox.UserAna, func(context.Context) error {
		handedOff = true
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, done.StatusErr)
	require.True(t, handedOff)

	pet, err = e.Client.GetPet(ctx, 42)
	require.NoError(t, err)
	require.Equal(t, petdomain.StatusAdopted, pet.Status)
}

func TestEngine_OwnPetIsBlocked(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, e.Session.SignIn(ctx, sandbox.UserAna, sandbox.TokenAna))

	res, err := e.Adoption.RequestAdopt(ctx, 45, sandbox.UserAna)
	require.NoError(t, err)
	require.Equal(t, pettypes.OutcomeBlocked, res.Outcome)
}

func TestEngine_SignOutDropsToken(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, e.Session.SignIn(ctx, sandbox.UserBruno, sandbox.TokenBruno))

	profile, err := e.Session.Profile(ctx, sandbox.UserBruno)
	require.NoError(t, err)
	require.Equal(t, "Bruno", profile.Name)

	require.NoError(t, e.Session.SignOut(ctx))
	_, err = e.Client.GetPet(ctx, 42)
	require.ErrorIs(t, err, remoteerr.ErrSession)
}

func TestOpenDeviceStore(t *testing.T) {
	store, err := OpenDeviceStore(context.Background(), Config{DeviceStore: DeviceStoreSQLite, DeviceStorePath: t.TempDir() + "/device.db"})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = OpenDeviceStore(context.Background(), Config{DeviceStore: "etcd"})
	require.Error(t, err)
}
