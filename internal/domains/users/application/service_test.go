package application

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Apurer/pet-adoption-engine/internal/domains/users/adapters/device"
	"github.com/Apurer/pet-adoption-engine/internal/domains/users/domain"
	"github.com/Apurer/pet-adoption-engine/internal/domains/users/ports"
	"github.com/Apurer/pet-adoption-engine/internal/platform/devicestore"
	"github.com/Apurer/pet-adoption-engine/internal/shared/remoteerr"
)

type fakeRemote struct {
	mu       sync.Mutex
	profiles map[int64]domain.Profile
	err      error
	updates  int
}

func newFakeRemote(profiles ...domain.Profile) *fakeRemote {
	r := &fakeRemote{profiles: map[int64]domain.Profile{}}
	for _, p := range profiles {
		r.profiles[p.UserID] = p
	}
	return r
}

func (r *fakeRemote) Profile(_ context.Context, userID int64) (domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return domain.Profile{}, r.err
	}
	p, ok := r.profiles[userID]
	if !ok {
		return domain.Profile{}, remoteerr.New("fetch profile", remoteerr.KindNotFound, "Usuário não encontrado")
	}
	return p, nil
}

func (r *fakeRemote) UpdateProfile(_ context.Context, profile domain.Profile) (domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return domain.Profile{}, r.err
	}
	r.updates++
	r.profiles[profile.UserID] = profile
	return profile, nil
}

func ana() domain.Profile {
	return domain.Profile{UserID: 20, Name: "Ana", Email: "ana@example.com", Phone: "81988880000", City: "Olinda", State: "PE"}
}

func newSessionFixture(t *testing.T) (*Service, *fakeRemote, *device.SessionStore, *bytes.Buffer) {
	t.Helper()
	store := devicestore.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	sessions := device.NewSessionStore(store)
	remote := newFakeRemote(ana(), domain.Profile{UserID: 10, Name: "Bruno", Email: "bruno@example.com"})
	logs := &bytes.Buffer{}
	svc := NewService(sessions, remote, WithLogger(slog.New(slog.NewJSONHandler(logs, nil))))
	return svc, remote, sessions, logs
}

func TestService_SignInAndOut(t *testing.T) {
	svc, _, _, _ := newSessionFixture(t)
	ctx := context.Background()

	_, err := svc.CurrentUserID(ctx)
	require.ErrorIs(t, err, ports.ErrSignedOut)

	require.NoError(t, svc.SignIn(ctx, 20, "tok-ana"))
	id, err := svc.CurrentUserID(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(20), id)
	token, err := svc.Token(ctx)
	require.NoError(t, err)
	require.Equal(t, "tok-ana", token)

	require.NoError(t, svc.SignOut(ctx))
	_, err = svc.Token(ctx)
	require.ErrorIs(t, err, ports.ErrSignedOut)
}

func TestService_SignInRejectsEmptyToken(t *testing.T) {
	svc, _, _, _ := newSessionFixture(t)
	err := svc.SignIn(context.Background(), 20, " ")
	require.ErrorIs(t, err, ErrInvalidInput)
	require.ErrorIs(t, err, domain.ErrEmptyToken)
}

func TestService_SwitchingUserDropsCachedProfile(t *testing.T) {
	svc, _, sessions, _ := newSessionFixture(t)
	ctx := context.Background()
	require.NoError(t, svc.SignIn(ctx, 20, "tok-ana"))
	_, err := svc.Profile(ctx, 20)
	require.NoError(t, err)
	_, ok, err := sessions.CachedProfile(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, svc.SignIn(ctx, 10, "tok-bruno"))
	_, ok, err = sessions.CachedProfile(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestService_ProfileFallsBackToCacheWhenOffline(t *testing.T) {
	svc, remote, _, logs := newSessionFixture(t)
	ctx := context.Background()
	require.NoError(t, svc.SignIn(ctx, 20, "tok-ana"))
	_, err := svc.Profile(ctx, 20)
	require.NoError(t, err)

	remote.err = remoteerr.Classify("fetch profile", 503, "")
	profile, err := svc.Profile(ctx, 20)
	require.NoError(t, err)
	require.Equal(t, "Ana", profile.Name)
	require.Contains(t, logs.String(), "using cached profile")

	_, err = svc.Profile(ctx, 10)
	require.ErrorIs(t, err, remoteerr.ErrTransient)
}

func TestService_ProfileSessionErrorIsReturned(t *testing.T) {
	svc, remote, _, _ := newSessionFixture(t)
	ctx := context.Background()
	require.NoError(t, svc.SignIn(ctx, 20, "tok-ana"))
	_, err := svc.Profile(ctx, 20)
	require.NoError(t, err)

	remote.err = remoteerr.Classify("fetch profile", 401, "Token expirado")
	_, err = svc.Profile(ctx, 20)
	require.ErrorIs(t, err, remoteerr.ErrSession)
}

func TestService_UpdateProfile(t *testing.T) {
	svc, remote, sessions, _ := newSessionFixture(t)
	ctx := context.Background()

	_, err := svc.UpdateProfile(ctx, ana())
	require.ErrorIs(t, err, ports.ErrSignedOut)

	require.NoError(t, svc.SignIn(ctx, 20, "tok-ana"))
	changed := ana()
	changed.UserID = 0
	changed.Name = "  Ana Paula "
	changed.State = "pe"
	updated, err := svc.UpdateProfile(ctx, changed)
	require.NoError(t, err)
	require.Equal(t, "Ana Paula", updated.Name)
	require.Equal(t, "PE", updated.State)
	require.Equal(t, int64(20), updated.UserID)
	require.Equal(t, 1, remote.updates)

	cached, ok, err := sessions.CachedProfile(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Ana Paula", cached.Name)

	invalid := ana()
	invalid.Email = "ana.example.com"
	_, err = svc.UpdateProfile(ctx, invalid)
	require.ErrorIs(t, err, ErrInvalidInput)
	require.ErrorIs(t, err, domain.ErrInvalidEmail)

	other := ana()
	other.UserID = 10
	_, err = svc.UpdateProfile(ctx, other)
	require.ErrorIs(t, err, ErrNotOwnProfile)
	require.Equal(t, 1, remote.updates)
}
