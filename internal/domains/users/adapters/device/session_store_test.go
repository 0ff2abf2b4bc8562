package device

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Apurer/pet-adoption-engine/internal/domains/users/domain"
	"github.com/Apurer/pet-adoption-engine/internal/platform/devicestore"
)

func TestSessionStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "device.db")

	store, err := devicestore.OpenSQLite(path)
	require.NoError(t, err)
	sessions := NewSessionStore(store)
	require.NoError(t, sessions.Save(ctx, domain.Session{UserID: 20, Token: "tok-ana"}))
	require.NoError(t, sessions.CacheProfile(ctx, domain.Profile{UserID: 20, Name: "Ana", Email: "ana@example.com"}))
	require.NoError(t, store.Close())

	store, err = devicestore.OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	sessions = NewSessionStore(store)

	session, ok, err := sessions.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, domain.Session{UserID: 20, Token: "tok-ana"}, session)
	profile, ok, err := sessions.CachedProfile(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Ana", profile.Name)

	require.NoError(t, sessions.Clear(ctx))
	_, ok, err = sessions.Load(ctx)
	require.NoError(t, err)
	require.False(t, ok)
	_, ok, err = sessions.CachedProfile(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}
