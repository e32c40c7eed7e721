package scs

import (
	"context"
	"testing"

	"github.com/Anish-ai/vaultx"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadedStore(t *testing.T, prefix string) (*Store, *scs.SessionManager, context.Context) {
	t.Helper()
	sm := scs.New()
	sm.Store = memstore.New()
	ctx, err := sm.Load(context.Background(), "")
	require.NoError(t, err)
	return New(sm, prefix).WithContext(ctx), sm, ctx
}

func TestStore_GetSetDelete(t *testing.T) {
	store, sm, ctx := loadedStore(t, "")

	_, ok, err := store.Get("token")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set("token", "abc"))
	v, ok, err := store.Get("token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", v)

	// keys are namespaced inside the web session
	assert.Equal(t, "abc", sm.GetString(ctx, DefaultPrefix+"token"))
	assert.False(t, sm.Exists(ctx, "token"))

	require.NoError(t, store.Delete("token"))
	_, ok, _ = store.Get("token")
	assert.False(t, ok)
}

func TestStore_CustomPrefix(t *testing.T) {
	store, sm, ctx := loadedStore(t, "app:")
	require.NoError(t, store.Set("user", "{}"))
	assert.True(t, sm.Exists(ctx, "app:user"))
}

func TestStore_RenewTokenKeepsData(t *testing.T) {
	store, _, _ := loadedStore(t, "")
	require.NoError(t, store.Set("token", "abc"))
	require.NoError(t, store.RenewToken())

	v, ok, _ := store.Get("token")
	assert.True(t, ok)
	assert.Equal(t, "abc", v)
}

func TestStore_WithoutLoadedSession(t *testing.T) {
	sm := scs.New()
	sm.Store = memstore.New()

	tests := []struct {
		name  string
		store *Store
	}{
		{"unbound", New(sm, "")},
		{"context without session", New(sm, "").WithContext(context.Background())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.store.Get("token")
			assert.ErrorIs(t, err, ErrNoWebSession)
			assert.ErrorIs(t, tt.store.Set("token", "abc"), ErrNoWebSession)
			assert.ErrorIs(t, tt.store.Delete("token"), ErrNoWebSession)
			assert.ErrorIs(t, tt.store.RenewToken(), ErrNoWebSession)
		})
	}
}

func TestStore_AsSessionStore(t *testing.T) {
	store, _, _ := loadedStore(t, "")
	sessions := vaultx.NewSessionStore(store)

	require.NoError(t, sessions.Save(&vaultx.Session{Token: "tok"}))
	got, err := sessions.Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "tok", got.Token)

	// an unbound store surfaces the error rather than panicking
	unbound := vaultx.NewSessionStore(New(store.sm, ""))
	_, err = unbound.Load()
	assert.ErrorIs(t, err, ErrNoWebSession)
}
