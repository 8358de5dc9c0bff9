package db

import (
	"context"
	"testing"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSettingsStore(t *testing.T) *SettingsStore {
	t.Helper()
	store := NewSettingsStore(t.TempDir())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSettingsRoundTrip(t *testing.T) {
	store := newTestSettingsStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, ScopeGuild, "123", "welcome_channel", "456"))

	var got string
	ok, err := store.Get(ctx, ScopeGuild, "123", "welcome_channel", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "456", got)
}

func TestSettingsMissingKey(t *testing.T) {
	store := newTestSettingsStore(t)

	var got string
	ok, err := store.Get(context.Background(), ScopeUser, "1", "nope", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSettingsUpsertReplaces(t *testing.T) {
	store := newTestSettingsStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, ScopeGlobal, GlobalID, "mode", "guild"))
	require.NoError(t, store.Set(ctx, ScopeGlobal, GlobalID, "mode", "global"))

	var got string
	ok, err := store.Get(ctx, ScopeGlobal, GlobalID, "mode", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "global", got)
}

func TestSettingsScopeIsolation(t *testing.T) {
	store := newTestSettingsStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, ScopeGuild, "1", "k", 1))
	require.NoError(t, store.Set(ctx, ScopeGuild, "2", "k", 2))
	require.NoError(t, store.Set(ctx, ScopeUser, "1", "k", 3))

	var got int
	ok, err := store.Get(ctx, ScopeGuild, "1", "k", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, got)

	all, err := store.All(ctx, ScopeGuild, "2")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSettingsDelete(t *testing.T) {
	store := newTestSettingsStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, ScopeGuild, "1", "a", "x"))
	require.NoError(t, store.Set(ctx, ScopeGuild, "1", "b", "y"))

	require.NoError(t, store.Delete(ctx, ScopeGuild, "1", "a"))
	var got string
	ok, err := store.Get(ctx, ScopeGuild, "1", "a", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.DeleteScope(ctx, ScopeGuild, "1"))
	all, err := store.All(ctx, ScopeGuild, "1")
	require.NoError(t, err)
	assert.Empty(t, all)

	// deleting what is already gone is fine
	require.NoError(t, store.Delete(ctx, ScopeGuild, "1", "a"))
}

func TestAdminRoleIDsRoundTrip(t *testing.T) {
	store := newTestSettingsStore(t)
	ctx := context.Background()
	guildID := snowflake.ID(987654321098765432)

	ids, err := store.AdminRoleIDs(ctx, guildID)
	require.NoError(t, err)
	assert.Empty(t, ids)

	want := []snowflake.ID{111111111111111111, 222222222222222222}
	require.NoError(t, store.SetAdminRoleIDs(ctx, guildID, want))

	ids, err = store.AdminRoleIDs(ctx, guildID)
	require.NoError(t, err)
	assert.Equal(t, want, ids)
}
