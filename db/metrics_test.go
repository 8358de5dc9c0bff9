package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetricStore(t *testing.T) *MetricStore {
	t.Helper()
	store := NewMetricStore(filepath.Join(t.TempDir(), "data", "wrapped"))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testMessage(id, channel snowflake.ID, at time.Time) Message {
	return Message{
		ID:        id,
		ChannelID: channel,
		AuthorID:  9,
		CreatedAt: at,
		Content:   "hi",
	}
}

func TestPartitionAcquireIsIdempotent(t *testing.T) {
	store := newTestMetricStore(t)

	p1, err := store.partition(2026)
	require.NoError(t, err)
	p2, err := store.partition(2026)
	require.NoError(t, err)

	assert.Same(t, p1, p2)

	_, err = os.Stat(store.DBPath(2026))
	require.NoError(t, err)

	var name string
	err = p1.db.QueryRow(
		`SELECT name FROM sqlite_master WHERE type='table' AND name='messages'`,
	).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "messages", name)
}

func TestInsertCommitRoundTrip(t *testing.T) {
	store := newTestMetricStore(t)
	ctx := context.Background()

	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertMessage(ctx, 2024, testMessage(1, 7, created)))
	require.NoError(t, store.Commit(ctx, 2024))

	ts, ok, err := store.LatestTimestamp(ctx, 2024, 7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, ts.Equal(created), "got %v, want %v", ts, created)
}

func TestLatestTimestampPicksNewest(t *testing.T) {
	store := newTestMetricStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertMessage(ctx, 2026, testMessage(1, 7, base)))
	require.NoError(t, store.InsertMessage(ctx, 2026, testMessage(2, 7, base.Add(time.Second))))
	require.NoError(t, store.InsertMessage(ctx, 2026, testMessage(3, 7, base.Add(500*time.Millisecond))))
	require.NoError(t, store.Commit(ctx, 2026))

	ts, ok, err := store.LatestTimestamp(ctx, 2026, 7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, ts.Equal(base.Add(time.Second)))
}

func TestPartitionIsolation(t *testing.T) {
	store := newTestMetricStore(t)
	ctx := context.Background()

	created := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertMessage(ctx, 2024, testMessage(1, 7, created)))
	require.NoError(t, store.Commit(ctx, 2024))

	_, ok, err := store.LatestTimestamp(ctx, 2025, 7)
	require.NoError(t, err)
	assert.False(t, ok, "2024 write must not be visible under 2025")

	_, ok, err = store.LatestTimestamp(ctx, 2024, 8)
	require.NoError(t, err)
	assert.False(t, ok, "channel filter must apply")
}

func TestUncommittedBatchIsRolledBackOnClose(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "wrapped")
	store := NewMetricStore(dir)
	ctx := context.Background()

	created := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertMessage(ctx, 2026, testMessage(1, 7, created)))

	// visible through the pending transaction
	_, ok, err := store.LatestTimestamp(ctx, 2026, 7)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.CloseYear(2026))

	reopened := NewMetricStore(dir)
	defer reopened.Close()
	_, ok, err = reopened.LatestTimestamp(ctx, 2026, 7)
	require.NoError(t, err)
	assert.False(t, ok, "uncommitted insert must not survive close")
}

func TestCommitSurvivesReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "wrapped")
	store := NewMetricStore(dir)
	ctx := context.Background()

	created := time.Date(2026, 2, 2, 8, 30, 0, 0, time.UTC)
	require.NoError(t, store.InsertMessage(ctx, 2026, testMessage(1, 7, created)))
	require.NoError(t, store.Commit(ctx, 2026))
	require.NoError(t, store.Close())

	reopened := NewMetricStore(dir)
	defer reopened.Close()
	ts, ok, err := reopened.LatestTimestamp(ctx, 2026, 7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, ts.Equal(created))
}

func TestCloseIsIdempotent(t *testing.T) {
	store := newTestMetricStore(t)

	require.NoError(t, store.CloseYear(2030)) // never opened

	_, err := store.partition(2026)
	require.NoError(t, err)
	require.NoError(t, store.CloseYear(2026))
	require.NoError(t, store.CloseYear(2026))
	require.NoError(t, store.Close())
}

func TestInsertComputesWordAndCharCounts(t *testing.T) {
	store := newTestMetricStore(t)
	ctx := context.Background()

	msg := testMessage(1, 7, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	msg.Content = "Hello, world!   Me"
	require.NoError(t, store.InsertMessage(ctx, 2026, msg))
	require.NoError(t, store.Commit(ctx, 2026))

	p, err := store.partition(2026)
	require.NoError(t, err)

	var words, chars int
	err = p.db.QueryRow(`SELECT word_count, char_count FROM messages WHERE message_id = '1'`).
		Scan(&words, &chars)
	require.NoError(t, err)
	assert.Equal(t, 3, words)
	assert.Equal(t, 18, chars)
}
