package proc

import (
	"context"
	"testing"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gavinborne/fizzbuzz/db"
)

func TestClassifyAttachment(t *testing.T) {
	assert.Equal(t, attachmentImage, classifyAttachment("image/png", "whatever.bin"))
	assert.Equal(t, attachmentVideo, classifyAttachment("video/mp4", "clip.bin"))
	assert.Equal(t, attachmentImage, classifyAttachment("", "photo.JPEG"))
	assert.Equal(t, attachmentVideo, classifyAttachment("", "clip.mov"))
	assert.Equal(t, attachmentOther, classifyAttachment("application/pdf", "doc.pdf"))
	assert.Equal(t, attachmentOther, classifyAttachment("", "notes.txt"))
}

func TestCollectionYear(t *testing.T) {
	year, ok := CollectionYear(time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC))
	assert.True(t, ok)
	assert.Equal(t, 2026, year)

	// Before collection began.
	_, ok = CollectionYear(time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))
	assert.False(t, ok)

	// The cutoff itself is included, the next second is not.
	year, ok = CollectionYear(time.Date(2026, time.December, 15, 23, 59, 59, 0, time.UTC))
	assert.True(t, ok)
	assert.Equal(t, 2026, year)

	_, ok = CollectionYear(time.Date(2026, time.December, 16, 0, 0, 0, 0, time.UTC))
	assert.False(t, ok)
}

func TestCollectionYearNormalizesZone(t *testing.T) {
	// Dec 15 18:30 in UTC-7 is Dec 16 01:30 UTC, past the cutoff.
	zone := time.FixedZone("MST", -7*3600)
	_, ok := CollectionYear(time.Date(2026, time.December, 15, 18, 30, 0, 0, zone))
	assert.False(t, ok)
}

func TestCatchupWindow(t *testing.T) {
	// Mid-year the window runs up to the present.
	now := time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)
	year, start, end, ok := catchupWindow(now)
	require.True(t, ok)
	assert.Equal(t, 2026, year)
	assert.Equal(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, now, end)

	// After the cutoff the window is capped so the gap before the
	// cutoff can still be backfilled.
	year, _, end, ok = catchupWindow(time.Date(2026, time.December, 20, 0, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, 2026, year)
	assert.Equal(t, time.Date(2026, time.December, 15, 23, 59, 59, 0, time.UTC), end)

	_, _, _, ok = catchupWindow(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC))
	assert.False(t, ok)
}

func TestRecordWritesThroughStore(t *testing.T) {
	store := db.NewMetricStore(t.TempDir())
	defer store.Close()

	c := &MetricsCollector{
		metrics: store,
		pending: make(map[int]int),
	}

	ctx := context.Background()
	created := time.Date(2026, time.April, 2, 10, 30, 0, 0, time.UTC)
	msgID := snowflake.New(created)

	c.record(ctx, discord.Message{
		ID:        msgID,
		ChannelID: 7,
		Author:    discord.User{ID: 9},
		Content:   "hello there",
	})
	c.Flush(ctx)

	latest, found, err := store.LatestTimestamp(ctx, 2026, 7)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, msgID.Time().UTC(), latest.UTC())

	// Bot authors never produce rows.
	c.record(ctx, discord.Message{
		ID:        snowflake.New(created.Add(time.Hour)),
		ChannelID: 8,
		Author:    discord.User{ID: 10, Bot: true},
		Content:   "beep",
	})
	c.Flush(ctx)

	_, found, err = store.LatestTimestamp(ctx, 2026, 8)
	require.NoError(t, err)
	assert.False(t, found)
}
