package proc

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"

	"github.com/gavinborne/fizzbuzz/db"
	"github.com/gavinborne/fizzbuzz/sys"
)

// Collection window for the yearly wrapped event. Messages before
// firstYear or after December 15th 23:59:59 UTC of their year are not
// recorded.
const (
	firstYear   = 2025
	cutoffMonth = time.December
	cutoffDay   = 15
)

const (
	commitEvery    = 64
	flushInterval  = 30 * time.Second
	historyPerPage = 100
)

var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp"}
var videoExtensions = []string{".mp4", ".mov"}

var metricsFlusherRunning int32
var metricsCatchupRunning int32

// MetricsCollector records message metadata into the per-year wrapped
// store. Inserts are batched; a commit happens every commitEvery rows
// per year, plus a periodic flush so quiet years still become durable.
type MetricsCollector struct {
	metrics  *db.MetricStore
	settings *db.SettingsStore

	mu      sync.Mutex
	pending map[int]int
}

// SetupMetrics wires the collector into the message event stream and
// registers its flush and catch-up daemons.
func SetupMetrics(metrics *db.MetricStore, settings *db.SettingsStore) *MetricsCollector {
	c := &MetricsCollector{
		metrics:  metrics,
		settings: settings,
		pending:  make(map[int]int),
	}

	sys.RegisterMessageCreateHandler(c.onMessage)
	sys.RegisterDaemon(sys.LogMetrics, func(ctx context.Context) (bool, func(), func()) {
		return c.startFlusher(ctx)
	})
	sys.OnClientReady(func(ctx context.Context, client *bot.Client) {
		sys.RegisterDaemon(sys.LogMetrics, func(ctx context.Context) (bool, func(), func()) {
			return c.startCatchup(ctx, client)
		})
	})
	return c
}

func (c *MetricsCollector) onMessage(event *events.MessageCreate) {
	if event.GuildID == nil {
		return
	}

	ctx := context.Background()
	if c.channelIgnored(ctx, *event.GuildID, event.ChannelID) {
		return
	}
	c.record(ctx, event.Message)
}

// record filters one message against the collection window and writes
// its row. Shared by the live listener and the startup catch-up.
func (c *MetricsCollector) record(ctx context.Context, message discord.Message) {
	if message.Author.Bot {
		return
	}

	createdAt := message.ID.Time().UTC()
	year, ok := CollectionYear(createdAt)
	if !ok {
		return
	}

	msg := db.Message{
		ID:        message.ID,
		ChannelID: message.ChannelID,
		AuthorID:  message.Author.ID,
		CreatedAt: createdAt,
		Content:   message.Content,
	}
	msg.AttachmentCount = len(message.Attachments)
	for _, attachment := range message.Attachments {
		contentType := ""
		if attachment.ContentType != nil {
			contentType = *attachment.ContentType
		}
		switch classifyAttachment(contentType, attachment.Filename) {
		case attachmentImage:
			msg.ImageCount++
		case attachmentVideo:
			msg.VideoCount++
		}
	}
	msg.StickerCount = len(message.StickerItems)
	msg.EmbedCount = len(message.Embeds)

	if err := c.metrics.InsertMessage(ctx, year, msg); err != nil {
		sys.LogMetrics(sys.MsgMetricsRecordFail, message.ID, err)
		return
	}
	c.noteInsert(ctx, year)
}

// channelIgnored consults the per-guild exclusion list. Lookup failures
// fall open so a settings hiccup never drops metrics.
func (c *MetricsCollector) channelIgnored(ctx context.Context, guildID, channelID snowflake.ID) bool {
	ignored, err := c.settings.IgnoredChannelIDs(ctx, guildID)
	if err != nil {
		return false
	}
	for _, id := range ignored {
		if id == channelID {
			return true
		}
	}
	return false
}

// noteInsert bumps the year's batch counter and commits once it
// reaches commitEvery.
func (c *MetricsCollector) noteInsert(ctx context.Context, year int) {
	c.mu.Lock()
	c.pending[year]++
	shouldCommit := c.pending[year] >= commitEvery
	if shouldCommit {
		c.pending[year] = 0
	}
	c.mu.Unlock()

	if shouldCommit {
		if err := c.metrics.Commit(ctx, year); err != nil {
			sys.LogMetrics(sys.MsgMetricsFlushFail, year, err)
		}
	}
}

// Flush commits every year with pending rows.
func (c *MetricsCollector) Flush(ctx context.Context) {
	c.mu.Lock()
	years := make([]int, 0, len(c.pending))
	for year, count := range c.pending {
		if count > 0 {
			years = append(years, year)
		}
		c.pending[year] = 0
	}
	c.mu.Unlock()

	for _, year := range years {
		if err := c.metrics.Commit(ctx, year); err != nil {
			sys.LogMetrics(sys.MsgMetricsFlushFail, year, err)
			continue
		}
		sys.LogMetrics(sys.MsgMetricsFlushed, year)
	}
}

func (c *MetricsCollector) startFlusher(ctx context.Context) (bool, func(), func()) {
	if !atomic.CompareAndSwapInt32(&metricsFlusherRunning, 0, 1) {
		return false, nil, nil
	}

	return true, func() {
			ticker := time.NewTicker(flushInterval)
			defer ticker.Stop()

			for {
				select {
				case <-ticker.C:
					c.Flush(ctx)
				case <-ctx.Done():
					return
				}
			}
		}, func() {
			sys.LogMetrics("Shutting down metrics collector...")
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			c.Flush(flushCtx)
		}
}

// ===========================
// Startup Catch-up
// ===========================

// startCatchup launches the one-shot history backfill. It walks every
// visible text channel forward from the last stored timestamp so
// messages sent while the bot was down still get recorded.
func (c *MetricsCollector) startCatchup(ctx context.Context, client *bot.Client) (bool, func(), func()) {
	if !atomic.CompareAndSwapInt32(&metricsCatchupRunning, 0, 1) {
		return false, nil, nil
	}

	return true, func() { c.runCatchup(ctx, client) }, nil
}

func (c *MetricsCollector) runCatchup(ctx context.Context, client *bot.Client) {
	year, startOfYear, windowEnd, ok := catchupWindow(time.Now())
	if !ok {
		sys.LogMetrics(sys.MsgMetricsCatchupSkipped)
		return
	}

	sys.LogMetrics(sys.MsgMetricsCatchupStarting, year)

	for ch := range client.Caches.Channels() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if ch.Type() != discord.ChannelTypeGuildText {
			continue
		}
		if c.channelIgnored(ctx, ch.GuildID(), ch.ID()) {
			continue
		}
		if err := c.catchupChannel(ctx, client, ch.ID(), year, startOfYear, windowEnd); err != nil {
			sys.LogMetrics(sys.MsgMetricsCatchupChannelFail, ch.ID(), err)
		}
	}

	c.Flush(ctx)
	sys.LogMetrics(sys.MsgMetricsCatchupFinished)
}

// catchupWindow derives the backfill range for the current year. Past
// the cutoff the live listener records nothing, but a gap inside the
// window still needs backfilling up to the cutoff, so windowEnd is the
// earlier of now and the cutoff.
func catchupWindow(now time.Time) (year int, startOfYear, windowEnd time.Time, ok bool) {
	now = now.UTC()
	year = now.Year()
	if year < firstYear {
		return 0, time.Time{}, time.Time{}, false
	}

	cutoff := time.Date(year, cutoffMonth, cutoffDay, 23, 59, 59, 0, time.UTC)
	windowEnd = now
	if cutoff.Before(now) {
		windowEnd = cutoff
	}
	startOfYear = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return year, startOfYear, windowEnd, true
}

// catchupChannel pages through one channel's history, oldest first,
// from the last recorded timestamp (or the start of the year) up to the
// window end. Pagination commits ride the usual commitEvery batching.
func (c *MetricsCollector) catchupChannel(ctx context.Context, client *bot.Client, channelID snowflake.ID, year int, startOfYear, windowEnd time.Time) error {
	latest, found, err := c.metrics.LatestTimestamp(ctx, year, channelID)
	if err != nil {
		return err
	}

	after := startOfYear
	if found {
		if !latest.Before(windowEnd) {
			return nil
		}
		after = latest
	}

	afterID := snowflake.New(after)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		messages, err := client.Rest.GetMessages(channelID, 0, 0, afterID, historyPerPage)
		if err != nil {
			return err
		}
		if len(messages) == 0 {
			return nil
		}

		advanced := false
		for _, message := range messages {
			if message.ID > afterID {
				afterID = message.ID
				advanced = true
			}
			if message.ID.Time().UTC().After(windowEnd) {
				continue
			}
			c.record(ctx, message)
		}
		if !advanced {
			return nil
		}
	}
}

// ===========================
// Classification
// ===========================

type attachmentKind int

const (
	attachmentOther attachmentKind = iota
	attachmentImage
	attachmentVideo
)

// classifyAttachment buckets an attachment by content type first, file
// extension second.
func classifyAttachment(contentType, filename string) attachmentKind {
	filename = strings.ToLower(filename)

	if strings.HasPrefix(contentType, "image/") {
		return attachmentImage
	}
	if strings.HasPrefix(contentType, "video/") {
		return attachmentVideo
	}
	for _, ext := range imageExtensions {
		if strings.HasSuffix(filename, ext) {
			return attachmentImage
		}
	}
	for _, ext := range videoExtensions {
		if strings.HasSuffix(filename, ext) {
			return attachmentVideo
		}
	}
	return attachmentOther
}

// CollectionYear maps a message timestamp to its wrapped year. ok is
// false when the message falls outside the collection window.
func CollectionYear(createdAt time.Time) (int, bool) {
	createdAt = createdAt.UTC()
	year := createdAt.Year()
	if year < firstYear {
		return 0, false
	}

	cutoff := time.Date(year, cutoffMonth, cutoffDay, 23, 59, 59, 0, time.UTC)
	if createdAt.After(cutoff) {
		return 0, false
	}
	return year, true
}
