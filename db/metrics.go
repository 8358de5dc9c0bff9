package db

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// metricTimeLayout is RFC 3339 with fixed-width nanoseconds so that
// MAX(created_at) on the TEXT column matches chronological order.
const metricTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var metricsSchema = []string{
	`CREATE TABLE IF NOT EXISTS messages (
		message_id       TEXT PRIMARY KEY,
		channel_id       TEXT NOT NULL,
		author_id        TEXT NOT NULL,
		created_at       TEXT NOT NULL,
		content          TEXT,
		word_count       INTEGER NOT NULL,
		char_count       INTEGER NOT NULL,
		attachment_count INTEGER NOT NULL,
		image_count      INTEGER NOT NULL,
		video_count      INTEGER NOT NULL,
		sticker_count    INTEGER NOT NULL,
		embed_count      INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_author_date
		ON messages (author_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_channel_date
		ON messages (channel_id, created_at)`,
}

// Message is one row of the yearly wrapped metrics table. Word and
// character counts are derived from Content at insert time.
type Message struct {
	ID              snowflake.ID
	ChannelID       snowflake.ID
	AuthorID        snowflake.ID
	CreatedAt       time.Time
	Content         string
	AttachmentCount int
	ImageCount      int
	VideoCount      int
	StickerCount    int
	EmbedCount      int
}

// partition owns the single connection for one year. Pending inserts
// accumulate in tx until Commit; reads on the same partition go through
// the pending transaction so they observe their own batch.
type partition struct {
	mu sync.Mutex
	db *sql.DB
	tx *sql.Tx
}

func (p *partition) ensureTx(ctx context.Context) (*sql.Tx, error) {
	if p.tx != nil {
		return p.tx, nil
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	p.tx = tx
	return tx, nil
}

// MetricStore manages one sqlite database per calendar year under its
// root directory. Connections are created lazily on first access and
// live until CloseYear/Close.
type MetricStore struct {
	mu    sync.Mutex
	root  string
	parts map[int]*partition
}

// NewMetricStore creates a store rooted at dir (e.g. "data/wrapped").
// No connections are opened until the first operation.
func NewMetricStore(dir string) *MetricStore {
	return &MetricStore{
		root:  dir,
		parts: make(map[int]*partition),
	}
}

// DBPath computes the database path for a given year.
func (s *MetricStore) DBPath(year int) string {
	return filepath.Join(s.root, fmt.Sprintf("wrapped_%d.sqlite", year))
}

// partition returns the cached partition for year, opening and
// schema-initializing it first if absent. The store lock is held across
// check-and-create so two callers racing on an unopened year cannot both
// initialize it. A partition that fails schema init is not cached.
func (s *MetricStore) partition(year int) (*partition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.parts[year]; ok {
		return p, nil
	}

	conn, err := openSQLite(s.DBPath(year))
	if err != nil {
		return nil, storageErr(strconv.Itoa(year), "open", err)
	}
	for _, q := range metricsSchema {
		if _, err := conn.Exec(q); err != nil {
			conn.Close()
			return nil, storageErr(strconv.Itoa(year), "schema", err)
		}
	}

	p := &partition{db: conn}
	s.parts[year] = p
	return p, nil
}

// InsertMessage writes one row into the year's messages table as part of
// the partition's pending batch. Durability requires a later Commit.
func (s *MetricStore) InsertMessage(ctx context.Context, year int, msg Message) error {
	p, err := s.partition(year)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	tx, err := p.ensureTx(ctx)
	if err != nil {
		return storageErr(strconv.Itoa(year), "begin", err)
	}

	wordCount := len(strings.Fields(msg.Content))
	charCount := len([]rune(msg.Content))

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO messages (
			message_id, channel_id, author_id, created_at, content,
			word_count, char_count,
			attachment_count, image_count, video_count, sticker_count, embed_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, msg.ID.String(), msg.ChannelID.String(), msg.AuthorID.String(),
		msg.CreatedAt.UTC().Format(metricTimeLayout), msg.Content,
		wordCount, charCount,
		msg.AttachmentCount, msg.ImageCount, msg.VideoCount, msg.StickerCount, msg.EmbedCount)
	if err != nil {
		return storageErr(strconv.Itoa(year), "insert", err)
	}
	return nil
}

// Commit flushes the year's pending batch. A year with no pending
// inserts is a no-op.
func (s *MetricStore) Commit(ctx context.Context, year int) error {
	p, err := s.partition(year)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.tx == nil {
		return nil
	}
	tx := p.tx
	p.tx = nil
	if err := tx.Commit(); err != nil {
		return storageErr(strconv.Itoa(year), "commit", err)
	}
	return nil
}

// LatestTimestamp returns the most recent stored message timestamp for a
// channel in the given year. ok is false when no rows match.
func (s *MetricStore) LatestTimestamp(ctx context.Context, year int, channelID snowflake.ID) (time.Time, bool, error) {
	p, err := s.partition(year)
	if err != nil {
		return time.Time{}, false, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	query := `SELECT MAX(created_at) FROM messages WHERE channel_id = ?`
	var row *sql.Row
	if p.tx != nil {
		row = p.tx.QueryRowContext(ctx, query, channelID.String())
	} else {
		row = p.db.QueryRowContext(ctx, query, channelID.String())
	}

	var raw sql.NullString
	if err := row.Scan(&raw); err != nil {
		return time.Time{}, false, storageErr(strconv.Itoa(year), "query", err)
	}
	if !raw.Valid {
		return time.Time{}, false, nil
	}

	ts, err := time.Parse(time.RFC3339Nano, raw.String)
	if err != nil {
		return time.Time{}, false, storageErr(strconv.Itoa(year), "parse", err)
	}
	return ts, true, nil
}

// CloseYear releases one year's connection, rolling back any uncommitted
// batch. Closing an unopened or already-closed year is a no-op.
func (s *MetricStore) CloseYear(year int) error {
	s.mu.Lock()
	p, ok := s.parts[year]
	delete(s.parts, year)
	s.mu.Unlock()

	if !ok {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tx != nil {
		_ = p.tx.Rollback()
		p.tx = nil
	}
	if err := p.db.Close(); err != nil {
		return storageErr(strconv.Itoa(year), "close", err)
	}
	return nil
}

// Close releases all open connections.
func (s *MetricStore) Close() error {
	s.mu.Lock()
	years := make([]int, 0, len(s.parts))
	for y := range s.parts {
		years = append(years, y)
	}
	s.mu.Unlock()

	var firstErr error
	for _, y := range years {
		if err := s.CloseYear(y); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
