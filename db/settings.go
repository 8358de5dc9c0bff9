package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

const settingsKey = "settings"

var settingsSchema = []string{
	`CREATE TABLE IF NOT EXISTS settings (
		scope       TEXT NOT NULL,
		scope_id    TEXT NOT NULL,
		key         TEXT NOT NULL,
		value_json  TEXT,
		updated_at  TEXT NOT NULL,
		PRIMARY KEY (scope, scope_id, key)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_settings_scope
		ON settings (scope, scope_id)`,
}

// Scope partitions settings rows by what they describe.
type Scope string

const (
	ScopeGuild  Scope = "guild"
	ScopeUser   Scope = "user"
	ScopeGlobal Scope = "global"
)

// GlobalID is the scope id used with ScopeGlobal.
const GlobalID = "global"

// SettingsStore is the singleton-partition counterpart of MetricStore:
// one sqlite file holding (scope, scope_id, key) -> JSON value rows.
type SettingsStore struct {
	mu   sync.Mutex
	path string
	db   *sql.DB
}

// NewSettingsStore creates a store backed by dir/bot.sqlite. The
// connection is opened lazily on first use.
func NewSettingsStore(dir string) *SettingsStore {
	return &SettingsStore{path: filepath.Join(dir, "bot.sqlite")}
}

// conn returns the cached connection, creating and schema-initializing
// it on first call. A connection that fails schema init is not cached.
func (s *SettingsStore) conn() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return s.db, nil
	}

	conn, err := openSQLite(s.path)
	if err != nil {
		return nil, storageErr(settingsKey, "open", err)
	}
	for _, q := range settingsSchema {
		if _, err := conn.Exec(q); err != nil {
			conn.Close()
			return nil, storageErr(settingsKey, "schema", err)
		}
	}
	s.db = conn
	return conn, nil
}

// Set inserts or updates a setting. value must be JSON-serializable.
func (s *SettingsStore) Set(ctx context.Context, scope Scope, scopeID, key string, value any) error {
	conn, err := s.conn()
	if err != nil {
		return err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return storageErr(settingsKey, "encode", err)
	}

	_, err = conn.ExecContext(ctx, `
		INSERT INTO settings (scope, scope_id, key, value_json, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(scope, scope_id, key) DO UPDATE SET
			value_json = excluded.value_json,
			updated_at = excluded.updated_at
	`, string(scope), scopeID, key, string(raw), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return storageErr(settingsKey, "set", err)
	}
	return nil
}

// Get fetches a single setting into dest. ok is false when the key has
// never been set.
func (s *SettingsStore) Get(ctx context.Context, scope Scope, scopeID, key string, dest any) (bool, error) {
	conn, err := s.conn()
	if err != nil {
		return false, err
	}

	var raw sql.NullString
	err = conn.QueryRowContext(ctx, `
		SELECT value_json FROM settings
		WHERE scope = ? AND scope_id = ? AND key = ?
	`, string(scope), scopeID, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, storageErr(settingsKey, "get", err)
	}
	if !raw.Valid {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw.String), dest); err != nil {
		return false, storageErr(settingsKey, "decode", err)
	}
	return true, nil
}

// All fetches every setting stored for a scope.
func (s *SettingsStore) All(ctx context.Context, scope Scope, scopeID string) (map[string]json.RawMessage, error) {
	conn, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := conn.QueryContext(ctx, `
		SELECT key, value_json FROM settings
		WHERE scope = ? AND scope_id = ?
	`, string(scope), scopeID)
	if err != nil {
		return nil, storageErr(settingsKey, "all", err)
	}
	defer rows.Close()

	values := make(map[string]json.RawMessage)
	for rows.Next() {
		var key string
		var raw sql.NullString
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, storageErr(settingsKey, "all", err)
		}
		if raw.Valid {
			values[key] = json.RawMessage(raw.String)
		}
	}
	return values, rows.Err()
}

// Delete removes a single setting. Deleting an absent key is a no-op.
func (s *SettingsStore) Delete(ctx context.Context, scope Scope, scopeID, key string) error {
	conn, err := s.conn()
	if err != nil {
		return err
	}
	_, err = conn.ExecContext(ctx, `
		DELETE FROM settings WHERE scope = ? AND scope_id = ? AND key = ?
	`, string(scope), scopeID, key)
	if err != nil {
		return storageErr(settingsKey, "delete", err)
	}
	return nil
}

// DeleteScope removes every setting for a scope.
func (s *SettingsStore) DeleteScope(ctx context.Context, scope Scope, scopeID string) error {
	conn, err := s.conn()
	if err != nil {
		return err
	}
	_, err = conn.ExecContext(ctx, `
		DELETE FROM settings WHERE scope = ? AND scope_id = ?
	`, string(scope), scopeID)
	if err != nil {
		return storageErr(settingsKey, "delete_scope", err)
	}
	return nil
}

// Close releases the connection. Closing a never-opened store is a no-op.
func (s *SettingsStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	conn := s.db
	s.db = nil
	if err := conn.Close(); err != nil {
		return storageErr(settingsKey, "close", err)
	}
	return nil
}

// --- Typed helpers ---

const keyAdminRoles = "admin_role_ids"
const keyIgnoredChannels = "metrics_ignored_channels"

// AdminRoleIDs returns the roles a guild has marked as bot admins.
func (s *SettingsStore) AdminRoleIDs(ctx context.Context, guildID snowflake.ID) ([]snowflake.ID, error) {
	var raw []string
	ok, err := s.Get(ctx, ScopeGuild, guildID.String(), keyAdminRoles, &raw)
	if err != nil || !ok {
		return nil, err
	}

	ids := make([]snowflake.ID, 0, len(raw))
	for _, r := range raw {
		if id, err := snowflake.Parse(r); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// SetAdminRoleIDs replaces a guild's admin role list.
func (s *SettingsStore) SetAdminRoleIDs(ctx context.Context, guildID snowflake.ID, ids []snowflake.ID) error {
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}
	return s.Set(ctx, ScopeGuild, guildID.String(), keyAdminRoles, raw)
}

// GetState reads a global key/value pair, for small pieces of loader
// state that must survive restarts. Missing keys read as "".
func (s *SettingsStore) GetState(ctx context.Context, key string) (string, error) {
	var value string
	ok, err := s.Get(ctx, ScopeGlobal, GlobalID, key, &value)
	if err != nil || !ok {
		return "", err
	}
	return value, nil
}

// SetState writes a global key/value pair.
func (s *SettingsStore) SetState(ctx context.Context, key, value string) error {
	return s.Set(ctx, ScopeGlobal, GlobalID, key, value)
}

// IgnoredChannelIDs returns the channels a guild excluded from metrics
// logging.
func (s *SettingsStore) IgnoredChannelIDs(ctx context.Context, guildID snowflake.ID) ([]snowflake.ID, error) {
	var raw []string
	ok, err := s.Get(ctx, ScopeGuild, guildID.String(), keyIgnoredChannels, &raw)
	if err != nil || !ok {
		return nil, err
	}

	ids := make([]snowflake.ID, 0, len(raw))
	for _, r := range raw {
		if id, err := snowflake.Parse(r); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// SetIgnoredChannelIDs replaces a guild's metrics channel ignore list.
func (s *SettingsStore) SetIgnoredChannelIDs(ctx context.Context, guildID snowflake.ID, ids []snowflake.ID) error {
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}
	return s.Set(ctx, ScopeGuild, guildID.String(), keyIgnoredChannels, raw)
}
