package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/profile-control/pcc/internal/profile"
)

// SQLiteClient is the production store client, backed by a local SQLite
// database. Queries are fast enough to run inline on the reconciler's
// serial context.
type SQLiteClient struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (and if needed bootstraps) the profile database at path.
func OpenSQLite(path string) (*SQLiteClient, error) {
	if path == "" {
		path = "profiles.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS profiles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sub_id INTEGER NOT NULL,
		entry_name TEXT NOT NULL DEFAULT '',
		apn TEXT NOT NULL,
		type_mask INTEGER NOT NULL,
		network_type_mask INTEGER NOT NULL DEFAULT 0,
		protocol TEXT NOT NULL DEFAULT 'IP',
		roaming_protocol TEXT NOT NULL DEFAULT 'IP',
		enabled INTEGER NOT NULL DEFAULT 1,
		set_id INTEGER NOT NULL DEFAULT 0
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create profiles table: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS preferred_profile (
		sub_id INTEGER PRIMARY KEY,
		profile_id INTEGER NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create preferred_profile table: %w", err)
	}

	return &SQLiteClient{db: db, path: path}, nil
}

// QueryProfiles returns all rows for the subscription ordered by row id.
func (c *SQLiteClient) QueryProfiles(ctx context.Context, subscriptionID int) ([]Row, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, sub_id, entry_name, apn, type_mask,
		network_type_mask, protocol, roaming_protocol, enabled, set_id
		FROM profiles WHERE sub_id = ? ORDER BY id`, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("%w: query profiles: %v", ErrUnavailable, err)
	}
	defer func() { _ = rows.Close() }()

	var result []Row
	for rows.Next() {
		var r Row
		var enabled int
		if err := rows.Scan(&r.ID, &r.SubscriptionID, &r.EntryName, &r.Name, &r.TypeMask,
			&r.NetworkTypeMask, &r.Protocol, &r.RoamingProtocol, &enabled, &r.SetID); err != nil {
			return nil, fmt.Errorf("%w: scan profile row: %v", ErrUnavailable, err)
		}
		r.Enabled = enabled != 0
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate profile rows: %v", ErrUnavailable, err)
	}
	return result, nil
}

// QueryPreferredOverride returns the overridden preferred row id, 0 if none.
func (c *SQLiteClient) QueryPreferredOverride(ctx context.Context, subscriptionID int) (int64, error) {
	var rowID int64
	err := c.db.QueryRowContext(ctx,
		`SELECT profile_id FROM preferred_profile WHERE sub_id = ?`, subscriptionID).Scan(&rowID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: query preferred override: %v", ErrUnavailable, err)
	}
	return rowID, nil
}

// QueryPreferredSetID returns the set id of the override row, or
// profile.NoSetID when no override (or no matching row) exists.
func (c *SQLiteClient) QueryPreferredSetID(ctx context.Context, subscriptionID int) (int, error) {
	var setID int
	err := c.db.QueryRowContext(ctx, `SELECT p.set_id FROM profiles p
		JOIN preferred_profile pp ON pp.profile_id = p.id
		WHERE pp.sub_id = ?`, subscriptionID).Scan(&setID)
	if errors.Is(err, sql.ErrNoRows) {
		return profile.NoSetID, nil
	}
	if err != nil {
		return profile.NoSetID, fmt.Errorf("%w: query preferred set id: %v", ErrUnavailable, err)
	}
	return setID, nil
}

// WritePreferredOverride clears the existing override, then records rowID
// when non-zero.
func (c *SQLiteClient) WritePreferredOverride(ctx context.Context, subscriptionID int, rowID int64) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin override write: %v", ErrUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM preferred_profile WHERE sub_id = ?`, subscriptionID); err != nil {
		return fmt.Errorf("%w: clear preferred override: %v", ErrUnavailable, err)
	}
	if rowID != 0 {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO preferred_profile (sub_id, profile_id) VALUES (?, ?)`,
			subscriptionID, rowID); err != nil {
			return fmt.Errorf("%w: insert preferred override: %v", ErrUnavailable, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit override write: %v", ErrUnavailable, err)
	}
	return nil
}

// Close closes the underlying database.
func (c *SQLiteClient) Close() error {
	return c.db.Close()
}

// Path returns the database file path.
func (c *SQLiteClient) Path() string {
	return c.path
}

// Compile-time assertion that SQLiteClient implements Client.
var _ Client = (*SQLiteClient)(nil)
