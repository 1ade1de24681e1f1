package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/iconidentify/scriptcast/internal/domain"
)

// SQLiteSessionRepository implements SessionRepository and
// ConfigRepository backed by a SQLite database.
type SQLiteSessionRepository struct {
	db *sql.DB
}

// NewSQLiteSessionRepository opens the database at path and creates
// the schema if missing.
func NewSQLiteSessionRepository(path string) (*SQLiteSessionRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Concurrent workers and handlers share one connection pool;
	// SQLite serializes writers, so keep a single writer connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			script TEXT,
			publication_status TEXT NOT NULL DEFAULT '',
			published_at TIMESTAMP,
			lease_owner TEXT NOT NULL DEFAULT '',
			lease_expiry TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_owner ON sessions(owner_id);

		CREATE TABLE IF NOT EXISTS app_config (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteSessionRepository{db: db}, nil
}

// Close closes the underlying database.
func (r *SQLiteSessionRepository) Close() error {
	return r.db.Close()
}

// Create inserts a new session row.
func (r *SQLiteSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	var script any
	if session.Script != nil {
		data, err := json.Marshal(session.Script)
		if err != nil {
			return fmt.Errorf("marshal script: %w", err)
		}
		script = string(data)
	}

	createdAt := session.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, owner_id, script, publication_status, published_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		session.ID.String(), session.OwnerID, script,
		session.PublicationStatus, session.PublishedAt, createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Get retrieves a session by ID.
func (r *SQLiteSessionRepository) Get(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT session_id, owner_id, script, publication_status, published_at,
		       lease_owner, lease_expiry, created_at
		FROM sessions WHERE session_id = ?`, id.String())

	var (
		session     domain.Session
		sessionID   string
		script      sql.NullString
		publishedAt sql.NullTime
		leaseExpiry sql.NullTime
	)
	err := row.Scan(&sessionID, &session.OwnerID, &script, &session.PublicationStatus,
		&publishedAt, &session.LeaseOwner, &leaseExpiry, &session.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}

	session.ID = domain.SessionID(sessionID)
	if script.Valid && script.String != "" {
		var s domain.Script
		if err := json.Unmarshal([]byte(script.String), &s); err != nil {
			return nil, fmt.Errorf("unmarshal script: %w", err)
		}
		session.Script = &s
	}
	if publishedAt.Valid {
		t := publishedAt.Time
		session.PublishedAt = &t
	}
	if leaseExpiry.Valid {
		t := leaseExpiry.Time
		session.LeaseExpiry = &t
	}

	return &session, nil
}

// UpdateScript stores the extracted two-part script.
func (r *SQLiteSessionRepository) UpdateScript(ctx context.Context, id domain.SessionID, script domain.Script) error {
	data, err := json.Marshal(script)
	if err != nil {
		return fmt.Errorf("marshal script: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET script = ? WHERE session_id = ?`,
		string(data), id.String())
	if err != nil {
		return fmt.Errorf("update script: %w", err)
	}
	return requireRow(res)
}

// UpdatePublication sets the publication status and timestamp.
func (r *SQLiteSessionRepository) UpdatePublication(ctx context.Context, id domain.SessionID, status string, publishedAt *time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET publication_status = ?, published_at = ? WHERE session_id = ?`,
		status, publishedAt, id.String())
	if err != nil {
		return fmt.Errorf("update publication: %w", err)
	}
	return requireRow(res)
}

// AcquireLease claims the session for one generation run using a
// compare-and-set on the lease columns. A second trigger while a live
// lease is held gets domain.ErrGenerationInFlight.
func (r *SQLiteSessionRepository) AcquireLease(ctx context.Context, id domain.SessionID, owner string, ttl time.Duration) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET lease_owner = ?, lease_expiry = ?
		WHERE session_id = ? AND (lease_owner = '' OR lease_expiry IS NULL OR lease_expiry <= ?)`,
		owner, now.Add(ttl), id.String(), now)
	if err != nil {
		return fmt.Errorf("acquire lease: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("acquire lease: %w", err)
	}
	if n > 0 {
		return nil
	}

	// CAS missed: either the row is gone or someone holds the lease.
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return domain.ErrGenerationInFlight
}

// ReleaseLease clears the lease if still held by owner.
func (r *SQLiteSessionRepository) ReleaseLease(ctx context.Context, id domain.SessionID, owner string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET lease_owner = '', lease_expiry = NULL
		WHERE session_id = ? AND lease_owner = ?`,
		id.String(), owner)
	if err != nil {
		return fmt.Errorf("release lease: %w", err)
	}
	return nil
}

// Get retrieves a config value by key.
func (r *SQLiteSessionRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM app_config WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get config: %w", err)
	}
	return value, nil
}

// SetConfig upserts a config value.
func (r *SQLiteSessionRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO app_config (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set config: %w", err)
	}
	return nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}
