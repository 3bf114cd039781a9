package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/ppiankov/claimguard/internal/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS claims (
	id              TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL,
	merchant        TEXT NOT NULL DEFAULT '',
	service_type    TEXT NOT NULL DEFAULT '',
	category        TEXT NOT NULL DEFAULT '',
	location        TEXT NOT NULL DEFAULT '',
	amount          REAL NOT NULL DEFAULT 0,
	service_date    TEXT NOT NULL,
	submitted_at    TEXT NOT NULL,
	items           TEXT NOT NULL DEFAULT '[]',
	ip_address      TEXT NOT NULL DEFAULT '',
	content_hash    TEXT NOT NULL DEFAULT '',
	hash_key        TEXT NOT NULL DEFAULT '',
	fraud_confirmed INTEGER NOT NULL DEFAULT 0,
	fraud_template  TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_claims_user ON claims(user_id);
CREATE INDEX IF NOT EXISTS idx_claims_hash ON claims(hash_key);
`

const sqliteColumns = `id, user_id, merchant, service_type, category, location, amount,
	service_date, submitted_at, items, ip_address, content_hash, fraud_confirmed, fraud_template`

// SQLite stores claims in a local SQLite database file
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (and if needed creates) the database at path
func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the database connection
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Save(ctx context.Context, claim model.Claim) error {
	if err := checkClaim(claim); err != nil {
		return err
	}

	items, err := json.Marshal(nonNilItems(claim.Items))
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO claims (`+sqliteColumns+`, hash_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			merchant = excluded.merchant,
			service_type = excluded.service_type,
			category = excluded.category,
			location = excluded.location,
			amount = excluded.amount,
			service_date = excluded.service_date,
			submitted_at = excluded.submitted_at,
			items = excluded.items,
			ip_address = excluded.ip_address,
			content_hash = excluded.content_hash,
			hash_key = excluded.hash_key,
			fraud_confirmed = excluded.fraud_confirmed,
			fraud_template = excluded.fraud_template`,
		claim.ID, claim.UserID, claim.Merchant, claim.ServiceType, claim.Category, claim.Location, claim.Amount,
		formatTime(claim.ServiceDate), formatTime(claim.SubmittedAt), string(items), claim.IPAddress,
		claim.ContentHash, claim.FraudConfirmed, claim.FraudTemplate, claim.NormalizedHash(),
	)
	if err != nil {
		return fmt.Errorf("save claim %s: %w", claim.ID, err)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, id string) (model.Claim, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteColumns+` FROM claims WHERE id = ?`, id)
	c, err := scanSQLiteClaim(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Claim{}, fmt.Errorf("%w: %s", model.ErrClaimNotFound, id)
	}
	return c, err
}

func (s *SQLite) MarkFraudConfirmed(ctx context.Context, id, template string) (model.Claim, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE claims SET fraud_confirmed = 1, fraud_template = ? WHERE id = ?`, template, id)
	if err != nil {
		return model.Claim{}, fmt.Errorf("confirm claim %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Claim{}, fmt.Errorf("confirm claim %s: %w", id, err)
	}
	if n == 0 {
		return model.Claim{}, fmt.Errorf("%w: %s", model.ErrClaimNotFound, id)
	}
	return s.Get(ctx, id)
}

func (s *SQLite) History(ctx context.Context, userID string) ([]model.Claim, error) {
	return s.query(ctx, `SELECT `+sqliteColumns+` FROM claims WHERE user_id = ?`, userID)
}

func (s *SQLite) All(ctx context.Context) ([]model.Claim, error) {
	return s.query(ctx, `SELECT `+sqliteColumns+` FROM claims`)
}

func (s *SQLite) HasDuplicateHash(ctx context.Context, hash, excludingUserID string) (bool, error) {
	hash = model.NormalizeHash(hash)
	if hash == "" {
		return false, nil
	}

	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM claims WHERE hash_key = ? AND user_id <> ?)`,
		hash, excludingUserID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("duplicate hash query: %w", err)
	}
	return exists, nil
}

func (s *SQLite) query(ctx context.Context, query string, args ...any) ([]model.Claim, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query claims: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var claims []model.Claim
	for rows.Next() {
		c, err := scanSQLiteClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claims: %w", err)
	}

	sortClaims(claims)
	return claims, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteClaim(row rowScanner) (model.Claim, error) {
	var (
		c                      model.Claim
		serviceDate, submitted string
		items                  string
	)
	err := row.Scan(&c.ID, &c.UserID, &c.Merchant, &c.ServiceType, &c.Category, &c.Location, &c.Amount,
		&serviceDate, &submitted, &items, &c.IPAddress, &c.ContentHash, &c.FraudConfirmed, &c.FraudTemplate)
	if err != nil {
		return model.Claim{}, err
	}

	if c.ServiceDate, err = parseTime(serviceDate); err != nil {
		return model.Claim{}, fmt.Errorf("claim %s service_date: %w", c.ID, err)
	}
	if c.SubmittedAt, err = parseTime(submitted); err != nil {
		return model.Claim{}, fmt.Errorf("claim %s submitted_at: %w", c.ID, err)
	}
	if err := json.Unmarshal([]byte(items), &c.Items); err != nil {
		return model.Claim{}, fmt.Errorf("claim %s items: %w", c.ID, err)
	}
	if len(c.Items) == 0 {
		c.Items = nil
	}
	return c, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func nonNilItems(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
