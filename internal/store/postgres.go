package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ppiankov/claimguard/internal/model"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS claims (
	id              TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL,
	merchant        TEXT NOT NULL DEFAULT '',
	service_type    TEXT NOT NULL DEFAULT '',
	category        TEXT NOT NULL DEFAULT '',
	location        TEXT NOT NULL DEFAULT '',
	amount          DOUBLE PRECISION NOT NULL DEFAULT 0,
	service_date    TIMESTAMPTZ NOT NULL,
	submitted_at    TIMESTAMPTZ NOT NULL,
	items           TEXT[] NOT NULL DEFAULT '{}',
	ip_address      TEXT NOT NULL DEFAULT '',
	content_hash    TEXT NOT NULL DEFAULT '',
	hash_key        TEXT NOT NULL DEFAULT '',
	fraud_confirmed BOOLEAN NOT NULL DEFAULT FALSE,
	fraud_template  TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_claims_user ON claims(user_id, submitted_at, id);
CREATE INDEX IF NOT EXISTS idx_claims_hash ON claims(hash_key);
`

const postgresColumns = `id, user_id, merchant, service_type, category, location, amount,
	service_date, submitted_at, items, ip_address, content_hash, fraud_confirmed, fraud_template`

// Postgres stores claims in PostgreSQL through a pgx connection pool
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to dsn and ensures the schema exists
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// Close releases the pool
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) Save(ctx context.Context, claim model.Claim) error {
	if err := checkClaim(claim); err != nil {
		return err
	}

	_, err := p.pool.Exec(ctx, `
		INSERT INTO claims (`+postgresColumns+`, hash_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			merchant = EXCLUDED.merchant,
			service_type = EXCLUDED.service_type,
			category = EXCLUDED.category,
			location = EXCLUDED.location,
			amount = EXCLUDED.amount,
			service_date = EXCLUDED.service_date,
			submitted_at = EXCLUDED.submitted_at,
			items = EXCLUDED.items,
			ip_address = EXCLUDED.ip_address,
			content_hash = EXCLUDED.content_hash,
			hash_key = EXCLUDED.hash_key,
			fraud_confirmed = EXCLUDED.fraud_confirmed,
			fraud_template = EXCLUDED.fraud_template`,
		claim.ID, claim.UserID, claim.Merchant, claim.ServiceType, claim.Category, claim.Location, claim.Amount,
		claim.ServiceDate.UTC(), claim.SubmittedAt.UTC(), nonNilItems(claim.Items), claim.IPAddress,
		claim.ContentHash, claim.FraudConfirmed, claim.FraudTemplate, claim.NormalizedHash(),
	)
	if err != nil {
		return fmt.Errorf("save claim %s: %w", claim.ID, err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, id string) (model.Claim, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+postgresColumns+` FROM claims WHERE id = $1`, id)
	c, err := scanPostgresClaim(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Claim{}, fmt.Errorf("%w: %s", model.ErrClaimNotFound, id)
	}
	return c, err
}

func (p *Postgres) MarkFraudConfirmed(ctx context.Context, id, template string) (model.Claim, error) {
	row := p.pool.QueryRow(ctx, `
		UPDATE claims SET fraud_confirmed = TRUE, fraud_template = $2
		WHERE id = $1
		RETURNING `+postgresColumns, id, template)
	c, err := scanPostgresClaim(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Claim{}, fmt.Errorf("%w: %s", model.ErrClaimNotFound, id)
	}
	if err != nil {
		return model.Claim{}, fmt.Errorf("confirm claim %s: %w", id, err)
	}
	return c, nil
}

func (p *Postgres) History(ctx context.Context, userID string) ([]model.Claim, error) {
	return p.query(ctx, `SELECT `+postgresColumns+` FROM claims WHERE user_id = $1 ORDER BY submitted_at, id`, userID)
}

func (p *Postgres) All(ctx context.Context) ([]model.Claim, error) {
	return p.query(ctx, `SELECT `+postgresColumns+` FROM claims ORDER BY submitted_at, id`)
}

func (p *Postgres) HasDuplicateHash(ctx context.Context, hash, excludingUserID string) (bool, error) {
	hash = model.NormalizeHash(hash)
	if hash == "" {
		return false, nil
	}

	var exists bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM claims WHERE hash_key = $1 AND user_id <> $2)`,
		hash, excludingUserID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("duplicate hash query: %w", err)
	}
	return exists, nil
}

func (p *Postgres) query(ctx context.Context, query string, args ...any) ([]model.Claim, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query claims: %w", err)
	}
	defer rows.Close()

	var claims []model.Claim
	for rows.Next() {
		c, err := scanPostgresClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claims: %w", err)
	}
	return claims, nil
}

func scanPostgresClaim(row pgx.Row) (model.Claim, error) {
	var c model.Claim
	err := row.Scan(&c.ID, &c.UserID, &c.Merchant, &c.ServiceType, &c.Category, &c.Location, &c.Amount,
		&c.ServiceDate, &c.SubmittedAt, &c.Items, &c.IPAddress, &c.ContentHash, &c.FraudConfirmed, &c.FraudTemplate)
	if err != nil {
		return model.Claim{}, err
	}
	if len(c.Items) == 0 {
		c.Items = nil
	}
	c.ServiceDate = c.ServiceDate.UTC()
	c.SubmittedAt = c.SubmittedAt.UTC()
	return c, nil
}
