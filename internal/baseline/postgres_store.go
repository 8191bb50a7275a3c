package baseline

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed baseline store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the baseline tables if they don't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS attribute_baselines (
			user_id          VARCHAR(64) NOT NULL,
			device_id        VARCHAR(128) NOT NULL,
			vpn_enabled      BOOLEAN NOT NULL DEFAULT FALSE,
			network          VARCHAR(16) NOT NULL DEFAULT '',
			known_ip_ranges  TEXT[] NOT NULL DEFAULT '{}',
			timezone         VARCHAR(64) NOT NULL DEFAULT '',
			login_hour_start SMALLINT NOT NULL DEFAULT 0,
			login_hour_end   SMALLINT NOT NULL DEFAULT 0,
			email            VARCHAR(255) NOT NULL DEFAULT '',
			os_version       VARCHAR(32) NOT NULL DEFAULT '',
			last_ip          VARCHAR(45) NOT NULL DEFAULT '',
			created_at       TIMESTAMPTZ DEFAULT NOW(),
			updated_at       TIMESTAMPTZ DEFAULT NOW(),
			PRIMARY KEY (user_id, device_id)
		);
		CREATE TABLE IF NOT EXISTS score_baselines (
			user_id       VARCHAR(64) NOT NULL,
			device_id     VARCHAR(128) NOT NULL,
			device_type   VARCHAR(16) NOT NULL DEFAULT 'primary',
			score         INTEGER NOT NULL DEFAULT 0,
			status        VARCHAR(16) NOT NULL DEFAULT '',
			last_login_at TIMESTAMPTZ,
			updated_at    TIMESTAMPTZ DEFAULT NOW(),
			PRIMARY KEY (user_id, device_id)
		);
	`)
	return err
}

// GetAttributes retrieves the attribute baseline for a user+device.
func (p *PostgresStore) GetAttributes(ctx context.Context, userID, deviceID string) (*Attributes, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT user_id, device_id, vpn_enabled, network, known_ip_ranges,
			timezone, login_hour_start, login_hour_end,
			email, os_version, last_ip, created_at, updated_at
		FROM attribute_baselines WHERE user_id = $1 AND device_id = $2
	`, userID, deviceID)

	var attrs Attributes
	var createdAt, updatedAt sql.NullTime
	err := row.Scan(
		&attrs.UserID, &attrs.DeviceID, &attrs.VPNEnabled, &attrs.Network,
		pq.Array(&attrs.KnownIPRanges),
		&attrs.Timezone, &attrs.LoginHourStart, &attrs.LoginHourEnd,
		&attrs.Email, &attrs.OSVersion, &attrs.LastIP, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get attribute baseline: %w", err)
	}
	if createdAt.Valid {
		attrs.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		attrs.UpdatedAt = updatedAt.Time
	}
	return &attrs, nil
}

// PutAttributes upserts the attribute baseline for a user+device.
func (p *PostgresStore) PutAttributes(ctx context.Context, attrs *Attributes) error {
	if attrs.UpdatedAt.IsZero() {
		attrs.UpdatedAt = time.Now()
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO attribute_baselines (
			user_id, device_id, vpn_enabled, network, known_ip_ranges,
			timezone, login_hour_start, login_hour_end,
			email, os_version, last_ip, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (user_id, device_id) DO UPDATE SET
			vpn_enabled      = EXCLUDED.vpn_enabled,
			network          = EXCLUDED.network,
			known_ip_ranges  = EXCLUDED.known_ip_ranges,
			timezone         = EXCLUDED.timezone,
			login_hour_start = EXCLUDED.login_hour_start,
			login_hour_end   = EXCLUDED.login_hour_end,
			email            = EXCLUDED.email,
			os_version       = EXCLUDED.os_version,
			last_ip          = EXCLUDED.last_ip,
			updated_at       = EXCLUDED.updated_at
	`,
		attrs.UserID, attrs.DeviceID, attrs.VPNEnabled, attrs.Network,
		pq.Array(attrs.KnownIPRanges),
		attrs.Timezone, attrs.LoginHourStart, attrs.LoginHourEnd,
		attrs.Email, attrs.OSVersion, attrs.LastIP,
		nullTimeOrValue(attrs.CreatedAt), attrs.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("put attribute baseline: %w", err)
	}
	return nil
}

// GetScore retrieves the previous score record for a user+device.
func (p *PostgresStore) GetScore(ctx context.Context, userID, deviceID string) (*ScoreRecord, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT user_id, device_id, device_type, score, status, last_login_at, updated_at
		FROM score_baselines WHERE user_id = $1 AND device_id = $2
	`, userID, deviceID)

	var rec ScoreRecord
	var lastLoginAt, updatedAt sql.NullTime
	err := row.Scan(&rec.UserID, &rec.DeviceID, &rec.DeviceType, &rec.Score, &rec.Status, &lastLoginAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get score baseline: %w", err)
	}
	if lastLoginAt.Valid {
		rec.LastLoginAt = lastLoginAt.Time
	}
	if updatedAt.Valid {
		rec.UpdatedAt = updatedAt.Time
	}
	return &rec, nil
}

// PutScore upserts the score record for a user+device.
func (p *PostgresStore) PutScore(ctx context.Context, rec *ScoreRecord) error {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO score_baselines (
			user_id, device_id, device_type, score, status, last_login_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, device_id) DO UPDATE SET
			device_type   = EXCLUDED.device_type,
			score         = EXCLUDED.score,
			status        = EXCLUDED.status,
			last_login_at = EXCLUDED.last_login_at,
			updated_at    = EXCLUDED.updated_at
	`,
		rec.UserID, rec.DeviceID, rec.DeviceType, rec.Score, rec.Status,
		nullTimeOrValue(rec.LastLoginAt), rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("put score baseline: %w", err)
	}
	return nil
}

// DeleteByDevice removes both baseline records for a user+device.
func (p *PostgresStore) DeleteByDevice(ctx context.Context, userID, deviceID string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM attribute_baselines WHERE user_id = $1 AND device_id = $2`, userID, deviceID); err != nil {
		return fmt.Errorf("delete attribute baseline: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM score_baselines WHERE user_id = $1 AND device_id = $2`, userID, deviceID); err != nil {
		return fmt.Errorf("delete score baseline: %w", err)
	}
	return tx.Commit()
}

// nullTimeOrValue returns a sql.NullTime: valid if t is non-zero, null otherwise.
func nullTimeOrValue(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
