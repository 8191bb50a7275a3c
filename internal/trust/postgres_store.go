package trust

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
)

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store backed by PostgreSQL. Factor breakdowns
// and bot/decay sub-reports are stored as JSONB: they are read back
// whole for audit, never queried field-by-field.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed evaluation store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the evaluations table if it doesn't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS evaluations (
			id              VARCHAR(48) PRIMARY KEY,
			user_id         VARCHAR(64) NOT NULL,
			device_id       VARCHAR(128) NOT NULL,
			device_type     VARCHAR(16) NOT NULL DEFAULT 'primary',
			score           INTEGER NOT NULL,
			status          VARCHAR(16) NOT NULL,
			factors         JSONB NOT NULL DEFAULT '[]',
			flags           TEXT[] NOT NULL DEFAULT '{}',
			hard_blocked    BOOLEAN NOT NULL DEFAULT FALSE,
			hard_block_rule VARCHAR(64) NOT NULL DEFAULT '',
			bot             JSONB NOT NULL DEFAULT '{}',
			decay           JSONB,
			evaluated_at    TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_evaluations_user ON evaluations(user_id, evaluated_at DESC);
		CREATE INDEX IF NOT EXISTS idx_evaluations_device ON evaluations(user_id, device_id, evaluated_at DESC);
	`)
	return err
}

func (p *PostgresStore) Record(ctx context.Context, report *Report) error {
	factors, err := json.Marshal(report.Factors)
	if err != nil {
		return fmt.Errorf("marshal factors: %w", err)
	}
	bot, err := json.Marshal(report.Bot)
	if err != nil {
		return fmt.Errorf("marshal bot report: %w", err)
	}
	var decay []byte
	if report.Decay != nil {
		decay, err = json.Marshal(report.Decay)
		if err != nil {
			return fmt.Errorf("marshal decay: %w", err)
		}
	}

	flags := make([]string, len(report.Flags))
	for i, f := range report.Flags {
		flags[i] = string(f)
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO evaluations (
			id, user_id, device_id, device_type, score, status,
			factors, flags, hard_blocked, hard_block_rule, bot, decay, evaluated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		report.ID, report.UserID, report.DeviceID, string(report.DeviceType),
		report.Score, string(report.Status),
		factors, pq.Array(flags), report.HardBlocked, report.HardBlockRule,
		bot, nullBytes(decay), report.EvaluatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert evaluation: %w", err)
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Report, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, user_id, device_id, device_type, score, status,
			factors, flags, hard_blocked, hard_block_rule, bot, decay, evaluated_at
		FROM evaluations WHERE id = $1
	`, id)

	report, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, ErrEvaluationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get evaluation: %w", err)
	}
	return report, nil
}

func (p *PostgresStore) ListByUser(ctx context.Context, userID string, limit int) ([]*Report, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, device_id, device_type, score, status,
			factors, flags, hard_blocked, hard_block_rule, bot, decay, evaluated_at
		FROM evaluations WHERE user_id = $1
		ORDER BY evaluated_at DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanReports(rows)
}

func (p *PostgresStore) ListByDevice(ctx context.Context, userID, deviceID string, limit int) ([]*Report, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, device_id, device_type, score, status,
			factors, flags, hard_blocked, hard_block_rule, bot, decay, evaluated_at
		FROM evaluations WHERE user_id = $1 AND device_id = $2
		ORDER BY evaluated_at DESC LIMIT $3
	`, userID, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("list device evaluations: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanReports(rows)
}

// scannable abstracts *sql.Row and *sql.Rows for shared scanning logic.
type scannable interface {
	Scan(dest ...interface{}) error
}

func scanReport(row scannable) (*Report, error) {
	var (
		report       Report
		deviceType   string
		status       string
		factors, bot []byte
		decay        []byte
		flags        []string
	)
	err := row.Scan(
		&report.ID, &report.UserID, &report.DeviceID, &deviceType,
		&report.Score, &status,
		&factors, pq.Array(&flags), &report.HardBlocked, &report.HardBlockRule,
		&bot, &decay, &report.EvaluatedAt,
	)
	if err != nil {
		return nil, err
	}

	report.DeviceType = DeviceType(deviceType)
	report.Status = Status(status)
	if err := json.Unmarshal(factors, &report.Factors); err != nil {
		return nil, fmt.Errorf("unmarshal factors: %w", err)
	}
	if err := json.Unmarshal(bot, &report.Bot); err != nil {
		return nil, fmt.Errorf("unmarshal bot report: %w", err)
	}
	if len(decay) > 0 {
		var d DecaySnapshot
		if err := json.Unmarshal(decay, &d); err != nil {
			return nil, fmt.Errorf("unmarshal decay: %w", err)
		}
		report.Decay = &d
	}
	for _, f := range flags {
		report.Flags = append(report.Flags, Flag(f))
	}
	return &report, nil
}

func scanReports(rows *sql.Rows) ([]*Report, error) {
	var result []*Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, report)
	}
	return result, rows.Err()
}

// nullBytes maps an empty JSON payload to SQL NULL.
func nullBytes(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}
