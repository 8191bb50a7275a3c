package geocluster

import (
	"context"
	"database/sql"
	"fmt"
)

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed cluster store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the location_clusters table if it doesn't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS location_clusters (
			id            VARCHAR(48) PRIMARY KEY,
			user_id       VARCHAR(64) NOT NULL,
			lat           DOUBLE PRECISION NOT NULL,
			lon           DOUBLE PRECISION NOT NULL,
			radius_m      DOUBLE PRECISION NOT NULL,
			visit_count   INTEGER NOT NULL DEFAULT 0,
			dwell_minutes DOUBLE PRECISION NOT NULL DEFAULT 0,
			trusted       BOOLEAN NOT NULL DEFAULT FALSE,
			first_seen_at TIMESTAMPTZ DEFAULT NOW(),
			last_seen_at  TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_location_clusters_user ON location_clusters(user_id);
	`)
	return err
}

func (p *PostgresStore) Create(ctx context.Context, c *Cluster) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO location_clusters (
			id, user_id, lat, lon, radius_m,
			visit_count, dwell_minutes, trusted, first_seen_at, last_seen_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		c.ID, c.UserID, c.Lat, c.Lon, c.RadiusM,
		c.VisitCount, c.DwellMinutes, c.Trusted, c.FirstSeenAt, c.LastSeenAt,
	)
	if err != nil {
		return fmt.Errorf("insert cluster: %w", err)
	}
	return nil
}

func (p *PostgresStore) Update(ctx context.Context, c *Cluster) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE location_clusters SET
			lat           = $2,
			lon           = $3,
			radius_m      = $4,
			visit_count   = $5,
			dwell_minutes = $6,
			trusted       = $7,
			last_seen_at  = $8
		WHERE id = $1
	`, c.ID, c.Lat, c.Lon, c.RadiusM, c.VisitCount, c.DwellMinutes, c.Trusted, c.LastSeenAt)
	if err != nil {
		return fmt.Errorf("update cluster: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return ErrClusterNotFound
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Cluster, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, user_id, lat, lon, radius_m,
			visit_count, dwell_minutes, trusted, first_seen_at, last_seen_at
		FROM location_clusters WHERE id = $1
	`, id)

	c, err := scanCluster(row)
	if err == sql.ErrNoRows {
		return nil, ErrClusterNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cluster: %w", err)
	}
	return c, nil
}

func (p *PostgresStore) ListByUser(ctx context.Context, userID string) ([]*Cluster, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, lat, lon, radius_m,
			visit_count, dwell_minutes, trusted, first_seen_at, last_seen_at
		FROM location_clusters WHERE user_id = $1
		ORDER BY first_seen_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list clusters: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Cluster
	for rows.Next() {
		c, err := scanCluster(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (p *PostgresStore) Delete(ctx context.Context, id string) error {
	result, err := p.db.ExecContext(ctx, `DELETE FROM location_clusters WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete cluster: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return ErrClusterNotFound
	}
	return nil
}

// scannable abstracts *sql.Row and *sql.Rows for shared scanning logic.
type scannable interface {
	Scan(dest ...interface{}) error
}

func scanCluster(row scannable) (*Cluster, error) {
	var c Cluster
	var firstSeen, lastSeen sql.NullTime
	err := row.Scan(
		&c.ID, &c.UserID, &c.Lat, &c.Lon, &c.RadiusM,
		&c.VisitCount, &c.DwellMinutes, &c.Trusted, &firstSeen, &lastSeen,
	)
	if err != nil {
		return nil, err
	}
	if firstSeen.Valid {
		c.FirstSeenAt = firstSeen.Time
	}
	if lastSeen.Valid {
		c.LastSeenAt = lastSeen.Time
	}
	return &c, nil
}
