package geocluster

import (
	"context"
	"fmt"
	"time"

	"github.com/mbd888/trustgate/internal/idgen"
)

// Service provides cluster queries and visit accretion.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a new geocluster service.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Nearest returns the distance in meters to the user's nearest trusted
// cluster and whether the coordinate falls inside any trusted cluster's
// radius. Radii vary per cluster, so the covering cluster is not always
// the nearest one. found is false when the user has no trusted
// clusters. Candidates never count.
func (s *Service) Nearest(ctx context.Context, userID string, lat, lon float64) (float64, bool, bool, error) {
	clusters, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return 0, false, false, fmt.Errorf("list clusters: %w", err)
	}

	best := -1.0
	within := false
	for _, c := range clusters {
		if !c.Trusted {
			continue
		}
		d := HaversineM(lat, lon, c.Lat, c.Lon)
		if d <= c.RadiusM {
			within = true
		}
		if best < 0 || d < best {
			best = d
		}
	}
	if best < 0 {
		return 0, false, false, nil
	}
	return best, within, true, nil
}

// RecordVisit folds one observed coordinate into the user's cluster set.
// The visit attaches to the nearest cluster whose capture radius covers
// it, accruing capped dwell for return visits; otherwise it seeds a new
// candidate cluster. Promotion to trusted happens here once the bar is
// met. Returns the touched cluster.
func (s *Service) RecordVisit(ctx context.Context, userID string, lat, lon float64) (*Cluster, error) {
	clusters, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list clusters: %w", err)
	}

	now := s.now()

	var nearest *Cluster
	nearestDist := -1.0
	for _, c := range clusters {
		d := HaversineM(lat, lon, c.Lat, c.Lon)
		if d <= c.RadiusM && (nearestDist < 0 || d < nearestDist) {
			nearest = c
			nearestDist = d
		}
	}

	if nearest == nil {
		candidate := &Cluster{
			ID:          idgen.WithPrefix("cluster_"),
			UserID:      userID,
			Lat:         lat,
			Lon:         lon,
			RadiusM:     DefaultRadiusM,
			VisitCount:  1,
			FirstSeenAt: now,
			LastSeenAt:  now,
		}
		if err := s.store.Create(ctx, candidate); err != nil {
			return nil, fmt.Errorf("create cluster: %w", err)
		}
		return candidate, nil
	}

	gap := now.Sub(nearest.LastSeenAt)
	if gap > 0 && gap <= maxSessionGap {
		nearest.DwellMinutes += gap.Minutes()
	}
	nearest.VisitCount++
	nearest.LastSeenAt = now

	if !nearest.Trusted &&
		nearest.VisitCount >= PromoteVisits &&
		nearest.DwellMinutes >= PromoteDwell.Minutes() {
		nearest.Trusted = true
	}

	if err := s.store.Update(ctx, nearest); err != nil {
		return nil, fmt.Errorf("update cluster: %w", err)
	}
	return nearest, nil
}

// ListByUser returns all of a user's clusters, trusted and candidate.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]*Cluster, error) {
	return s.store.ListByUser(ctx, userID)
}

// Get returns a cluster by ID.
func (s *Service) Get(ctx context.Context, id string) (*Cluster, error) {
	return s.store.Get(ctx, id)
}

// Promote force-marks a cluster trusted, bypassing the accretion bar.
// Admin operation.
func (s *Service) Promote(ctx context.Context, id string) (*Cluster, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Trusted {
		return c, nil
	}
	c.Trusted = true
	if err := s.store.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("promote cluster: %w", err)
	}
	return c, nil
}

// Delete removes a cluster. Admin operation.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}
