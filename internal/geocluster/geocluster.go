// Package geocluster maintains per-user trusted location clusters.
//
// Every non-blocked evaluation that carries a coordinate records a
// visit: the coordinate either attaches to the nearest existing cluster
// or seeds a new candidate. A candidate becomes trusted once it has
// accumulated enough distinct visits and dwell time. The scoring engine
// consults the trusted set through the Nearest query.
package geocluster

import (
	"context"
	"errors"
	"math"
	"time"
)

var (
	ErrClusterNotFound = errors.New("cluster not found")
)

// Promotion and visit-accretion parameters.
const (
	// DefaultRadiusM is the capture radius of a cluster: a visit within
	// this distance of the centroid attaches instead of seeding a new
	// candidate.
	DefaultRadiusM = 500.0

	// PromoteVisits and PromoteDwell are the trust promotion bar: a
	// candidate needs at least this many visits and this much cumulative
	// dwell before the engine counts it as trusted.
	PromoteVisits = 3
	PromoteDwell  = 45 * time.Minute

	// maxSessionGap caps how much dwell a single return visit can
	// accrue. A gap longer than this means the user left and came back,
	// not that they dwelled the whole time.
	maxSessionGap = 30 * time.Minute
)

// Cluster is one learned location for a user.
type Cluster struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Lat          float64   `json:"lat"`
	Lon          float64   `json:"lon"`
	RadiusM      float64   `json:"radiusM"`
	VisitCount   int       `json:"visitCount"`
	DwellMinutes float64   `json:"dwellMinutes"`
	Trusted      bool      `json:"trusted"`
	FirstSeenAt  time.Time `json:"firstSeenAt"`
	LastSeenAt   time.Time `json:"lastSeenAt"`
}

// Store persists clusters per user.
type Store interface {
	Create(ctx context.Context, c *Cluster) error
	Update(ctx context.Context, c *Cluster) error
	Get(ctx context.Context, id string) (*Cluster, error)
	ListByUser(ctx context.Context, userID string) ([]*Cluster, error)
	Delete(ctx context.Context, id string) error
}

// HaversineM returns the great-circle distance between two coordinates
// in meters.
func HaversineM(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusM = 6_371_000.0

	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return earthRadiusM * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
