package trust

import (
	"context"
	"fmt"
)

// Location factor points. Within a trusted cluster is the strongest
// positive geo signal; everything else grades by distance from the
// nearest cluster, colder with every band.
const (
	locationWithinPoints     = 15
	locationNoClustersPoints = -15
	locationAbsentPoints     = -10

	locationBandNearPoints     = -2  // < 1 km
	locationBandCityPoints     = -5  // < 5 km
	locationBandRegionPoints   = -10 // < 50 km
	locationBandCountryPoints  = -15 // < 500 km
	locationBandFarawayPoints  = -20 // >= 500 km
)

const (
	bandNearMeters    = 1_000.0
	bandCityMeters    = 5_000.0
	bandRegionMeters  = 50_000.0
	bandCountryMeters = 500_000.0
)

// locationFactor grades the reported coordinate against the user's
// trusted clusters. Index errors degrade to the no-clusters penalty
// rather than failing the whole evaluation.
func locationFactor(ctx context.Context, snap *SignalSnapshot, clusters ClusterIndex) FactorReport {
	if snap.Location == nil {
		return FactorReport{FactorLocation, FactorWarning, locationAbsentPoints, "no location reported"}
	}
	if clusters == nil {
		return FactorReport{FactorLocation, FactorFailure, locationNoClustersPoints, "no trusted locations on record"}
	}

	distanceM, within, found, err := clusters.Nearest(ctx, snap.UserID, snap.Location.Lat, snap.Location.Lon)
	if err != nil || !found {
		return FactorReport{FactorLocation, FactorFailure, locationNoClustersPoints, "no trusted locations on record"}
	}
	if within {
		return FactorReport{FactorLocation, FactorSuccess, locationWithinPoints, "within a trusted location"}
	}

	delta := distanceBandPoints(distanceM)
	return FactorReport{FactorLocation, FactorFailure, delta,
		fmt.Sprintf("%.0fm from nearest trusted location", distanceM)}
}

// distanceBandPoints maps meters-from-nearest-cluster to a penalty.
// Bands are half-open: a distance sits in the first band it is strictly
// below.
func distanceBandPoints(distanceM float64) int {
	switch {
	case distanceM < bandNearMeters:
		return locationBandNearPoints
	case distanceM < bandCityMeters:
		return locationBandCityPoints
	case distanceM < bandRegionMeters:
		return locationBandRegionPoints
	case distanceM < bandCountryMeters:
		return locationBandCountryPoints
	default:
		return locationBandFarawayPoints
	}
}
