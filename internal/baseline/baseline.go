// Package baseline persists the last-known-normal profile for each
// user+device pair: environmental attributes (VPN posture, network
// type, known IP ranges, timezone, usual login window) and the score
// record left by the previous evaluation. The scoring engine treats a
// missing baseline as a first login.
package baseline

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("baseline not found")
)

// Attributes is the environmental profile learned from successful
// evaluations. KnownIPRanges is append-only: ranges are never unlearned
// automatically, only by an admin reset.
type Attributes struct {
	UserID         string    `json:"userId"`
	DeviceID       string    `json:"deviceId"`
	VPNEnabled     bool      `json:"vpnEnabled"`
	Network        string    `json:"network"`
	KnownIPRanges  []string  `json:"knownIpRanges"`
	Timezone       string    `json:"timezone"`
	LoginHourStart int       `json:"loginHourStart"`
	LoginHourEnd   int       `json:"loginHourEnd"`
	Email          string    `json:"email"`
	OSVersion      string    `json:"osVersion"`
	LastIP         string    `json:"lastIp"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ScoreRecord is the previous evaluation outcome for a user+device,
// consumed by the decay tracker on the next evaluation.
type ScoreRecord struct {
	UserID      string    `json:"userId"`
	DeviceID    string    `json:"deviceId"`
	DeviceType  string    `json:"deviceType"`
	Score       int       `json:"score"`
	Status      string    `json:"status"`
	LastLoginAt time.Time `json:"lastLoginAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Store persists attribute baselines and score records, keyed by
// (userID, deviceID).
type Store interface {
	GetAttributes(ctx context.Context, userID, deviceID string) (*Attributes, error)
	PutAttributes(ctx context.Context, attrs *Attributes) error
	GetScore(ctx context.Context, userID, deviceID string) (*ScoreRecord, error)
	PutScore(ctx context.Context, rec *ScoreRecord) error
	DeleteByDevice(ctx context.Context, userID, deviceID string) error
}

// IPRangePrefix reduces an IPv4 address to its learned /24 prefix,
// trailing dot included so prefix matching cannot cross octet
// boundaries ("10.0.1." never matches "10.0.12.5"). Non-IPv4 input is
// returned unchanged minus nothing learned: empty string.
func IPRangePrefix(ip string) string {
	dots := 0
	for i := 0; i < len(ip); i++ {
		if ip[i] == '.' {
			dots++
			if dots == 3 {
				return ip[:i+1]
			}
		}
	}
	return ""
}

// Observe folds one accepted evaluation's signals into the attribute
// baseline. Returns the updated record; the caller persists it. attrs
// may be nil, in which case a fresh record is created.
func Observe(attrs *Attributes, userID, deviceID, email, timezone, ip, osVersion, network string, vpn bool, at time.Time) *Attributes {
	if attrs == nil {
		attrs = &Attributes{
			UserID:    userID,
			DeviceID:  deviceID,
			CreatedAt: at,
		}
	}
	attrs.VPNEnabled = vpn
	attrs.Network = network
	attrs.Timezone = timezone
	attrs.Email = email
	attrs.OSVersion = osVersion
	attrs.LastIP = ip
	attrs.UpdatedAt = at

	if prefix := IPRangePrefix(ip); prefix != "" && !containsRange(attrs.KnownIPRanges, prefix) {
		attrs.KnownIPRanges = append(attrs.KnownIPRanges, prefix)
	}

	hour := at.Hour()
	if attrs.CreatedAt.Equal(at) {
		// First observation seeds a one-hour window around the login.
		attrs.LoginHourStart = hour
		attrs.LoginHourEnd = hour
	} else {
		attrs.LoginHourStart, attrs.LoginHourEnd = widenWindow(attrs.LoginHourStart, attrs.LoginHourEnd, hour)
	}
	return attrs
}

func containsRange(ranges []string, prefix string) bool {
	for _, r := range ranges {
		if r == prefix {
			return true
		}
	}
	return false
}

// widenWindow grows the [start,end] hour window (possibly wrapping
// midnight) just enough to include hour, choosing the cheaper side.
func widenWindow(start, end, hour int) (int, int) {
	if inWindow(start, end, hour) {
		return start, end
	}
	growStart := hourDistance(hour, start)
	growEnd := hourDistance(end, hour)
	if growStart < growEnd {
		return hour, end
	}
	return start, hour
}

func inWindow(start, end, hour int) bool {
	if start <= end {
		return hour >= start && hour <= end
	}
	return hour >= start || hour <= end
}

// hourDistance is the forward clock distance from a to b in hours.
func hourDistance(a, b int) int {
	d := b - a
	if d < 0 {
		d += 24
	}
	return d
}
