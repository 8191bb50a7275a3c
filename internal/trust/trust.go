// Package trust implements the trust scoring and decision engine for
// mobile session authentication.
//
// Every login or mid-session check is evaluated in four stages: a
// bot/liveness classification over touch and motion signals, a
// short-circuit hard-block rule set, a 12-factor weighted score
// aggregation (device, email, jailbreak, VPN, uptime, bot verdict,
// attestation, location, network, timezone, IP range, login hour), and
// a decision classification into trusted/reverify/blocked. A separate
// decay tracker compares the new score against the previous one for the
// same user+device and grades the drop into severity tiers.
package trust

import (
	"context"
	"errors"
	"time"
)

var (
	ErrEvaluationNotFound = errors.New("evaluation not found")
)

// Status is the engine's tri-state access decision.
type Status string

const (
	StatusTrusted  Status = "trusted"
	StatusReverify Status = "reverify"
	StatusBlocked  Status = "blocked"
)

// DeviceType indicates whether the evaluating device is the user's
// first-registered device. Set by an external classifier.
type DeviceType string

const (
	DevicePrimary   DeviceType = "primary"
	DeviceSecondary DeviceType = "secondary"
)

// MotionState is the coarse device motion signal.
type MotionState string

const (
	MotionStill   MotionState = "still"
	MotionMoving  MotionState = "moving"
	MotionUnknown MotionState = "unknown"
)

// NetworkType is the connection type reported by the device.
type NetworkType string

const (
	NetworkWifi     NetworkType = "wifi"
	NetworkCellular NetworkType = "cellular"
	NetworkNone     NetworkType = "none"
	NetworkUnknown  NetworkType = "unknown"
)

// AttestTier is the risk tier from the remote attestation verdict.
type AttestTier string

const (
	AttestLow         AttestTier = "low"
	AttestMedium      AttestTier = "medium"
	AttestHigh        AttestTier = "high"
	AttestUnknown     AttestTier = "unknown"
	AttestUnsupported AttestTier = "unsupported"
)

// FactorStatus classifies a single factor's outcome.
type FactorStatus string

const (
	FactorSuccess FactorStatus = "success"
	FactorFailure FactorStatus = "failure"
	FactorNeutral FactorStatus = "neutral"
	FactorWarning FactorStatus = "warning"
)

// Factor names. Shared between the aggregator and the decay tracker's
// per-factor attribution.
const (
	FactorDevice    = "device_signature"
	FactorEmail     = "email"
	FactorJailbreak = "jailbreak"
	FactorVPN       = "vpn"
	FactorUptime    = "uptime"
	FactorBot       = "bot_detection"
	FactorAttest    = "app_attest"
	FactorLocation  = "location"
	FactorNetwork   = "network_type"
	FactorTimezone  = "timezone"
	FactorIP        = "ip_address"
	FactorLoginHour = "login_hour"
	FactorHardBlock = "hard_block"
)

// Flag is a typed risk tag attached to a report. Flags are an ordered
// slice; insertion order reflects evaluation order.
type Flag string

const (
	FlagNewDevice        Flag = "new_device"
	FlagJailbroken       Flag = "jailbroken"
	FlagVPN              Flag = "vpn_active"
	FlagLowUptime        Flag = "low_uptime"
	FlagTimezoneMismatch Flag = "timezone_mismatch"
	FlagIPMismatch       Flag = "ip_mismatch"
	FlagEmailMismatch    Flag = "email_mismatch"
	FlagNoMotion         Flag = "no_motion"
	FlagBot              Flag = "bot"
	FlagSuspicious       Flag = "suspicious"
	FlagAttestFailed     Flag = "attest_failed"
	FlagHardBlocked      Flag = "hard_blocked"
)

// Coordinate is a geographic position.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// AttestationVerdict is the externally-produced device integrity
// assessment. The engine consumes it as opaque input; Supported=false is
// the sentinel for devices or failures where no attestation is available.
type AttestationVerdict struct {
	Supported bool       `json:"supported"`
	Verified  bool       `json:"verified"`
	Score     int        `json:"score"` // 0-100
	Tier      AttestTier `json:"tier"`
	KeyID     string     `json:"keyId,omitempty"`
}

// SignalSnapshot carries everything a single evaluation needs. It is
// constructed once per evaluation and never mutated; the service fills
// defaults and stored identity on a private copy. Stored* fields are
// the last-known identity values from the baseline, used for mismatch
// detection; empty stored values mean no prior record (treated as a
// match so first logins are not penalized twice).
type SignalSnapshot struct {
	UserID          string             `json:"userId" binding:"required"`
	DeviceID        string             `json:"deviceId" binding:"required"`
	Email           string             `json:"email"`
	DeviceType      DeviceType         `json:"deviceType"`
	Jailbroken      bool               `json:"jailbroken"`
	VPNEnabled      bool               `json:"vpnEnabled"`
	UserInteracting bool               `json:"userInteracting"`
	UptimeMinutes   int                `json:"uptimeMinutes"`
	Timezone        string             `json:"timezone"`
	IPAddress       string             `json:"ipAddress"`
	Location        *Coordinate        `json:"location,omitempty"`
	BatteryLevel    float64            `json:"batteryLevel"`
	OSVersion       string             `json:"osVersion"`
	Network         NetworkType        `json:"network"`
	Motion          MotionState        `json:"motion"`
	MotionMagnitude float64            `json:"motionMagnitude"`
	Attestation     AttestationVerdict `json:"attestation"`

	StoredDeviceID  string `json:"storedDeviceId,omitempty"`
	StoredEmail     string `json:"storedEmail,omitempty"`
	StoredTimezone  string `json:"storedTimezone,omitempty"`
	StoredIP        string `json:"storedIp,omitempty"`
	StoredOSVersion string `json:"storedOsVersion,omitempty"`

	ObservedAt time.Time `json:"observedAt"`
}

// IsNewDevice reports whether the signal device differs from the stored
// device identity. An empty stored ID means first observation, which is
// treated as a new device.
func (s *SignalSnapshot) IsNewDevice() bool {
	return s.StoredDeviceID == "" || s.DeviceID != s.StoredDeviceID
}

// AttributeBaseline is the engine-facing view of a user+device's
// last-known-normal profile. nil means first login: every
// baseline-dependent factor degrades to its neutral branch.
type AttributeBaseline struct {
	VPNEnabled     bool        `json:"vpnEnabled"`
	Network        NetworkType `json:"network"`
	KnownIPRanges  []string    `json:"knownIpRanges"`
	Timezone       string      `json:"timezone"`
	LoginHourStart int         `json:"loginHourStart"`
	LoginHourEnd   int         `json:"loginHourEnd"`
}

// FactorReport is one factor's contribution to the total score.
type FactorReport struct {
	Name   string       `json:"name"`
	Status FactorStatus `json:"status"`
	Delta  int          `json:"delta"`
	Reason string       `json:"reason"`
}

// Report is the aggregate outcome of one evaluation. Immutable once
// constructed. When HardBlocked is set, Factors contains exactly one
// synthetic hard-block factor and Score is 0.
type Report struct {
	ID            string         `json:"id"`
	UserID        string         `json:"userId"`
	DeviceID      string         `json:"deviceId"`
	DeviceType    DeviceType     `json:"deviceType"`
	Score         int            `json:"score"`
	Status        Status         `json:"status"`
	Factors       []FactorReport `json:"factors"`
	Flags         []Flag         `json:"flags,omitempty"`
	HardBlocked   bool           `json:"hardBlocked"`
	HardBlockRule string         `json:"hardBlockRule,omitempty"`
	Bot           BotReport      `json:"bot"`
	Decay         *DecaySnapshot `json:"decay,omitempty"`
	EvaluatedAt   time.Time      `json:"evaluatedAt"`
}

// TotalDelta sums all factor deltas. Equals Score unless hard-blocked.
func (r *Report) TotalDelta() int {
	total := 0
	for _, f := range r.Factors {
		total += f.Delta
	}
	return total
}

// Store persists evaluation reports for audit and decay history.
type Store interface {
	Record(ctx context.Context, report *Report) error
	Get(ctx context.Context, id string) (*Report, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*Report, error)
	ListByDevice(ctx context.Context, userID, deviceID string, limit int) ([]*Report, error)
}

// ClusterIndex answers trusted-location queries for the location factor.
// Lookups are scoped to the evaluating user.
type ClusterIndex interface {
	// Nearest returns the great-circle distance in meters from the
	// coordinate to the user's nearest trusted cluster and whether the
	// coordinate falls inside that cluster. found is false when the user
	// has no trusted clusters at all.
	Nearest(ctx context.Context, userID string, lat, lon float64) (distanceM float64, within bool, found bool, err error)
}
