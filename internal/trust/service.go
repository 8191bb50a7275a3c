package trust

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mbd888/trustgate/internal/baseline"
	"github.com/mbd888/trustgate/internal/idgen"
	"github.com/mbd888/trustgate/internal/logging"
	"github.com/mbd888/trustgate/internal/metrics"
	"github.com/mbd888/trustgate/internal/syncutil"
)

// BaselineStore is the subset of the baseline store the service needs.
type BaselineStore interface {
	GetAttributes(ctx context.Context, userID, deviceID string) (*baseline.Attributes, error)
	PutAttributes(ctx context.Context, attrs *baseline.Attributes) error
	GetScore(ctx context.Context, userID, deviceID string) (*baseline.ScoreRecord, error)
	PutScore(ctx context.Context, rec *baseline.ScoreRecord) error
}

// VisitRecorder feeds accepted locations back into the cluster learner.
type VisitRecorder interface {
	RecordVisit(ctx context.Context, userID string, lat, lon float64) error
}

// EventSink receives completed evaluations for fan-out (websocket feed).
// Implementations must not block.
type EventSink interface {
	EvaluationCompleted(result *EvaluationResult)
}

// EvaluationResult is the full outcome of one evaluation: the scored
// report plus the decay policy action layered on top of it. FinalStatus
// is Report.Status after the decay policy has been applied and is what
// the caller enforces.
type EvaluationResult struct {
	Report      *Report     `json:"report"`
	Action      DecayAction `json:"action"`
	FinalStatus Status      `json:"finalStatus"`
}

// Service runs evaluations end to end: it serializes per user+device,
// loads baselines, invokes the engine, applies the decay policy, and
// persists the outcome.
type Service struct {
	engine    *Engine
	store     Store
	baselines BaselineStore
	visits    VisitRecorder
	sink      EventSink
	locks     *syncutil.ContextShardedMutex
	now       func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithVisitRecorder wires the cluster learner. Optional; without it,
// locations are scored but never learned.
func WithVisitRecorder(v VisitRecorder) ServiceOption {
	return func(s *Service) { s.visits = v }
}

// WithEventSink wires the realtime fan-out. Optional.
func WithEventSink(sink EventSink) ServiceOption {
	return func(s *Service) { s.sink = sink }
}

// WithNow overrides the clock. Used in tests.
func WithNow(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates a new trust evaluation service.
func NewService(engine *Engine, store Store, baselines BaselineStore, opts ...ServiceOption) *Service {
	s := &Service{
		engine:    engine,
		store:     store,
		baselines: baselines,
		locks:     syncutil.NewContextShardedMutex(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Evaluate runs one trust evaluation for a signal snapshot. Exactly one
// evaluation per user+device is in flight at a time; concurrent calls
// for the same pair queue on a per-key lock so the read-evaluate-write
// cycle against the baselines is atomic.
func (s *Service) Evaluate(ctx context.Context, snap *SignalSnapshot) (*EvaluationResult, error) {
	if snap.UserID == "" || snap.DeviceID == "" {
		return nil, fmt.Errorf("user id and device id are required")
	}
	start := time.Now()
	defer func() { metrics.ObserveEvaluationDuration(time.Since(start)) }()

	// The caller's snapshot stays untouched; the ObservedAt default and
	// the Stored* identity fill below happen on a private copy.
	cp := *snap
	snap = &cp
	if snap.ObservedAt.IsZero() {
		snap.ObservedAt = s.now()
	}

	unlock, err := s.locks.LockContext(ctx, snap.UserID+"|"+snap.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("acquire evaluation lock: %w", err)
	}
	defer unlock()

	attrs, err := s.baselines.GetAttributes(ctx, snap.UserID, snap.DeviceID)
	if err != nil && !errors.Is(err, baseline.ErrNotFound) {
		return nil, fmt.Errorf("load attribute baseline: %w", err)
	}
	prev, err := s.baselines.GetScore(ctx, snap.UserID, snap.DeviceID)
	if err != nil && !errors.Is(err, baseline.ErrNotFound) {
		return nil, fmt.Errorf("load score baseline: %w", err)
	}

	applyStoredIdentity(snap, attrs)
	report := s.engine.Evaluate(ctx, snap, engineBaseline(attrs))
	report.ID = idgen.WithPrefix("eval_")

	result := &EvaluationResult{
		Report:      report,
		Action:      ActionNone,
		FinalStatus: report.Status,
	}

	if prev != nil {
		decay := TrackDecay(prev.Score, report.Score, report.Factors)
		report.Decay = &decay
		result.Action = DecayPolicy(decay.Severity)
		switch result.Action {
		case ActionTerminate:
			result.FinalStatus = StatusBlocked
		case ActionReverify:
			if result.FinalStatus == StatusTrusted {
				result.FinalStatus = StatusReverify
			}
		}
		metrics.RecordDecay(string(decay.Severity))
	}

	if err := s.store.Record(ctx, report); err != nil {
		return nil, fmt.Errorf("record evaluation: %w", err)
	}

	// A hard block never teaches the attribute baseline: hostile
	// signals must not launder into the user's normal profile. The
	// score baseline is written after every evaluation regardless, so
	// the next decay comparison starts from what this one actually
	// scored. Visits only accrue on non-blocked outcomes.
	if !report.HardBlocked {
		s.updateAttributeBaseline(ctx, snap, attrs)
	}
	s.updateScoreBaseline(ctx, snap, report, result.FinalStatus)
	if result.FinalStatus != StatusBlocked {
		s.recordVisit(ctx, snap)
	}

	s.observe(ctx, result)
	return result, nil
}

// Get returns a stored evaluation report by ID.
func (s *Service) Get(ctx context.Context, id string) (*Report, error) {
	return s.store.Get(ctx, id)
}

// ListByUser returns a user's recent evaluations, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string, limit int) ([]*Report, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListByUser(ctx, userID, limit)
}

// ListByDevice returns a user+device's recent evaluations, newest first.
func (s *Service) ListByDevice(ctx context.Context, userID, deviceID string, limit int) ([]*Report, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListByDevice(ctx, userID, deviceID, limit)
}

// DecayHistory returns the decay snapshots embedded in a user's recent
// evaluations, newest first.
func (s *Service) DecayHistory(ctx context.Context, userID string, limit int) ([]*DecaySnapshot, error) {
	reports, err := s.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	var history []*DecaySnapshot
	for _, r := range reports {
		if r.Decay != nil {
			history = append(history, r.Decay)
		}
	}
	return history, nil
}

// Baseline returns the engine-facing attribute baseline for a
// user+device, or ErrNotFound from the underlying store.
func (s *Service) Baseline(ctx context.Context, userID, deviceID string) (*baseline.Attributes, error) {
	return s.baselines.GetAttributes(ctx, userID, deviceID)
}

// ---

// applyStoredIdentity fills the snapshot's Stored* fields from the
// persisted baseline so mismatch detection sees last-known values.
func applyStoredIdentity(snap *SignalSnapshot, attrs *baseline.Attributes) {
	if attrs == nil {
		return
	}
	snap.StoredDeviceID = attrs.DeviceID
	snap.StoredEmail = attrs.Email
	snap.StoredTimezone = attrs.Timezone
	snap.StoredIP = attrs.LastIP
	snap.StoredOSVersion = attrs.OSVersion
}

// engineBaseline converts the persisted record to the engine's view.
func engineBaseline(attrs *baseline.Attributes) *AttributeBaseline {
	if attrs == nil {
		return nil
	}
	return &AttributeBaseline{
		VPNEnabled:     attrs.VPNEnabled,
		Network:        NetworkType(attrs.Network),
		KnownIPRanges:  attrs.KnownIPRanges,
		Timezone:       attrs.Timezone,
		LoginHourStart: attrs.LoginHourStart,
		LoginHourEnd:   attrs.LoginHourEnd,
	}
}

// updateAttributeBaseline folds the observed signals back into the
// attribute store. Failures are logged, not returned: the evaluation
// already succeeded and the caller's decision must not change because
// learning lagged.
func (s *Service) updateAttributeBaseline(ctx context.Context, snap *SignalSnapshot, attrs *baseline.Attributes) {
	updated := baseline.Observe(attrs,
		snap.UserID, snap.DeviceID, snap.Email, snap.Timezone,
		snap.IPAddress, snap.OSVersion, string(snap.Network),
		snap.VPNEnabled, snap.ObservedAt,
	)
	if err := s.baselines.PutAttributes(ctx, updated); err != nil {
		logging.L(ctx).Warn("failed to update attribute baseline",
			"user_id", snap.UserID, "device_id", snap.DeviceID, "error", err)
	}
}

// updateScoreBaseline records this evaluation's score as the previous
// score for the next one. Failures are logged, not returned.
func (s *Service) updateScoreBaseline(ctx context.Context, snap *SignalSnapshot, report *Report, final Status) {
	rec := &baseline.ScoreRecord{
		UserID:      snap.UserID,
		DeviceID:    snap.DeviceID,
		DeviceType:  string(snap.DeviceType),
		Score:       report.Score,
		Status:      string(final),
		LastLoginAt: snap.ObservedAt,
	}
	if err := s.baselines.PutScore(ctx, rec); err != nil {
		logging.L(ctx).Warn("failed to update score baseline",
			"user_id", snap.UserID, "device_id", snap.DeviceID, "error", err)
	}
}

func (s *Service) recordVisit(ctx context.Context, snap *SignalSnapshot) {
	if s.visits == nil || snap.Location == nil {
		return
	}
	if err := s.visits.RecordVisit(ctx, snap.UserID, snap.Location.Lat, snap.Location.Lon); err != nil {
		logging.L(ctx).Warn("failed to record location visit",
			"user_id", snap.UserID, "error", err)
	}
}

func (s *Service) observe(ctx context.Context, result *EvaluationResult) {
	report := result.Report
	metrics.RecordEvaluation(string(result.FinalStatus))
	metrics.ObserveTrustScore(report.Score)
	if report.HardBlocked {
		metrics.RecordHardBlock(report.HardBlockRule)
	}

	logging.L(ctx).Info("evaluation completed",
		"evaluation_id", report.ID,
		"user_id", report.UserID,
		"device_id", report.DeviceID,
		"score", report.Score,
		"status", result.FinalStatus,
		"hard_blocked", report.HardBlocked,
		"action", result.Action,
	)

	if s.sink != nil {
		s.sink.EvaluationCompleted(result)
	}
}
