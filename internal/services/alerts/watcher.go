package alerts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smzlabs/zonedash/internal/domain"
)

// StatusProvider yields the current aggregated GO signal together with the
// strategy label it belongs to.
type StatusProvider interface {
	GoStatus(ctx context.Context) (domain.GoSignal, string, error)
}

// HistoryRecorder appends one watcher outcome to the audit trail.
type HistoryRecorder interface {
	Append(event Event) error
}

// ReplayWriter persists a GO-edge snapshot.
type ReplayWriter interface {
	RecordGoEvent(eventID string, payload any) error
}

// Event is one audit record of a watcher tick that saw a rising edge.
type Event struct {
	AtUTC string `json:"atUtc"`
	GoKey string `json:"goKey"`
	Sent  bool   `json:"sent"`
	Why   string `json:"why,omitempty"`
	Title string `json:"title,omitempty"`
}

// TickResult is the outcome of one watcher tick.
type TickResult struct {
	OK     bool   `json:"ok"`
	Rising bool   `json:"rising"`
	Sent   bool   `json:"sent"`
	Why    string `json:"why,omitempty"`
	GoKey  string `json:"goKey,omitempty"`
}

// Skip reasons reported by the watcher.
const (
	whyNoEdge         = "no_edge"
	whyDuplicateKey   = "duplicate_key"
	whyRateLimited    = "rate_limited"
	whyCooldownActive = "cooldown_active"
	whyPushFailed     = "push_failed"
	whyUpstreamError  = "upstream_error"
)

// Watcher owns the edge-detection state for the GO side channel. One poller
// loop per process; the state is scoped to the watcher's lifetime.
type Watcher struct {
	symbol      string
	minInterval time.Duration
	status      StatusProvider
	ledger      *LedgerStore
	pusher      Pusher
	history     HistoryRecorder
	replay      ReplayWriter
	logger      *zap.Logger
	now         func() time.Time

	lastSignal bool
}

// NewWatcher wires a GO watcher. history and replay may be nil.
func NewWatcher(symbol string, minInterval time.Duration, status StatusProvider, ledger *LedgerStore, pusher Pusher, history HistoryRecorder, replay ReplayWriter, logger *zap.Logger) *Watcher {
	return &Watcher{
		symbol:      symbol,
		minInterval: minInterval,
		status:      status,
		ledger:      ledger,
		pusher:      pusher,
		history:     history,
		replay:      replay,
		logger:      logger,
		now:         time.Now,
	}
}

// Run polls the GO status at the given cadence until ctx is cancelled.
// A failing tick is logged and never terminates the loop.
func (w *Watcher) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.logger.Info("GO watcher started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("GO watcher stopped")
			return ctx.Err()
		case <-ticker.C:
			result := w.Tick(ctx)
			if !result.OK {
				w.logger.Warn("GO watcher tick degraded", zap.String("why", result.Why))
			}
		}
	}
}

// Tick runs one edge-detection pass.
func (w *Watcher) Tick(ctx context.Context) TickResult {
	sig, strategy, err := w.status.GoStatus(ctx)
	if err != nil {
		w.logger.Warn("GO status fetch failed", zap.Error(err))
		return TickResult{OK: false, Why: whyUpstreamError}
	}

	rising := !w.lastSignal && sig.Signal
	w.lastSignal = sig.Signal
	if !rising {
		return TickResult{OK: true, Why: whyNoEdge}
	}

	goKey := domain.GoKey(w.symbol, strategy, sig)
	result := TickResult{OK: true, Rising: true, GoKey: goKey}
	now := w.now().UTC()

	if w.replay != nil {
		if err := w.replay.RecordGoEvent(uuid.NewString(), sig); err != nil {
			w.logger.Warn("replay GO snapshot failed", zap.Error(err))
		}
	}

	ledger := w.ledger.Load()
	switch {
	case goKey == ledger.LastGoKey:
		result.Why = whyDuplicateKey
	case w.rateLimited(ledger, now):
		result.Why = whyRateLimited
	case ledger.CooldownUntilMs > now.UnixMilli():
		result.Why = whyCooldownActive
	}
	if result.Why != "" {
		w.record(Event{AtUTC: now.Format(time.RFC3339), GoKey: goKey, Sent: false, Why: result.Why})
		return result
	}

	title, body := ComposeMessage(w.symbol, sig)
	if err := w.pusher.Push(ctx, title, body); err != nil {
		w.logger.Error("push dispatch failed", zap.Error(err))
		// only the cooldown survives a failed send
		ledger.CooldownUntilMs = sig.CooldownUntilMs
		if err := w.ledger.Save(ledger); err != nil {
			w.logger.Error("ledger save failed", zap.Error(err))
		}
		result.Why = whyPushFailed
		w.record(Event{AtUTC: now.Format(time.RFC3339), GoKey: goKey, Sent: false, Why: result.Why, Title: title})
		return result
	}

	ledger = Ledger{
		LastSentAtUTC:   now.Format(time.RFC3339),
		LastGoAtUTC:     sig.AtUTC,
		LastGoKey:       goKey,
		CooldownUntilMs: sig.CooldownUntilMs,
	}
	if err := w.ledger.Save(ledger); err != nil {
		w.logger.Error("ledger save failed", zap.Error(err))
	}

	result.Sent = true
	w.record(Event{AtUTC: now.Format(time.RFC3339), GoKey: goKey, Sent: true, Title: title})
	w.logger.Info("GO alert dispatched", zap.String("goKey", goKey))
	return result
}

func (w *Watcher) rateLimited(ledger Ledger, now time.Time) bool {
	if ledger.LastSentAtUTC == "" {
		return false
	}
	lastSent, err := time.Parse(time.RFC3339, ledger.LastSentAtUTC)
	if err != nil {
		return false
	}
	return now.Sub(lastSent) < w.minInterval
}

func (w *Watcher) record(event Event) {
	if w.history == nil {
		return
	}
	if err := w.history.Append(event); err != nil {
		w.logger.Warn("alert history append failed", zap.Error(err))
	}
}
