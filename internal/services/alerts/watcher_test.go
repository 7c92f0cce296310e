package alerts

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smzlabs/zonedash/internal/domain"
)

type fakeStatus struct {
	sig      domain.GoSignal
	strategy string
	err      error
}

func (f *fakeStatus) GoStatus(ctx context.Context) (domain.GoSignal, string, error) {
	return f.sig, f.strategy, f.err
}

type fakePusher struct {
	calls  int
	titles []string
	err    error
}

func (f *fakePusher) Push(ctx context.Context, title, message string) error {
	f.calls++
	f.titles = append(f.titles, title)
	return f.err
}

type fakeHistory struct {
	events []Event
}

func (f *fakeHistory) Append(event Event) error {
	f.events = append(f.events, event)
	return nil
}

type fakeReplay struct {
	goEvents int
}

func (f *fakeReplay) RecordGoEvent(eventID string, payload any) error {
	f.goEvents++
	return nil
}

func goSignal(atUTC string) domain.GoSignal {
	return domain.GoSignal{
		Signal:      true,
		Direction:   "LONG",
		TriggerType: "zone_bounce",
		Price:       585.42,
		AtUTC:       atUTC,
		ReasonCodes: []string{"ZONE_HOLD"},
	}
}

func newTestWatcher(t *testing.T, status StatusProvider, pusher Pusher, history *fakeHistory, replay *fakeReplay) *Watcher {
	t.Helper()
	ledger := NewLedgerStore(t.TempDir(), zap.NewNop())
	var h HistoryRecorder
	if history != nil {
		h = history
	}
	var r ReplayWriter
	if replay != nil {
		r = replay
	}
	w := NewWatcher("SPY", 5*time.Minute, status, ledger, pusher, h, r, zap.NewNop())
	w.now = func() time.Time { return time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC) }
	return w
}

func TestTickRisingEdgeSends(t *testing.T) {
	status := &fakeStatus{sig: goSignal("2025-06-02T14:29:40Z"), strategy: "intraday_scalp@10m"}
	pusher := &fakePusher{}
	history := &fakeHistory{}
	replay := &fakeReplay{}
	w := newTestWatcher(t, status, pusher, history, replay)

	result := w.Tick(context.Background())

	require.True(t, result.OK)
	require.True(t, result.Rising)
	require.True(t, result.Sent)
	require.Equal(t, "SPY|intraday_scalp@10m|LONG|2025-06-02T14:29:40Z", result.GoKey)
	require.Equal(t, 1, pusher.calls)
	require.Equal(t, 1, replay.goEvents)

	require.Len(t, history.events, 1)
	require.True(t, history.events[0].Sent)

	ledger := w.ledger.Load()
	require.Equal(t, result.GoKey, ledger.LastGoKey)
	require.Equal(t, "2025-06-02T14:30:00Z", ledger.LastSentAtUTC)
}

func TestTickNoEdgeWhileSignalStaysHigh(t *testing.T) {
	status := &fakeStatus{sig: goSignal("2025-06-02T14:29:40Z"), strategy: "intraday_scalp@10m"}
	pusher := &fakePusher{}
	w := newTestWatcher(t, status, pusher, nil, nil)

	first := w.Tick(context.Background())
	require.True(t, first.Sent)

	second := w.Tick(context.Background())
	require.False(t, second.Rising)
	require.Equal(t, "no_edge", second.Why)
	require.Equal(t, 1, pusher.calls)
}

func TestTickDuplicateKeySkipsPush(t *testing.T) {
	status := &fakeStatus{sig: goSignal("2025-06-02T14:29:40Z"), strategy: "intraday_scalp@10m"}
	pusher := &fakePusher{}
	history := &fakeHistory{}
	w := newTestWatcher(t, status, pusher, history, nil)

	require.True(t, w.Tick(context.Background()).Sent)

	// signal drops, then re-fires with the same timestamp
	status.sig.Signal = false
	w.Tick(context.Background())
	status.sig.Signal = true

	result := w.Tick(context.Background())
	require.True(t, result.Rising)
	require.False(t, result.Sent)
	require.Equal(t, "duplicate_key", result.Why)
	require.Equal(t, 1, pusher.calls)
}

func TestTickRateLimitBlocksFreshKey(t *testing.T) {
	status := &fakeStatus{sig: goSignal("2025-06-02T14:29:40Z"), strategy: "intraday_scalp@10m"}
	pusher := &fakePusher{}
	w := newTestWatcher(t, status, pusher, nil, nil)

	require.True(t, w.Tick(context.Background()).Sent)

	// new edge 2 minutes later with a fresh key, still inside minInterval
	status.sig.Signal = false
	w.Tick(context.Background())
	status.sig = goSignal("2025-06-02T14:31:40Z")
	w.now = func() time.Time { return time.Date(2025, 6, 2, 14, 32, 0, 0, time.UTC) }

	result := w.Tick(context.Background())
	require.False(t, result.Sent)
	require.Equal(t, "rate_limited", result.Why)
	require.Equal(t, 1, pusher.calls)
}

func TestTickCooldownBlocksSend(t *testing.T) {
	sendTime := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)
	sig := goSignal("2025-06-02T14:29:40Z")
	sig.CooldownUntilMs = sendTime.Add(30 * time.Minute).UnixMilli()
	status := &fakeStatus{sig: sig, strategy: "intraday_scalp@10m"}
	pusher := &fakePusher{}
	w := newTestWatcher(t, status, pusher, nil, nil)

	require.True(t, w.Tick(context.Background()).Sent)

	// fresh edge past the rate limit but inside the persisted cooldown
	status.sig.Signal = false
	w.Tick(context.Background())
	status.sig = goSignal("2025-06-02T14:45:40Z")
	status.sig.CooldownUntilMs = sig.CooldownUntilMs
	w.now = func() time.Time { return time.Date(2025, 6, 2, 14, 46, 0, 0, time.UTC) }

	result := w.Tick(context.Background())
	require.False(t, result.Sent)
	require.Equal(t, "cooldown_active", result.Why)
}

func TestTickPushFailureKeepsKeyRetryable(t *testing.T) {
	sig := goSignal("2025-06-02T14:29:40Z")
	sig.CooldownUntilMs = 1_748_876_400_000
	status := &fakeStatus{sig: sig, strategy: "intraday_scalp@10m"}
	pusher := &fakePusher{err: errors.New("pushover 500")}
	history := &fakeHistory{}
	w := newTestWatcher(t, status, pusher, history, nil)

	result := w.Tick(context.Background())

	require.True(t, result.Rising)
	require.False(t, result.Sent)
	require.Equal(t, "push_failed", result.Why)

	// only the cooldown survives, the key stays free for a retry
	ledger := w.ledger.Load()
	require.Empty(t, ledger.LastGoKey)
	require.Empty(t, ledger.LastSentAtUTC)
	require.Equal(t, sig.CooldownUntilMs, ledger.CooldownUntilMs)
}

func TestTickUpstreamErrorDegrades(t *testing.T) {
	status := &fakeStatus{err: errors.New("aggregator down")}
	w := newTestWatcher(t, status, &fakePusher{}, nil, nil)

	result := w.Tick(context.Background())

	require.False(t, result.OK)
	require.Equal(t, "upstream_error", result.Why)
}

func TestComposeMessage(t *testing.T) {
	sig := goSignal("2025-06-02T14:29:40Z")
	sig.TriggerLine = "585.40"
	sig.CooldownUntilMs = time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC).UnixMilli()
	sig.ReasonCodes = []string{"A", "B", "C", "D", "E", "F"}

	title, body := ComposeMessage("SPY", sig)

	require.Equal(t, "SPY GO LONG", title)
	require.Contains(t, body, "Trigger: zone_bounce @ 585.40")
	require.Contains(t, body, "Price: 585.42")
	require.Contains(t, body, "Cooldown until")
	require.Contains(t, body, "Reasons: A, B, C, D")
	require.NotContains(t, body, "E")
	require.Equal(t, 5, len(strings.Split(body, "\n")))
}
