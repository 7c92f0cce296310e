package market

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// MinuteAggregate is one real-time minute bar event from the aggregator
// WebSocket feed.
type MinuteAggregate struct {
	Ev  string  `json:"ev"`  // "AM"
	Sym string  `json:"sym"` // "SPY"
	V   float64 `json:"v"`
	O   float64 `json:"o"`
	H   float64 `json:"h"`
	L   float64 `json:"l"`
	C   float64 `json:"c"`
	S   int64   `json:"s"` // start ms
	E   int64   `json:"e"` // end ms
}

const (
	streamDialTimeout   = 10 * time.Second
	streamReconnectWait = 5 * time.Second
	subscriberBuffer    = 64
)

// Stream maintains the aggregator WebSocket subscription for one symbol and
// fans minute aggregates out to in-process subscribers.
type Stream struct {
	url    string
	apiKey string
	symbol string
	logger *zap.Logger

	mu   sync.Mutex
	subs map[chan MinuteAggregate]struct{}
}

// NewStream creates a stream for one locked symbol.
func NewStream(url, apiKey, symbol string, logger *zap.Logger) *Stream {
	return &Stream{
		url:    url,
		apiKey: apiKey,
		symbol: symbol,
		logger: logger,
		subs:   make(map[chan MinuteAggregate]struct{}),
	}
}

// Subscribe registers a consumer. The returned cancel must be called when
// the consumer goes away so the slot is released.
func (s *Stream) Subscribe() (<-chan MinuteAggregate, func()) {
	ch := make(chan MinuteAggregate, subscriberBuffer)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, ch)
			s.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Run keeps the WebSocket session alive until ctx is cancelled, redialing
// on failure.
func (s *Stream) Run(ctx context.Context) error {
	for {
		if err := s.session(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("market stream session ended, reconnecting", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(streamReconnectWait):
		}
	}
}

func (s *Stream) session(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, streamDialTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, s.url, nil)
	if err != nil {
		return errors.Wrap(err, "dial aggregator ws")
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	auth := map[string]string{"action": "auth", "params": s.apiKey}
	if err := conn.WriteJSON(auth); err != nil {
		return errors.Wrap(err, "ws auth")
	}
	sub := map[string]string{"action": "subscribe", "params": "AM." + s.symbol}
	if err := conn.WriteJSON(sub); err != nil {
		return errors.Wrap(err, "ws subscribe")
	}

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return errors.Wrap(err, "ws read")
		}
		var events []MinuteAggregate
		if err := json.Unmarshal(payload, &events); err != nil {
			s.logger.Debug("skipping non-aggregate ws frame", zap.Error(err))
			continue
		}
		for _, ev := range events {
			if ev.Ev != "AM" || ev.Sym != s.symbol {
				continue
			}
			s.fanOut(ev)
		}
	}
}

func (s *Stream) fanOut(ev MinuteAggregate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- ev:
		default:
			// slow consumer, drop rather than stall the feed
		}
	}
}
