// Package alerthistory persists every GO watcher outcome in an append-only
// WAL so dispatched and skipped alerts can be audited after the fact.
package alerthistory

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/smzlabs/zonedash/internal/services/alerts"
)

const (
	DefaultDir   = "./wal/alerts"
	segmentLimit = 1000
	maxSegments  = 20

	alertKeyPrefix = "go_alert_"
)

// Record is one stored watcher outcome with its WAL index.
type Record struct {
	Index uint64       `json:"index"`
	Event alerts.Event `json:"event"`
}

// WALStore persists alert events in a WAL.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore initializes a WAL-backed alert history store.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "alert_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init alert history WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Append writes one watcher event to the WAL.
func (s *WALStore) Append(event alerts.Event) error {
	if s == nil || s.wal == nil {
		return errors.New("alert history store is not initialized")
	}
	if event.GoKey == "" {
		return fmt.Errorf("alert event goKey is required")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal alert event")
	}

	key := fmt.Sprintf("%s%s", alertKeyPrefix, event.GoKey)

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, key, payload)
}

// EventsAfter returns all alert events written after the provided WAL index.
func (s *WALStore) EventsAfter(index uint64) ([]Record, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("alert history store is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]Record, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil {
			continue
		}
		if !strings.HasPrefix(key, alertKeyPrefix) {
			continue
		}

		var event alerts.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, errors.Wrap(err, "decode alert event")
		}
		records = append(records, Record{Index: idx, Event: event})
	}

	return records, nil
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("alert history store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
