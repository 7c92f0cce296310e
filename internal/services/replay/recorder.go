// Package replay persists dashboard snapshots for later playback: cadence
// snapshots on a timer and GO snapshots on rising edges, grouped per day.
package replay

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	dayLayout     = "2006-01-02"
	cadenceLayout = "1504"
	eventsFile    = "events.json"
)

// eventEntry is one line of the per-day events append log.
type eventEntry struct {
	AtUTC   string `json:"atUtc"`
	EventID string `json:"eventId,omitempty"`
	Kind    string `json:"kind"`
	File    string `json:"file"`
}

// Recorder writes replay artifacts under <root>/YYYY-MM-DD/.
type Recorder struct {
	root   string
	logger *zap.Logger
	now    func() time.Time
}

// NewRecorder creates a recorder rooted at dir.
func NewRecorder(root string, logger *zap.Logger) *Recorder {
	return &Recorder{root: root, logger: logger, now: time.Now}
}

// RecordCadence writes an HHMM.json snapshot for the current minute.
func (r *Recorder) RecordCadence(payload any) error {
	now := r.now().UTC()
	name := now.Format(cadenceLayout) + ".json"
	if err := r.write(now, name, payload); err != nil {
		return err
	}
	return r.appendEvent(now, eventEntry{
		AtUTC: now.Format(time.RFC3339),
		Kind:  "cadence",
		File:  name,
	})
}

// RecordGoEvent writes a <eventId>_GO.json snapshot for a rising edge.
func (r *Recorder) RecordGoEvent(eventID string, payload any) error {
	now := r.now().UTC()
	name := eventID + "_GO.json"
	if err := r.write(now, name, payload); err != nil {
		return err
	}
	return r.appendEvent(now, eventEntry{
		AtUTC:   now.Format(time.RFC3339),
		EventID: eventID,
		Kind:    "go",
		File:    name,
	})
}

func (r *Recorder) write(now time.Time, name string, payload any) error {
	dir := filepath.Join(r.root, now.Format(dayLayout))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create replay day dir")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshal replay snapshot")
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return errors.Wrap(err, "write replay snapshot")
	}
	return nil
}

// appendEvent adds one line to the day's events.json append log.
func (r *Recorder) appendEvent(now time.Time, entry eventEntry) error {
	dir := filepath.Join(r.root, now.Format(dayLayout))
	f, err := os.OpenFile(filepath.Join(dir, eventsFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "open events log")
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "marshal event entry")
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return errors.Wrap(err, "append event entry")
	}
	return nil
}

// Cleanup removes day directories older than keepDays.
func (r *Recorder) Cleanup(keepDays int) error {
	if keepDays <= 0 {
		return nil
	}
	entries, err := os.ReadDir(r.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "list replay root")
	}

	cutoff := r.now().UTC().AddDate(0, 0, -keepDays)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		day, err := time.Parse(dayLayout, entry.Name())
		if err != nil {
			continue
		}
		if day.Before(cutoff) {
			if err := os.RemoveAll(filepath.Join(r.root, entry.Name())); err != nil {
				r.logger.Warn("replay cleanup failed", zap.String("day", entry.Name()), zap.Error(err))
			}
		}
	}
	return nil
}

// RunCleanup runs Cleanup once a day until ctx is cancelled.
func (r *Recorder) RunCleanup(ctx context.Context, keepDays int) error {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		if err := r.Cleanup(keepDays); err != nil {
			r.logger.Warn("replay cleanup pass failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
