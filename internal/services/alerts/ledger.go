// Package alerts implements the GO side channel: rising-edge detection,
// dedupe, rate limiting, cooldown and push dispatch.
package alerts

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Ledger is the persisted alert state. Single writer, last-write-wins.
type Ledger struct {
	LastSentAtUTC   string `json:"lastSentAtUtc"`
	LastGoAtUTC     string `json:"lastGoAtUtc"`
	LastGoKey       string `json:"lastGoKey"`
	CooldownUntilMs int64  `json:"cooldownUntilMs"`
}

const ledgerFile = "pushover-go-ledger.json"

// LedgerStore reads and atomically rewrites the ledger file.
type LedgerStore struct {
	path   string
	logger *zap.Logger
}

// NewLedgerStore creates a store under the data directory.
func NewLedgerStore(dir string, logger *zap.Logger) *LedgerStore {
	return &LedgerStore{path: filepath.Join(dir, ledgerFile), logger: logger}
}

// Load returns the persisted ledger. A missing or unparsable file yields an
// empty ledger: the alert path fails open rather than wedging on a torn write.
func (s *LedgerStore) Load() Ledger {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("ledger read failed, starting empty", zap.Error(err))
		}
		return Ledger{}
	}
	var ledger Ledger
	if err := json.Unmarshal(data, &ledger); err != nil {
		s.logger.Warn("ledger parse failed, starting empty", zap.Error(err))
		return Ledger{}
	}
	return ledger
}

// Save writes the ledger with write-temp-then-rename so readers never see a
// partial file.
func (s *LedgerStore) Save(ledger Ledger) error {
	data, err := json.MarshalIndent(ledger, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal ledger")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrap(err, "create ledger dir")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "write ledger temp")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "replace ledger")
	}
	return nil
}
