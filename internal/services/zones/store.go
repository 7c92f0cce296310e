// Package zones loads and normalizes the operator-maintained zone catalogs:
// sticky structures (negotiated + institutional) and shelves.
package zones

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/smzlabs/zonedash/internal/domain"
)

const (
	levelsFile  = "smz-levels.json"
	shelvesFile = "smz-shelves.json"
)

type fileMeta struct {
	GeneratedAtUTC string   `json:"generated_at_utc"`
	CurrentPrice   *float64 `json:"current_price,omitempty"`
}

type stickyEntry struct {
	ID         string     `json:"id"`
	PriceRange [2]float64 `json:"price_range"`
	Strength   int        `json:"strength,omitempty"`
}

type levelsDoc struct {
	Meta             fileMeta      `json:"meta"`
	StructuresSticky []stickyEntry `json:"structures_sticky"`
}

type shelfEntry struct {
	ID         string     `json:"id"`
	PriceRange [2]float64 `json:"price_range"`
	Strength   int        `json:"strength"`
	IsManual   bool       `json:"is_manual"`
	Type       string     `json:"type,omitempty"`
}

type shelvesDoc struct {
	Meta   fileMeta     `json:"meta"`
	Levels []shelfEntry `json:"levels"`
}

// Store reads the two on-disk zone catalogs. Zones are refreshed per call;
// the store itself holds no state beyond the data directory.
type Store struct {
	dir    string
	logger *zap.Logger
}

// NewStore creates a zone store over the given data directory.
func NewStore(dir string, logger *zap.Logger) *Store {
	return &Store{dir: dir, logger: logger}
}

// LoadZones reads and normalizes both catalogs for the symbol. A missing
// file yields empty lists, not an error.
func (s *Store) LoadZones(ctx context.Context, symbol string) (domain.ZoneCatalog, error) {
	var catalog domain.ZoneCatalog

	var levels levelsDoc
	found, err := s.readJSON(levelsFile, &levels)
	if err != nil {
		return catalog, errors.Wrap(err, "read sticky structures")
	}
	if found {
		catalog.Meta = domain.ZoneMeta{
			GeneratedAtUTC:     levels.Meta.GeneratedAtUTC,
			CurrentPriceAnchor: levels.Meta.CurrentPrice,
		}
		for _, entry := range levels.StructuresSticky {
			lo, hi, ok := domain.CanonicalBand(entry.PriceRange[0], entry.PriceRange[1])
			if !ok {
				s.logger.Debug("dropping degenerate sticky structure", zap.String("id", entry.ID))
				continue
			}
			zone := domain.Zone{ID: entry.ID, Lo: lo, Hi: hi, Strength: entry.Strength}
			if domain.IsNegotiated(entry.ID) {
				zone.Kind = domain.ZoneNegotiated
				catalog.Negotiated = append(catalog.Negotiated, zone)
			} else {
				zone.Kind = domain.ZoneInstitutional
				catalog.Institutional = append(catalog.Institutional, zone)
			}
		}
	}

	var shelves shelvesDoc
	found, err = s.readJSON(shelvesFile, &shelves)
	if err != nil {
		return catalog, errors.Wrap(err, "read shelves")
	}
	if found {
		catalog.ShelvesMeta = domain.ZoneMeta{
			GeneratedAtUTC:     shelves.Meta.GeneratedAtUTC,
			CurrentPriceAnchor: shelves.Meta.CurrentPrice,
		}
		for _, entry := range shelves.Levels {
			lo, hi, ok := domain.CanonicalBand(entry.PriceRange[0], entry.PriceRange[1])
			if !ok {
				s.logger.Debug("dropping degenerate shelf", zap.String("id", entry.ID))
				continue
			}
			catalog.Shelves = append(catalog.Shelves, domain.Zone{
				ID:       entry.ID,
				Kind:     domain.ZoneShelf,
				Lo:       lo,
				Hi:       hi,
				Strength: entry.Strength,
				IsManual: entry.IsManual,
				Type:     entry.Type,
			})
		}
	}

	return catalog, nil
}

func (s *Store) readJSON(name string, out any) (bool, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, errors.Wrapf(err, "decode %s", name)
	}
	return true, nil
}
