package domain

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ZoneKind classifies a price band in the catalog.
type ZoneKind string

const (
	ZoneNegotiated    ZoneKind = "NEGOTIATED"
	ZoneInstitutional ZoneKind = "INSTITUTIONAL"
	ZoneShelf         ZoneKind = "SHELF"
)

// negotiatedTag is the id substring that marks a negotiated zone.
const negotiatedTag = "|NEG|"

// Zone is a rectangular price band with identity. Lo and Hi are canonical:
// rounded to two decimals with Hi > Lo.
type Zone struct {
	ID       string   `json:"id"`
	Kind     ZoneKind `json:"kind"`
	Lo       float64  `json:"lo"`
	Hi       float64  `json:"hi"`
	Strength int      `json:"strength,omitempty"`
	IsManual bool     `json:"isManual,omitempty"`
	Type     string   `json:"type,omitempty"`
}

// Mid returns the band midpoint.
func (z Zone) Mid() float64 { return (z.Hi + z.Lo) / 2 }

// Width returns the band width.
func (z Zone) Width() float64 { return z.Hi - z.Lo }

// Contains reports whether price sits inside the band, edges inclusive.
func (z Zone) Contains(price float64) bool {
	return price >= z.Lo && price <= z.Hi
}

// Penetration returns how deep this zone overlaps other, in dollars.
// Zero means the bands do not overlap.
func (z Zone) Penetration(other Zone) float64 {
	depth := math.Min(z.Hi, other.Hi) - math.Max(z.Lo, other.Lo)
	if depth < 0 {
		return 0
	}
	return depth
}

// IsNegotiated reports whether the id carries the negotiated tag.
func IsNegotiated(id string) bool { return strings.Contains(id, negotiatedTag) }

// CanonicalBand normalizes a raw [a, b] price range: hi=max, lo=min, both
// rounded to two decimals. ok is false for degenerate or non-finite bands.
func CanonicalBand(a, b float64) (lo, hi float64, ok bool) {
	if math.IsNaN(a) || math.IsInf(a, 0) || math.IsNaN(b) || math.IsInf(b, 0) {
		return 0, 0, false
	}
	lo, _ = decimal.NewFromFloat(math.Min(a, b)).Round(2).Float64()
	hi, _ = decimal.NewFromFloat(math.Max(a, b)).Round(2).Float64()
	if hi <= lo {
		return 0, 0, false
	}
	return lo, hi, true
}

// GapKind labels a vertical band between institutional zones.
type GapKind string

const (
	GapTop    GapKind = "TOP"
	GapMid    GapKind = "MID"
	GapBottom GapKind = "BOTTOM"
	GapAll    GapKind = "ALL"
)

// GapRegion is the half-open price interval between two adjacent
// institutional zones. Hi/Lo may be +-Inf for the synthetic edges.
type GapRegion struct {
	Kind GapKind
	Hi   float64
	Lo   float64
}

// Contains reports whether price falls inside the gap.
func (g GapRegion) Contains(price float64) bool {
	return price > g.Lo && price < g.Hi
}

// ZoneMeta carries catalog provenance.
type ZoneMeta struct {
	GeneratedAtUTC     string   `json:"generatedAtUtc"`
	CurrentPriceAnchor *float64 `json:"currentPriceAnchor,omitempty"`
}

// ZoneCatalog is the normalized zone store result for one symbol.
// Meta comes from the sticky-structures file; ShelvesMeta from the shelf
// job, whose timestamp drives the shelf staleness rule.
type ZoneCatalog struct {
	Negotiated    []Zone   `json:"negotiated"`
	Institutional []Zone   `json:"institutional"`
	Shelves       []Zone   `json:"shelves"`
	Meta          ZoneMeta `json:"meta"`
	ShelvesMeta   ZoneMeta `json:"shelvesMeta"`
}

// PriceAnchor returns the current price anchor, preferring the shelf job's
// anchor over the levels file one.
func (c ZoneCatalog) PriceAnchor() (float64, bool) {
	if c.ShelvesMeta.CurrentPriceAnchor != nil {
		return *c.ShelvesMeta.CurrentPriceAnchor, true
	}
	if c.Meta.CurrentPriceAnchor != nil {
		return *c.Meta.CurrentPriceAnchor, true
	}
	return 0, false
}
