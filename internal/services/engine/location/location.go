// Package location implements the location-context engine: which zone
// (negotiated / institutional / shelf) price is interacting with, plus the
// shelf surfacing rules applied on top of the raw catalogs.
package location

import (
	"math"
	"sort"
	"time"

	"github.com/smzlabs/zonedash/internal/domain"
)

const (
	// maxShelfAge is how old the shelf catalog may be before its shelves
	// stop surfacing.
	maxShelfAge = 48 * time.Hour
	// maxInstitutionalPenetration is the deepest a shelf may overlap any
	// institutional zone, in dollars.
	maxInstitutionalPenetration = 0.50
	// shelvesPerGap caps surfaced shelves per gap region.
	shelvesPerGap = 2
	// replaceStrengthDelta / replaceWidthFactor / replaceForceDelta govern
	// shelf replacement inside one gap.
	replaceStrengthDelta = 7
	replaceWidthFactor   = 1.25
	replaceForceDelta    = 20
)

// Rules is the locked surfacing rule set, echoed in responses so the UI can
// display why shelves were filtered.
var Rules = []string{
	"shelf catalog older than 48h is discarded",
	"shelf overlapping any institutional deeper than $0.50 is discarded",
	"shelf is assigned to the gap region containing its midpoint",
	"replacement requires strength delta >= 7 and (width <= 1.25x or delta >= 20)",
	"manual shelves are never replaced by auto shelves",
	"at most 2 shelves per gap, highest strength kept",
}

// Meta describes the evaluated catalog state.
type Meta struct {
	Symbol         string   `json:"symbol"`
	GeneratedAtUTC string   `json:"generated_at_utc"`
	CurrentPrice   *float64 `json:"current_price,omitempty"`
	Rules          []string `json:"rules"`
}

// Render holds the zones the chart should draw.
type Render struct {
	Negotiated    []domain.Zone `json:"negotiated"`
	Institutional []domain.Zone `json:"institutional"`
	Shelves       []domain.Zone `json:"shelves"`
}

// Active identifies the zones currently containing price.
type Active struct {
	Negotiated    *domain.Zone `json:"negotiated,omitempty"`
	Shelf         *domain.Zone `json:"shelf,omitempty"`
	Institutional *domain.Zone `json:"institutional,omitempty"`
}

// Result is the full location-context output. No scoring, no gating.
type Result struct {
	Meta   Meta   `json:"meta"`
	Render Render `json:"render"`
	Active Active `json:"active"`
}

// Evaluate runs the location engine over a normalized catalog.
func Evaluate(symbol string, catalog domain.ZoneCatalog, now time.Time) Result {
	institutional := append([]domain.Zone(nil), catalog.Institutional...)
	sort.Slice(institutional, func(i, j int) bool { return institutional[i].Hi > institutional[j].Hi })

	gaps := GapRegions(institutional)
	shelves := surfaceShelves(catalog.Shelves, institutional, gaps, catalog.ShelvesMeta, now)

	res := Result{
		Meta: Meta{
			Symbol:         symbol,
			GeneratedAtUTC: catalog.Meta.GeneratedAtUTC,
			Rules:          Rules,
		},
		Render: Render{
			Negotiated:    catalog.Negotiated,
			Institutional: institutional,
			Shelves:       shelves,
		},
	}

	price, ok := catalog.PriceAnchor()
	if !ok || math.IsNaN(price) || math.IsInf(price, 0) {
		return res
	}
	res.Meta.CurrentPrice = &price
	res.Active = selectActive(price, catalog.Negotiated, institutional, shelves)
	return res
}

// GapRegions builds the ordered vertical bands between consecutive
// institutional zones. The input must be sorted descending by Hi.
func GapRegions(institutional []domain.Zone) []domain.GapRegion {
	if len(institutional) == 0 {
		return []domain.GapRegion{{Kind: domain.GapAll, Hi: math.Inf(1), Lo: math.Inf(-1)}}
	}

	gaps := []domain.GapRegion{{Kind: domain.GapTop, Hi: math.Inf(1), Lo: institutional[0].Hi}}
	for i := 0; i < len(institutional)-1; i++ {
		gaps = append(gaps, domain.GapRegion{
			Kind: domain.GapMid,
			Hi:   institutional[i].Lo,
			Lo:   institutional[i+1].Hi,
		})
	}
	gaps = append(gaps, domain.GapRegion{
		Kind: domain.GapBottom,
		Hi:   institutional[len(institutional)-1].Lo,
		Lo:   math.Inf(-1),
	})
	return gaps
}

func surfaceShelves(shelves, institutional []domain.Zone, gaps []domain.GapRegion, meta domain.ZoneMeta, now time.Time) []domain.Zone {
	generated, err := time.Parse(time.RFC3339, meta.GeneratedAtUTC)
	if err != nil || now.Sub(generated) > maxShelfAge {
		return nil
	}

	buckets := make([][]domain.Zone, len(gaps))
	for _, shelf := range shelves {
		if penetratesInstitutional(shelf, institutional) {
			continue
		}
		gapIdx := -1
		for i, gap := range gaps {
			if gap.Contains(shelf.Mid()) {
				gapIdx = i
				break
			}
		}
		if gapIdx < 0 {
			continue
		}
		buckets[gapIdx] = placeInGap(buckets[gapIdx], shelf)
	}

	var surfaced []domain.Zone
	for _, bucket := range buckets {
		surfaced = append(surfaced, bucket...)
	}
	return surfaced
}

func penetratesInstitutional(shelf domain.Zone, institutional []domain.Zone) bool {
	for _, inst := range institutional {
		if shelf.Penetration(inst) > maxInstitutionalPenetration {
			return true
		}
	}
	return false
}

// placeInGap inserts a shelf into a gap bucket, applying the replacement
// rule first and the per-gap cap second.
func placeInGap(bucket []domain.Zone, shelf domain.Zone) []domain.Zone {
	// prefer replacing the weakest shelf the rule allows
	replaceIdx := -1
	for i, old := range bucket {
		if !replaces(shelf, old) {
			continue
		}
		if replaceIdx < 0 || bucket[i].Strength < bucket[replaceIdx].Strength {
			replaceIdx = i
		}
	}
	if replaceIdx >= 0 {
		bucket[replaceIdx] = shelf
		return bucket
	}

	bucket = append(bucket, shelf)
	if len(bucket) > shelvesPerGap {
		sort.SliceStable(bucket, func(i, j int) bool { return bucket[i].Strength > bucket[j].Strength })
		bucket = bucket[:shelvesPerGap]
	}
	return bucket
}

func replaces(incoming, old domain.Zone) bool {
	if old.IsManual && !incoming.IsManual {
		return false
	}
	delta := incoming.Strength - old.Strength
	if delta < replaceStrengthDelta {
		return false
	}
	return incoming.Width() <= replaceWidthFactor*old.Width() || delta >= replaceForceDelta
}

func selectActive(price float64, negotiated, institutional, shelves []domain.Zone) Active {
	var active Active
	active.Negotiated = narrowestContaining(negotiated, price)
	active.Institutional = narrowestContaining(institutional, price)

	for i := range shelves {
		if !shelves[i].Contains(price) {
			continue
		}
		if active.Shelf == nil || shelves[i].Strength > active.Shelf.Strength {
			active.Shelf = &shelves[i]
		}
	}
	return active
}

func narrowestContaining(zones []domain.Zone, price float64) *domain.Zone {
	var best *domain.Zone
	for i := range zones {
		if !zones[i].Contains(price) {
			continue
		}
		if best == nil || zones[i].Width() < best.Width() {
			best = &zones[i]
		}
	}
	return best
}
