package zones

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smzlabs/zonedash/internal/domain"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLoadZonesMissingFilesYieldEmptyCatalog(t *testing.T) {
	store := NewStore(t.TempDir(), zap.NewNop())

	catalog, err := store.LoadZones(context.Background(), "SPY")

	require.NoError(t, err)
	require.Empty(t, catalog.Negotiated)
	require.Empty(t, catalog.Institutional)
	require.Empty(t, catalog.Shelves)
}

func TestLoadZonesSplitsNegotiatedByIDTag(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "smz-levels.json", `{
		"meta": {"generated_at_utc": "2025-06-02T12:00:00Z", "current_price": 585.25},
		"structures_sticky": [
			{"id": "smz|NEG|2025-05-30", "price_range": [584.0, 586.5], "strength": 80},
			{"id": "smz-inst-1", "price_range": [580.0, 582.0], "strength": 65}
		]
	}`)

	store := NewStore(dir, zap.NewNop())
	catalog, err := store.LoadZones(context.Background(), "SPY")
	require.NoError(t, err)

	require.Len(t, catalog.Negotiated, 1)
	require.Equal(t, domain.ZoneNegotiated, catalog.Negotiated[0].Kind)
	require.Len(t, catalog.Institutional, 1)
	require.Equal(t, domain.ZoneInstitutional, catalog.Institutional[0].Kind)

	anchor, ok := catalog.PriceAnchor()
	require.True(t, ok)
	require.InDelta(t, 585.25, anchor, 1e-9)
}

func TestLoadZonesCanonicalizesBands(t *testing.T) {
	dir := t.TempDir()
	// reversed range and excess precision both normalize; the zero-width
	// band is dropped
	writeFile(t, dir, "smz-levels.json", `{
		"meta": {"generated_at_utc": "2025-06-02T12:00:00Z"},
		"structures_sticky": [
			{"id": "rev", "price_range": [586.519, 584.001], "strength": 10},
			{"id": "flat", "price_range": [585.0, 585.0], "strength": 10}
		]
	}`)

	store := NewStore(dir, zap.NewNop())
	catalog, err := store.LoadZones(context.Background(), "SPY")
	require.NoError(t, err)

	require.Len(t, catalog.Institutional, 1)
	z := catalog.Institutional[0]
	require.InDelta(t, 584.00, z.Lo, 1e-9)
	require.InDelta(t, 586.52, z.Hi, 1e-9)
}

func TestLoadZonesReadsShelvesWithOwnMeta(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "smz-shelves.json", `{
		"meta": {"generated_at_utc": "2025-06-02T13:30:00Z", "current_price": 585.9},
		"levels": [
			{"id": "shelf-1", "price_range": [587.0, 587.4], "strength": 42, "is_manual": true, "type": "volume"}
		]
	}`)

	store := NewStore(dir, zap.NewNop())
	catalog, err := store.LoadZones(context.Background(), "SPY")
	require.NoError(t, err)

	require.Len(t, catalog.Shelves, 1)
	s := catalog.Shelves[0]
	require.Equal(t, domain.ZoneShelf, s.Kind)
	require.True(t, s.IsManual)
	require.Equal(t, "volume", s.Type)
	require.Equal(t, "2025-06-02T13:30:00Z", catalog.ShelvesMeta.GeneratedAtUTC)

	// shelf job anchor wins over the levels file anchor
	anchor, ok := catalog.PriceAnchor()
	require.True(t, ok)
	require.InDelta(t, 585.9, anchor, 1e-9)
}

func TestLoadZonesRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "smz-levels.json", `{not json`)

	store := NewStore(dir, zap.NewNop())
	_, err := store.LoadZones(context.Background(), "SPY")
	require.Error(t, err)
}
