package wave

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

const catalogFile = "fib-levels.json"

// ReasonNotBuilt is returned while the upstream fib job has not produced a
// catalog yet. A normal state, not an error.
const ReasonNotBuilt = "NOT_BUILT_YET"

type catalogDoc struct {
	Items []FibPayload `json:"items"`
}

// Catalog serves fib payloads from the on-disk catalog produced by the
// upstream Elliott job. Reloaded per request, like the zone catalogs.
type Catalog struct {
	dir string
}

// NewCatalog creates a catalog over the data directory.
func NewCatalog(dir string) *Catalog {
	return &Catalog{dir: dir}
}

// Find returns the catalog item matching the query. degree may be empty to
// match any degree. The bool reports whether the catalog file existed.
func (c *Catalog) Find(symbol, tf, degree, waveKey string) (*FibPayload, bool, error) {
	data, err := os.ReadFile(filepath.Join(c.dir, catalogFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "read fib catalog")
	}

	var doc catalogDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, false, errors.Wrap(err, "decode fib catalog")
	}

	for i := range doc.Items {
		item := &doc.Items[i]
		if !strings.EqualFold(item.Symbol, symbol) || !strings.EqualFold(item.TF, tf) {
			continue
		}
		if degree != "" && !strings.EqualFold(item.Degree, degree) {
			continue
		}
		if !strings.EqualFold(item.Wave, waveKey) {
			continue
		}
		return item, true, nil
	}
	return nil, true, nil
}
