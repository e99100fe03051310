package catalog

import (
	"context"
	"sort"
)

// Source identifies the external database a record was normalized from.
type Source string

const (
	SourceKBOB         Source = "KBOB"
	SourceOkobaudatCSV Source = "OKOBAUDAT_CSV"
	SourceOkobaudatAPI Source = "OKOBAUDAT_API"
	SourceCustom       Source = "CUSTOM"
)

// Secondary indicator names carried alongside GWP.
const (
	IndicatorPENRE = "PENRE"
	IndicatorUBP   = "UBP"
)

// MaterialRecord is the canonical catalog entry every reader normalizes into.
// CarbonPerUnit is kg CO2-eq per kg of material; Density is kg/m3 and is nil
// for surface-only materials that cannot contribute to mass-based totals.
type MaterialRecord struct {
	ID                  string             `json:"id"`
	Name                string             `json:"name"`
	Category            string             `json:"category"`
	Density             *float64           `json:"density,omitempty"`
	CarbonPerUnit       float64            `json:"carbon_per_unit"`
	SecondaryIndicators map[string]float64 `json:"secondary_indicators,omitempty"`
	Source              Source             `json:"source"`
}

// HasDensity reports whether the record can contribute to mass-based calculations.
func (r *MaterialRecord) HasDensity() bool {
	return r.Density != nil && *r.Density > 0
}

// DensityValue returns the density or 0 when unresolved.
func (r *MaterialRecord) DensityValue() float64 {
	if r.Density == nil {
		return 0
	}
	return *r.Density
}

// CatalogSource is the capability every database format implements. Load
// returns records already normalized and quality-filtered; per-record parse
// failures are skipped, only systemic failures return an error.
type CatalogSource interface {
	Load(ctx context.Context) ([]MaterialRecord, error)
	Kind() Source
	Describe() string
}

// Catalog is the normalized, in-memory result of loading one source.
// Record order is deterministic (category, then name) so search tie-breaks
// and serialized output are stable across runs.
type Catalog struct {
	records []MaterialRecord
	byID    map[string]int
	source  Source
}

// NewCatalog builds a catalog from normalized records. Records are sorted by
// category then name; duplicate IDs keep the first occurrence.
func NewCatalog(source Source, records []MaterialRecord) *Catalog {
	sorted := make([]MaterialRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Category != sorted[j].Category {
			return sorted[i].Category < sorted[j].Category
		}
		return sorted[i].Name < sorted[j].Name
	})

	byID := make(map[string]int, len(sorted))
	deduped := sorted[:0]
	for _, rec := range sorted {
		if _, exists := byID[rec.ID]; exists {
			continue
		}
		byID[rec.ID] = len(deduped)
		deduped = append(deduped, rec)
	}

	return &Catalog{
		records: deduped,
		byID:    byID,
		source:  source,
	}
}

// Records returns the catalog entries in deterministic order. The returned
// slice is shared; callers must not mutate it.
func (c *Catalog) Records() []MaterialRecord {
	return c.records
}

// Get returns the record with the given ID.
func (c *Catalog) Get(id string) (*MaterialRecord, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return &c.records[idx], true
}

// Len returns the number of records in the catalog.
func (c *Catalog) Len() int {
	return len(c.records)
}

// Source returns the database this catalog was normalized from.
func (c *Catalog) Source() Source {
	return c.source
}
