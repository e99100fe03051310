package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// densityNoData is the sentinel KBOB uses for materials without a usable
// density (surface-only materials declared per m2).
const densityNoData = "-"

// flexID accepts KBOB IDs serialized either as JSON numbers or as strings
// like "01.002.01".
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

func (f flexID) String() string { return string(f) }

// kbobEntry is one raw entry of the KBOB v6 JSON export. GWP and PENRE are
// declared in grams CO2-eq per kg; kg/unit carries the density when the
// declared unit is mass-based, "-" otherwise.
type kbobEntry struct {
	KBOBID     flexID   `json:"KBOB_ID"`
	Name       string   `json:"Name"`
	GWP        *float64 `json:"GWP"`
	PENRE      *float64 `json:"PENRE"`
	UBP        *float64 `json:"UBP"`
	KgPerUnit  any      `json:"kg/unit"`
	MinDensity *float64 `json:"min density"`
	MaxDensity *float64 `json:"max density"`
}

// kbobLegacyEntry is the older id-keyed map format with per-kg values.
type kbobLegacyEntry struct {
	Name          string   `json:"name"`
	Category      string   `json:"category"`
	Density       *float64 `json:"density"`
	CarbonPerUnit *float64 `json:"carbon_per_unit"`
	GWP           *float64 `json:"gwp"`
	PENR          *float64 `json:"penr"`
	UBP           *float64 `json:"ubp"`
}

// KBOBSource reads the Swiss KBOB catalog from a JSON file. Both the v6
// array format and the legacy id-keyed map format are accepted.
type KBOBSource struct {
	path   string
	logger *zap.Logger
}

// NewKBOBSource creates a KBOB catalog source for the given JSON file.
func NewKBOBSource(path string, logger *zap.Logger) *KBOBSource {
	return &KBOBSource{path: path, logger: logger}
}

// Kind returns the source identifier.
func (s *KBOBSource) Kind() Source { return SourceKBOB }

// Describe returns a human-readable source descriptor.
func (s *KBOBSource) Describe() string { return fmt.Sprintf("KBOB JSON file %s", s.path) }

// Load parses the KBOB file into canonical records. Corrupt entries are
// skipped and logged; only an unreadable file aborts the load.
func (s *KBOBSource) Load(ctx context.Context) ([]MaterialRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read KBOB file: %w", err)
	}

	// The v6 export is an array; the legacy format is an id-keyed object.
	var entries []kbobEntry
	if err := json.Unmarshal(data, &entries); err == nil {
		return s.loadV6(entries), nil
	}

	var legacy map[string]kbobLegacyEntry
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("failed to parse KBOB file: %w", err)
	}
	return s.loadLegacy(legacy), nil
}

func (s *KBOBSource) loadV6(entries []kbobEntry) []MaterialRecord {
	records := make([]MaterialRecord, 0, len(entries))
	skipped := 0

	for _, entry := range entries {
		rec, err := s.normalizeV6(entry)
		if err != nil {
			skipped++
			s.logger.Debug("skipping KBOB entry", zap.String("id", entry.KBOBID.String()), zap.Error(err))
			continue
		}
		records = append(records, rec)
	}

	parsed := len(records)
	records = filterRecords(records)
	s.logger.Info("loaded KBOB catalog",
		zap.Int("records", len(records)),
		zap.Int("skipped", skipped+parsed-len(records)))
	return records
}

func (s *KBOBSource) normalizeV6(entry kbobEntry) (MaterialRecord, error) {
	id := entry.KBOBID.String()
	if id == "" {
		return MaterialRecord{}, &ParseError{Source: SourceKBOB, Record: entry.Name, Reason: "missing KBOB_ID"}
	}
	if entry.GWP == nil {
		return MaterialRecord{}, &ParseError{Source: SourceKBOB, Record: id, Reason: "no resolvable GWP"}
	}

	secondary := make(map[string]float64)
	if entry.PENRE != nil {
		secondary[IndicatorPENRE] = *entry.PENRE
	}
	if entry.UBP != nil {
		secondary[IndicatorUBP] = *entry.UBP
	}

	return MaterialRecord{
		ID:       "KBOB_" + id,
		Name:     entry.Name,
		Category: kbobCategory(id),
		Density:  resolveKBOBDensity(entry),
		// KBOB declares GWP in g CO2-eq/kg; canonical form is kg/kg.
		CarbonPerUnit:       *entry.GWP / 1000,
		SecondaryIndicators: secondary,
		Source:              SourceKBOB,
	}, nil
}

// resolveKBOBDensity applies the density fallback chain: the kg/unit field
// when it is a number and not the "-" sentinel, then the mean of the
// documented min/max densities, then unresolved.
func resolveKBOBDensity(entry kbobEntry) *float64 {
	switch v := entry.KgPerUnit.(type) {
	case float64:
		if v > 0 {
			return &v
		}
	case string:
		if v != densityNoData {
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && parsed > 0 {
				return &parsed
			}
		}
	}

	if entry.MinDensity != nil && entry.MaxDensity != nil {
		mean := (*entry.MinDensity + *entry.MaxDensity) / 2
		if mean > 0 {
			return &mean
		}
	}
	return nil
}

// kbobCategory maps the numeric prefix of a KBOB ID to its material category.
// IDs look like "01.002.01"; the leading group number is the taxonomy key.
func kbobCategory(id string) string {
	prefix := id
	if dot := strings.IndexByte(id, '.'); dot >= 0 {
		prefix = id[:dot]
	}
	group, err := strconv.ParseFloat(prefix, 64)
	if err != nil {
		return "Uncategorized"
	}

	switch {
	case group < 1:
		return "Foundation/Excavation"
	case group < 2:
		return "Concrete"
	case group < 3:
		return "Masonry"
	case group < 4:
		return "Mineral/Stone"
	case group < 5:
		return "Mortar/Plaster"
	case group < 6:
		return "Facade/Windows"
	case group < 7:
		return "Metal"
	case group < 8:
		return "Wood"
	case group < 9:
		return "Sealants/Adhesives"
	case group < 10:
		return "Membranes/Foils"
	case group < 11:
		return "Insulation"
	case group < 12:
		return "Flooring"
	case group < 13:
		return "Doors"
	case group < 14:
		return "Plastics/Pipes"
	case group < 15:
		return "Coatings"
	case group < 21:
		return "Other Materials"
	default:
		return "Kitchen/Interior"
	}
}

func (s *KBOBSource) loadLegacy(entries map[string]kbobLegacyEntry) []MaterialRecord {
	records := make([]MaterialRecord, 0, len(entries))

	for id, entry := range entries {
		carbon := entry.GWP
		if carbon == nil {
			carbon = entry.CarbonPerUnit
		}
		if carbon == nil {
			s.logger.Debug("skipping legacy KBOB entry without carbon value", zap.String("id", id))
			continue
		}

		category := entry.Category
		if category == "" {
			category = "Uncategorized"
		}
		secondary := make(map[string]float64)
		if entry.PENR != nil {
			secondary[IndicatorPENRE] = *entry.PENR
		}
		if entry.UBP != nil {
			secondary[IndicatorUBP] = *entry.UBP
		}

		var density *float64
		if entry.Density != nil && *entry.Density > 0 {
			d := *entry.Density
			density = &d
		}

		records = append(records, MaterialRecord{
			ID:                  id,
			Name:                entry.Name,
			Category:            category,
			Density:             density,
			CarbonPerUnit:       *carbon,
			SecondaryIndicators: secondary,
			Source:              SourceKBOB,
		})
	}

	records = filterRecords(records)
	s.logger.Info("loaded legacy KBOB catalog", zap.Int("records", len(records)))
	return records
}
