package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// customEntry mirrors the custom JSON format: a map of record id to fields
// already close to canonical. Only validation and defaulting happen here.
type customEntry struct {
	Name          string   `json:"name"`
	Category      string   `json:"category"`
	Density       *float64 `json:"density"`
	GWP           *float64 `json:"gwp"`
	CarbonPerUnit *float64 `json:"carbon_per_unit"`
	PENR          *float64 `json:"penr"`
	UBP           *float64 `json:"ubp"`
}

// CustomJSONSource reads a user-supplied catalog in the custom JSON format.
type CustomJSONSource struct {
	path   string
	logger *zap.Logger
}

// NewCustomJSONSource creates a catalog source for a custom JSON file.
func NewCustomJSONSource(path string, logger *zap.Logger) *CustomJSONSource {
	return &CustomJSONSource{path: path, logger: logger}
}

// Kind returns the source identifier.
func (s *CustomJSONSource) Kind() Source { return SourceCustom }

// Describe returns a human-readable source descriptor.
func (s *CustomJSONSource) Describe() string { return fmt.Sprintf("custom JSON file %s", s.path) }

// Load parses and validates the custom catalog. Entries missing a carbon
// value are skipped; an unreadable or non-object file aborts the load.
func (s *CustomJSONSource) Load(ctx context.Context) ([]MaterialRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read custom catalog: %w", err)
	}

	var entries map[string]customEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse custom catalog: %w", err)
	}

	records := make([]MaterialRecord, 0, len(entries))
	for id, entry := range entries {
		carbon := entry.GWP
		if carbon == nil {
			carbon = entry.CarbonPerUnit
		}
		if carbon == nil {
			s.logger.Debug("skipping custom entry without carbon value", zap.String("id", id))
			continue
		}

		name := entry.Name
		if name == "" {
			name = id
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
			Name:                name,
			Category:            category,
			Density:             density,
			CarbonPerUnit:       *carbon,
			SecondaryIndicators: secondary,
			Source:              SourceCustom,
		})
	}

	records = filterRecords(records)
	s.logger.Info("loaded custom catalog", zap.Int("records", len(records)))
	return records, nil
}
