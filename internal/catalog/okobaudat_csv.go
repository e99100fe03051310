package catalog

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Header aliases per logical field, in priority order. OKOBAUDAT exports vary
// their column naming between releases and localizations; the reader binds
// each field to the first alias present in the header row.
var csvFieldAliases = map[string][]string{
	"id":       {"UUID", "ID"},
	"name":     {"Name_de", "Name", "Material"},
	"category": {"Category_de", "Category", "Kategorie"},
	"density":  {"Rohdichte", "Density"},
	"gwp":      {"GWP-total", "GWP100", "Treibhauspotenzial"},
	"penr":     {"PENRT", "PENR", "PEne"},
	"unit":     {"Bezugseinheit", "Unit"},
	"quantity": {"Bezugsgröße", "RefQuantity"},
}

// OkobaudatCSVSource reads a German OKOBAUDAT catalog export in CSV form.
type OkobaudatCSVSource struct {
	path   string
	logger *zap.Logger
}

// NewOkobaudatCSVSource creates a CSV catalog source for the given export file.
func NewOkobaudatCSVSource(path string, logger *zap.Logger) *OkobaudatCSVSource {
	return &OkobaudatCSVSource{path: path, logger: logger}
}

// Kind returns the source identifier.
func (s *OkobaudatCSVSource) Kind() Source { return SourceOkobaudatCSV }

// Describe returns a human-readable source descriptor.
func (s *OkobaudatCSVSource) Describe() string {
	return fmt.Sprintf("OKOBAUDAT CSV file %s", s.path)
}

// Load parses the CSV export into canonical records. Rows lacking a
// resolvable GWP are dropped; only an unreadable file aborts the load.
func (s *OkobaudatCSVSource) Load(ctx context.Context) ([]MaterialRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open OKOBAUDAT CSV: %w", err)
	}
	defer f.Close()

	return s.parse(f)
}

func (s *OkobaudatCSVSource) parse(r io.Reader) ([]MaterialRecord, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read OKOBAUDAT CSV header: %w", err)
	}
	// Some exports come comma-delimited; retry once if the header did not split.
	if len(header) == 1 && strings.Contains(header[0], ",") {
		header = strings.Split(header[0], ",")
		reader.Comma = ','
	}

	columns := bindColumns(header)
	if _, ok := columns["name"]; !ok {
		return nil, fmt.Errorf("OKOBAUDAT CSV has no recognizable name column (header: %v)", header)
	}

	var records []MaterialRecord
	skipped := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			s.logger.Debug("skipping malformed OKOBAUDAT row", zap.Error(err))
			continue
		}

		rec, err := s.normalizeRow(row, columns)
		if err != nil {
			skipped++
			s.logger.Debug("skipping OKOBAUDAT row", zap.Error(err))
			continue
		}
		records = append(records, rec)
	}

	parsed := len(records)
	records = filterRecords(records)
	s.logger.Info("loaded OKOBAUDAT CSV catalog",
		zap.Int("records", len(records)),
		zap.Int("skipped", skipped+parsed-len(records)))
	return records, nil
}

// bindColumns resolves each logical field to the index of the first matching
// header alias.
func bindColumns(header []string) map[string]int {
	columns := make(map[string]int)
	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.TrimSpace(col)] = i
	}

	for field, aliases := range csvFieldAliases {
		for _, alias := range aliases {
			if i, ok := index[alias]; ok {
				columns[field] = i
				break
			}
		}
	}
	return columns
}

func (s *OkobaudatCSVSource) normalizeRow(row []string, columns map[string]int) (MaterialRecord, error) {
	field := func(name string) string {
		i, ok := columns[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	name := field("name")
	if name == "" {
		return MaterialRecord{}, &ParseError{Source: SourceOkobaudatCSV, Record: field("id"), Reason: "missing name"}
	}
	id := field("id")
	if id == "" {
		id = name
	}

	gwpRaw := field("gwp")
	if gwpRaw == "" {
		return MaterialRecord{}, &ParseError{Source: SourceOkobaudatCSV, Record: id, Reason: "no resolvable GWP"}
	}
	gwp, ok := parseGermanFloat(gwpRaw)
	if !ok {
		return MaterialRecord{}, &ParseError{Source: SourceOkobaudatCSV, Record: id, Reason: "unparseable GWP " + gwpRaw}
	}

	density, hasDensity := parseGermanFloat(field("density"))
	penr, hasPENR := parseGermanFloat(field("penr"))

	// Normalize to per-kg: volumetric declarations divide by density, and a
	// reference quantity other than one unit divides by that quantity first.
	unit := strings.ToLower(field("unit"))
	if strings.Contains(unit, "m3") || strings.Contains(unit, "m³") {
		if !hasDensity || density <= 0 {
			return MaterialRecord{}, &ParseError{Source: SourceOkobaudatCSV, Record: id, Reason: "volumetric GWP without density"}
		}
		gwp /= density
		penr /= density
	} else if quantity, ok := parseGermanFloat(field("quantity")); ok && quantity != 0 && quantity != 1 {
		gwp /= quantity
		penr /= quantity
	}

	category := field("category")
	if category == "" {
		category = "Uncategorized"
	}

	secondary := make(map[string]float64)
	if hasPENR {
		secondary[IndicatorPENRE] = penr
	}

	var densityPtr *float64
	if hasDensity && density > 0 {
		d := density
		densityPtr = &d
	}

	return MaterialRecord{
		ID:                  id,
		Name:                name,
		Category:            category,
		Density:             densityPtr,
		CarbonPerUnit:       gwp,
		SecondaryIndicators: secondary,
		Source:              SourceOkobaudatCSV,
	}, nil
}

// parseGermanFloat parses a decimal that may use the German comma notation.
func parseGermanFloat(value string) (float64, bool) {
	if value == "" {
		return 0, false
	}
	value = strings.ReplaceAll(value, ",", ".")
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
