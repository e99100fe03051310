package matching

import (
	"strings"

	"go.uber.org/zap"

	"building-lca/analyzer-backend/internal/analysis"
)

// synonymGroups expands a model material name into catalog search terms when
// a direct search finds nothing acceptable. Building models routinely mix
// English and German material names against a single-language catalog.
var synonymGroups = [][]string{
	{"concrete", "beton"},
	{"steel", "stahl", "metal"},
	{"wood", "timber", "holz"},
	{"glass", "glas"},
	{"gypsum", "plaster", "gips"},
	{"brick", "masonry", "ziegel"},
	{"insulation", "dämmung"},
	{"aluminum", "aluminium"},
}

// AutoMapReport is the outcome of one auto-mapping pass. Materials with no
// candidate above the acceptance threshold are listed, never silently
// defaulted.
type AutoMapReport struct {
	Mapped        analysis.Mapping `json:"mapped"`
	Unmatched     []string         `json:"unmatched"`
	AlreadyMapped int              `json:"already_mapped"`
}

// AutoMap maps every unmapped model material to its best catalog candidate,
// accepting only candidates whose score reaches the configured threshold.
func (m *Matcher) AutoMap(materials []analysis.ModelMaterial) AutoMapReport {
	report := AutoMapReport{Mapped: make(analysis.Mapping)}

	for _, material := range materials {
		if material.IsMapped {
			report.AlreadyMapped++
			continue
		}

		match, ok := m.bestCandidate(material.Name)
		if !ok {
			report.Unmatched = append(report.Unmatched, material.Name)
			continue
		}

		report.Mapped[material.Name] = match.Record.ID
		m.logger.Debug("auto-mapped material",
			zap.String("material", material.Name),
			zap.String("record", match.Record.ID),
			zap.Float64("score", match.Score))
	}

	m.logger.Info("auto-mapping complete",
		zap.Int("mapped", len(report.Mapped)),
		zap.Int("already_mapped", report.AlreadyMapped),
		zap.Int("unmatched", len(report.Unmatched)))
	return report
}

// bestCandidate searches with the material's own name, then falls back to
// synonym expansion. The acceptance threshold applies to both passes.
func (m *Matcher) bestCandidate(name string) (Match, bool) {
	if matches := m.Search(name, 1); len(matches) > 0 && matches[0].Score >= m.config.AcceptThreshold {
		return matches[0], true
	}

	lower := strings.ToLower(name)
	for _, group := range synonymGroups {
		if !containsAnyTerm(lower, group) {
			continue
		}
		best, found := Match{}, false
		for _, term := range group {
			if matches := m.Search(term, 1); len(matches) > 0 && matches[0].Score >= m.config.AcceptThreshold {
				if !found || matches[0].Score > best.Score {
					best, found = matches[0], true
				}
			}
		}
		if found {
			return best, true
		}
	}
	return Match{}, false
}

func containsAnyTerm(name string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(name, term) {
			return true
		}
	}
	return false
}
