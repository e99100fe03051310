package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"building-lca/analyzer-backend/internal/analysis"
)

var csvColumns = []string{
	"Material", "Category", "Elements", "Volume (m3)", "Mass (kg)",
	"Carbon (kg CO2-eq)", "Density (kg/m3)", "Carbon per Unit (kg CO2-eq/kg)", "Status",
}

// WriteCSV writes the material rollup of a result as CSV, highest carbon
// first. The column set matches the dashboard's CSV import.
func WriteCSV(w io.Writer, result *analysis.Result) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvColumns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, name := range materialsByCarbon(result) {
		mat := result.ByMaterial[name]
		row := []string{
			name,
			mat.Category,
			strconv.Itoa(mat.ElementCount),
			formatFloat(mat.TotalVolume),
			formatFloat(mat.TotalMass),
			formatFloat(mat.TotalCarbon),
			formatFloat(mat.Density),
			strconv.FormatFloat(mat.CarbonPerUnit, 'f', -1, 64),
			materialStatus(mat),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// materialsByCarbon orders material names by total carbon descending, name
// ascending on ties, so exports are stable.
func materialsByCarbon(result *analysis.Result) []string {
	names := make([]string, 0, len(result.ByMaterial))
	for name := range result.ByMaterial {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ci := result.ByMaterial[names[i]].TotalCarbon
		cj := result.ByMaterial[names[j]].TotalCarbon
		if ci != cj {
			return ci > cj
		}
		return names[i] < names[j]
	})
	return names
}

func materialStatus(mat analysis.MaterialRollup) string {
	switch {
	case mat.Unmapped:
		return "unmapped"
	case mat.DensityMissing:
		return "density missing"
	default:
		return "ok"
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
