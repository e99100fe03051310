package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"building-lca/analyzer-backend/internal/analysis"
)

const (
	materialsSheet = "Materials"
	classesSheet   = "By Class"
)

// WriteExcel writes a two-sheet workbook: the material rollup and the
// structural-class rollup, with a summary block under the materials table.
func WriteExcel(w io.Writer, result *analysis.Result) error {
	file := excelize.NewFile()
	file.SetSheetName("Sheet1", materialsSheet)

	headerStyle, err := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeMaterialsSheet(file, result, headerStyle); err != nil {
		return err
	}
	if err := writeClassesSheet(file, result, headerStyle); err != nil {
		return err
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeMaterialsSheet(file *excelize.File, result *analysis.Result, headerStyle int) error {
	for i, col := range csvColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := file.SetCellValue(materialsSheet, cell, col); err != nil {
			return fmt.Errorf("failed to write header cell: %w", err)
		}
	}
	endHeader, _ := excelize.CoordinatesToCellName(len(csvColumns), 1)
	if err := file.SetCellStyle(materialsSheet, "A1", endHeader, headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	row := 2
	for _, name := range materialsByCarbon(result) {
		mat := result.ByMaterial[name]
		values := []any{
			name, mat.Category, mat.ElementCount, mat.TotalVolume, mat.TotalMass,
			mat.TotalCarbon, mat.Density, mat.CarbonPerUnit, materialStatus(mat),
		}
		for i, value := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			if err := file.SetCellValue(materialsSheet, cell, value); err != nil {
				return fmt.Errorf("failed to write material row: %w", err)
			}
		}
		row++
	}

	// Summary block under the table.
	row++
	summary := [][2]any{
		{"Total carbon (kg CO2-eq)", result.Summary.TotalCarbon},
		{"Total mass (kg)", result.Summary.TotalMass},
		{"Total volume (m3)", result.Summary.TotalVolume},
		{"Materials analyzed", result.Summary.MaterialCount},
		{"Materials with impact", result.Summary.MaterialsWithImpact},
		{"Elements", result.Summary.ElementCount},
	}
	for _, pair := range summary {
		labelCell, _ := excelize.CoordinatesToCellName(1, row)
		valueCell, _ := excelize.CoordinatesToCellName(2, row)
		file.SetCellValue(materialsSheet, labelCell, pair[0])
		file.SetCellValue(materialsSheet, valueCell, pair[1])
		row++
	}
	return nil
}

func writeClassesSheet(file *excelize.File, result *analysis.Result, headerStyle int) error {
	if _, err := file.NewSheet(classesSheet); err != nil {
		return fmt.Errorf("failed to create class sheet: %w", err)
	}

	columns := []string{"Class", "Elements", "Volume (m3)", "Mass (kg)", "Carbon (kg CO2-eq)"}
	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := file.SetCellValue(classesSheet, cell, col); err != nil {
			return fmt.Errorf("failed to write class header: %w", err)
		}
	}
	endHeader, _ := excelize.CoordinatesToCellName(len(columns), 1)
	if err := file.SetCellStyle(classesSheet, "A1", endHeader, headerStyle); err != nil {
		return fmt.Errorf("failed to style class header: %w", err)
	}

	row := 2
	for _, class := range classesByCarbon(result) {
		rollup := result.ByClass[class]
		values := []any{class, rollup.ElementCount, rollup.TotalVolume, rollup.TotalMass, rollup.TotalCarbon}
		for i, value := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			if err := file.SetCellValue(classesSheet, cell, value); err != nil {
				return fmt.Errorf("failed to write class row: %w", err)
			}
		}
		row++
	}
	return nil
}
