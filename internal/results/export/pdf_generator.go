package export

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jung-kurt/gofpdf"

	"building-lca/analyzer-backend/internal/analysis"
)

// WritePDF writes a one-page-per-section embodied-carbon report: summary,
// material rollup and class rollup.
func WritePDF(w io.Writer, result *analysis.Result, computedAt time.Time) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Embodied Carbon Report")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 9)
	pdf.Cell(0, 6, "Computed "+computedAt.Format("2006-01-02 15:04 MST"))
	pdf.Ln(10)

	writeSummarySection(pdf, result)
	writeMaterialsSection(pdf, result)
	writeClassesSection(pdf, result)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render PDF: %w", err)
	}
	return nil
}

func writeSummarySection(pdf *gofpdf.Fpdf, result *analysis.Result) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Summary")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 10)
	lines := []string{
		fmt.Sprintf("Total embodied carbon: %s", formatCarbon(result.Summary.TotalCarbon)),
		fmt.Sprintf("Total mass: %.0f kg", result.Summary.TotalMass),
		fmt.Sprintf("Total volume: %.2f m3", result.Summary.TotalVolume),
		fmt.Sprintf("Materials analyzed: %d (%d with impact, %d unmapped)",
			result.Summary.MaterialCount, result.Summary.MaterialsWithImpact, result.Summary.UnmappedMaterials),
		fmt.Sprintf("Elements: %d", result.Summary.ElementCount),
	}
	for _, line := range lines {
		pdf.Cell(0, 6, line)
		pdf.Ln(6)
	}
	pdf.Ln(4)
}

func writeMaterialsSection(pdf *gofpdf.Fpdf, result *analysis.Result) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Materials")
	pdf.Ln(8)

	widths := []float64{60, 20, 25, 30, 35, 20}
	headers := []string{"Material", "Elements", "Volume m3", "Mass kg", "Carbon kg CO2-eq", "Status"}
	writeTableHeader(pdf, headers, widths)

	pdf.SetFont("Helvetica", "", 9)
	for _, name := range materialsByCarbon(result) {
		mat := result.ByMaterial[name]
		cells := []string{
			truncate(name, 38),
			fmt.Sprintf("%d", mat.ElementCount),
			fmt.Sprintf("%.2f", mat.TotalVolume),
			fmt.Sprintf("%.0f", mat.TotalMass),
			fmt.Sprintf("%.1f", mat.TotalCarbon),
			materialStatus(mat),
		}
		writeTableRow(pdf, cells, widths)
	}
	pdf.Ln(6)
}

func writeClassesSection(pdf *gofpdf.Fpdf, result *analysis.Result) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "By Structural Class")
	pdf.Ln(8)

	widths := []float64{60, 25, 30, 35, 40}
	headers := []string{"Class", "Elements", "Volume m3", "Mass kg", "Carbon kg CO2-eq"}
	writeTableHeader(pdf, headers, widths)

	pdf.SetFont("Helvetica", "", 9)
	for _, class := range classesByCarbon(result) {
		rollup := result.ByClass[class]
		cells := []string{
			truncate(class, 38),
			fmt.Sprintf("%d", rollup.ElementCount),
			fmt.Sprintf("%.2f", rollup.TotalVolume),
			fmt.Sprintf("%.0f", rollup.TotalMass),
			fmt.Sprintf("%.1f", rollup.TotalCarbon),
		}
		writeTableRow(pdf, cells, widths)
	}
}

func writeTableHeader(pdf *gofpdf.Fpdf, headers []string, widths []float64) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(68, 114, 196)
	pdf.SetTextColor(255, 255, 255)
	for i, header := range headers {
		pdf.CellFormat(widths[i], 7, header, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetTextColor(0, 0, 0)
}

func writeTableRow(pdf *gofpdf.Fpdf, cells []string, widths []float64) {
	for i, cell := range cells {
		align := "R"
		if i == 0 || i == len(cells)-1 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 6, cell, "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}

// classesByCarbon orders class names by carbon descending, name ascending on
// ties.
func classesByCarbon(result *analysis.Result) []string {
	classes := make([]string, 0, len(result.ByClass))
	for class := range result.ByClass {
		classes = append(classes, class)
	}
	sort.Slice(classes, func(i, j int) bool {
		ci := result.ByClass[classes[i]].TotalCarbon
		cj := result.ByClass[classes[j]].TotalCarbon
		if ci != cj {
			return ci > cj
		}
		return classes[i] < classes[j]
	})
	return classes
}

func formatCarbon(kg float64) string {
	if kg >= 1000 || kg <= -1000 {
		return fmt.Sprintf("%.2f t CO2-eq", kg/1000)
	}
	return fmt.Sprintf("%.1f kg CO2-eq", kg)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
