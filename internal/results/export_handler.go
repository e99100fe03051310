package results

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"building-lca/analyzer-backend/internal/results/export"
)

// ExportCSV streams the material rollup as a CSV download.
func (h *Handler) ExportCSV(c *gin.Context) {
	run := h.service.Current()
	if run == nil {
		h.noRun(c)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, run.Result); err != nil {
		h.exportFailed(c, "csv", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="carbon-results.csv"`)
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

// ExportExcel streams the analysis workbook as an xlsx download.
func (h *Handler) ExportExcel(c *gin.Context) {
	run := h.service.Current()
	if run == nil {
		h.noRun(c)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteExcel(&buf, run.Result); err != nil {
		h.exportFailed(c, "xlsx", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="carbon-results.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// ExportPDF streams the analysis report as a PDF download.
func (h *Handler) ExportPDF(c *gin.Context) {
	run := h.service.Current()
	if run == nil {
		h.noRun(c)
		return
	}

	var buf bytes.Buffer
	if err := export.WritePDF(&buf, run.Result, run.ComputedAt); err != nil {
		h.exportFailed(c, "pdf", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="carbon-report.pdf"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func (h *Handler) exportFailed(c *gin.Context, format string, err error) {
	h.logger.Error("export failed", zap.String("format", format), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate " + format + " export"})
}
