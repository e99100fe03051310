package results

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"building-lca/analyzer-backend/internal/analysis"
	"building-lca/analyzer-backend/internal/catalog"
)

// CatalogProvider supplies the active catalog for analysis runs.
type CatalogProvider interface {
	Catalog(ctx context.Context) (*catalog.Catalog, error)
}

// Handler serves the read-only JSON documents consumed by the dashboard and
// the endpoint that triggers a new analysis run.
type Handler struct {
	service  *Service
	catalogs CatalogProvider
	logger   *zap.Logger
}

// NewHandler creates a results handler.
func NewHandler(service *Service, catalogs CatalogProvider, logger *zap.Logger) *Handler {
	return &Handler{service: service, catalogs: catalogs, logger: logger}
}

// RegisterRoutes registers the results endpoints on the router.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/results", h.GetResults)
	r.GET("/api/elements", h.GetElements)
	r.GET("/api/summary", h.GetSummary)
	r.POST("/api/analyze", h.RunAnalysis)
	r.GET("/api/export/csv", h.ExportCSV)
	r.GET("/api/export/xlsx", h.ExportExcel)
	r.GET("/api/export/pdf", h.ExportPDF)
}

// RunAnalysis computes a new analysis from the posted model snapshot and
// mapping, replacing the current result wholesale.
func (h *Handler) RunAnalysis(c *gin.Context) {
	var req struct {
		Elements         []analysis.ModelElement `json:"elements" binding:"required"`
		Mapping          analysis.Mapping        `json:"mapping"`
		DensityOverrides map[string]float64      `json:"density_overrides"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	cat, err := h.catalogs.Catalog(c.Request.Context())
	if err != nil {
		if errors.Is(err, catalog.ErrCatalogUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "catalog unavailable: " + err.Error()})
			return
		}
		h.logger.Error("catalog load failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load catalog"})
		return
	}

	run, err := h.service.Run(analysis.Request{
		Elements:         req.Elements,
		Mapping:          req.Mapping,
		Catalog:          cat,
		DensityOverrides: req.DensityOverrides,
	})
	if err != nil {
		if errors.Is(err, analysis.ErrNoElements) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("analysis run failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":      run.ID,
		"computed_at": run.ComputedAt,
		"summary":     run.Result.Summary,
	})
}

// GetResults serves the materials-keyed detail document. For backward
// compatibility with existing dashboard builds, total_carbon is duplicated
// as gwp and element_count as elements.
func (h *Handler) GetResults(c *gin.Context) {
	run := h.service.Current()
	if run == nil {
		h.noRun(c)
		return
	}

	payload := make(map[string]gin.H, len(run.Result.ByMaterial))
	for name, mat := range run.Result.ByMaterial {
		payload[name] = gin.H{
			"element_count":   mat.ElementCount,
			"elements":        mat.ElementCount,
			"total_volume":    mat.TotalVolume,
			"total_mass":      mat.TotalMass,
			"total_carbon":    mat.TotalCarbon,
			"gwp":             mat.TotalCarbon,
			"density":         mat.Density,
			"carbon_per_unit": mat.CarbonPerUnit,
			"unmapped":        mat.Unmapped,
			"density_missing": mat.DensityMissing,
		}
	}
	c.JSON(http.StatusOK, payload)
}

// GetElements serves the elements-by-material document.
func (h *Handler) GetElements(c *gin.Context) {
	run := h.service.Current()
	if run == nil {
		h.noRun(c)
		return
	}
	c.JSON(http.StatusOK, ElementsByMaterial(run))
}

// GetSummary serves run-level summary statistics.
func (h *Handler) GetSummary(c *gin.Context) {
	run := h.service.Current()
	if run == nil {
		h.noRun(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id":                run.ID,
		"computed_at":           run.ComputedAt,
		"total_carbon":          run.Result.Summary.TotalCarbon,
		"total_mass":            run.Result.Summary.TotalMass,
		"total_volume":          run.Result.Summary.TotalVolume,
		"material_count":        run.Result.Summary.MaterialCount,
		"materials_with_impact": run.Result.Summary.MaterialsWithImpact,
		"element_count":         run.Result.Summary.ElementCount,
		"unmapped_materials":    run.Result.Summary.UnmappedMaterials,
		"by_class":              run.Result.ByClass,
	})
}

func (h *Handler) noRun(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"error": "no analysis result available; run an analysis first",
	})
}
