package matching

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"building-lca/analyzer-backend/internal/analysis"
	"building-lca/analyzer-backend/internal/catalog"
)

// Handler exposes catalog search and auto-mapping to the mapping UI.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a matching handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers the matching endpoints on the router.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/api/materials/search", h.Search)
	r.POST("/api/materials/automap", h.AutoMap)
}

// Search runs a fuzzy catalog search. Query parameters: q (required),
// limit (optional).
func (h *Handler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter q"})
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		limit = parsed
	}

	matcher, err := h.service.Matcher(c.Request.Context())
	if err != nil {
		h.catalogError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"results": matcher.Search(query, limit),
	})
}

// AutoMap maps the posted model materials against the active catalog and
// reports both the accepted mappings and the materials left unmapped.
func (h *Handler) AutoMap(c *gin.Context) {
	var req struct {
		Materials []analysis.ModelMaterial `json:"materials" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	matcher, err := h.service.Matcher(c.Request.Context())
	if err != nil {
		h.catalogError(c, err)
		return
	}

	c.JSON(http.StatusOK, matcher.AutoMap(req.Materials))
}

func (h *Handler) catalogError(c *gin.Context, err error) {
	if errors.Is(err, catalog.ErrCatalogUnavailable) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "catalog unavailable: " + err.Error()})
		return
	}
	h.logger.Error("catalog load failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load catalog"})
}
