package results

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"building-lca/analyzer-backend/internal/analysis"
	"building-lca/analyzer-backend/internal/catalog"
)

// staticCatalogProvider serves a fixed catalog or a fixed error.
type staticCatalogProvider struct {
	catalog *catalog.Catalog
	err     error
}

func (p *staticCatalogProvider) Catalog(ctx context.Context) (*catalog.Catalog, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.catalog, nil
}

func newTestRouter(t *testing.T, provider CatalogProvider) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	service := NewService(analysis.NewEngine(zap.NewNop()), nil, zap.NewNop())
	handler := NewHandler(service, provider, zap.NewNop())

	router := gin.New()
	handler.RegisterRoutes(router)
	return router, service
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func analyzeBody() gin.H {
	return gin.H{
		"elements": []analysis.ModelElement{
			{ID: "w1", Type: "IfcWall", Name: "Exterior wall", Materials: []analysis.MaterialLayer{{Name: "Concrete", Volume: 3.6}}},
			{ID: "s1", Type: "IfcSlab", Name: "Ground slab", Materials: []analysis.MaterialLayer{{Name: "Concrete", Volume: 22.0}}},
			{ID: "c1", Type: "IfcColumn", Name: "Column", Materials: []analysis.MaterialLayer{{Name: "Steel", Volume: 4.5}}},
		},
		"mapping": analysis.Mapping{
			"Concrete": "KBOB_01.002.01",
			"Steel":    "KBOB_06.003",
		},
	}
}

func TestEndpointsReturn404BeforeFirstRun(t *testing.T) {
	router, _ := newTestRouter(t, &staticCatalogProvider{catalog: testCatalog()})

	for _, path := range []string{"/results", "/api/elements", "/api/summary", "/api/export/csv", "/api/export/xlsx", "/api/export/pdf"} {
		rec := doJSON(t, router, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "no analysis result available", path)
	}
}

func TestRunAnalysisEndpoint(t *testing.T) {
	router, service := newTestRouter(t, &staticCatalogProvider{catalog: testCatalog()})

	rec := doJSON(t, router, http.MethodPost, "/api/analyze", analyzeBody())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		RunID   string           `json:"run_id"`
		Summary analysis.Summary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RunID)
	assert.InDelta(t, 32637.75, resp.Summary.TotalCarbon, 1e-6)

	require.NotNil(t, service.Current())
	assert.Equal(t, resp.RunID, service.Current().ID.String())
}

func TestRunAnalysisRejectsEmptyModel(t *testing.T) {
	router, _ := newTestRouter(t, &staticCatalogProvider{catalog: testCatalog()})

	rec := doJSON(t, router, http.MethodPost, "/api/analyze", gin.H{"elements": []analysis.ModelElement{}})
	// Binding requires a non-empty elements array before the engine runs.
	assert.Contains(t, []int{http.StatusBadRequest, http.StatusUnprocessableEntity}, rec.Code)
}

func TestRunAnalysisCatalogUnavailable(t *testing.T) {
	provider := &staticCatalogProvider{err: fmt.Errorf("%w: connection refused", catalog.ErrCatalogUnavailable)}
	router, _ := newTestRouter(t, provider)

	rec := doJSON(t, router, http.MethodPost, "/api/analyze", analyzeBody())
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "catalog unavailable")
}

func TestGetResultsDuplicatesLegacyKeys(t *testing.T) {
	router, _ := newTestRouter(t, &staticCatalogProvider{catalog: testCatalog()})
	doJSON(t, router, http.MethodPost, "/api/analyze", analyzeBody())

	rec := doJSON(t, router, http.MethodGet, "/results", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Contains(t, payload, "Concrete")

	concrete := payload["Concrete"]
	assert.Equal(t, concrete["total_carbon"], concrete["gwp"])
	assert.Equal(t, concrete["element_count"], concrete["elements"])
	assert.InDelta(t, 6144.0, concrete["total_carbon"].(float64), 1e-6)
	assert.InDelta(t, 2400.0, concrete["density"].(float64), 1e-9)
	assert.InDelta(t, 0.100, concrete["carbon_per_unit"].(float64), 1e-9)
	assert.Equal(t, false, concrete["unmapped"])
	assert.Equal(t, false, concrete["density_missing"])
}

func TestGetElementsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, &staticCatalogProvider{catalog: testCatalog()})
	doJSON(t, router, http.MethodPost, "/api/analyze", analyzeBody())

	rec := doJSON(t, router, http.MethodGet, "/api/elements", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]MaterialElements
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Contains(t, payload, "Concrete")
	assert.Len(t, payload["Concrete"].Elements, 2)
	assert.InDelta(t, 6144.0, payload["Concrete"].MaterialInfo.TotalCarbon, 1e-6)
}

func TestGetSummaryEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, &staticCatalogProvider{catalog: testCatalog()})
	doJSON(t, router, http.MethodPost, "/api/analyze", analyzeBody())

	rec := doJSON(t, router, http.MethodGet, "/api/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		RunID       string                          `json:"run_id"`
		TotalCarbon float64                         `json:"total_carbon"`
		ByClass     map[string]analysis.ClassRollup `json:"by_class"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.NotEmpty(t, payload.RunID)
	assert.InDelta(t, 32637.75, payload.TotalCarbon, 1e-6)
	require.Len(t, payload.ByClass, 3)
	assert.InDelta(t, 26493.75, payload.ByClass["IfcColumn"].TotalCarbon, 1e-6)
}

func TestExportDownloads(t *testing.T) {
	router, _ := newTestRouter(t, &staticCatalogProvider{catalog: testCatalog()})
	doJSON(t, router, http.MethodPost, "/api/analyze", analyzeBody())

	cases := []struct {
		path        string
		contentType string
		filename    string
	}{
		{"/api/export/csv", "text/csv", "carbon-results.csv"},
		{"/api/export/xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "carbon-results.xlsx"},
		{"/api/export/pdf", "application/pdf", "carbon-report.pdf"},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodGet, tc.path, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tc.contentType, rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Header().Get("Content-Disposition"), tc.filename)
			assert.NotZero(t, rec.Body.Len())
		})
	}
}

func TestExportCSVContent(t *testing.T) {
	router, _ := newTestRouter(t, &staticCatalogProvider{catalog: testCatalog()})
	doJSON(t, router, http.MethodPost, "/api/analyze", analyzeBody())

	rec := doJSON(t, router, http.MethodGet, "/api/export/csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.GreaterOrEqual(t, len(lines), 3, "header plus one row per material")
	// Materials are ordered by carbon contribution, largest first.
	assert.Contains(t, lines[1], "Steel")
	assert.Contains(t, lines[2], "Concrete")
}
