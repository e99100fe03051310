package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultOkobaudatBaseURL is the public soda4LCA resource endpoint.
	DefaultOkobaudatBaseURL = "https://oekobaudat.de/OEKOBAU.DAT/resource"

	// complianceEN15804A2 filters search results server-side to EPDs
	// compliant with EN 15804+A2.
	complianceEN15804A2 = "c0016b33-8cf7-415c-ac6e-deba0d21440d"

	defaultAPIPageSize = 100
	defaultAPITimeout  = 15 * time.Second
)

// OkobaudatAPIConfig configures the remote OKOBAUDAT catalog source.
type OkobaudatAPIConfig struct {
	BaseURL     string        `json:"base_url"`
	APIKey      string        `json:"api_key"`
	SearchQuery string        `json:"search_query"`
	MaxRecords  int           `json:"max_records"`
	Timeout     time.Duration `json:"timeout"`
}

// OkobaudatAPISource reads the OKOBAUDAT catalog over its soda4LCA REST API.
// Loading is a two-step fetch: a paginated search filtered to the compliance
// class, then one detail call per candidate for the full indicator data.
type OkobaudatAPISource struct {
	config OkobaudatAPIConfig
	client *http.Client
	logger *zap.Logger
}

// NewOkobaudatAPISource creates a remote OKOBAUDAT catalog source.
func NewOkobaudatAPISource(config OkobaudatAPIConfig, logger *zap.Logger) *OkobaudatAPISource {
	if config.BaseURL == "" {
		config.BaseURL = DefaultOkobaudatBaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultAPITimeout
	}
	if config.MaxRecords <= 0 {
		config.MaxRecords = defaultAPIPageSize
	}
	return &OkobaudatAPISource{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger,
	}
}

// Kind returns the source identifier.
func (s *OkobaudatAPISource) Kind() Source { return SourceOkobaudatAPI }

// Describe returns a human-readable source descriptor.
func (s *OkobaudatAPISource) Describe() string {
	return fmt.Sprintf("OKOBAUDAT API %s (query %q)", s.config.BaseURL, s.config.SearchQuery)
}

// apiSearchResponse is a page of lightweight search candidates.
type apiSearchResponse struct {
	Data       []apiCandidate `json:"data"`
	TotalCount int            `json:"totalCount"`
	PageSize   int            `json:"pageSize"`
	StartIndex int            `json:"startIndex"`
}

type apiCandidate struct {
	UUID      string `json:"uuid"`
	Name      string `json:"name"`
	Classific string `json:"classific"`
}

// apiProcessDetail is the subset of the extended process view the
// normalization needs: declared unit, reference amount, density from the
// material properties, and the LCIA module totals.
type apiProcessDetail struct {
	UUID                string              `json:"uuid"`
	Name                string              `json:"name"`
	DeclaredUnit        string              `json:"declaredUnit"`
	ReferenceFlowAmount float64             `json:"referenceFlowAmount"`
	MaterialProperties  []apiMaterialProp   `json:"materialProperties"`
	LCIAResults         []apiIndicatorTotal `json:"lciaResults"`
}

type apiMaterialProp struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type apiIndicatorTotal struct {
	Indicator string  `json:"indicator"`
	Amount    float64 `json:"amount"`
}

// Load fetches and normalizes the remote catalog. Any transport failure is
// surfaced as ErrCatalogUnavailable so callers can treat this catalog as
// empty without aborting independently-sourced catalogs.
func (s *OkobaudatAPISource) Load(ctx context.Context) ([]MaterialRecord, error) {
	candidates, err := s.search(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]MaterialRecord, 0, len(candidates))
	skipped := 0
	for _, candidate := range candidates {
		detail, err := s.fetchDetail(ctx, candidate.UUID)
		if err != nil {
			// A transport error mid-run means the catalog is gone, not
			// that one record is malformed.
			if ctx.Err() != nil || errors.Is(err, ErrCatalogUnavailable) {
				return nil, err
			}
			skipped++
			s.logger.Warn("skipping OKOBAUDAT process", zap.String("uuid", candidate.UUID), zap.Error(err))
			continue
		}

		rec, err := s.normalize(candidate, detail)
		if err != nil {
			skipped++
			s.logger.Debug("skipping OKOBAUDAT process", zap.String("uuid", candidate.UUID), zap.Error(err))
			continue
		}
		records = append(records, rec)
	}

	parsed := len(records)
	records = filterRecords(records)
	s.logger.Info("loaded OKOBAUDAT API catalog",
		zap.Int("records", len(records)),
		zap.Int("skipped", skipped+parsed-len(records)))
	return records, nil
}

// search pages through the compliance-filtered search endpoint until
// MaxRecords candidates are collected or the result set is exhausted.
func (s *OkobaudatAPISource) search(ctx context.Context) ([]apiCandidate, error) {
	var candidates []apiCandidate
	startIndex := 0

	for len(candidates) < s.config.MaxRecords {
		query := url.Values{}
		query.Set("search", "true")
		query.Set("format", "json")
		query.Set("compliance", complianceEN15804A2)
		query.Set("startIndex", strconv.Itoa(startIndex))
		query.Set("pageSize", strconv.Itoa(defaultAPIPageSize))
		if s.config.SearchQuery != "" {
			query.Set("name", s.config.SearchQuery)
		}

		var page apiSearchResponse
		if err := s.getJSON(ctx, "/processes?"+query.Encode(), &page); err != nil {
			return nil, err
		}

		candidates = append(candidates, page.Data...)
		if len(page.Data) == 0 || startIndex+len(page.Data) >= page.TotalCount {
			break
		}
		startIndex += len(page.Data)
	}

	if len(candidates) > s.config.MaxRecords {
		candidates = candidates[:s.config.MaxRecords]
	}
	return candidates, nil
}

func (s *OkobaudatAPISource) fetchDetail(ctx context.Context, uuid string) (*apiProcessDetail, error) {
	var detail apiProcessDetail
	if err := s.getJSON(ctx, "/processes/"+uuid+"?format=json&view=extended", &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (s *OkobaudatAPISource) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build OKOBAUDAT request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d from %s", ErrCatalogUnavailable, resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode OKOBAUDAT response: %w", err)
	}
	return nil
}

func (s *OkobaudatAPISource) normalize(candidate apiCandidate, detail *apiProcessDetail) (MaterialRecord, error) {
	name := detail.Name
	if name == "" {
		name = candidate.Name
	}
	if name == "" {
		return MaterialRecord{}, &ParseError{Source: SourceOkobaudatAPI, Record: candidate.UUID, Reason: "missing name"}
	}

	gwp, gwpFound := 0.0, false
	penr, penrFound := 0.0, false
	for _, result := range detail.LCIAResults {
		switch strings.ToUpper(result.Indicator) {
		case "GWP", "GWP-TOTAL":
			gwp, gwpFound = result.Amount, true
		case "PENRE", "PENRT":
			penr, penrFound = result.Amount, true
		}
	}
	if !gwpFound {
		return MaterialRecord{}, &ParseError{Source: SourceOkobaudatAPI, Record: candidate.UUID, Reason: "no resolvable GWP"}
	}

	density := extractDensity(detail.MaterialProperties)

	// Same per-kg normalization as the CSV export: volumetric declarations
	// divide by density, non-unit reference amounts divide by the amount.
	unit := strings.ToLower(detail.DeclaredUnit)
	if strings.Contains(unit, "m3") || strings.Contains(unit, "m³") {
		if density == nil {
			return MaterialRecord{}, &ParseError{Source: SourceOkobaudatAPI, Record: candidate.UUID, Reason: "volumetric GWP without density"}
		}
		gwp /= *density
		penr /= *density
	} else if detail.ReferenceFlowAmount != 0 && detail.ReferenceFlowAmount != 1 {
		gwp /= detail.ReferenceFlowAmount
		penr /= detail.ReferenceFlowAmount
	}

	secondary := make(map[string]float64)
	if penrFound {
		secondary[IndicatorPENRE] = penr
	}

	return MaterialRecord{
		ID:                  "OKOBAU_" + candidate.UUID,
		Name:                name,
		Category:            categoryFromName(candidate.Classific, name),
		Density:             density,
		CarbonPerUnit:       gwp,
		SecondaryIndicators: secondary,
		Source:              SourceOkobaudatAPI,
	}, nil
}

func extractDensity(props []apiMaterialProp) *float64 {
	for _, prop := range props {
		lower := strings.ToLower(prop.Name)
		if strings.Contains(lower, "density") || strings.Contains(lower, "rohdichte") {
			if d, ok := parseGermanFloat(prop.Value); ok && d > 0 {
				return &d
			}
		}
	}
	return nil
}

// categoryFromName derives a category from the classification string or,
// failing that, German/English keywords in the process name.
func categoryFromName(classific, name string) string {
	if classific != "" {
		return classific
	}

	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "beton") || strings.Contains(lower, "concrete"):
		return "Concrete"
	case strings.Contains(lower, "stahl") || strings.Contains(lower, "steel") || strings.Contains(lower, "metall"):
		return "Metal"
	case strings.Contains(lower, "holz") || strings.Contains(lower, "timber") || strings.Contains(lower, "wood"):
		return "Wood"
	case strings.Contains(lower, "dämm") || strings.Contains(lower, "insulation") || strings.Contains(lower, "wolle"):
		return "Insulation"
	case strings.Contains(lower, "glas") || strings.Contains(lower, "glass"):
		return "Facade/Windows"
	case strings.Contains(lower, "ziegel") || strings.Contains(lower, "brick"):
		return "Masonry"
	default:
		return "Other Materials"
	}
}
