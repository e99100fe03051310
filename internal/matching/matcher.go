package matching

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"building-lca/analyzer-backend/internal/catalog"
)

// Config holds the fuzzy-scoring weights and the auto-map acceptance
// threshold. The values are tunable configuration, not constants; the
// defaults are calibrated so an exact catalog name always ranks first and
// keyword-soup candidates fall below the acceptance threshold.
type Config struct {
	ExactNameBonus  float64 `json:"exact_name_bonus"`
	SubstringBonus  float64 `json:"substring_bonus"`
	PrefixBonus     float64 `json:"prefix_bonus"`
	CategoryBonus   float64 `json:"category_bonus"`
	TokenWeight     float64 `json:"token_weight"`
	MaxEditDistance int     `json:"max_edit_distance"`
	DefaultLimit    int     `json:"default_limit"`
	AcceptThreshold float64 `json:"accept_threshold"`
}

// DefaultConfig returns the default matching configuration.
func DefaultConfig() Config {
	return Config{
		ExactNameBonus:  100,
		SubstringBonus:  50,
		PrefixBonus:     25,
		CategoryBonus:   15,
		TokenWeight:     30,
		MaxEditDistance: 2,
		DefaultLimit:    50,
		AcceptThreshold: 40,
	}
}

// Match is one ranked search result.
type Match struct {
	Record *catalog.MaterialRecord `json:"record"`
	Score  float64                 `json:"score"`
}

// indexEntry caches the lowercase name, category and name tokens of one
// catalog record so per-query work stays cheap.
type indexEntry struct {
	nameLower     string
	categoryLower string
	tokens        []string
}

// Matcher ranks catalog records against free-text material names. The token
// index is built once per catalog at construction time.
type Matcher struct {
	catalog *catalog.Catalog
	entries []indexEntry
	config  Config
	logger  *zap.Logger
}

// NewMatcher builds a matcher and its token index for a catalog.
func NewMatcher(cat *catalog.Catalog, config Config, logger *zap.Logger) *Matcher {
	records := cat.Records()
	entries := make([]indexEntry, len(records))
	for i, rec := range records {
		nameLower := strings.ToLower(rec.Name)
		entries[i] = indexEntry{
			nameLower:     nameLower,
			categoryLower: strings.ToLower(rec.Category),
			tokens:        tokenize(nameLower),
		}
	}
	return &Matcher{
		catalog: cat,
		entries: entries,
		config:  config,
		logger:  logger,
	}
}

// Search returns up to limit records ranked by relevance to the query.
// Identical (catalog, query, limit) inputs always return the same ordered
// list: candidates sort by score descending with the original catalog order
// as a stable tie-break. A limit of zero or less uses the configured default.
func (m *Matcher) Search(query string, limit int) []Match {
	if limit <= 0 {
		limit = m.config.DefaultLimit
	}
	queryLower := strings.ToLower(strings.TrimSpace(query))
	if queryLower == "" {
		return nil
	}
	queryTokens := tokenize(queryLower)

	records := m.catalog.Records()
	matches := make([]Match, 0, 16)
	for i := range m.entries {
		score := m.score(queryLower, queryTokens, &m.entries[i])
		if score <= 0 {
			continue
		}
		matches = append(matches, Match{Record: &records[i], Score: score})
	}

	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Score > matches[b].Score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// score combines an exact-substring bonus, a prefix bonus, typo-tolerant
// token similarity, and a category match bonus.
func (m *Matcher) score(query string, queryTokens []string, entry *indexEntry) float64 {
	score := 0.0

	if entry.nameLower == query {
		score += m.config.ExactNameBonus
	}
	if strings.Contains(entry.nameLower, query) {
		// Scale by coverage so tight matches beat matches buried in a
		// long name.
		coverage := float64(len(query)) / float64(len(entry.nameLower))
		score += m.config.SubstringBonus * (0.5 + coverage/2)
	}
	if strings.HasPrefix(entry.nameLower, query) {
		score += m.config.PrefixBonus
	}
	if strings.Contains(entry.categoryLower, query) || containsAnyToken(entry.categoryLower, queryTokens) {
		score += m.config.CategoryBonus
	}

	if len(queryTokens) > 0 {
		total := 0.0
		for _, qt := range queryTokens {
			total += m.bestTokenSimilarity(qt, entry.tokens)
		}
		score += m.config.TokenWeight * total / float64(len(queryTokens))
	}
	return score
}

// bestTokenSimilarity returns the best similarity of one query token against
// the record's tokens, in [0,1]. Tokens within the bounded edit distance
// count proportionally to how close they are; anything farther counts zero.
func (m *Matcher) bestTokenSimilarity(queryToken string, tokens []string) float64 {
	best := 0.0
	for _, token := range tokens {
		var similarity float64
		switch {
		case token == queryToken:
			similarity = 1
		case strings.Contains(token, queryToken) || strings.Contains(queryToken, token):
			shorter, longer := len(queryToken), len(token)
			if shorter > longer {
				shorter, longer = longer, shorter
			}
			similarity = 0.8 * float64(shorter) / float64(longer)
		default:
			dist := boundedEditDistance(queryToken, token, m.config.MaxEditDistance)
			if dist >= 0 {
				longest := len(queryToken)
				if len(token) > longest {
					longest = len(token)
				}
				similarity = 1 - float64(dist)/float64(longest)
			}
		}
		if similarity > best {
			best = similarity
		}
	}
	return best
}

func containsAnyToken(category string, tokens []string) bool {
	for _, token := range tokens {
		if len(token) >= 3 && strings.Contains(category, token) {
			return true
		}
	}
	return false
}

// tokenize splits a lowercase string on non-alphanumeric runes, keeping
// multi-character tokens only.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9' || r >= 0x80)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) >= 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// boundedEditDistance returns the Levenshtein distance between a and b, or
// -1 when it exceeds max. The bound lets the scorer skip hopeless pairs
// without computing the full matrix.
func boundedEditDistance(a, b string, max int) int {
	la, lb := len(a), len(b)
	if la-lb > max || lb-la > max {
		return -1
	}
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr[0] = i
		rowMin := curr[0]
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
			if curr[j] < rowMin {
				rowMin = curr[j]
			}
		}
		if rowMin > max {
			return -1
		}
		prev, curr = curr, prev
	}
	if prev[lb] > max {
		return -1
	}
	return prev[lb]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
