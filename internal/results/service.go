package results

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"building-lca/analyzer-backend/internal/analysis"
)

// Run is one completed analysis run with its immutable result.
type Run struct {
	ID         uuid.UUID        `json:"run_id"`
	ComputedAt time.Time        `json:"computed_at"`
	Result     *analysis.Result `json:"result"`
}

// Notifier receives a notification when a new run replaces the current one.
type Notifier interface {
	NotifyRunComplete(run *Run)
}

// Service owns the current analysis run. The run is swapped wholesale and
// never mutated, so concurrent readers always see a complete, internally
// consistent result.
type Service struct {
	engine   *analysis.Engine
	notifier Notifier
	logger   *zap.Logger
	current  atomic.Pointer[Run]
}

// NewService creates a results service. The notifier may be nil.
func NewService(engine *analysis.Engine, notifier Notifier, logger *zap.Logger) *Service {
	return &Service{
		engine:   engine,
		notifier: notifier,
		logger:   logger,
	}
}

// Run computes a full analysis and publishes it as the current run. On
// failure the previous run stays current.
func (s *Service) Run(req analysis.Request) (*Run, error) {
	result, err := s.engine.Compute(req)
	if err != nil {
		return nil, err
	}

	run := &Run{
		ID:         uuid.New(),
		ComputedAt: time.Now().UTC(),
		Result:     result,
	}
	s.current.Store(run)
	s.logger.Info("analysis run published", zap.String("run_id", run.ID.String()))

	if s.notifier != nil {
		s.notifier.NotifyRunComplete(run)
	}
	return run, nil
}

// Current returns the current run, or nil if no analysis has completed yet.
func (s *Service) Current() *Run {
	return s.current.Load()
}

// ElementEntry is one element reference in the elements-by-material view.
type ElementEntry struct {
	ID     string  `json:"id"`
	Type   string  `json:"type"`
	Name   string  `json:"name"`
	Volume float64 `json:"volume"`
}

// MaterialElements pairs a material's rollup with the elements referencing it.
type MaterialElements struct {
	MaterialInfo analysis.MaterialRollup `json:"material_info"`
	Elements     []ElementEntry          `json:"elements"`
}

// ElementsByMaterial derives the elements-by-material view from the run's
// element rollup. Element lists are sorted by id so the document is stable.
func ElementsByMaterial(run *Run) map[string]MaterialElements {
	view := make(map[string]MaterialElements, len(run.Result.ByMaterial))
	for name, rollup := range run.Result.ByMaterial {
		view[name] = MaterialElements{MaterialInfo: rollup, Elements: []ElementEntry{}}
	}

	ids := make([]string, 0, len(run.Result.ByElement))
	for id := range run.Result.ByElement {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		element := run.Result.ByElement[id]
		for _, contribution := range element.Materials {
			entry, ok := view[contribution.Name]
			if !ok {
				continue
			}
			entry.Elements = append(entry.Elements, ElementEntry{
				ID:     id,
				Type:   element.Type,
				Name:   element.Name,
				Volume: contribution.Volume,
			})
			view[contribution.Name] = entry
		}
	}
	return view
}
