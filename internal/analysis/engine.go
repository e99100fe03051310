package analysis

import (
	"errors"
	"sort"

	"go.uber.org/zap"

	"building-lca/analyzer-backend/internal/catalog"
)

// ErrNoElements indicates a run was requested against a model snapshot with
// no elements at all. Per-element problems never abort a run; an empty model
// is the one systemic failure worth reporting.
var ErrNoElements = errors.New("model snapshot contains no elements")

// Request carries everything a run needs. Compute reads nothing else, so
// identical requests always produce identical results.
type Request struct {
	Elements []ModelElement
	Mapping  Mapping
	Catalog  *catalog.Catalog

	// DensityOverrides supplies a density (kg/m3) for materials mapped to
	// density-less records, keyed by model material name.
	DensityOverrides map[string]float64
}

// Engine computes embodied-carbon rollups from element quantities and
// material mappings. It is stateless; the logger is its only dependency.
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates an aggregation engine.
func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{logger: logger}
}

// Compute runs a full analysis. It either returns a complete, internally
// consistent result or an error; no partial result is ever exposed.
//
// For every (material, volume) pair of every element: an unmapped material
// or non-positive volume contributes zero mass and carbon but the element
// stays visible in every rollup; a mapped material without a resolved
// density is reported as density_missing rather than silently zeroed;
// otherwise mass = volume * density and carbon = mass * carbon_per_unit.
func (e *Engine) Compute(req Request) (*Result, error) {
	if len(req.Elements) == 0 {
		return nil, ErrNoElements
	}
	if req.Catalog == nil {
		return nil, errors.New("no catalog supplied")
	}

	byMaterial := make(map[string]MaterialRollup)
	byElement := make(map[string]ElementRollup, len(req.Elements))

	for _, element := range req.Elements {
		rollup := ElementRollup{
			Type:      element.Type,
			Name:      element.Name,
			Materials: make([]ElementContribution, 0, len(element.Materials)),
		}
		seen := make(map[string]bool, len(element.Materials))

		for _, layer := range element.Materials {
			contribution := e.contribute(layer, req)

			rollup.Materials = append(rollup.Materials, contribution)
			rollup.TotalVolume += contribution.Volume
			rollup.TotalCarbon += contribution.Carbon

			mat, tracked := byMaterial[layer.Name]
			if !tracked {
				e.annotate(&mat, layer.Name, req)
			}
			// An element referencing the same material in several layers
			// still counts once toward that material's element count.
			if !seen[layer.Name] {
				mat.ElementCount++
				seen[layer.Name] = true
			}
			mat.TotalVolume += contribution.Volume
			mat.TotalMass += contribution.Mass
			mat.TotalCarbon += contribution.Carbon
			byMaterial[layer.Name] = mat
		}

		byElement[element.ID] = rollup
	}

	result := &Result{
		ByMaterial: byMaterial,
		ByElement:  byElement,
		ByClass:    deriveClassRollup(req.Elements, byElement),
		Summary:    summarize(byMaterial, byElement),
	}

	e.logger.Info("analysis complete",
		zap.Int("elements", result.Summary.ElementCount),
		zap.Int("materials", result.Summary.MaterialCount),
		zap.Float64("total_carbon_kg", result.Summary.TotalCarbon))
	return result, nil
}

// contribute computes one (material, volume) pair. Zero-contribution
// conditions are tagged, never dropped.
func (e *Engine) contribute(layer MaterialLayer, req Request) ElementContribution {
	contribution := ElementContribution{Name: layer.Name}

	recordID, mapped := req.Mapping[layer.Name]
	if !mapped || recordID == "" {
		contribution.Condition = ConditionUnmapped
		if layer.Volume > 0 {
			contribution.Volume = layer.Volume
		}
		return contribution
	}

	if layer.Volume <= 0 {
		contribution.Condition = ConditionNoQuantity
		return contribution
	}
	contribution.Volume = layer.Volume

	record, ok := req.Catalog.Get(recordID)
	if !ok {
		// Stale mapping against a reloaded catalog: treat as unmapped.
		contribution.Condition = ConditionUnmapped
		return contribution
	}

	density := record.DensityValue()
	if override, ok := req.DensityOverrides[layer.Name]; ok && override > 0 {
		density = override
	}
	if density <= 0 {
		contribution.Condition = ConditionDensityMissing
		return contribution
	}

	contribution.Mass = layer.Volume * density
	contribution.Carbon = contribution.Mass * record.CarbonPerUnit
	return contribution
}

// annotate fills the catalog-side fields of a fresh material rollup.
func (e *Engine) annotate(mat *MaterialRollup, materialName string, req Request) {
	recordID, mapped := req.Mapping[materialName]
	if !mapped || recordID == "" {
		mat.Unmapped = true
		return
	}
	record, ok := req.Catalog.Get(recordID)
	if !ok {
		mat.Unmapped = true
		return
	}

	mat.RecordID = record.ID
	mat.RecordName = record.Name
	mat.Category = record.Category
	mat.CarbonPerUnit = record.CarbonPerUnit

	density := record.DensityValue()
	if override, ok := req.DensityOverrides[materialName]; ok && override > 0 {
		density = override
	}
	if density > 0 {
		mat.Density = density
	} else {
		mat.DensityMissing = true
	}
}

// deriveClassRollup groups per-element contributions by structural type. It
// never recomputes mass or carbon; it re-aggregates the element rollup, so
// class totals reconcile with the other views by construction.
func deriveClassRollup(elements []ModelElement, byElement map[string]ElementRollup) map[string]ClassRollup {
	byClass := make(map[string]ClassRollup)

	for _, element := range elements {
		rollup, ok := byElement[element.ID]
		if !ok {
			continue
		}

		class := byClass[rollup.Type]
		class.ElementCount++
		class.TotalVolume += rollup.TotalVolume
		class.TotalCarbon += rollup.TotalCarbon
		for _, contribution := range rollup.Materials {
			class.TotalMass += contribution.Mass
		}
		byClass[rollup.Type] = class
	}
	return byClass
}

func summarize(byMaterial map[string]MaterialRollup, byElement map[string]ElementRollup) Summary {
	summary := Summary{
		MaterialCount: len(byMaterial),
		ElementCount:  len(byElement),
	}

	// Sorted iteration keeps float accumulation order stable, so identical
	// inputs produce bit-identical summaries.
	names := make([]string, 0, len(byMaterial))
	for name := range byMaterial {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		mat := byMaterial[name]
		summary.TotalCarbon += mat.TotalCarbon
		summary.TotalMass += mat.TotalMass
		summary.TotalVolume += mat.TotalVolume
		if mat.TotalCarbon != 0 {
			summary.MaterialsWithImpact++
		}
		if mat.Unmapped {
			summary.UnmappedMaterials++
		}
	}
	return summary
}
