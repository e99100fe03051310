package analysis

// ModelMaterial is a material name as it appears in the loaded building
// model, together with its mapping state. The catalog owns the record; the
// mapping only stores its identifier.
type ModelMaterial struct {
	Name           string `json:"name"`
	IsMapped       bool   `json:"is_mapped"`
	MappedRecordID string `json:"mapped_record_id,omitempty"`
}

// MaterialLayer is one (material, volume) pair of an element. Composite
// elements such as layered walls reference several materials in order.
type MaterialLayer struct {
	Name   string  `json:"name"`
	Volume float64 `json:"volume"`
}

// ModelElement is one building element with its already-extracted quantities.
// Volumes are m3.
type ModelElement struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Name      string          `json:"name"`
	Materials []MaterialLayer `json:"materials"`
}

// Mapping assigns model material names to catalog record IDs. It is an
// explicit serializable value passed into Compute, never engine state.
type Mapping map[string]string

// Contribution conditions. These are states, not errors: a pair in one of
// these conditions contributes zero carbon but stays visible in the output.
const (
	ConditionUnmapped       = "unmapped"
	ConditionNoQuantity     = "no_quantity"
	ConditionDensityMissing = "density_missing"
)

// MaterialRollup aggregates all elements referencing one material by name.
type MaterialRollup struct {
	ElementCount   int     `json:"element_count"`
	TotalVolume    float64 `json:"total_volume"`
	TotalMass      float64 `json:"total_mass"`
	TotalCarbon    float64 `json:"total_carbon"`
	Density        float64 `json:"density"`
	CarbonPerUnit  float64 `json:"carbon_per_unit"`
	RecordID       string  `json:"record_id,omitempty"`
	RecordName     string  `json:"record_name,omitempty"`
	Category       string  `json:"category,omitempty"`
	Unmapped       bool    `json:"unmapped,omitempty"`
	DensityMissing bool    `json:"density_missing,omitempty"`
}

// ElementContribution is one material's share of one element.
type ElementContribution struct {
	Name      string  `json:"name"`
	Volume    float64 `json:"volume"`
	Mass      float64 `json:"mass"`
	Carbon    float64 `json:"carbon"`
	Condition string  `json:"condition,omitempty"`
}

// ElementRollup lists every material contribution of one element alongside
// its declared structural type.
type ElementRollup struct {
	Type        string                `json:"type"`
	Name        string                `json:"name"`
	Materials   []ElementContribution `json:"materials"`
	TotalVolume float64               `json:"total_volume"`
	TotalCarbon float64               `json:"total_carbon"`
}

// ClassRollup aggregates per-element contributions by structural class. It is
// always re-derived from the same contributions as the element rollup, which
// is what guarantees the cross-view total invariant.
type ClassRollup struct {
	ElementCount int     `json:"element_count"`
	TotalVolume  float64 `json:"total_volume"`
	TotalMass    float64 `json:"total_mass"`
	TotalCarbon  float64 `json:"total_carbon"`
}

// Summary holds run-level statistics.
type Summary struct {
	TotalCarbon         float64 `json:"total_carbon"`
	TotalMass           float64 `json:"total_mass"`
	TotalVolume         float64 `json:"total_volume"`
	MaterialCount       int     `json:"material_count"`
	MaterialsWithImpact int     `json:"materials_with_impact"`
	ElementCount        int     `json:"element_count"`
	UnmappedMaterials   int     `json:"unmapped_materials"`
}

// Result is the complete output of one analysis run. It is immutable once
// produced; a new run replaces it wholesale.
type Result struct {
	ByMaterial map[string]MaterialRollup `json:"by_material"`
	ByElement  map[string]ElementRollup  `json:"by_element"`
	ByClass    map[string]ClassRollup    `json:"by_class"`
	Summary    Summary                   `json:"summary"`
}
