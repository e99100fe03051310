package analysis

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"building-lca/analyzer-backend/internal/catalog"
)

func floatPtr(v float64) *float64 { return &v }

func testCatalog() *catalog.Catalog {
	return catalog.NewCatalog(catalog.SourceKBOB, []catalog.MaterialRecord{
		{
			ID:            "KBOB_01.002.01",
			Name:          "Concrete C30/37",
			Category:      "Concrete",
			Density:       floatPtr(2400),
			CarbonPerUnit: 0.100,
			Source:        catalog.SourceKBOB,
		},
		{
			ID:            "KBOB_06.003",
			Name:          "Reinforcing steel",
			Category:      "Metal",
			Density:       floatPtr(7850),
			CarbonPerUnit: 0.750,
			Source:        catalog.SourceKBOB,
		},
		{
			ID:            "KBOB_10.001",
			Name:          "Mineral wool",
			Category:      "Insulation",
			CarbonPerUnit: 1.280,
			Source:        catalog.SourceKBOB,
		},
	})
}

func buildingRequest() Request {
	return Request{
		Elements: []ModelElement{
			{ID: "w1", Type: "IfcWall", Name: "Exterior wall", Materials: []MaterialLayer{{Name: "Concrete", Volume: 3.6}}},
			{ID: "s1", Type: "IfcSlab", Name: "Ground slab", Materials: []MaterialLayer{{Name: "Concrete", Volume: 22.0}}},
			{ID: "c1", Type: "IfcColumn", Name: "Column", Materials: []MaterialLayer{{Name: "Steel", Volume: 4.5}}},
		},
		Mapping: Mapping{
			"Concrete": "KBOB_01.002.01",
			"Steel":    "KBOB_06.003",
		},
		Catalog: testCatalog(),
	}
}

func TestComputeBuildingTotals(t *testing.T) {
	engine := NewEngine(zap.NewNop())
	result, err := engine.Compute(buildingRequest())
	require.NoError(t, err)

	concrete := result.ByMaterial["Concrete"]
	assert.Equal(t, 2, concrete.ElementCount)
	assert.InDelta(t, 25.6, concrete.TotalVolume, 1e-9)
	assert.InDelta(t, 61440.0, concrete.TotalMass, 1e-6)
	assert.InDelta(t, 6144.0, concrete.TotalCarbon, 1e-6)
	assert.Equal(t, "KBOB_01.002.01", concrete.RecordID)
	assert.Equal(t, "Concrete C30/37", concrete.RecordName)

	steel := result.ByMaterial["Steel"]
	assert.Equal(t, 1, steel.ElementCount)
	assert.InDelta(t, 35325.0, steel.TotalMass, 1e-6)
	assert.InDelta(t, 26493.75, steel.TotalCarbon, 1e-6)

	assert.InDelta(t, 32637.75, result.Summary.TotalCarbon, 1e-6)
	assert.Equal(t, 3, result.Summary.ElementCount)
	assert.Equal(t, 2, result.Summary.MaterialCount)
	assert.Equal(t, 2, result.Summary.MaterialsWithImpact)
	assert.Equal(t, 0, result.Summary.UnmappedMaterials)
}

func TestComputeIsIdempotent(t *testing.T) {
	engine := NewEngine(zap.NewNop())

	first, err := engine.Compute(buildingRequest())
	require.NoError(t, err)
	second, err := engine.Compute(buildingRequest())
	require.NoError(t, err)

	assert.True(t, reflect.DeepEqual(first, second), "identical requests must produce identical results")
}

// Every view must report the same grand total no matter how many materials
// are unmapped or lack quantities.
func TestComputeCrossViewTotalsReconcile(t *testing.T) {
	requests := map[string]Request{
		"all mapped": buildingRequest(),
		"all unmapped": {
			Elements: buildingRequest().Elements,
			Mapping:  Mapping{},
			Catalog:  testCatalog(),
		},
		"mixed": {
			Elements: []ModelElement{
				{ID: "w1", Type: "IfcWall", Name: "Wall", Materials: []MaterialLayer{
					{Name: "Concrete", Volume: 3.6},
					{Name: "Render", Volume: 0.2},
				}},
				{ID: "s1", Type: "IfcSlab", Name: "Slab", Materials: []MaterialLayer{{Name: "Concrete", Volume: 0}}},
			},
			Mapping: Mapping{"Concrete": "KBOB_01.002.01"},
			Catalog: testCatalog(),
		},
	}

	engine := NewEngine(zap.NewNop())
	for name, req := range requests {
		t.Run(name, func(t *testing.T) {
			result, err := engine.Compute(req)
			require.NoError(t, err)

			var byMaterial, byElement, byClass float64
			for _, mat := range result.ByMaterial {
				byMaterial += mat.TotalCarbon
			}
			for _, elem := range result.ByElement {
				byElement += elem.TotalCarbon
			}
			for _, class := range result.ByClass {
				byClass += class.TotalCarbon
			}

			assert.InDelta(t, byMaterial, byElement, 1e-9)
			assert.InDelta(t, byMaterial, byClass, 1e-9)
			assert.InDelta(t, byMaterial, result.Summary.TotalCarbon, 1e-9)
		})
	}
}

func TestComputeUnmappedMaterialStaysVisible(t *testing.T) {
	req := Request{
		Elements: []ModelElement{
			{ID: "w1", Type: "IfcWall", Name: "Wall", Materials: []MaterialLayer{{Name: "Unknown render", Volume: 1.5}}},
		},
		Mapping: Mapping{},
		Catalog: testCatalog(),
	}

	engine := NewEngine(zap.NewNop())
	result, err := engine.Compute(req)
	require.NoError(t, err)

	mat := result.ByMaterial["Unknown render"]
	assert.True(t, mat.Unmapped)
	assert.InDelta(t, 1.5, mat.TotalVolume, 1e-9)
	assert.Zero(t, mat.TotalCarbon)
	assert.Equal(t, 1, result.Summary.UnmappedMaterials)

	contribution := result.ByElement["w1"].Materials[0]
	assert.Equal(t, ConditionUnmapped, contribution.Condition)
}

func TestComputeStaleMappingTreatedAsUnmapped(t *testing.T) {
	req := Request{
		Elements: []ModelElement{
			{ID: "w1", Type: "IfcWall", Name: "Wall", Materials: []MaterialLayer{{Name: "Concrete", Volume: 2.0}}},
		},
		Mapping: Mapping{"Concrete": "KBOB_GONE"},
		Catalog: testCatalog(),
	}

	engine := NewEngine(zap.NewNop())
	result, err := engine.Compute(req)
	require.NoError(t, err)

	assert.True(t, result.ByMaterial["Concrete"].Unmapped)
	assert.Equal(t, ConditionUnmapped, result.ByElement["w1"].Materials[0].Condition)
	assert.Zero(t, result.Summary.TotalCarbon)
}

func TestComputeZeroVolumeIsNoQuantity(t *testing.T) {
	req := Request{
		Elements: []ModelElement{
			{ID: "w1", Type: "IfcWall", Name: "Wall", Materials: []MaterialLayer{{Name: "Concrete", Volume: 0}}},
		},
		Mapping: Mapping{"Concrete": "KBOB_01.002.01"},
		Catalog: testCatalog(),
	}

	engine := NewEngine(zap.NewNop())
	result, err := engine.Compute(req)
	require.NoError(t, err)

	contribution := result.ByElement["w1"].Materials[0]
	assert.Equal(t, ConditionNoQuantity, contribution.Condition)
	assert.Zero(t, contribution.Mass)
	assert.Equal(t, 1, result.ByMaterial["Concrete"].ElementCount, "element stays visible in the material rollup")
}

func TestComputeDensityMissingAndOverride(t *testing.T) {
	base := Request{
		Elements: []ModelElement{
			{ID: "r1", Type: "IfcRoof", Name: "Roof", Materials: []MaterialLayer{{Name: "Insulation", Volume: 10.0}}},
		},
		Mapping: Mapping{"Insulation": "KBOB_10.001"},
		Catalog: testCatalog(),
	}

	engine := NewEngine(zap.NewNop())

	result, err := engine.Compute(base)
	require.NoError(t, err)
	assert.True(t, result.ByMaterial["Insulation"].DensityMissing)
	assert.Equal(t, ConditionDensityMissing, result.ByElement["r1"].Materials[0].Condition)
	assert.Zero(t, result.Summary.TotalCarbon)

	withOverride := base
	withOverride.DensityOverrides = map[string]float64{"Insulation": 100}
	result, err = engine.Compute(withOverride)
	require.NoError(t, err)

	mat := result.ByMaterial["Insulation"]
	assert.False(t, mat.DensityMissing)
	assert.Equal(t, 100.0, mat.Density)
	assert.InDelta(t, 1000.0, mat.TotalMass, 1e-9)
	assert.InDelta(t, 1280.0, mat.TotalCarbon, 1e-9)
}

func TestComputeRepeatedMaterialInOneElement(t *testing.T) {
	req := Request{
		Elements: []ModelElement{
			{ID: "w1", Type: "IfcWall", Name: "Sandwich wall", Materials: []MaterialLayer{
				{Name: "Concrete", Volume: 1.0},
				{Name: "Insulation", Volume: 0.5},
				{Name: "Concrete", Volume: 2.0},
			}},
		},
		Mapping: Mapping{"Concrete": "KBOB_01.002.01"},
		Catalog: testCatalog(),
	}

	engine := NewEngine(zap.NewNop())
	result, err := engine.Compute(req)
	require.NoError(t, err)

	concrete := result.ByMaterial["Concrete"]
	assert.Equal(t, 1, concrete.ElementCount, "one element, regardless of layer count")
	assert.InDelta(t, 3.0, concrete.TotalVolume, 1e-9)
	assert.InDelta(t, 720.0, concrete.TotalCarbon, 1e-9)
	assert.Len(t, result.ByElement["w1"].Materials, 3)
}

func TestComputeClassRollupGroupsByType(t *testing.T) {
	engine := NewEngine(zap.NewNop())
	result, err := engine.Compute(buildingRequest())
	require.NoError(t, err)

	require.Len(t, result.ByClass, 3)
	wall := result.ByClass["IfcWall"]
	assert.Equal(t, 1, wall.ElementCount)
	assert.InDelta(t, 864.0, wall.TotalCarbon, 1e-9)

	slab := result.ByClass["IfcSlab"]
	assert.InDelta(t, 5280.0, slab.TotalCarbon, 1e-9)

	column := result.ByClass["IfcColumn"]
	assert.InDelta(t, 26493.75, column.TotalCarbon, 1e-9)
	assert.InDelta(t, 35325.0, column.TotalMass, 1e-9)
}

func TestComputeEmptyModel(t *testing.T) {
	engine := NewEngine(zap.NewNop())
	_, err := engine.Compute(Request{Catalog: testCatalog()})
	assert.ErrorIs(t, err, ErrNoElements)
}

func TestComputeMissingCatalog(t *testing.T) {
	engine := NewEngine(zap.NewNop())
	_, err := engine.Compute(Request{Elements: []ModelElement{{ID: "w1"}}})
	assert.Error(t, err)
}
