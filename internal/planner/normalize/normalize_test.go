package normalize

import (
	"testing"

	"plan-service/internal/planner/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeStructuralErrors(t *testing.T) {
	t.Run("undecodable payload", func(t *testing.T) {
		_, err := Normalize([]byte("not json at all"), models.Meta{})
		var perr *ParseError
		require.ErrorAs(t, err, &perr)
	})

	t.Run("missing floors", func(t *testing.T) {
		_, err := Normalize([]byte(`{"buildingType":"Residential"}`), models.Meta{})
		var perr *ParseError
		require.ErrorAs(t, err, &perr)
		assert.Contains(t, perr.Error(), "no floors")
	})

	t.Run("floor without rooms", func(t *testing.T) {
		_, err := Normalize([]byte(`{"floors":[{"level":"Ground","rooms":[]}]}`), models.Meta{})
		var perr *ParseError
		require.ErrorAs(t, err, &perr)
		assert.Contains(t, perr.Error(), "no rooms")
	})
}

func TestNormalizeFillsDefaults(t *testing.T) {
	data := []byte(`{
		"floors": [
			{"rooms": [
				{"name": "Master Bedroom", "dimensions": {"length": 14, "width": 12}, "position": {"x": 0, "y": 0}},
				{"name": "Bathroom", "areaSqft": 36},
				{"dimensions": {"length": 10, "width": 10}}
			]},
			{"rooms": [
				{"name": "Home Office", "areaSqft": 100}
			]}
		]
	}`)

	plan, err := Normalize(data, models.Meta{})
	require.NoError(t, err)

	assert.Equal(t, "Residential", plan.BuildingType)
	require.Len(t, plan.Floors, 2)
	assert.Equal(t, "Ground", plan.Floors[0].Level)
	assert.Equal(t, "Floor 1", plan.Floors[1].Level)

	bedroom := plan.Floors[0].Rooms[0]
	assert.Equal(t, "f0-r0", bedroom.ID)
	assert.Equal(t, "bedroom", bedroom.Type)
	assert.Equal(t, float64(168), bedroom.AreaSqft) // 14×12
	assert.NotNil(t, bedroom.Doors)
	assert.NotNil(t, bedroom.Windows)

	bathroom := plan.Floors[0].Rooms[1]
	assert.Equal(t, "bathroom", bathroom.Type)
	// квадрат со стороной round(sqrt(36)) = 6
	assert.Equal(t, float64(6), bathroom.Dimensions.Length)
	assert.Equal(t, float64(6), bathroom.Dimensions.Width)

	unnamed := plan.Floors[0].Rooms[2]
	assert.Equal(t, "Room 3", unnamed.Name)
	assert.Equal(t, "room", unnamed.Type)

	office := plan.Floors[1].Rooms[0]
	assert.Equal(t, "office", office.Type)

	// площадь этажа — сумма комнат
	assert.Equal(t, float64(168+36+100), plan.Floors[0].TotalArea)
	assert.Equal(t, float64(100), plan.Floors[1].TotalArea)
	assert.Equal(t, plan.Floors[0].TotalArea+plan.Floors[1].TotalArea, plan.TotalArea)
}

func TestNormalizeBuildingDimensions(t *testing.T) {
	t.Run("bounding box of ground floor rooms", func(t *testing.T) {
		data := []byte(`{
			"floors": [{"rooms": [
				{"name": "Living Room", "dimensions": {"length": 20, "width": 25}, "position": {"x": 10, "y": 5}}
			]}]
		}`)

		plan, err := Normalize(data, models.Meta{})
		require.NoError(t, err)
		assert.Equal(t, float64(35), plan.BuildingDimensions.Width) // 10+25
		assert.Equal(t, float64(25), plan.BuildingDimensions.Depth) // 5+20
	})

	t.Run("floor at 20x20 minimum", func(t *testing.T) {
		data := []byte(`{
			"floors": [{"rooms": [
				{"name": "Closet", "dimensions": {"length": 4, "width": 4}}
			]}]
		}`)

		plan, err := Normalize(data, models.Meta{})
		require.NoError(t, err)
		assert.Equal(t, float64(20), plan.BuildingDimensions.Width)
		assert.Equal(t, float64(20), plan.BuildingDimensions.Depth)
	})

	t.Run("provided dimensions kept", func(t *testing.T) {
		data := []byte(`{
			"buildingDimensions": {"width": 40, "depth": 30},
			"floors": [{"rooms": [{"name": "Hall", "areaSqft": 50}]}]
		}`)

		plan, err := Normalize(data, models.Meta{})
		require.NoError(t, err)
		assert.Equal(t, float64(40), plan.BuildingDimensions.Width)
	})
}

func TestNormalizeMetaBuildingType(t *testing.T) {
	data := []byte(`{"floors": [{"rooms": [{"name": "Shop Floor", "areaSqft": 400}]}]}`)

	plan, err := Normalize(data, models.Meta{BuildingType: "Commercial"})
	require.NoError(t, err)
	assert.Equal(t, "Commercial", plan.BuildingType)
}

func TestInferRoomType(t *testing.T) {
	cases := map[string]string{
		"Master Bedroom": "bedroom",
		"Guest Bath":     "bathroom",
		"Kitchen":        "kitchen",
		"Living Area":    "living",
		"Dining Room":    "dining",
		"Study":          "office",
		"Hallway":        "corridor",
		"Staircase":      "staircase",
		"Walk-in Closet": "storage",
		"Garage":         "garage",
		"Balcony":        "outdoor",
		"Mystery Space":  "room",
	}
	for name, want := range cases {
		assert.Equal(t, want, inferRoomType(name), "name %q", name)
	}
}
