package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"plan-service/internal/common/apperror"
	"plan-service/internal/exporter/convert"
	"plan-service/internal/planner/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChain подменяет цепочку конвертации.
type fakeChain struct {
	calls  int
	result convert.Result
}

func (f *fakeChain) Convert(_ context.Context, dxf []byte) convert.Result {
	f.calls++
	if f.result.Fallback {
		f.result.Data = dxf
	}
	return f.result
}

func fallbackChain() *fakeChain {
	return &fakeChain{result: convert.Result{
		Format:   "dxf",
		Fallback: true,
		Warning:  "DWG conversion is unavailable; the DXF drawing is returned instead",
	}}
}

func dwgChain() *fakeChain {
	return &fakeChain{result: convert.Result{Format: "dwg", Data: []byte("dwg bytes")}}
}

func testPlan() *models.Plan {
	return &models.Plan{
		BuildingType:       "Residential",
		BuildingDimensions: models.Dimensions2D{Width: 40, Depth: 30},
		Floors: []models.Floor{{
			Level:     "Ground",
			TotalArea: 344,
			Rooms: []models.Room{
				{
					ID: "f0-r0", Name: "Living Room", Type: "living", AreaSqft: 224,
					Dimensions: models.RoomDimensions{Length: 14, Width: 16},
				},
				{
					ID: "f0-r1", Name: "Kitchen", Type: "kitchen", AreaSqft: 120,
					Dimensions: models.RoomDimensions{Length: 10, Width: 12},
					Position:   models.Position{X: 16},
				},
			},
		}},
	}
}

func newTestExporter(chain Converter) *Exporter {
	return NewExporter(chain, nil, DefaultExporterConfig())
}

func TestExportDXFOnly(t *testing.T) {
	chain := dwgChain()
	exporter := newTestExporter(chain)

	result, err := exporter.Export(context.Background(), testPlan(), ExportOptions{})
	require.NoError(t, err)

	require.Len(t, result.Files, 1)
	assert.Equal(t, "floor-0.dxf", result.Files[0].Filename)
	assert.Contains(t, result.Files[0].Content, "ENTITIES")
	assert.Equal(t, 0, chain.calls, "conversion runs only when dwg is requested")

	assert.Equal(t, "Residential", result.Metadata.BuildingType)
	assert.Equal(t, "Ground", result.Metadata.FloorLevel)
	assert.Equal(t, 2, result.Metadata.RoomCount)
	assert.Equal(t, float64(10), result.Metadata.Scale)
	assert.False(t, result.Metadata.GeneratedAt.IsZero())
}

func TestExportWithDWG(t *testing.T) {
	chain := dwgChain()
	exporter := newTestExporter(chain)

	result, err := exporter.Export(context.Background(), testPlan(), ExportOptions{
		Formats: []string{"dxf", "dwg"},
	})
	require.NoError(t, err)

	require.Len(t, result.Files, 2)
	assert.Equal(t, "dwg", result.Files[1].Format)
	decoded, err := base64.StdEncoding.DecodeString(result.Files[1].ContentBase64)
	require.NoError(t, err)
	assert.Equal(t, []byte("dwg bytes"), decoded)
	assert.Empty(t, result.Warnings)
}

func TestExportConversionFallbackIsWarning(t *testing.T) {
	exporter := newTestExporter(fallbackChain())

	result, err := exporter.Export(context.Background(), testPlan(), ExportOptions{
		Formats: []string{"dwg"},
	})
	require.NoError(t, err, "conversion failure must not fail the export")

	require.Len(t, result.Files, 1, "only the dxf remains")
	assert.Equal(t, "dxf", result.Files[0].Format)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "unavailable")
}

func TestExportStructuralPreCheck(t *testing.T) {
	exporter := newTestExporter(dwgChain())

	t.Run("nil plan", func(t *testing.T) {
		_, err := exporter.Export(context.Background(), nil, ExportOptions{})
		require.Error(t, err)
		assert.Equal(t, apperror.KindInvalidPlan, apperror.From(err).Kind)
	})

	t.Run("every problem listed", func(t *testing.T) {
		plan := &models.Plan{Floors: []models.Floor{
			{Level: "Ground"},
			{Level: "Floor 1"},
		}}
		_, err := exporter.Export(context.Background(), plan, ExportOptions{})
		require.Error(t, err)
		appErr := apperror.From(err)
		assert.Len(t, appErr.Details, 2)
	})
}

func TestExportFloorNotFound(t *testing.T) {
	exporter := newTestExporter(dwgChain())

	_, err := exporter.Export(context.Background(), testPlan(), ExportOptions{FloorIndex: 3})
	require.Error(t, err)
	assert.Equal(t, apperror.KindFloorNotFound, apperror.From(err).Kind)
}

func TestExportCacheHit(t *testing.T) {
	chain := dwgChain()
	exporter := newTestExporter(chain)
	plan := testPlan()
	opts := ExportOptions{Formats: []string{"dwg"}}

	first, err := exporter.Export(context.Background(), plan, opts)
	require.NoError(t, err)
	second, err := exporter.Export(context.Background(), plan, opts)
	require.NoError(t, err)

	assert.Equal(t, 1, chain.calls, "cache hit must not re-convert")
	assert.True(t, second.Cached)
	assert.Equal(t, first.Metadata.ExportID, second.Metadata.ExportID)
}

func TestExportKeyIgnoresOtherFloors(t *testing.T) {
	a := testPlan()
	b := testPlan()
	b.Floors = append(b.Floors, models.Floor{
		Level: "Floor 1",
		Rooms: []models.Room{{Name: "Attic", AreaSqft: 100}},
	})

	// этаж 0 одинаковый — отпечатки совпадают
	assert.Equal(t, exportKey(a, 0, 10), exportKey(b, 0, 10))
	// другой масштаб — другой отпечаток
	assert.NotEqual(t, exportKey(a, 0, 10), exportKey(a, 0, 20))
}

func TestExportCacheFIFOEviction(t *testing.T) {
	cache := newExportCache(50, 5*time.Minute)
	current := time.Unix(1000, 0)
	cache.now = func() time.Time { return current }

	keys := make([]uint64, 51)
	for i := range keys {
		keys[i] = uint64(i + 1)
		// вставки в разные моменты, чтобы порядок был осмысленным
		current = current.Add(time.Millisecond)
		cache.put(keys[i], ExportResult{Metadata: ExportMetadata{ExportID: fmt.Sprintf("e%d", i)}})
	}

	// самая старая запись вытеснена, остальные 50 живы
	_, ok := cache.get(keys[0])
	assert.False(t, ok, "oldest entry must be evicted")
	for _, key := range keys[1:] {
		_, ok := cache.get(key)
		assert.True(t, ok, "key %d must survive", key)
	}
}

func TestExportCacheTTLOnRead(t *testing.T) {
	cache := newExportCache(50, 5*time.Minute)
	current := time.Unix(1000, 0)
	cache.now = func() time.Time { return current }

	cache.put(1, ExportResult{})
	current = current.Add(6 * time.Minute)
	_, ok := cache.get(1)
	assert.False(t, ok)
}

func TestStorageSaveExport(t *testing.T) {
	storage := NewStorage(t.TempDir())

	files := []ExportFile{
		{Filename: "floor-0.dxf", Format: "dxf", Content: "0\nEOF\n"},
		{Filename: "floor-0.dwg", Format: "dwg", ContentBase64: base64.StdEncoding.EncodeToString([]byte("dwg"))},
	}
	require.NoError(t, storage.SaveExport("exp-1", files))

	dxfData := storage.FilePath("exp-1", "floor-0.dxf")
	assert.FileExists(t, dxfData)
	assert.FileExists(t, storage.FilePath("exp-1", "floor-0.dwg"))
}
