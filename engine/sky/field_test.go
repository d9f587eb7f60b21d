package sky

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strato-gfx/strato-go/engine/cloud"
)

const fieldTestRadius = 6360000.0

func testField(t *testing.T, seed int64) (*proceduralField, *cloud.Layer) {
	t.Helper()
	layer := cloud.NewLayer(1500, 4000)
	f := newProceduralField(seed, layer, fieldTestRadius)
	require.NotNil(t, f)
	return f, layer
}

// midLayerPoint returns a geocentric point in the middle of the layer band,
// offset horizontally so different i sample different weather texels.
func midLayerPoint(i int) mgl64.Vec3 {
	return mgl64.Vec3{float64(i) * 1733.0, fieldTestRadius + 2750, float64(i) * 911.0}
}

func TestProceduralFieldCoarseRange(t *testing.T) {
	f, _ := testField(t, 7)
	for i := range 64 {
		coverage, cloudType, wetness := f.Coarse(midLayerPoint(i))
		assert.GreaterOrEqual(t, coverage, 0.0)
		assert.LessOrEqual(t, coverage, 1.0)
		assert.GreaterOrEqual(t, cloudType, 0.0)
		assert.LessOrEqual(t, cloudType, 1.0)
		assert.GreaterOrEqual(t, wetness, 0.0)
		assert.LessOrEqual(t, wetness, 1.0)
	}
}

func TestProceduralFieldDetailedStaysInBand(t *testing.T) {
	f, _ := testField(t, 7)

	below := mgl64.Vec3{500, fieldTestRadius + 200, 500}
	above := mgl64.Vec3{500, fieldTestRadius + 9000, 500}
	assert.Zero(t, f.Detailed(below))
	assert.Zero(t, f.Detailed(above))

	for i := range 64 {
		assert.GreaterOrEqual(t, f.Detailed(midLayerPoint(i)), 0.0)
	}
}

func TestProceduralFieldDeterministic(t *testing.T) {
	a, _ := testField(t, 42)
	b, _ := testField(t, 42)
	other, _ := testField(t, 43)

	differs := false
	for i := range 128 {
		p := midLayerPoint(i)
		assert.Equal(t, a.Detailed(p), b.Detailed(p))
		covA, _, _ := a.Coarse(p)
		covOther, _, _ := other.Coarse(p)
		if covA != covOther {
			differs = true
		}
	}
	assert.True(t, differs, "different seeds should produce different fields")
}

func TestProceduralFieldFollowsWeatherOffset(t *testing.T) {
	f, layer := testField(t, 7)

	before := make([]float64, 32)
	for i := range before {
		before[i], _, _ = f.Coarse(midLayerPoint(i))
	}

	layer.WeatherOffsetU += 0.25
	layer.WeatherOffsetV += 0.1

	moved := false
	for i := range before {
		coverage, _, _ := f.Coarse(midLayerPoint(i))
		if coverage != before[i] {
			moved = true
			break
		}
	}
	assert.True(t, moved, "weather offsets should scroll the coverage field")
}
