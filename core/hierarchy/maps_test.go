package hierarchy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoordinates_Clamp(t *testing.T) {
	tests := []struct {
		name string
		in   Coordinates
		want Coordinates
	}{
		{"in range", Coordinates{37.18, -3.6, 738}, Coordinates{37.18, -3.6, 738}},
		{"latitude too high", Coordinates{120, 0, 0}, Coordinates{90, 0, 0}},
		{"longitude too low", Coordinates{0, -200, 0}, Coordinates{0, -180, 0}},
		{"below dead sea", Coordinates{10, 10, -1000}, Coordinates{10, 10, -413}},
		{"above everest", Coordinates{10, 10, 9000}, Coordinates{10, 10, 8848}},
		{"nan", Coordinates{math.NaN(), 5, 0}, Coordinates{0, 5, 0}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.in.Clamp())
		})
	}
}

func TestParseCoordinate(t *testing.T) {
	assert.Equal(t, 37.5, ParseCoordinate("37.5"))
	assert.Equal(t, 37.5, ParseCoordinate(" 37,5 "))
	assert.Equal(t, -3.25, ParseCoordinate("-3,25"))
	assert.Equal(t, 0.0, ParseCoordinate("north"))
	assert.Equal(t, 0.0, ParseCoordinate(""))
}

func TestZoomForSpread(t *testing.T) {
	assert.Equal(t, MaxZoom, ZoomForSpread(0))
	assert.Equal(t, MinZoom, ZoomForSpread(360))
	assert.Equal(t, 1, ZoomForSpread(180))
	assert.Equal(t, 3, ZoomForSpread(40))
	assert.Equal(t, MaxZoom, ZoomForSpread(0.0001))
}

func TestComputeView(t *testing.T) {
	t.Run("no centers", func(t *testing.T) {
		view := ComputeView(nil)
		assert.Equal(t, MinZoom, view.Zoom)
		assert.Equal(t, Coordinates{}, view.Center)
		assert.Empty(t, view.Markers)
	})

	t.Run("centers without coordinates are skipped", func(t *testing.T) {
		view := ComputeView([]Center{
			{ID: 1, ShortName: "ETSIIT"},
			{ID: 2, ShortName: "Ciencias", Coordinates: Coordinates{Latitude: 37.18, Longitude: -3.61}},
		})
		assert.Len(t, view.Markers, 1)
		assert.Equal(t, int64(2), view.Markers[0].CenterID)
		assert.Equal(t, MaxZoom, view.Zoom)
		assert.Equal(t, 37.18, view.Center.Latitude)
	})

	t.Run("average and spread", func(t *testing.T) {
		view := ComputeView([]Center{
			{ID: 1, Coordinates: Coordinates{Latitude: 10, Longitude: 0}},
			{ID: 2, Coordinates: Coordinates{Latitude: 30, Longitude: 40}},
		})
		assert.Len(t, view.Markers, 2)
		assert.InDelta(t, 20, view.Center.Latitude, 1e-9)
		assert.InDelta(t, 20, view.Center.Longitude, 1e-9)
		// widest spread is 40 degrees of longitude: log2(9) = 3.17
		assert.Equal(t, 3, view.Zoom)
	})
}
