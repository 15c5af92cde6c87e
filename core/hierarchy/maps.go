package hierarchy

import (
	"math"
	"strconv"
	"strings"
)

const (
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	MinLongitude = -180.0
	MaxLongitude = 180.0
	MinAltitude  = -413.0 // Dead Sea shore
	MaxAltitude  = 8848.0 // Everest

	MinZoom = 1
	MaxZoom = 16
)

// Coordinates of a center. 0,0 means "not set".
type Coordinates struct {
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
	Altitude  float64 `json:"altitude" db:"altitude"`
}

func (c Coordinates) IsSet() bool {
	return c.Latitude != 0 || c.Longitude != 0
}

// Clamp forces every component into its valid range.
func (c Coordinates) Clamp() Coordinates {
	return Coordinates{
		Latitude:  clamp(c.Latitude, MinLatitude, MaxLatitude),
		Longitude: clamp(c.Longitude, MinLongitude, MaxLongitude),
		Altitude:  clamp(c.Altitude, MinAltitude, MaxAltitude),
	}
}

func clamp(v, min, max float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(min, math.Min(max, v))
}

// ParseCoordinate reads a decimal number accepting both "." and "," as separator.
// Unparseable input reads as 0.
func ParseCoordinate(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// Marker is a center placed on a map.
type Marker struct {
	CenterID    int64       `json:"center_id"`
	ShortName   string      `json:"short_name"`
	FullName    string      `json:"full_name"`
	WWW         string      `json:"www"`
	Coordinates Coordinates `json:"coordinates"`
}

// MapView is the viewport showing a set of centers.
type MapView struct {
	Center  Coordinates `json:"center"`
	Zoom    int         `json:"zoom"`
	Markers []Marker    `json:"markers"`
}

// ComputeView centers the map on the average position of the centers with coordinates,
// zoomed so that the widest of the latitude and longitude spreads fits in the viewport.
func ComputeView(centers []Center) MapView {
	view := MapView{Zoom: MinZoom, Markers: []Marker{}}

	var n int
	var sumLat, sumLon float64
	minLat, maxLat := math.Inf(1), math.Inf(-1)
	minLon, maxLon := math.Inf(1), math.Inf(-1)
	for _, ctr := range centers {
		c := ctr.Coordinates
		if !c.IsSet() {
			continue
		}
		n++
		sumLat += c.Latitude
		sumLon += c.Longitude
		minLat, maxLat = math.Min(minLat, c.Latitude), math.Max(maxLat, c.Latitude)
		minLon, maxLon = math.Min(minLon, c.Longitude), math.Max(maxLon, c.Longitude)
		view.Markers = append(view.Markers, Marker{
			CenterID:    ctr.ID,
			ShortName:   ctr.ShortName,
			FullName:    ctr.FullName,
			WWW:         ctr.WWW,
			Coordinates: c,
		})
	}
	if n == 0 {
		return view
	}

	view.Center = Coordinates{Latitude: sumLat / float64(n), Longitude: sumLon / float64(n)}
	view.Zoom = ZoomForSpread(math.Max(maxLat-minLat, maxLon-minLon))
	return view
}

// ZoomForSpread returns the zoom level showing spread degrees.
func ZoomForSpread(spread float64) int {
	if spread <= 0 {
		return MaxZoom
	}
	zoom := int(math.Floor(math.Log2(360 / spread)))
	if zoom < MinZoom {
		return MinZoom
	}
	if zoom > MaxZoom {
		return MaxZoom
	}
	return zoom
}
