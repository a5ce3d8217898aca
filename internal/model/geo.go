package model

import "encoding/json"

type GeoKind string

const (
	GeoLineStops           GeoKind = "line_stops"
	GeoLineNeighborhoods   GeoKind = "line_neighborhoods"
	GeoNeighborhoodPolygon GeoKind = "neighborhood_polygon"
	GeoNeighborhoodStops   GeoKind = "neighborhood_stops"
)

// Snapshot is a (year, month) version of the periodically re-imported stop table.
type Snapshot struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

type StopPointRow struct {
	RowID   int64
	StopID  string
	Year    int
	Month   int
	GeoJSON *string
}

type PolygonRow struct {
	ID      int64
	Name    string
	GeoJSON *string
}

type Feature struct {
	Type       string          `json:"type"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

func NewFeature(geometry string, properties map[string]any) Feature {
	if properties == nil {
		properties = map[string]any{}
	}
	return Feature{Type: "Feature", Geometry: json.RawMessage(geometry), Properties: properties}
}

// NewFeatureCollection never yields a null features array.
func NewFeatureCollection(features []Feature) FeatureCollection {
	if features == nil {
		features = []Feature{}
	}
	return FeatureCollection{Type: "FeatureCollection", Features: features}
}
