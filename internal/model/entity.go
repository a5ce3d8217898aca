package model

import (
	"fmt"
	"strings"
)

type EntityType string

const (
	EntityLine           EntityType = "line"
	EntityCompany        EntityType = "company"
	EntityConcessionaire EntityType = "concessionaire"
	EntityVehicle        EntityType = "vehicle"
	EntityNeighborhood   EntityType = "neighborhood"
	EntityJustification  EntityType = "justification"
)

// SentinelCode is the dimension code reserved for "unidentified" operators.
const SentinelCode = "0"

var entityTypes = []EntityType{
	EntityLine,
	EntityCompany,
	EntityConcessionaire,
	EntityVehicle,
	EntityNeighborhood,
	EntityJustification,
}

func ParseEntityType(raw string) (EntityType, error) {
	value := EntityType(strings.ToLower(strings.TrimSpace(raw)))
	for _, t := range entityTypes {
		if t == value {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unsupported entity type %q", ErrInvalidArgument, raw)
}

// HasSentinel reports whether rows of this entity type may carry the
// "unidentified" sentinel code and must be filtered from rankings.
func (t EntityType) HasSentinel() bool {
	return t == EntityCompany || t == EntityConcessionaire
}

type Metric string

const (
	MetricPassengers  Metric = "passengers"
	MetricTrips       Metric = "trips"
	MetricOccurrences Metric = "occurrences"
	MetricDistanceKm  Metric = "distance_km"
	MetricLines       Metric = "lines"
	MetricStops       Metric = "stops"
	MetricFailures    Metric = "failures"
)

func NormalizeMetric(raw string) Metric {
	return Metric(strings.ToLower(strings.TrimSpace(raw)))
}

type EntityRef struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// Option is one entry of a filter dropdown.
type Option struct {
	ID   int64  `json:"id"`
	Code string `json:"code,omitempty"`
	Name string `json:"name"`
}
