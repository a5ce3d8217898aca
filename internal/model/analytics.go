package model

type RankingItem struct {
	ID       int64   `json:"id"`
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Value    float64 `json:"value"`
	Company  string  `json:"company,omitempty"`
	AgeYears *int    `json:"age_years,omitempty"`
}

type Ranking struct {
	Entity EntityType    `json:"entity"`
	Metric Metric        `json:"metric"`
	From   string        `json:"from,omitempty"`
	To     string        `json:"to,omitempty"`
	Items  []RankingItem `json:"items"`
}

type ChartPoint struct {
	Category string  `json:"category"`
	Value    float64 `json:"value"`
}

// OperatorTotals is one company or concessionaire row of a comparative view.
type OperatorTotals struct {
	EntityRef
	Lines       int64
	Passengers  float64
	Trips       float64
	Occurrences float64
}

type OperatorComparison struct {
	EntityRef
	Lines                  int64   `json:"lines"`
	Passengers             float64 `json:"passengers"`
	Trips                  float64 `json:"trips"`
	Occurrences            float64 `json:"occurrences"`
	OccurrencesPer10kTrips float64 `json:"occurrences_per_10k_trips"`
}

type EfficiencyTotals struct {
	EntityRef
	Passengers      float64
	DistanceKm      float64
	DurationMinutes float64
}

type LineEfficiency struct {
	EntityRef
	Passengers          float64 `json:"passengers"`
	DistanceKm          float64 `json:"distance_km"`
	DurationMinutes     float64 `json:"duration_minutes"`
	PassengersPerKm     float64 `json:"passengers_per_km"`
	PassengersPerMinute float64 `json:"passengers_per_minute"`
}

type FailureTotals struct {
	EntityRef
	Failures float64
	Trips    float64
}

type FailureRate struct {
	EntityRef
	Failures            float64 `json:"failures"`
	Trips               float64 `json:"trips"`
	FailuresPer10kTrips float64 `json:"failures_per_10k_trips"`
}

type VehicleAgeFailures struct {
	EntityRef
	Company  string  `json:"company"`
	AgeYears int     `json:"age_years"`
	Failures float64 `json:"failures"`
}

type OverviewTotals struct {
	Passengers  float64
	Trips       float64
	Occurrences float64
	DistanceKm  float64
	Lines       int64
}

type Overview struct {
	From                   string  `json:"from"`
	To                     string  `json:"to"`
	Passengers             float64 `json:"passengers"`
	Trips                  float64 `json:"trips"`
	Occurrences            float64 `json:"occurrences"`
	DistanceKm             float64 `json:"distance_km"`
	ActiveLines            int64   `json:"active_lines"`
	PassengersPerKm        float64 `json:"passengers_per_km"`
	PassengersPerTrip      float64 `json:"passengers_per_trip"`
	OccurrencesPer10kTrips float64 `json:"occurrences_per_10k_trips"`
}
