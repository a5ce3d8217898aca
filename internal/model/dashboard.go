package model

// EntityTotals is the rollup sum of one entity over all its history.
// A nil *EntityTotals from the store means the dimension row does not exist.
type EntityTotals struct {
	EntityRef
	RollupRows  int64
	Passengers  float64
	Trips       float64
	Occurrences float64
	DistanceKm  float64
}

// ActivePeriods counts distinct months and days that carry rollup rows.
type ActivePeriods struct {
	Months int64
	Days   int64
}

// WeekdayBucket is one ISO weekday (1 = Monday) of a weekday chart.
type WeekdayBucket struct {
	Ordinal int
	Label   string
	Total   float64
	Days    int64
	Trips   float64
}

type Averages struct {
	PerMonth float64 `json:"per_month"`
	PerDay   float64 `json:"per_day"`
	PerTrip  float64 `json:"per_trip"`
}

type LineProfile struct {
	Origin             string
	LengthKm           float64
	Company            string
	Concessionaire     string
	TripsNotPerformed  float64
	TripsInterrupted   float64
	ZeroPassengerTrips float64
	Neighborhoods      int64
}

type VehicleProfile struct {
	AgeYears    int
	ExtraMonths int
	InOperation bool
	Company     string
}

type NeighborhoodProfile struct {
	Population      int64
	Households      int64
	AreaKm2         float64
	Density         float64
	Lines           int64
	StopPoints      int64
	Companies       int64
	Concessionaires int64
}

type JustificationProfile struct {
	OccurrenceType    string
	TripsNotPerformed float64
}

type LineDashboard struct {
	Line                   EntityRef         `json:"line"`
	HasData                bool              `json:"has_data"`
	Origin                 string            `json:"origin"`
	Company                string            `json:"company"`
	Concessionaire         string            `json:"concessionaire"`
	LengthKm               float64           `json:"length_km"`
	Passengers             float64           `json:"passengers"`
	Trips                  float64           `json:"trips"`
	TripsPerformed         float64           `json:"trips_performed"`
	TripsNotPerformed      float64           `json:"trips_not_performed"`
	TripsInterrupted       float64           `json:"trips_interrupted"`
	ZeroPassengerTrips     float64           `json:"zero_passenger_trips"`
	Occurrences            float64           `json:"occurrences"`
	NeighborhoodsTraversed int64             `json:"neighborhoods_traversed"`
	StopPoints             int64             `json:"stop_points"`
	Averages               Averages          `json:"averages"`
	Justifications         []ChartPoint      `json:"justifications"`
	WeekdayPassengers      []ChartPoint      `json:"weekday_passengers"`
	StopsMap               FeatureCollection `json:"stops_map"`
	NeighborhoodsMap       FeatureCollection `json:"neighborhoods_map"`
}

type NeighborhoodDashboard struct {
	Neighborhood      EntityRef         `json:"neighborhood"`
	HasData           bool              `json:"has_data"`
	Population        int64             `json:"population"`
	Households        int64             `json:"households"`
	AreaKm2           float64           `json:"area_km2"`
	Density           float64           `json:"density"`
	Lines             int64             `json:"lines"`
	StopPoints        int64             `json:"stop_points"`
	Companies         int64             `json:"companies"`
	Concessionaires   int64             `json:"concessionaires"`
	Passengers        float64           `json:"passengers"`
	Occurrences       float64           `json:"occurrences"`
	TopLines          []RankingItem     `json:"top_lines"`
	WeekdayPassengers []ChartPoint      `json:"weekday_passengers"`
	PolygonMap        FeatureCollection `json:"polygon_map"`
	StopsMap          FeatureCollection `json:"stops_map"`
}

type VehicleDashboard struct {
	Vehicle           EntityRef     `json:"vehicle"`
	HasData           bool          `json:"has_data"`
	Company           string        `json:"company"`
	AgeYears          int           `json:"age_years"`
	ExtraMonths       int           `json:"extra_months"`
	InOperation       bool          `json:"in_operation"`
	Passengers        float64       `json:"passengers"`
	Trips             float64       `json:"trips"`
	Occurrences       float64       `json:"occurrences"`
	DistanceKm        float64       `json:"distance_km"`
	Averages          Averages      `json:"averages"`
	Justifications    []ChartPoint  `json:"justifications"`
	TopLines          []RankingItem `json:"top_lines"`
	WeekdayPassengers []ChartPoint  `json:"weekday_passengers"`
}

type CompanyDashboard struct {
	Company           EntityRef     `json:"company"`
	HasData           bool          `json:"has_data"`
	Passengers        float64       `json:"passengers"`
	Trips             float64       `json:"trips"`
	Occurrences       float64       `json:"occurrences"`
	LinesServed       int64         `json:"lines_served"`
	Averages          Averages      `json:"averages"`
	Justifications    []ChartPoint  `json:"justifications"`
	TopLines          []RankingItem `json:"top_lines"`
	WeekdayPassengers []ChartPoint  `json:"weekday_passengers"`
	YearlyPassengers  []ChartPoint  `json:"yearly_passengers"`
}

type ConcessionaireDashboard struct {
	Concessionaire    EntityRef     `json:"concessionaire"`
	HasData           bool          `json:"has_data"`
	Passengers        float64       `json:"passengers"`
	Trips             float64       `json:"trips"`
	Occurrences       float64       `json:"occurrences"`
	LinesServed       int64         `json:"lines_served"`
	Averages          Averages      `json:"averages"`
	TopLines          []RankingItem `json:"top_lines"`
	WeekdayPassengers []ChartPoint  `json:"weekday_passengers"`
}

type JustificationDashboard struct {
	Justification      EntityRef     `json:"justification"`
	HasData            bool          `json:"has_data"`
	OccurrenceType     string        `json:"occurrence_type"`
	Occurrences        float64       `json:"occurrences"`
	PassengersAffected float64       `json:"passengers_affected"`
	TripsNotPerformed  float64       `json:"trips_not_performed"`
	TopLines           []RankingItem `json:"top_lines"`
	TopVehicles        []RankingItem `json:"top_vehicles"`
	WeekdayOccurrences []ChartPoint  `json:"weekday_occurrences"`
	MostAffectedLineID *int64        `json:"most_affected_line_id"`
}
