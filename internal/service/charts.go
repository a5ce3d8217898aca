package service

import (
	"sort"
	"time"

	"transit-analytics/internal/model"
	"transit-analytics/internal/rates"
)

// weekdayValue selects how a weekday bucket becomes a chart value.
type weekdayValue int

const (
	perActiveDay weekdayValue = iota // total passengers / days with trips
	perTrip                          // average passengers per trip
	tripCount                        // number of trips
)

// weekdayChart orders buckets Monday..Sunday by ISO ordinal. The ordinal is
// only a sort key; the chart exposes the warehouse's weekday label.
func weekdayChart(buckets []model.WeekdayBucket, mode weekdayValue) []model.ChartPoint {
	sorted := make([]model.WeekdayBucket, len(buckets))
	copy(sorted, buckets)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Ordinal < sorted[j].Ordinal })

	points := make([]model.ChartPoint, 0, len(sorted))
	for _, b := range sorted {
		var value float64
		switch mode {
		case perTrip:
			value = rates.Div(b.Total, b.Trips)
		case tripCount:
			value = rates.NonNegative(b.Trips)
		default:
			value = rates.AveragePer(b.Total, b.Days)
		}
		points = append(points, model.ChartPoint{Category: weekdayLabel(b), Value: value})
	}
	return points
}

func weekdayLabel(b model.WeekdayBucket) string {
	if b.Label != "" {
		return b.Label
	}
	// ISO 7 is Sunday, time.Weekday 0.
	return time.Weekday(b.Ordinal % 7).String()
}

func averages(passengers, trips float64, periods model.ActivePeriods) model.Averages {
	return model.Averages{
		PerMonth: rates.AveragePer(passengers, periods.Months),
		PerDay:   rates.AveragePer(passengers, periods.Days),
		PerTrip:  rates.Div(passengers, trips),
	}
}
