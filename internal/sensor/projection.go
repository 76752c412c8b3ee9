// Package sensor projects reconciled forecast data into the published
// per-district sensor surface consumed by the HTTP API, the widget, and the
// optional Redis and Kafka sinks.
package sensor

import (
	"fmt"
	"strings"
	"time"

	"github.com/couchcryptid/cfa-fire-forecast/internal/domain"
)

// Day slot names used in sensor naming, index-aligned with ForecastSet.Days.
var dayMetrics = [domain.MaxForecastDays]string{"today", "tomorrow", "day_3", "day_4"}

// DayLabel returns the display label for a day slot ("Today", "Tomorrow",
// "Day 3", "Day 4").
func DayLabel(index int) string {
	switch index {
	case 0:
		return "Today"
	case 1:
		return "Tomorrow"
	default:
		return fmt.Sprintf("Day %d", index+1)
	}
}

// Reading is one published sensor value with its attributes.
type Reading struct {
	Name       string         `json:"name"`
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Record is the full published sensor surface for one district: nine
// readings plus the health state of the cycle that produced them.
type Record struct {
	DistrictSlug string            `json:"district_slug"`
	DistrictName string            `json:"district_name"`
	Health       domain.FeedHealth `json:"health"`
	Readings     []Reading         `json:"readings"`
	ProjectedAt  time.Time         `json:"projected_at"`
}

// Reading returns the named reading, or false when absent.
func (r *Record) Reading(name string) (Reading, bool) {
	for _, reading := range r.Readings {
		if reading.Name == name {
			return reading, true
		}
	}
	return Reading{}, false
}

// Naming convention for the published surface:
//
//	<prefix>_<slug-with-underscores>_fire_district_rating_<day>
//	<prefix>_<slug-with-underscores>_fire_district_total_fire_ban_<day>
//	<prefix>_<slug-with-underscores>_fire_district_max_severity
//	<prefix>_<slug-with-underscores>_feed_status

// RatingName returns the rating reading name for a district day slot.
func RatingName(prefix, slug string, index int) string {
	return fmt.Sprintf("%s_%s_fire_district_rating_%s", prefix, slugKey(slug), dayMetrics[index])
}

// FireBanName returns the Total Fire Ban reading name for a district day slot.
func FireBanName(prefix, slug string, index int) string {
	return fmt.Sprintf("%s_%s_fire_district_total_fire_ban_%s", prefix, slugKey(slug), dayMetrics[index])
}

// MaxSeverityName returns the max severity reading name for a district.
func MaxSeverityName(prefix, slug string) string {
	return fmt.Sprintf("%s_%s_fire_district_max_severity", prefix, slugKey(slug))
}

// FeedStatusName returns the feed status reading name for a district.
func FeedStatusName(prefix, slug string) string {
	return fmt.Sprintf("%s_%s_feed_status", prefix, slugKey(slug))
}

func slugKey(slug string) string {
	return strings.ReplaceAll(slug, "-", "_")
}

// Cycle carries per-cycle diagnostics surfaced on the feed status reading,
// so API and sink consumers can see why a district is degraded without
// access to the service's metrics.
type Cycle struct {
	// Source names the feed strategy that produced this cycle's data:
	// "combined" or "individual". Empty when nothing was fetched.
	Source string
	// LastError is the district's error from the current cycle, if any.
	LastError string
	// LastSuccessAt is when this district last completed a healthy cycle.
	// Zero when it never has.
	LastSuccessAt time.Time
}

// Project maps a published ForecastSet and health state to the nine sensor
// readings for a district. published may be nil (failed health with no
// retained data): absent days project to UNKNOWN ratings and "No" bans, never
// an error.
func Project(prefix, slug string, published *domain.ForecastSet, health domain.FeedHealth, cycle Cycle) Record {
	name := domain.DistrictName(slug)
	if published != nil && published.DistrictName != "" {
		name = published.DistrictName
	}

	record := Record{
		DistrictSlug: slug,
		DistrictName: name,
		Health:       health,
		Readings:     make([]Reading, 0, 2*domain.MaxForecastDays+2),
		ProjectedAt:  clock.Now(),
	}

	for i := 0; i < domain.MaxForecastDays; i++ {
		record.Readings = append(record.Readings, ratingReading(prefix, slug, published, i))
	}
	for i := 0; i < domain.MaxForecastDays; i++ {
		record.Readings = append(record.Readings, fireBanReading(prefix, slug, published, i))
	}
	record.Readings = append(record.Readings,
		maxSeverityReading(prefix, slug, published),
		feedStatusReading(prefix, slug, health, cycle),
	)

	return record
}

func feedStatusReading(prefix, slug string, health domain.FeedHealth, cycle Cycle) Reading {
	attrs := map[string]any{}
	if cycle.Source != "" {
		attrs["source"] = cycle.Source
	}
	if cycle.LastError != "" {
		attrs["last_error"] = cycle.LastError
	}
	if !cycle.LastSuccessAt.IsZero() {
		attrs["last_successful_update"] = cycle.LastSuccessAt.Format(time.RFC3339)
	}
	if len(attrs) == 0 {
		attrs = nil
	}
	return Reading{
		Name:       FeedStatusName(prefix, slug),
		State:      string(health),
		Attributes: attrs,
	}
}

func ratingReading(prefix, slug string, published *domain.ForecastSet, index int) Reading {
	day, ok := published.Day(index)
	if !ok {
		return Reading{
			Name:  RatingName(prefix, slug, index),
			State: domain.UnknownLabel,
			Attributes: map[string]any{
				"day": DayLabel(index),
			},
		}
	}

	attrs := map[string]any{
		"day":            DayLabel(index),
		"date":           day.DateLabel,
		"severity":       day.Rating.Severity,
		"colour":         day.Rating.Colour,
		"total_fire_ban": day.TotalFireBan,
	}
	if day.IssuedAt != nil {
		attrs["forecast_issued_at"] = day.IssuedAt.Format(time.RFC3339)
	} else if day.IssuedAtRaw != "" {
		attrs["forecast_issued_at"] = day.IssuedAtRaw
	}
	if published.PublishedAt != nil {
		attrs["feed_published"] = published.PublishedAt.Format(time.RFC3339)
	}

	return Reading{
		Name:       RatingName(prefix, slug, index),
		State:      day.Rating.Label,
		Attributes: attrs,
	}
}

func fireBanReading(prefix, slug string, published *domain.ForecastSet, index int) Reading {
	day, ok := published.Day(index)
	state := "No"
	attrs := map[string]any{"day": DayLabel(index)}
	if ok {
		if day.TotalFireBan {
			state = "Yes"
		}
		attrs["date"] = day.DateLabel
		attrs["fire_danger_rating"] = day.Rating.Label
	}
	return Reading{
		Name:       FireBanName(prefix, slug, index),
		State:      state,
		Attributes: attrs,
	}
}

func maxSeverityReading(prefix, slug string, published *domain.ForecastSet) Reading {
	worst, ok := published.MaxSeverity()
	if !ok {
		return Reading{
			Name:  MaxSeverityName(prefix, slug),
			State: domain.UnknownLabel,
		}
	}
	return Reading{
		Name:  MaxSeverityName(prefix, slug),
		State: worst.Rating.Label,
		Attributes: map[string]any{
			"severity":           worst.Rating.Severity,
			"colour":             worst.Rating.Colour,
			"any_total_fire_ban": published.AnyTotalFireBan(),
			"worst_day":          worst.DateLabel,
			"forecast_days":      len(published.Days),
		},
	}
}
