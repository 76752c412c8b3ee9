package domain

import "time"

// MaxForecastDays is the full forecast window carried by a CFA feed.
const MaxForecastDays = 4

// DayForecast is one forecast day for one district, immutable once parsed.
type DayForecast struct {
	DateLabel    string     `json:"date_label"`
	Rating       RatingInfo `json:"rating"`
	TotalFireBan bool       `json:"total_fire_ban"`
	IssuedAt     *time.Time `json:"issued_at,omitempty"`
	IssuedAtRaw  string     `json:"issued_at_raw,omitempty"`
}

// ForecastSet holds up to four forecast days for one district, in feed item
// order (index 0 = today). The order is never re-derived from parsed dates.
type ForecastSet struct {
	DistrictSlug string        `json:"district_slug"`
	DistrictName string        `json:"district_name"`
	PublishedAt  *time.Time    `json:"published_at,omitempty"`
	Days         []DayForecast `json:"days"`
}

// Empty reports whether the set carries no forecast days.
func (s *ForecastSet) Empty() bool {
	return s == nil || len(s.Days) == 0
}

// Day returns the forecast at index, or (zero, false) when the feed returned
// fewer days. Missing trailing days are absent, not UNKNOWN-rated.
func (s *ForecastSet) Day(index int) (DayForecast, bool) {
	if s == nil || index < 0 || index >= len(s.Days) {
		return DayForecast{}, false
	}
	return s.Days[index], true
}

// MaxSeverity returns the day with the highest rating severity. Ties break
// to the earliest index, so today wins over an equally severe later day.
// Recomputed on every call; never cached.
func (s *ForecastSet) MaxSeverity() (DayForecast, bool) {
	if s.Empty() {
		return DayForecast{}, false
	}
	worst := s.Days[0]
	for _, d := range s.Days[1:] {
		if d.Rating.Severity > worst.Rating.Severity {
			worst = d
		}
	}
	return worst, true
}

// AnyTotalFireBan reports whether any present day carries a Total Fire Ban.
func (s *ForecastSet) AnyTotalFireBan() bool {
	if s == nil {
		return false
	}
	for _, d := range s.Days {
		if d.TotalFireBan {
			return true
		}
	}
	return false
}
