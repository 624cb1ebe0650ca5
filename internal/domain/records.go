package domain

import (
	"errors"
	"time"
)

// DateLayout is the ISO calendar date format used for every persisted date.
const DateLayout = "2006-01-02"

// VisitorRecord is one day of visitor data built from a CSV row.
type VisitorRecord struct {
	Date          string    `json:"date"`
	VisitorCount  int       `json:"visitor_count"`
	DayOfWeek     *string   `json:"day_of_week,omitempty"`
	IsWeekend     bool      `json:"is_weekend"`
	IsHoliday     bool      `json:"is_holiday"`
	IsSchoolBreak bool      `json:"is_school_break"`
	SpecialEvent  *string   `json:"special_event,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// WeatherRecord is one day of imported weather data.
type WeatherRecord struct {
	Date        string    `json:"date"`
	Temperature float64   `json:"temperature"`
	Condition   string    `json:"condition"`
	CreatedAt   time.Time `json:"created_at"`
}

// WeatherSnapshot is a normalized weather reading for a single day or moment.
type WeatherSnapshot struct {
	Date          string  `json:"date"`
	Temp          float64 `json:"temp"`
	FeelsLike     float64 `json:"feels_like"`
	Humidity      float64 `json:"humidity"`
	Description   string  `json:"description"`
	Icon          string  `json:"icon"`
	Precipitation float64 `json:"precipitation"` // mm
	WindSpeed     float64 `json:"wind_speed"`    // m/s
}

// Settings is the single stored settings row.
type Settings struct {
	OpenWeatherAPIKey string     `json:"openweather_api_key"`
	PostalCode        string     `json:"postal_code"`
	LastUpdated       *time.Time `json:"last_updated,omitempty"`
}

// SettingsUpdate carries a partial settings change. Nil fields are left as is.
type SettingsUpdate struct {
	OpenWeatherAPIKey *string `json:"openweather_api_key,omitempty" validate:"omitempty,alphanum,max=64"`
	PostalCode        *string `json:"postal_code,omitempty" validate:"omitempty,len=5,numeric"`
}

// ImportKind identifies which CSV format an import handles.
type ImportKind string

const (
	ImportVisitors ImportKind = "visitors"
	ImportWeather  ImportKind = "weather"
)

// ImportResult is the human-readable outcome of a CSV import.
type ImportResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// ImportedBatch is a persisted import, handed to downstream publishers.
// Exactly one of Visitors or Weather is populated, matching Kind.
type ImportedBatch struct {
	Kind       ImportKind
	Visitors   []VisitorRecord
	Weather    []WeatherRecord
	ImportedAt time.Time
}

// Len returns the number of records in the batch.
func (b ImportedBatch) Len() int {
	if b.Kind == ImportWeather {
		return len(b.Weather)
	}
	return len(b.Visitors)
}

// LiveVisitorCount is the most recent scraped occupancy figure.
type LiveVisitorCount struct {
	VisitorCount int       `json:"visitor_count" db:"visitor_count"`
	Timestamp    time.Time `json:"timestamp" db:"timestamp"`
}

// VisitorForecast is a predicted visitor count for one day.
type VisitorForecast struct {
	Date              string          `json:"date"`
	PredictedVisitors int             `json:"predicted_visitors"`
	ConfidenceLower   int             `json:"confidence_lower"`
	ConfidenceUpper   int             `json:"confidence_upper"`
	WinterBreak       bool            `json:"winter_break"`
	Weather           WeatherSnapshot `json:"weather_forecast"`
}

// PeakDay is the busiest day of a year.
type PeakDay struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// YearlyComparison summarizes one calendar year of visitor data.
type YearlyComparison struct {
	Year          int            `json:"year"`
	TotalVisitors int            `json:"total_visitors"`
	AverageDaily  int            `json:"average_daily"`
	PeakDay       PeakDay        `json:"peak_day"`
	Months        map[string]int `json:"months"`
}

// ErrNotFound is returned by lookups that found no row.
var ErrNotFound = errors.New("not found")
