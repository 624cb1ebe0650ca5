package pipeline

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/swim-forecast-service/internal/domain"
)

// errIncomplete marks a row without its required columns. Such rows are
// dropped in every mode.
var errIncomplete = errors.New("missing required column")

// createdAtLayouts are accepted for the optional visitor created_at column.
var createdAtLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	domain.DateLayout,
}

func visitorFromRow(r row, now time.Time) (domain.VisitorRecord, error) {
	rawDate, rawCount := r.get("date"), r.get("count")
	if rawDate == "" || rawCount == "" {
		return domain.VisitorRecord{}, errIncomplete
	}

	date, err := domain.FormatDate(rawDate)
	if err != nil {
		return domain.VisitorRecord{}, fmt.Errorf("line %d: %w", r.line, err)
	}
	count, err := strconv.Atoi(rawCount)
	if err != nil {
		return domain.VisitorRecord{}, fmt.Errorf("line %d: count %q is not an integer", r.line, rawCount)
	}
	if count < 0 {
		return domain.VisitorRecord{}, fmt.Errorf("line %d: negative count %d", r.line, count)
	}

	createdAt := now
	if v := r.get("created_at"); v != "" {
		createdAt, err = parseCreatedAt(v)
		if err != nil {
			return domain.VisitorRecord{}, fmt.Errorf("line %d: %w", r.line, err)
		}
	}

	return domain.VisitorRecord{
		Date:          date,
		VisitorCount:  count,
		DayOfWeek:     optional(r.get("day_of_week")),
		IsWeekend:     r.raw("is_weekend") == "1",
		IsHoliday:     r.raw("is_holiday") == "1",
		IsSchoolBreak: r.raw("is_school_break") == "1",
		SpecialEvent:  optional(r.get("special_event")),
		CreatedAt:     createdAt,
	}, nil
}

func weatherFromRow(r row, now time.Time) (domain.WeatherRecord, error) {
	rawDate, rawTemp, condition := r.get("date"), r.get("temperature"), r.get("condition")
	if rawDate == "" || rawTemp == "" || condition == "" {
		return domain.WeatherRecord{}, errIncomplete
	}

	date, err := domain.FormatDate(rawDate)
	if err != nil {
		return domain.WeatherRecord{}, fmt.Errorf("line %d: %w", r.line, err)
	}
	// Decimal commas come from German spreadsheet exports.
	temp, err := strconv.ParseFloat(strings.Replace(rawTemp, ",", ".", 1), 64)
	if err != nil {
		return domain.WeatherRecord{}, fmt.Errorf("line %d: temperature %q is not a number", r.line, rawTemp)
	}

	return domain.WeatherRecord{
		Date:        date,
		Temperature: temp,
		Condition:   condition,
		CreatedAt:   now,
	}, nil
}

func parseCreatedAt(v string) (time.Time, error) {
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("created_at %q has an unknown format", v)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
