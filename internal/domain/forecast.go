package domain

import (
	"math"
	"time"
)

const (
	weekdayBaseVisitors = 400
	weekendBaseVisitors = 850
	confidencePercent   = 15
)

// PredictVisitors estimates the visitor count for a forecast day.
// See the package documentation for the formula.
func PredictVisitors(weather WeatherSnapshot) VisitorForecast {
	base := float64(weekdayBaseVisitors)
	if isWeekendDate(weather.Date) {
		base = weekendBaseVisitors
	}

	tempBoost := math.Min(math.Max(weather.Temp-20, 0)/10, 1)
	rain := 1.0
	if weather.Precipitation > 0 {
		rain = 0.8 - weather.Precipitation/20
	}

	predicted := int(math.Floor(base * (1 + tempBoost*0.5) * rain))
	if predicted < 0 {
		predicted = 0
	}

	var winterBreak bool
	if t, err := time.Parse(DateLayout, weather.Date); err == nil {
		winterBreak = IsWinterBreak(t)
	}

	return VisitorForecast{
		Date:              weather.Date,
		PredictedVisitors: predicted,
		ConfidenceLower:   predicted * (100 - confidencePercent) / 100,
		ConfidenceUpper:   predicted * (100 + confidencePercent) / 100,
		WinterBreak:       winterBreak,
		Weather:           weather,
	}
}

// PredictVisitorsForForecast maps PredictVisitors over a daily weather forecast.
func PredictVisitorsForForecast(forecast []WeatherSnapshot) []VisitorForecast {
	out := make([]VisitorForecast, 0, len(forecast))
	for _, day := range forecast {
		out = append(out, PredictVisitors(day))
	}
	return out
}
