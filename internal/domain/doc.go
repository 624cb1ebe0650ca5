// Package domain models the visitor and weather data behind the swim
// forecast dashboard.
//
// # Data Sources
//
// Visitor counts come from the facility's own turnstile exports, uploaded as
// CSV files. Historical weather comes either from CSV exports (daily maximum
// temperature plus a condition label) or from OpenWeatherMap snapshots
// recorded by the service itself.
//
// # CSV Conventions
//
// Visitor file header (order irrelevant, extra columns ignored):
//
//	date,count[,day_of_week,is_weekend,is_holiday,is_school_break,special_event,created_at]
//
// Weather file header:
//
//	date,temperature,condition
//
// Dates use the German notation with an optional time of day:
//
//	"16.04.2025"        →  2025-04-16
//	"16.04.2025 08:54"  →  2025-04-16 (time discarded)
//	"2025-04-16"        →  passed through unchanged
//
// Boolean flags are "1" for true. Anything else, including an empty cell or
// "true", is false.
//
// # Weather Snapshots
//
// A [WeatherSnapshot] is the normalized reading handed to dashboard consumers.
// It is distinct from the import-side [WeatherRecord]: snapshots carry feels
// like temperature, humidity, wind and the provider icon code, while imported
// records only carry temperature and a free-text condition.
//
// # Visitor Forecast
//
// [PredictVisitors] is a placeholder heuristic, not a model:
//
//	base      = 850 on weekends, 400 on weekdays
//	tempBoost = clamp((temp - 20) / 10, 0, 1)
//	rain      = 0.8 - precipitation/20 when it rains, else 1
//	predicted = floor(base * (1 + tempBoost/2) * rain)
//
// Confidence bounds are a flat ±15%.
package domain
