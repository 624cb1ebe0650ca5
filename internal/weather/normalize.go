package weather

import (
	"strings"
	"time"

	"github.com/couchcryptid/swim-forecast-service/internal/domain"
)

const (
	forecastDays = 5
	noonMarker   = "12:00:00"
)

func currentSnapshot(c Conditions, now time.Time) domain.WeatherSnapshot {
	precip := rainAmount(c.Rain1h)
	if precip == 0 {
		precip = rainAmount(c.Rain3h)
	}
	return snapshot(c, now.Format(domain.DateLayout), precip)
}

// dailyForecast groups 3-hour entries by the date part of their timestamp and
// keeps one entry per day: the noon entry when present, otherwise the first.
// Days stay in the order the provider listed them.
func dailyForecast(entries []Conditions) []domain.WeatherSnapshot {
	var order []string
	groups := make(map[string][]Conditions)
	for _, e := range entries {
		date, _, _ := strings.Cut(e.Time, " ")
		if _, seen := groups[date]; !seen {
			order = append(order, date)
		}
		groups[date] = append(groups[date], e)
	}

	out := make([]domain.WeatherSnapshot, 0, min(len(order), forecastDays))
	for _, date := range order[:min(len(order), forecastDays)] {
		group := groups[date]
		pick := group[0]
		for _, e := range group {
			if strings.Contains(e.Time, noonMarker) {
				pick = e
				break
			}
		}
		out = append(out, snapshot(pick, date, rainAmount(pick.Rain3h)))
	}
	return out
}

func snapshot(c Conditions, date string, precip float64) domain.WeatherSnapshot {
	return domain.WeatherSnapshot{
		Date:          date,
		Temp:          c.Temp,
		FeelsLike:     c.FeelsLike,
		Humidity:      c.Humidity,
		Description:   c.Description,
		Icon:          c.Icon,
		Precipitation: precip,
		WindSpeed:     c.WindSpeed,
	}
}

func rainAmount(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
