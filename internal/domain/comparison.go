package domain

import (
	"math"
	"strconv"
	"time"
)

// ComparisonYears is how many calendar years a comparison covers,
// counting the current one.
const ComparisonYears = 3

// BuildYearlyComparisons summarizes visitor records for currentYear and the
// two years before it, newest first. Records outside those years are ignored.
// Records are expected in ascending date order; on a tie the later day wins
// the peak.
func BuildYearlyComparisons(records []VisitorRecord, currentYear int) []YearlyComparison {
	out := make([]YearlyComparison, 0, ComparisonYears)
	for i := range ComparisonYears {
		year := currentYear - i
		out = append(out, summarizeYear(records, year))
	}
	return out
}

func summarizeYear(records []VisitorRecord, year int) YearlyComparison {
	months := make(map[string]int, 12)
	for m := time.January; m <= time.December; m++ {
		months[m.String()] = 0
	}

	var (
		total int
		days  int
		peak  = PeakDay{Date: strconv.Itoa(year) + "-01-01"}
		first = true
	)
	for _, r := range records {
		t, err := time.Parse(DateLayout, r.Date)
		if err != nil || t.Year() != year {
			continue
		}
		total += r.VisitorCount
		days++
		months[t.Month().String()] += r.VisitorCount
		if first || r.VisitorCount >= peak.Count {
			peak = PeakDay{Date: r.Date, Count: r.VisitorCount}
			first = false
		}
	}

	return YearlyComparison{
		Year:          year,
		TotalVisitors: total,
		AverageDaily:  int(math.Round(float64(total) / float64(max(days, 1)))),
		PeakDay:       peak,
		Months:        months,
	}
}
