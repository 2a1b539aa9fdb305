package bonds

import (
	"math"
	"time"

	"github.com/aristath/quantcore/internal/domain"
)

const daysPerYear = 365.25

// schedule describes the remaining coupon periods of a bond at a valuation date
type schedule struct {
	periods         int     // coupon dates strictly after the valuation date
	accrualFraction float64 // elapsed share of the current coupon period, in [0, 1)
}

// daysBetween returns the number of calendar days from start to end (ACT)
func daysBetween(start, end time.Time) float64 {
	return math.Round(end.Sub(start).Hours() / 24)
}

// YearsToMaturity measures the remaining life of a bond in ACT/365.25 years
func YearsToMaturity(b domain.Bond, valuation time.Time) float64 {
	return daysBetween(valuation, b.Maturity) / daysPerYear
}

// addMonths shifts t by n months, clamping the day to the end of the target month
func addMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	target := first.AddDate(0, n, 0)
	lastDay := target.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(target.Year(), target.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// buildSchedule rolls coupon dates backward from maturity.
// The count equals ceil(yearsToMaturity × frequency) without day-count noise on exact anniversaries.
// Frequencies that do not divide twelve months use equal ACT/365.25 periods.
func buildSchedule(b domain.Bond, valuation time.Time) schedule {
	if 12%b.Frequency == 0 {
		months := 12 / b.Frequency

		periods := 1
		next := b.Maturity
		prev := addMonths(b.Maturity, -months)
		for prev.After(valuation) {
			periods++
			next = prev
			prev = addMonths(b.Maturity, -months*periods)
		}

		inPeriod := daysBetween(prev, next)
		elapsed := daysBetween(prev, valuation)
		fraction := 0.0
		if inPeriod > 0 {
			fraction = elapsed / inPeriod
		}
		return schedule{periods: periods, accrualFraction: clamp(fraction, 0, 1)}
	}

	remaining := daysBetween(valuation, b.Maturity)
	periodDays := daysPerYear / float64(b.Frequency)
	periods := int(math.Ceil(remaining / periodDays))
	if periods < 1 {
		periods = 1
	}
	elapsed := float64(periods)*periodDays - remaining
	return schedule{periods: periods, accrualFraction: clamp(elapsed/periodDays, 0, 1)}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
