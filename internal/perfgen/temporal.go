package perfgen

import (
	"math"
	"time"
)

// Factor computes the multiplicative traffic scale for one hour of a flight.
// It is the product of four independent seasonal components: an hour-of-day
// boost, a day-of-week dampener, a logistic flight ramp with a weekly
// oscillation, and an annual cosine cycle. The function is pure; identical
// inputs always produce the identical float.
func Factor(flightStart, hour, flightEnd time.Time) float64 {
	return hourlyBoost(hour) * dayOfWeekFactor(hour) * rampFactor(flightStart, hour, flightEnd) * annualFactor(hour)
}

// hourlyBoost applies a Gaussian uplift across business hours peaking near 13:00.
func hourlyBoost(t time.Time) float64 {
	h := t.Hour()
	if h >= 9 && h <= 17 {
		x := (float64(h) - 13.0) / 2.5
		return 1.0 + 0.45*math.Exp(-0.5*x*x)
	}
	return 1.0
}

// dayOfWeekFactor dampens Friday and the weekend slightly.
func dayOfWeekFactor(t time.Time) float64 {
	switch mondayIndexedWeekday(t) {
	case 4:
		return 0.97
	case 5:
		return 0.88
	case 6:
		return 0.92
	default:
		return 1.00
	}
}

// rampFactor follows a logistic S-curve over the elapsed fraction of the
// flight, modulated by a gentle weekly sine oscillation.
func rampFactor(start, current, end time.Time) float64 {
	totalHours := math.Max(1.0, end.Sub(start).Hours())
	elapsed := current.Sub(start).Hours()
	t := math.Min(1.0, math.Max(0.0, elapsed/totalHours))
	s := 1.0 / (1.0 + math.Exp(-(t-0.5)*6.0))
	ramp := 0.85 + 0.30*s
	weekly := 1.0 + 0.03*math.Sin(2.0*math.Pi*elapsed/168.0)
	return ramp * weekly
}

// annualFactor follows a cosine over day-of-year rescaled to roughly [0.8, 1.0].
func annualFactor(t time.Time) float64 {
	x := 2.0 * math.Pi * float64(t.YearDay()-1) / 365.0
	return (math.Cos(x)+1.0)/10.0 + 0.8
}

// mondayIndexedWeekday reports the weekday with Monday as 0 and Sunday as 6.
func mondayIndexedWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
