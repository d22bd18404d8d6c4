package perfgen

import (
	"time"

	"github.com/patrickwarner/adsynth/internal/models"
)

// AudienceMix builds the informational audience composition snapshot for an
// hour. Shares shift toward CTV and younger viewers in evenings and on
// weekends. The breakdown is deterministic per hour and carries no funnel
// invariant.
func AudienceMix(hour time.Time) *models.AudienceMix {
	weekend := mondayIndexedWeekday(hour) >= 5
	evening := isEvening(hour)
	leanBack := weekend || evening

	device := map[string]float64{
		"CTV":     0.30,
		"DESKTOP": 0.30,
		"MOBILE":  0.40,
	}
	if leanBack {
		device["CTV"] = 0.45
		device["DESKTOP"] = 0.20
		device["MOBILE"] = 0.35
	}

	age := map[string]float64{
		"18-24": 0.12,
		"25-34": 0.24,
		"35-44": 0.22,
		"45-54": 0.18,
		"55-64": 0.13,
		"65+":   0.07,
	}
	if leanBack {
		age["18-24"] = 0.16
	}

	return &models.AudienceMix{
		Device: normalizeShares(device),
		Age:    normalizeShares(age),
		Gender: map[string]float64{"F": 0.5, "M": 0.5},
		LifeStage: map[string]float64{
			"SINGLE":     0.35,
			"PARENT":     0.40,
			"EMPTY_NEST": 0.25,
		},
		Interest: map[string]float64{
			"SPORTS":        0.20,
			"ENTERTAINMENT": 0.30,
			"FOOD":          0.20,
			"TECH":          0.15,
			"TRAVEL":        0.15,
		},
	}
}

// normalizeShares rescales a share map so the values sum to 1.0.
func normalizeShares(shares map[string]float64) map[string]float64 {
	var sum float64
	for _, v := range shares {
		sum += v
	}
	if sum == 0 {
		sum = 1.0
	}
	out := make(map[string]float64, len(shares))
	for k, v := range shares {
		out[k] = v / sum
	}
	return out
}

// isEvening reports whether the hour falls in the 18:00-22:00 evening band.
func isEvening(t time.Time) bool {
	h := t.Hour()
	return h >= 18 && h <= 22
}
