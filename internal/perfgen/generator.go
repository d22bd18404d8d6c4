package perfgen

import (
	"math"
	"math/rand"
	"time"

	"github.com/patrickwarner/adsynth/internal/models"
)

// videoAssetSeconds is the reference creative length used for watch-time
// estimation.
const videoAssetSeconds = 30.0

// GenerateHour produces the raw metric row for one campaign-hour. All
// randomness flows through the provided stream in a fixed draw order, so a
// fixed seed reproduces byte-identical rows. The generator never fails on
// any seed: funnel consistency is enforced by a single clamping pass after
// sampling rather than by assertions.
func GenerateHour(campaignID int, hour time.Time, factor float64, rng *rand.Rand) models.RawHourlyMetrics {
	m := models.RawHourlyMetrics{
		CampaignID: campaignID,
		HourTS:     hour,
	}

	// Delivery volume anchors the whole funnel.
	m.Impressions = max(1, posRound(float64(uniformInt(rng, 1000, 10000))*factor))

	// Click-through interactions.
	ctr := clampF(uniform(rng, 0.001, 0.02)*uniform(rng, 0.8, 1.2)*factor, 0.0001, 0.05)
	m.Clicks = posRound(float64(m.Impressions) * ctr)

	// Video starts.
	startRate := clampF(uniform(rng, 0.80, 0.95)*factor, 0.70, 0.99)
	m.VideoStarts = posRound(float64(m.Impressions) * startRate)

	// Quartile completion rates, drawn independently. Ordering is not
	// enforced here; enforceFunnelConsistency applies the monotone chain.
	m.VideoQ25 = posRound(float64(m.VideoStarts) * uniform(rng, 0.70, 0.95))
	m.VideoQ50 = posRound(float64(m.VideoStarts) * uniform(rng, 0.55, 0.90))
	m.VideoQ75 = posRound(float64(m.VideoStarts) * uniform(rng, 0.40, 0.80))
	m.VideoQ100 = posRound(float64(m.VideoStarts) * uniform(rng, 0.25, 0.70))

	// Supply funnel. Each stage keeps a floor relative to its parent so the
	// chain stays plausible on extreme draws.
	m.Requests = posRound(float64(m.Impressions) * uniform(rng, 1.1, 1.8))
	m.Responses = max(int64(0.9*float64(m.Requests))+1,
		posRound(float64(m.Impressions)*uniform(rng, 0.92, 1.04)))
	m.EligibleImpressions = max(int64(0.8*float64(m.Responses))+1,
		posRound(float64(m.Impressions)*uniform(rng, 0.90, 0.99)))
	m.AuctionsWon = min(m.EligibleImpressions,
		max(int64(0.8*float64(m.EligibleImpressions))+1,
			posRound(float64(m.Impressions)*uniform(rng, 0.90, 0.99))))

	// Quality: viewability stays high regardless of hour, audibility skews
	// up in the evening band.
	m.ViewableImpressions = posRound(float64(m.Impressions) * uniform(rng, 0.90, 0.99))
	eveningScale := 0.95
	if isEvening(hour) {
		eveningScale = 1.05
	}
	audibility := clampF(uniform(rng, 0.35, 0.80)*eveningScale, 0.20, 0.95)
	m.AudibleImpressions = posRound(float64(m.Impressions) * audibility)

	// Engagement: busy hours see fewer skips.
	skipRate := clampF(uniform(rng, 0.10, 0.40)*(2.0-math.Min(1.5, factor)), 0.05, 0.60)
	m.Skips = posRound(float64(m.VideoStarts) * skipRate)
	m.QRScans = posRound(float64(m.Impressions) * uniform(rng, 0.0003, 0.006))
	m.InteractiveEngagements = posRound(float64(m.Impressions) * uniform(rng, 0.001, 0.02))

	// Spend in integer cents. Demand pressure nudges the clearing CPM.
	cpmCents := posRound(float64(uniformInt(rng, 1200, 4500)) * uniform(rng, 0.9, 1.1) * (0.95 + 0.1*math.Min(1.5, factor)))
	m.SpendCents = m.Impressions * cpmCents / 1000
	if m.Impressions > 0 {
		m.EffectiveCPMCents = m.SpendCents * 1000 / m.Impressions
	}

	// Reliability counters scale with request volume.
	m.ErrorCount = posRound(float64(m.Requests) * uniform(rng, 0.0005, 0.004))
	m.TimeoutCount = posRound(float64(m.Requests) * uniform(rng, 0.0005, 0.003))

	// Audience: heavier hours push frequency up, reach follows by division.
	m.Frequency = clampCount(posRound(float64(uniformInt(rng, 1, 4))*(1.0+0.15*math.Max(0, factor-1.0))), 1, 5)
	m.Reach = max(1, m.Impressions/m.Frequency)

	enforceFunnelConsistency(&m)

	m.AvgWatchTimeSeconds = estimateAvgWatchTime(videoAssetSeconds, m.VideoStarts, m.VideoQ25, m.VideoQ50, m.VideoQ75, m.VideoQ100)
	m.AudienceMix = AudienceMix(hour)
	fillTemporalBreakdown(&m, hour)

	return m
}

// enforceFunnelConsistency is the single invariant step applied after
// sampling. It forces the quartile chain monotone, caps every per-impression
// counter at the impression count, and keeps skips within video starts. The
// generator clamps here instead of asserting so no seed can fail.
func enforceFunnelConsistency(m *models.RawHourlyMetrics) {
	m.VideoStarts = min(m.VideoStarts, m.Impressions)
	m.VideoQ25 = min(m.VideoQ25, m.VideoStarts)
	m.VideoQ50 = min(m.VideoQ50, m.VideoQ25)
	m.VideoQ75 = min(m.VideoQ75, m.VideoQ50)
	m.VideoQ100 = min(m.VideoQ100, m.VideoQ75)

	// Rounding can land realized viewability a fraction under the 0.90 draw
	// floor; pin it back so the stored rate honors the band.
	viewFloor := int64(math.Ceil(0.90 * float64(m.Impressions)))
	m.ViewableImpressions = min(max(m.ViewableImpressions, viewFloor), m.Impressions)
	m.AudibleImpressions = min(m.AudibleImpressions, m.Impressions)
	m.Clicks = min(m.Clicks, m.Impressions)
	m.QRScans = min(m.QRScans, m.Impressions)
	m.InteractiveEngagements = min(m.InteractiveEngagements, m.Impressions)
	m.Reach = min(m.Reach, m.Impressions)

	m.Skips = min(m.Skips, m.VideoStarts)
}

// fillTemporalBreakdown populates the denormalized time columns used by
// downstream rollups.
func fillTemporalBreakdown(m *models.RawHourlyMetrics, hour time.Time) {
	utc := hour.UTC()
	m.HourOfDay = utc.Hour()
	m.DayOfWeek = mondayIndexedWeekday(utc)
	m.IsBusinessHour = m.DayOfWeek < 5 && m.HourOfDay >= 9 && m.HourOfDay <= 17
	m.HumanReadable = utc.Format("2006-01-02 15:04:05 MST")

	day := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
	m.DailyDayDate = day
	m.WeeklyStartDayDate = day.AddDate(0, 0, -mondayIndexedWeekday(day))
	m.MonthlyStartDayDate = time.Date(utc.Year(), utc.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// uniform draws a float in [lo, hi) from the stream.
func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + (hi-lo)*rng.Float64()
}

// uniformInt draws an integer in [lo, hi] inclusive from the stream.
func uniformInt(rng *rand.Rand, lo, hi int) int {
	return lo + rng.Intn(hi-lo+1)
}

// posRound rounds to the nearest integer, flooring negatives to zero.
func posRound(v float64) int64 {
	if v <= 0 {
		return 0
	}
	return int64(math.Round(v))
}

// clampF bounds a float to [lo, hi].
func clampF(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// clampCount bounds a count to [lo, hi].
func clampCount(v, lo, hi int64) int64 {
	return max(lo, min(hi, v))
}
