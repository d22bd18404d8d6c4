package perfgen

import (
	"github.com/patrickwarner/adsynth/internal/models"
)

// Derive computes the rate projection for one raw row. Every quotient goes
// through safeDiv, so a degenerate row (zero impressions, zero video starts)
// yields zero rates rather than NaN. Recomputing from a persisted raw row
// reproduces identical values.
func Derive(raw models.RawHourlyMetrics) models.DerivedHourlyMetrics {
	return models.DerivedHourlyMetrics{
		CampaignID:             raw.CampaignID,
		HourTS:                 raw.HourTS,
		CTR:                    safeDiv(raw.Clicks, raw.Impressions),
		FillRate:               safeDiv(raw.EligibleImpressions, raw.Requests),
		AuctionWinRate:         safeDiv(raw.AuctionsWon, raw.EligibleImpressions),
		ResponseRate:           safeDiv(raw.Responses, raw.Requests),
		ViewabilityRate:        safeDiv(raw.ViewableImpressions, raw.Impressions),
		AudibilityRate:         safeDiv(raw.AudibleImpressions, raw.Impressions),
		VideoStartRate:         safeDiv(raw.VideoStarts, raw.Impressions),
		VideoCompletionRate:    safeDiv(raw.VideoQ100, raw.VideoStarts),
		VideoSkipRate:          safeDiv(raw.Skips, raw.VideoStarts),
		QRScanRate:             safeDiv(raw.QRScans, raw.Impressions),
		InteractiveRate:        safeDiv(raw.InteractiveEngagements, raw.Impressions),
		ErrorRate:              safeDiv(raw.ErrorCount, raw.Requests),
		TimeoutRate:            safeDiv(raw.TimeoutCount, raw.Requests),
		SupplyFunnelEfficiency: safeDiv(raw.EligibleImpressions, raw.Requests),
	}
}

// safeDiv divides two counts, returning 0 when the denominator is not positive.
func safeDiv(n, d int64) float64 {
	if d <= 0 {
		return 0.0
	}
	return float64(n) / float64(d)
}

// estimateAvgWatchTime approximates mean watch seconds from the quartile
// funnel of a fixed-length asset. Viewers fall into five segments between
// successive quartiles, each weighted by its midpoint playback position.
func estimateAvgWatchTime(assetSeconds float64, starts, q25, q50, q75, q100 int64) float64 {
	if starts <= 0 || assetSeconds <= 0 {
		return 0.0
	}
	seg0 := max(0, starts-q25) // 0-25%
	seg1 := max(0, q25-q50)    // 25-50%
	seg2 := max(0, q50-q75)    // 50-75%
	seg3 := max(0, q75-q100)   // 75-100%
	seg4 := max(0, q100)       // 100%

	total := float64(seg0)*assetSeconds*0.125 +
		float64(seg1)*assetSeconds*0.375 +
		float64(seg2)*assetSeconds*0.625 +
		float64(seg3)*assetSeconds*0.875 +
		float64(seg4)*assetSeconds
	return total / float64(starts)
}
