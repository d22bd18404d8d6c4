package models

import "time"

// RawHourlyMetrics is one generated row of campaign performance, keyed by
// (CampaignID, HourTS). Counts follow the delivery funnel: requests →
// responses → eligible → auctions won → impressions → viewable/audible →
// video starts → quartiles → clicks/interactions. All counts are
// non-negative integers; spend fields are integer US cents.
type RawHourlyMetrics struct {
	CampaignID int       `json:"campaign_id"`
	HourTS     time.Time `json:"hour_ts"` // UTC, hour-aligned.

	// Supply funnel
	Requests            int64 `json:"requests"`
	Responses           int64 `json:"responses"`
	EligibleImpressions int64 `json:"eligible_impressions"`
	AuctionsWon         int64 `json:"auctions_won"`
	Impressions         int64 `json:"impressions"`

	// Quality
	ViewableImpressions int64 `json:"viewable_impressions"`
	AudibleImpressions  int64 `json:"audible_impressions"`

	// Video funnel. Quartile counts are monotone:
	// VideoQ25 >= VideoQ50 >= VideoQ75 >= VideoQ100.
	VideoStarts         int64   `json:"video_starts"`
	VideoQ25            int64   `json:"video_q25"`
	VideoQ50            int64   `json:"video_q50"`
	VideoQ75            int64   `json:"video_q75"`
	VideoQ100           int64   `json:"video_q100"`
	Skips               int64   `json:"skips"`
	AvgWatchTimeSeconds float64 `json:"avg_watch_time_seconds"` // Estimated from quartiles, 30s reference asset.

	// Interaction
	Clicks                 int64 `json:"clicks"`
	QRScans                int64 `json:"qr_scans"`
	InteractiveEngagements int64 `json:"interactive_engagements"`

	// Audience
	Reach       int64        `json:"reach"`     // Unique viewers, max(1, impressions/frequency).
	Frequency   int64        `json:"frequency"` // Average exposures per viewer, 1..5.
	AudienceMix *AudienceMix `json:"audience_mix,omitempty"`

	// Spend
	SpendCents        int64 `json:"spend_cents"`
	EffectiveCPMCents int64 `json:"effective_cpm_cents"`

	// Reliability
	ErrorCount   int64 `json:"error_count"`
	TimeoutCount int64 `json:"timeout_count"`

	// Temporal breakdown, denormalized for rollup queries.
	HourOfDay           int       `json:"hour_of_day"`   // 0-23.
	DayOfWeek           int       `json:"day_of_week"`   // Monday=0 .. Sunday=6.
	IsBusinessHour      bool      `json:"is_business_hour"`
	HumanReadable       string    `json:"human_readable"` // e.g. "2024-01-01 13:00:00 UTC".
	DailyDayDate        time.Time `json:"daily_day_date"`
	WeeklyStartDayDate  time.Time `json:"weekly_start_day_date"`  // Monday of the row's week.
	MonthlyStartDayDate time.Time `json:"monthly_start_day_date"` // First day of the row's month.
}

// DerivedHourlyMetrics holds the rate projection for one raw row, same key.
// Every field is recomputable from the raw row via safe division and lies in
// [0,1]; it is persisted purely as a query convenience.
type DerivedHourlyMetrics struct {
	CampaignID int       `json:"campaign_id"`
	HourTS     time.Time `json:"hour_ts"`

	CTR                    float64 `json:"ctr"`
	FillRate               float64 `json:"fill_rate"`        // eligible / requests.
	AuctionWinRate         float64 `json:"auction_win_rate"` // auctions won / eligible.
	ResponseRate           float64 `json:"response_rate"`    // responses / requests.
	ViewabilityRate        float64 `json:"viewability_rate"`
	AudibilityRate         float64 `json:"audibility_rate"`
	VideoStartRate         float64 `json:"video_start_rate"`
	VideoCompletionRate    float64 `json:"video_completion_rate"`
	VideoSkipRate          float64 `json:"video_skip_rate"`
	QRScanRate             float64 `json:"qr_scan_rate"`
	InteractiveRate        float64 `json:"interactive_rate"`
	ErrorRate              float64 `json:"error_rate"`
	TimeoutRate            float64 `json:"timeout_rate"`
	SupplyFunnelEfficiency float64 `json:"supply_funnel_efficiency"` // eligible / requests.
}

// AudienceMix is an informational composition snapshot attached to each row.
// Each group maps segment name to share; device and age shares sum to 1.0.
type AudienceMix struct {
	Device    map[string]float64 `json:"device"`
	Age       map[string]float64 `json:"age"`
	Gender    map[string]float64 `json:"gender"`
	LifeStage map[string]float64 `json:"life_stage"`
	Interest  map[string]float64 `json:"interest"`
}
