package models

import "time"

// Campaign statuses. Generation only requires the campaign to exist; status
// is carried for seeding and reporting.
const (
	StatusDraft     = "draft"
	StatusActive    = "active"
	StatusPaused    = "paused"
	StatusCompleted = "completed"
)

// Campaign objectives.
const (
	ObjectiveAwareness     = "awareness"
	ObjectiveConsideration = "consideration"
	ObjectiveConversion    = "conversion"
)

// Advertiser owns one or more campaigns. It exists so seeded demo data has a
// realistic shape; the generator itself never reads advertiser fields.
type Advertiser struct {
	ID           int       `json:"id"`            // Unique identifier for the advertiser.
	Name         string    `json:"name"`          // Brand or company name (e.g., "Acme Motors").
	Status       string    `json:"status"`        // One of the Status* constants.
	ContactEmail string    `json:"contact_email"` // Primary contact address.
	AgencyName   string    `json:"agency_name"`   // Buying agency, if any.
	CreatedAt    time.Time `json:"created_at"`
}

// Campaign is the unit performance metrics are generated for. Delivery windows
// live on the Flight; the campaign itself is a lightweight container for
// grouping and reporting.
type Campaign struct {
	ID             int       `json:"id"`               // Unique identifier for the campaign.
	AdvertiserID   int       `json:"advertiser_id"`    // Owning advertiser.
	Name           string    `json:"name"`             // Human-readable name (e.g., "Q4 Holiday Promotion").
	Status         string    `json:"status"`           // One of the Status* constants.
	Objective      string    `json:"objective"`        // One of the Objective* constants.
	TargetCPMCents int       `json:"target_cpm_cents"` // Target CPM in US cents, informational.
	CreatedAt      time.Time `json:"created_at"`
}

// Flight is the scheduled delivery window for a campaign. Start and end are
// calendar dates; the hourly window spans StartDate 00:00 UTC through EndDate
// 23:00 UTC inclusive.
type Flight struct {
	ID         int       `json:"id"`
	CampaignID int       `json:"campaign_id"`
	StartDate  time.Time `json:"start_date"` // Date only; time-of-day is ignored.
	EndDate    time.Time `json:"end_date"`   // Date only; inclusive.
	CreatedAt  time.Time `json:"created_at"`
}

// HourlyWindow returns the first and last hour timestamps covered by the
// flight, both inclusive and hour-aligned in UTC.
func (f Flight) HourlyWindow() (time.Time, time.Time) {
	start := time.Date(f.StartDate.Year(), f.StartDate.Month(), f.StartDate.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(f.EndDate.Year(), f.EndDate.Month(), f.EndDate.Day(), 23, 0, 0, 0, time.UTC)
	return start, end
}

// Hours returns every hour timestamp in the flight window in ascending order.
// An inverted window yields an empty slice.
func (f Flight) Hours() []time.Time {
	start, end := f.HourlyWindow()
	if end.Before(start) {
		return nil
	}
	hours := make([]time.Time, 0, int(end.Sub(start)/time.Hour)+1)
	for cur := start; !cur.After(end); cur = cur.Add(time.Hour) {
		hours = append(hours, cur)
	}
	return hours
}
