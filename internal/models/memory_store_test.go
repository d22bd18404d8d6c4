package models

import (
	"context"
	"errors"
	"testing"
	"time"
)

func hourRow(campaignID int, hour time.Time, impressions int64) RawHourlyMetrics {
	return RawHourlyMetrics{
		CampaignID:  campaignID,
		HourTS:      hour,
		Impressions: impressions,
	}
}

func TestGetCampaignFlight(t *testing.T) {
	store := NewInMemoryPerformanceStore()
	ctx := context.Background()

	if _, _, err := store.GetCampaignFlight(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing campaign: got %v, expected ErrNotFound", err)
	}

	store.PutCampaign(&Campaign{ID: 1, Name: "No Flight Yet", Status: StatusDraft})
	if _, _, err := store.GetCampaignFlight(ctx, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("campaign without flight: got %v, expected ErrNotFound", err)
	}

	store.PutFlight(&Flight{
		CampaignID: 1,
		StartDate:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	})
	camp, flight, err := store.GetCampaignFlight(ctx, 1)
	if err != nil {
		t.Fatalf("resolve campaign flight: %v", err)
	}
	if camp.Name != "No Flight Yet" {
		t.Errorf("resolved campaign %q, expected %q", camp.Name, "No Flight Yet")
	}
	if flight.CampaignID != 1 {
		t.Errorf("resolved flight for campaign %d, expected 1", flight.CampaignID)
	}
}

func TestPutAssignsIDs(t *testing.T) {
	store := NewInMemoryPerformanceStore()

	a := Advertiser{Name: "Acme Brands"}
	store.PutAdvertiser(&a)
	if a.ID == 0 {
		t.Fatal("advertiser ID was not assigned")
	}

	c := Campaign{AdvertiserID: a.ID, Name: "Winter Awareness Push"}
	store.PutCampaign(&c)
	if c.ID == 0 {
		t.Fatal("campaign ID was not assigned")
	}
	if c.ID == a.ID {
		t.Fatalf("campaign reused advertiser ID %d", a.ID)
	}

	keep := Campaign{ID: 500, Name: "Pinned ID"}
	store.PutCampaign(&keep)
	if keep.ID != 500 {
		t.Fatalf("explicit ID was rewritten to %d", keep.ID)
	}
}

func TestReplaceHourlyPerformance(t *testing.T) {
	store := NewInMemoryPerformanceStore()
	ctx := context.Background()
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	first := []RawHourlyMetrics{
		hourRow(7, day, 100),
		hourRow(7, day.Add(time.Hour), 200),
	}
	n, err := store.ReplaceHourlyPerformance(ctx, 7, first, nil, false)
	if err != nil {
		t.Fatalf("initial insert: %v", err)
	}
	if n != 2 {
		t.Fatalf("initial insert stored %d rows, expected 2", n)
	}

	// Disjoint hours append when replace is off.
	more := []RawHourlyMetrics{hourRow(7, day.Add(2*time.Hour), 300)}
	if _, err := store.ReplaceHourlyPerformance(ctx, 7, more, nil, false); err != nil {
		t.Fatalf("append disjoint hours: %v", err)
	}
	if got := len(store.RawRows(7)); got != 3 {
		t.Fatalf("got %d rows after append, expected 3", got)
	}

	// An overlapping hour without replace is rejected and nothing from the
	// batch sticks, including its non-overlapping rows.
	overlap := []RawHourlyMetrics{
		hourRow(7, day.Add(5*time.Hour), 500),
		hourRow(7, day.Add(time.Hour), 999),
	}
	if _, err := store.ReplaceHourlyPerformance(ctx, 7, overlap, nil, false); err == nil {
		t.Fatal("expected a uniqueness conflict, got nil")
	}
	rows := store.RawRows(7)
	if len(rows) != 3 {
		t.Fatalf("conflict left %d rows, expected the original 3", len(rows))
	}
	if rows[1].Impressions != 200 {
		t.Fatalf("conflict overwrote an existing row: %+v", rows[1])
	}

	// Replace swaps out everything previously stored for the campaign.
	replacement := []RawHourlyMetrics{hourRow(7, day.Add(time.Hour), 42)}
	n, err = store.ReplaceHourlyPerformance(ctx, 7, replacement, nil, true)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if n != 1 {
		t.Fatalf("replace stored %d rows, expected 1", n)
	}
	rows = store.RawRows(7)
	if len(rows) != 1 || rows[0].Impressions != 42 {
		t.Fatalf("replace left %+v, expected the single new row", rows)
	}

	// A batch that repeats an hour fails even with replace on, and the
	// failed call leaves the prior rows in place.
	dup := []RawHourlyMetrics{hourRow(7, day, 1), hourRow(7, day, 2)}
	if _, err := store.ReplaceHourlyPerformance(ctx, 7, dup, nil, true); err == nil {
		t.Fatal("expected duplicate-hour conflict inside the batch, got nil")
	}
	rows = store.RawRows(7)
	if len(rows) != 1 || rows[0].Impressions != 42 {
		t.Fatalf("failed replace disturbed stored rows: %+v", rows)
	}

	for hour, count := range store.RowCountByHour(7) {
		if count != 1 {
			t.Fatalf("hour %v has %d rows, expected exactly one", hour, count)
		}
	}

	// Callers get copies, not the backing slice.
	rows[0].Impressions = 7
	if got := store.RawRows(7)[0].Impressions; got != 42 {
		t.Fatalf("mutating a returned row changed the store: %d", got)
	}
}
