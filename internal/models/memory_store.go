package models

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"
)

// perfSnapshot is an immutable view of all stored data. Writers build a new
// snapshot and swap it in atomically, so readers never block.
type perfSnapshot struct {
	advertisers map[int]Advertiser
	campaigns   map[int]Campaign
	flights     map[int]Flight // keyed by campaign ID, one flight per campaign
	raw         map[int][]RawHourlyMetrics
	derived     map[int][]DerivedHourlyMetrics
}

// InMemoryPerformanceStore implements PerformanceStore with atomic snapshot
// updates. It backs engine tests and ephemeral demo runs where no Postgres
// is available.
type InMemoryPerformanceStore struct {
	data   atomic.Pointer[perfSnapshot]
	nextID atomic.Int64
}

// NewInMemoryPerformanceStore creates an empty store.
func NewInMemoryPerformanceStore() *InMemoryPerformanceStore {
	s := &InMemoryPerformanceStore{}
	s.data.Store(&perfSnapshot{
		advertisers: make(map[int]Advertiser),
		campaigns:   make(map[int]Campaign),
		flights:     make(map[int]Flight),
		raw:         make(map[int][]RawHourlyMetrics),
		derived:     make(map[int][]DerivedHourlyMetrics),
	})
	return s
}

func (s *InMemoryPerformanceStore) clone() *perfSnapshot {
	cur := s.data.Load()
	next := &perfSnapshot{
		advertisers: make(map[int]Advertiser, len(cur.advertisers)),
		campaigns:   make(map[int]Campaign, len(cur.campaigns)),
		flights:     make(map[int]Flight, len(cur.flights)),
		raw:         make(map[int][]RawHourlyMetrics, len(cur.raw)),
		derived:     make(map[int][]DerivedHourlyMetrics, len(cur.derived)),
	}
	for id, a := range cur.advertisers {
		next.advertisers[id] = a
	}
	for id, c := range cur.campaigns {
		next.campaigns[id] = c
	}
	for id, f := range cur.flights {
		next.flights[id] = f
	}
	for id, rows := range cur.raw {
		next.raw[id] = rows
	}
	for id, rows := range cur.derived {
		next.derived[id] = rows
	}
	return next
}

// PutAdvertiser stores an advertiser, assigning an ID when zero.
func (s *InMemoryPerformanceStore) PutAdvertiser(a *Advertiser) {
	if a.ID == 0 {
		a.ID = int(s.nextID.Add(1))
	}
	next := s.clone()
	next.advertisers[a.ID] = *a
	s.data.Store(next)
}

// PutCampaign stores a campaign, assigning an ID when zero.
func (s *InMemoryPerformanceStore) PutCampaign(c *Campaign) {
	if c.ID == 0 {
		c.ID = int(s.nextID.Add(1))
	}
	next := s.clone()
	next.campaigns[c.ID] = *c
	s.data.Store(next)
}

// PutFlight stores the flight for a campaign, replacing any prior one.
func (s *InMemoryPerformanceStore) PutFlight(f *Flight) {
	if f.ID == 0 {
		f.ID = int(s.nextID.Add(1))
	}
	next := s.clone()
	next.flights[f.CampaignID] = *f
	s.data.Store(next)
}

// GetCampaignFlight resolves a campaign and its flight window.
func (s *InMemoryPerformanceStore) GetCampaignFlight(ctx context.Context, campaignID int) (*Campaign, *Flight, error) {
	data := s.data.Load()
	c, ok := data.campaigns[campaignID]
	if !ok {
		return nil, nil, ErrNotFound
	}
	f, ok := data.flights[campaignID]
	if !ok {
		return nil, nil, ErrNotFound
	}
	return &c, &f, nil
}

// ReplaceHourlyPerformance swaps in the generated batch for one campaign.
// The snapshot swap makes the delete+insert atomic by construction: on a
// uniqueness conflict nothing is stored, matching the all-or-nothing
// transaction of the Postgres implementation.
func (s *InMemoryPerformanceStore) ReplaceHourlyPerformance(ctx context.Context, campaignID int, raw []RawHourlyMetrics, derived []DerivedHourlyMetrics, replace bool) (int, error) {
	next := s.clone()
	if replace {
		delete(next.raw, campaignID)
		delete(next.derived, campaignID)
	}

	seen := make(map[time.Time]bool, len(next.raw[campaignID])+len(raw))
	for _, row := range next.raw[campaignID] {
		seen[row.HourTS] = true
	}
	for _, row := range raw {
		if seen[row.HourTS] {
			return 0, fmt.Errorf("hourly row exists for campaign %d at %s", campaignID, row.HourTS.Format(time.RFC3339))
		}
		seen[row.HourTS] = true
	}

	rawCopy := make([]RawHourlyMetrics, 0, len(next.raw[campaignID])+len(raw))
	rawCopy = append(rawCopy, next.raw[campaignID]...)
	rawCopy = append(rawCopy, raw...)
	derivedCopy := make([]DerivedHourlyMetrics, 0, len(next.derived[campaignID])+len(derived))
	derivedCopy = append(derivedCopy, next.derived[campaignID]...)
	derivedCopy = append(derivedCopy, derived...)
	next.raw[campaignID] = rawCopy
	next.derived[campaignID] = derivedCopy
	s.data.Store(next)
	return len(raw), nil
}

// RawRows returns the stored raw rows for a campaign ordered by hour.
func (s *InMemoryPerformanceStore) RawRows(campaignID int) []RawHourlyMetrics {
	data := s.data.Load()
	rows := data.raw[campaignID]
	out := make([]RawHourlyMetrics, len(rows))
	copy(out, rows)
	sort.Slice(out, func(i, j int) bool { return out[i].HourTS.Before(out[j].HourTS) })
	return out
}

// DerivedRows returns the stored derived rows for a campaign ordered by hour.
func (s *InMemoryPerformanceStore) DerivedRows(campaignID int) []DerivedHourlyMetrics {
	data := s.data.Load()
	rows := data.derived[campaignID]
	out := make([]DerivedHourlyMetrics, len(rows))
	copy(out, rows)
	sort.Slice(out, func(i, j int) bool { return out[i].HourTS.Before(out[j].HourTS) })
	return out
}

// RowCountByHour reports how many raw rows exist per hour timestamp,
// letting tests assert the one-row-per-hour invariant.
func (s *InMemoryPerformanceStore) RowCountByHour(campaignID int) map[time.Time]int {
	data := s.data.Load()
	counts := make(map[time.Time]int)
	for _, row := range data.raw[campaignID] {
		counts[row.HourTS]++
	}
	return counts
}
