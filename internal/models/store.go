package models

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("entity not found")

// PerformanceStore is the storage surface the generation engine depends on.
// db.Postgres implements it for production use; InMemoryPerformanceStore
// backs tests and ephemeral runs.
type PerformanceStore interface {
	// GetCampaignFlight resolves a campaign and its flight window.
	// Returns ErrNotFound if either the campaign or its flight is absent.
	GetCampaignFlight(ctx context.Context, campaignID int) (*Campaign, *Flight, error)

	// ReplaceHourlyPerformance writes a generated batch for one campaign.
	// When replace is true all prior rows for the campaign are deleted
	// first. The whole operation is atomic: on error no partial state is
	// observable. Returns the number of raw rows written.
	ReplaceHourlyPerformance(ctx context.Context, campaignID int, raw []RawHourlyMetrics, derived []DerivedHourlyMetrics, replace bool) (int, error)
}
