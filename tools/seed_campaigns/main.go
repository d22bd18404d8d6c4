package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/patrickwarner/adsynth/internal/config"
	"github.com/patrickwarner/adsynth/internal/db"
	"github.com/patrickwarner/adsynth/internal/models"
	"github.com/patrickwarner/adsynth/internal/observability"
	"github.com/patrickwarner/adsynth/internal/perfgen"
)

var (
	advCount   = flag.Int("advertisers", 3, "number of advertisers")
	campPerAdv = flag.Int("campaigns", 4, "campaigns per advertiser")
	flightDays = flag.Int("flight-days", 14, "maximum flight length in days")
	seed       = flag.Int64("seed", time.Now().UnixNano(), "rng seed")
	generate   = flag.Bool("generate", false, "regenerate hourly performance for each seeded campaign")
)

func main() {
	flag.Parse()

	logger, err := observability.InitLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg := config.Load()
	pg, err := db.InitPostgres(cfg.PostgresDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect postgres: %v\n", err)
		os.Exit(1)
	}
	defer pg.Close()

	r := rand.New(rand.NewSource(*seed))

	var seeded []models.Campaign

	// Check if the demo advertiser already exists
	var demoExists int
	if err := pg.DB.QueryRowContext(context.Background(), `SELECT COUNT(*) FROM advertisers WHERE name = 'Acme Brands'`).Scan(&demoExists); err != nil {
		logger.Fatal("check demo advertiser", zap.Error(err))
	}

	if demoExists == 0 {
		demo := models.Advertiser{
			Name:         "Acme Brands",
			Status:       models.StatusActive,
			ContactEmail: "media@acmebrands.example",
			AgencyName:   "Horizon Buying Group",
		}
		if err := pg.InsertAdvertiser(&demo); err != nil {
			logger.Fatal("insert demo advertiser", zap.Error(err))
		}

		for _, camp := range demoCampaigns(demo.ID) {
			c := camp
			if err := pg.InsertCampaign(&c); err != nil {
				logger.Fatal("insert demo campaign", zap.Error(err))
			}
			fl := demoFlight(c.ID, c.Name)
			if err := pg.InsertFlight(&fl); err != nil {
				logger.Fatal("insert demo flight", zap.Error(err))
			}
			seeded = append(seeded, c)
		}
	}

	for i := 0; i < *advCount; i++ {
		adv := models.Advertiser{
			Name:         fakeAdvertiserName(r),
			Status:       models.StatusActive,
			ContactEmail: fakeContactEmail(r),
			AgencyName:   fakeAgencyName(r),
		}
		if err := pg.InsertAdvertiser(&adv); err != nil {
			logger.Fatal("insert advertiser", zap.Error(err))
		}

		for c := 0; c < *campPerAdv; c++ {
			camp := randomCampaign(r, adv.ID)
			if err := pg.InsertCampaign(&camp); err != nil {
				logger.Fatal("insert campaign", zap.Error(err))
			}

			fl := randomFlight(r, camp.ID, *flightDays)
			if err := pg.InsertFlight(&fl); err != nil {
				logger.Fatal("insert flight", zap.Error(err))
			}
			seeded = append(seeded, camp)
		}
	}

	fmt.Printf("seeded %d campaigns\n", len(seeded))

	if *generate {
		engine := perfgen.NewEngine(pg, nil, nil, observability.NewNoOpRegistry(), logger)
		totalRows := 0
		for _, camp := range seeded {
			// Derive the campaign seed from the base seed so a rerun with
			// the same -seed reproduces every campaign's rows.
			rows, err := engine.Regenerate(context.Background(), camp.ID, *seed+int64(camp.ID), true)
			if err != nil {
				logger.Fatal("generate performance", zap.Int("campaign_id", camp.ID), zap.Error(err))
			}
			totalRows += rows
		}
		fmt.Printf("generated %d hourly rows across %d campaigns\n", totalRows, len(seeded))
	}
}

// random helpers

var advAdjectives = []string{"Acme", "Prime", "Northwind", "Bluepeak", "Summit", "Brightline", "Cascade"}
var advNouns = []string{"Brands", "Motors", "Outfitters", "Foods", "Travel", "Financial"}

func fakeAdvertiserName(r *rand.Rand) string {
	return fmt.Sprintf("%s %s", advAdjectives[r.Intn(len(advAdjectives))], advNouns[r.Intn(len(advNouns))])
}

var agencyNames = []string{"Horizon Buying Group", "Mediacom Partners", "Adept Media", ""}

func fakeAgencyName(r *rand.Rand) string {
	return agencyNames[r.Intn(len(agencyNames))]
}

func fakeContactEmail(r *rand.Rand) string {
	letters := []rune("abcdefghijklmnopqrstuvwxyz0123456789")
	b := make([]rune, 6)
	for i := range b {
		b[i] = letters[r.Intn(len(letters))]
	}
	return fmt.Sprintf("media-%s@agencymail.example", string(b))
}

func fakeCampaignName(r *rand.Rand) string {
	seasons := []string{"Spring", "Summer", "Fall", "Winter", "Holiday"}
	pushes := []string{"Awareness Push", "Product Launch", "Brand Lift", "Retargeting Blitz", "Promo"}
	return fmt.Sprintf("%s %s %d", seasons[r.Intn(len(seasons))], pushes[r.Intn(len(pushes))], r.Intn(100))
}

var campaignStatuses = []string{models.StatusActive, models.StatusActive, models.StatusActive, models.StatusPaused}
var campaignObjectives = []string{models.ObjectiveAwareness, models.ObjectiveConsideration, models.ObjectiveConversion}

func randomCampaign(r *rand.Rand, advID int) models.Campaign {
	return models.Campaign{
		AdvertiserID:   advID,
		Name:           fakeCampaignName(r),
		Status:         campaignStatuses[r.Intn(len(campaignStatuses))],
		Objective:      campaignObjectives[r.Intn(len(campaignObjectives))],
		TargetCPMCents: r.Intn(3300) + 1200,
	}
}

// randomFlight places the flight entirely in the past so reports and rollups
// cover complete days.
func randomFlight(r *rand.Rand, campID, maxDays int) models.Flight {
	days := r.Intn(maxDays) + 1
	start := time.Now().UTC().AddDate(0, 0, -(days + r.Intn(45)))
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	return models.Flight{
		CampaignID: campID,
		StartDate:  start,
		EndDate:    start.AddDate(0, 0, days-1),
	}
}

func demoCampaigns(advID int) []models.Campaign {
	return []models.Campaign{
		{AdvertiserID: advID, Name: "Winter Awareness Push", Status: models.StatusActive, Objective: models.ObjectiveAwareness, TargetCPMCents: 2500},
		{AdvertiserID: advID, Name: "Spring Product Launch", Status: models.StatusActive, Objective: models.ObjectiveConsideration, TargetCPMCents: 1800},
	}
}

// demoFlight pins fixed windows for the demo campaigns so walkthroughs are
// reproducible.
func demoFlight(campID int, name string) models.Flight {
	if name == "Winter Awareness Push" {
		return models.Flight{
			CampaignID: campID,
			StartDate:  time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
			EndDate:    time.Date(2024, 1, 21, 0, 0, 0, 0, time.UTC),
		}
	}
	return models.Flight{
		CampaignID: campID,
		StartDate:  time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC),
	}
}
