// Campaign Report Tool generates performance reports for generated campaigns.
//
// This tool connects directly to Postgres to aggregate the persisted hourly
// rows and prints a formatted report showing campaign totals, daily
// breakdowns, averaged delivery rates, and the peak hour with automated
// insights.
//
// Usage:
//
//	go run ./tools/campaign_report -campaign-id=123 -days=30
//
// The tool outputs a formatted report including:
//   - Overall performance summary (impressions, clicks, CTR, spend)
//   - Daily performance breakdown
//   - Average hourly delivery rates
//   - Peak hour highlight and automated insights
//
// Configuration:
//
//	-campaign-id: Required. The campaign ID to generate a report for
//	-days: Optional. Number of days to include in the report (default: 7)
//	-postgres-dsn: Optional. Postgres connection string
//
// Environment Variables:
//
//	POSTGRES_DSN: Postgres connection string (overridden by -postgres-dsn flag)
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/patrickwarner/adsynth/internal/reporting"
)

// main is the entry point for the campaign report tool. It parses command line
// flags, connects to Postgres, generates the campaign report, and outputs the
// formatted results to stdout.
func main() {
	var (
		campaignID = flag.Int("campaign-id", 0, "Campaign ID to generate report for")
		days       = flag.Int("days", 7, "Number of days to include in report")
		dsn        = flag.String("postgres-dsn", getEnv("POSTGRES_DSN", "postgres://postgres@127.0.0.1:5432/postgres?sslmode=disable"), "Postgres DSN")
	)
	flag.Parse()

	if *campaignID == 0 {
		fmt.Fprintf(os.Stderr, "Error: campaign-id is required\n")
		flag.Usage()
		os.Exit(1)
	}

	// Connect to Postgres
	db, err := sql.Open("postgres", *dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to Postgres: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database connection: %v\n", err)
		}
	}()

	if err := db.PingContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error pinging Postgres: %v\n", err)
		os.Exit(1)
	}

	// Generate campaign report using shared package
	summary, err := reporting.GenerateCampaignReport(context.Background(), db, *campaignID, *days)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		os.Exit(1)
	}

	// Print formatted report
	printCampaignReport(summary, *days)
}

// printCampaignReport outputs a formatted campaign performance report to
// stdout. The report includes overall metrics, a daily breakdown table, the
// averaged hourly rates, the peak hour, and automated insights.
func printCampaignReport(summary *reporting.CampaignSummary, days int) {
	fmt.Printf("═══════════════════════════════════════════════════════════════════════════════════\n")
	fmt.Printf("                              CAMPAIGN PERFORMANCE REPORT                          \n")
	fmt.Printf("═══════════════════════════════════════════════════════════════════════════════════\n")
	fmt.Printf("Campaign ID: %d\n", summary.CampaignID)
	if !summary.TotalMetrics.Date.IsZero() {
		fmt.Printf("Report Period: %d days (ending %s)\n", days, summary.TotalMetrics.Date.Format("2006-01-02"))
	} else {
		fmt.Printf("Report Period: %d days\n", days)
	}
	fmt.Printf("Generated: %s\n\n", time.Now().Format("2006-01-02 15:04:05"))

	// Overall Performance
	fmt.Printf("📊 OVERALL PERFORMANCE\n")
	fmt.Printf("───────────────────────────────────────────────────────────────────────────────────\n")
	total := summary.TotalMetrics
	fmt.Printf("Hours Covered:      %s\n", formatNumber(int64(total.Hours)))
	fmt.Printf("Total Impressions:  %s\n", formatNumber(total.Impressions))
	fmt.Printf("Total Clicks:       %s\n", formatNumber(total.Clicks))
	fmt.Printf("Video Starts:       %s\n", formatNumber(total.VideoStarts))
	fmt.Printf("Completions:        %s\n", formatNumber(total.Completions))
	fmt.Printf("Total Spend:        $%.2f\n", total.Spend)
	fmt.Printf("Overall CTR:        %.2f%%\n", total.CTR)
	fmt.Printf("Average CPM:        $%.2f\n", total.CPM)
	if total.CPC > 0 {
		fmt.Printf("Average CPC:        $%.2f\n", total.CPC)
	}
	fmt.Printf("\n")

	// Daily Breakdown
	if len(summary.DailyMetrics) > 0 {
		fmt.Printf("📅 DAILY BREAKDOWN\n")
		fmt.Printf("───────────────────────────────────────────────────────────────────────────────────\n")
		fmt.Printf("Date        | Hours | Impressions | Clicks |   CTR   |   Spend   |   CPM   \n")
		fmt.Printf("------------|-------|-------------|--------|---------|-----------|---------\n")
		for _, dm := range summary.DailyMetrics {
			fmt.Printf("%-10s | %5d | %11s | %6s | %6.2f%% | $%8.2f | $%6.2f\n",
				dm.Date.Format("2006-01-02"),
				dm.Hours,
				formatNumber(dm.Impressions),
				formatNumber(dm.Clicks),
				dm.CTR,
				dm.Spend,
				dm.CPM,
			)
		}
		fmt.Printf("\n")
	}

	// Average Hourly Rates
	rates := summary.AverageRates
	fmt.Printf("📈 AVERAGE HOURLY RATES\n")
	fmt.Printf("───────────────────────────────────────────────────────────────────────────────────\n")
	fmt.Printf("Fill Rate:          %.1f%%\n", rates.FillRate*100)
	fmt.Printf("Viewability:        %.1f%%\n", rates.ViewabilityRate*100)
	fmt.Printf("Audibility:         %.1f%%\n", rates.AudibilityRate*100)
	fmt.Printf("Video Start Rate:   %.1f%%\n", rates.VideoStartRate*100)
	fmt.Printf("Completion Rate:    %.1f%%\n", rates.VideoCompletionRate*100)
	fmt.Printf("Skip Rate:          %.1f%%\n", rates.VideoSkipRate*100)
	fmt.Printf("Error Rate:         %.3f%%\n", rates.ErrorRate*100)
	fmt.Printf("\n")

	// Peak Hour
	if summary.PeakHour != nil {
		peak := summary.PeakHour
		fmt.Printf("⏰ PEAK HOUR\n")
		fmt.Printf("───────────────────────────────────────────────────────────────────────────────────\n")
		fmt.Printf("Hour:               %s\n", peak.HourTS.Format("2006-01-02 15:00 MST"))
		fmt.Printf("Impressions:        %s\n", formatNumber(peak.Impressions))
		fmt.Printf("Clicks:             %s\n", formatNumber(peak.Clicks))
		fmt.Printf("Spend:              $%.2f\n", peak.Spend)
		fmt.Printf("\n")
	}

	// Insights
	fmt.Printf("💡 INSIGHTS & RECOMMENDATIONS\n")
	fmt.Printf("───────────────────────────────────────────────────────────────────────────────────\n")

	if total.Impressions == 0 {
		fmt.Printf("⚠️  No rows in the reporting window - generate performance for this campaign first\n")
	} else {
		if total.CTR < 1.0 {
			fmt.Printf("⚠️  Low CTR (%.2f%%) - consider optimizing creatives or targeting\n", total.CTR)
		} else if total.CTR > 3.0 {
			fmt.Printf("✅ Excellent CTR (%.2f%%) - campaign performing well!\n", total.CTR)
		} else {
			fmt.Printf("✅ Good CTR (%.2f%%) - within normal range\n", total.CTR)
		}

		if rates.ViewabilityRate >= 0.93 {
			fmt.Printf("✅ Strong viewability (%.1f%%) - placements are delivering in view\n", rates.ViewabilityRate*100)
		}
		if rates.VideoCompletionRate > 0 && rates.VideoCompletionRate < 0.40 {
			fmt.Printf("⚠️  Completion rate (%.1f%%) is below 40%% - shorter creatives may hold attention better\n", rates.VideoCompletionRate*100)
		}
		if rates.ErrorRate > 0.003 {
			fmt.Printf("⚠️  Elevated error rate (%.3f%%) - check creative delivery\n", rates.ErrorRate*100)
		}

		if summary.PeakHour != nil && total.Hours > 0 {
			avgHourly := float64(total.Impressions) / float64(total.Hours)
			if avgHourly > 0 && float64(summary.PeakHour.Impressions) > avgHourly*1.3 {
				fmt.Printf("📈 Peak hour delivered %.1fx the hourly average - consider daypart weighting\n",
					float64(summary.PeakHour.Impressions)/avgHourly)
			}
		}
	}

	fmt.Printf("═══════════════════════════════════════════════════════════════════════════════════\n")
}

// formatNumber formats large integers with comma separators for improved readability.
// Example: 1234567 becomes "1,234,567"
func formatNumber(n int64) string {
	str := fmt.Sprintf("%d", n)
	if len(str) <= 3 {
		return str
	}

	// Add commas for thousands separators
	result := ""
	for i, digit := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(digit)
	}
	return result
}

// getEnv retrieves an environment variable value or returns a default value if not set.
// Used for configuration with fallback defaults.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
