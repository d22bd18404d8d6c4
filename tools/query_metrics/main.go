package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/patrickwarner/adsynth/internal/analytics"
	"github.com/patrickwarner/adsynth/internal/config"
	"github.com/patrickwarner/adsynth/internal/observability"
)

func main() {
	logger, err := observability.InitLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	var campaignID int
	var limit int
	var totals bool
	var dsn string
	flag.IntVar(&campaignID, "campaign-id", 0, "campaign ID")
	flag.IntVar(&limit, "limit", 24, "number of recent hourly rows to print")
	flag.BoolVar(&totals, "totals", false, "print campaign totals instead of recent rows")
	flag.StringVar(&dsn, "dsn", "", "ClickHouse DSN")
	flag.Parse()

	if campaignID == 0 {
		fmt.Fprintln(os.Stderr, "campaign-id required")
		os.Exit(1)
	}
	if dsn == "" {
		cfg := config.Load()
		dsn = cfg.ClickHouseDSN
	}

	a, err := analytics.InitClickHouse(dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect clickhouse: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if totals {
		agg, err := a.CampaignTotals(context.Background(), campaignID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "query totals: %v\n", err)
			os.Exit(1)
		}
		if err := enc.Encode(agg); err != nil {
			fmt.Fprintf(os.Stderr, "encode totals: %v\n", err)
			os.Exit(1)
		}
		return
	}

	rows, err := a.RecentRows(context.Background(), campaignID, limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "query rows: %v\n", err)
		os.Exit(1)
	}
	if err := enc.Encode(rows); err != nil {
		fmt.Fprintf(os.Stderr, "encode rows: %v\n", err)
		os.Exit(1)
	}
}
