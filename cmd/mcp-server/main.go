package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/patrickwarner/adsynth/internal/analytics"
	"github.com/patrickwarner/adsynth/internal/db"
	"github.com/patrickwarner/adsynth/internal/observability"
	"github.com/patrickwarner/adsynth/internal/perfgen"
	"github.com/patrickwarner/adsynth/internal/reporting"
	"go.uber.org/zap"
)

// generate_performance request/response types
type GeneratePerformanceInput struct {
	CampaignID int    `json:"campaign_id"`
	Seed       *int64 `json:"seed,omitempty"`    // optional, defaults to current time
	Replace    *bool  `json:"replace,omitempty"` // optional, defaults to true
}

type GeneratePerformanceOutput struct {
	CampaignID int    `json:"campaign_id"`
	Seed       int64  `json:"seed"`
	Rows       int    `json:"rows"`
	RunID      string `json:"run_id"`
}

// campaign_summary request/response types
type CampaignSummaryInput struct {
	CampaignID int `json:"campaign_id"`
	Days       int `json:"days,omitempty"` // optional, defaults to 7
}

// AdSynthServer holds our dependencies
type AdSynthServer struct {
	engine *perfgen.Engine
	pg     *db.Postgres
	logger *zap.Logger
}

// GeneratePerformance implements the generate_performance tool. It regenerates
// the hourly rows for one campaign from a seeded stream and reports how many
// rows were written.
func (s *AdSynthServer) GeneratePerformance(ctx context.Context, req *mcp.CallToolRequest, input GeneratePerformanceInput) (*mcp.CallToolResult, GeneratePerformanceOutput, error) {
	if input.CampaignID <= 0 {
		return nil, GeneratePerformanceOutput{}, fmt.Errorf("campaign_id is required")
	}

	seed := time.Now().UnixNano()
	if input.Seed != nil {
		seed = *input.Seed
	}
	replace := true
	if input.Replace != nil {
		replace = *input.Replace
	}
	runID := uuid.New().String()

	s.logger.Info("generate_performance tool called",
		zap.Int("campaign_id", input.CampaignID),
		zap.Int64("seed", seed),
		zap.Bool("replace", replace),
		zap.String("run_id", runID))

	rows, err := s.engine.Regenerate(ctx, input.CampaignID, seed, replace)
	if err != nil {
		return nil, GeneratePerformanceOutput{}, fmt.Errorf("regenerate campaign %d: %w", input.CampaignID, err)
	}

	return nil, GeneratePerformanceOutput{
		CampaignID: input.CampaignID,
		Seed:       seed,
		Rows:       rows,
		RunID:      runID,
	}, nil
}

// CampaignSummary implements the campaign_summary tool. It aggregates the
// persisted rows for one campaign into the standard report.
func (s *AdSynthServer) CampaignSummary(ctx context.Context, req *mcp.CallToolRequest, input CampaignSummaryInput) (*mcp.CallToolResult, reporting.CampaignSummary, error) {
	if input.CampaignID <= 0 {
		return nil, reporting.CampaignSummary{}, fmt.Errorf("campaign_id is required")
	}

	days := input.Days
	if days <= 0 {
		days = 7
	}

	s.logger.Info("campaign_summary tool called",
		zap.Int("campaign_id", input.CampaignID),
		zap.Int("days", days))

	summary, err := reporting.GenerateCampaignReport(ctx, s.pg.DB, input.CampaignID, days)
	if err != nil {
		return nil, reporting.CampaignSummary{}, fmt.Errorf("generate report for campaign %d: %w", input.CampaignID, err)
	}

	return nil, *summary, nil
}

func main() {
	// Initialize logger for MCP server - use stderr to avoid stdio conflicts
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	cfg.OutputPaths = []string{"stderr"}      // Force stderr output
	cfg.ErrorOutputPaths = []string{"stderr"} // Force stderr for errors

	// Use same encoder config as observability package for consistency
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.NameKey = "logger"
	cfg.EncoderConfig.CallerKey = "caller"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.StacktraceKey = "stacktrace"

	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// Add service name as a permanent field for consistency
	logger = logger.Named("adsynth-mcp").With(zap.String("service", "adsynth-mcp"))

	logger.Info("Starting AdSynth MCP Server")

	// Initialize database connections
	postgresURL := os.Getenv("POSTGRES_DSN")
	if postgresURL == "" {
		logger.Fatal("POSTGRES_DSN environment variable is required")
	}

	pg, err := db.InitPostgres(postgresURL, 10, 5, 30*time.Minute, 5*time.Minute)
	if err != nil {
		logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pg.Close()
	logger.Info("Connected to PostgreSQL")

	// Initialize Redis connection for the generation locks
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	locks, err := db.InitRedis(redisAddr)
	if err != nil {
		logger.Warn("Failed to connect to Redis, generation runs will not be serialized", zap.Error(err))
		locks = nil
	} else {
		defer locks.Close()
		logger.Info("Connected to Redis", zap.String("addr", redisAddr))
	}

	// Initialize the ClickHouse mirror
	clickhouseDSN := os.Getenv("CLICKHOUSE_DSN")
	if clickhouseDSN == "" {
		clickhouseDSN = "clickhouse://default:@localhost:9000/default"
	}
	var mirror analytics.Service
	ch, err := analytics.InitClickHouse(clickhouseDSN)
	if err != nil {
		logger.Warn("Failed to connect to ClickHouse, generated rows will not be mirrored", zap.Error(err))
	} else {
		defer ch.Close()
		mirror = ch
		logger.Info("ClickHouse connected successfully for mirroring")
	}

	engine := perfgen.NewEngine(pg, mirror, locks, observability.NewNoOpRegistry(), logger)

	// Create our server
	adsynthServer := &AdSynthServer{
		engine: engine,
		pg:     pg,
		logger: logger,
	}

	// Create MCP server
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "adsynth",
		Version: "1.0.0",
	}, nil)

	// Add tools
	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_performance",
		Description: "Regenerate the synthetic hourly performance rows for a campaign from a seeded stream",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"campaign_id": map[string]interface{}{
					"type":        "integer",
					"description": "Campaign ID to regenerate performance for",
				},
				"seed": map[string]interface{}{
					"type":        "integer",
					"description": "RNG seed (optional, defaults to the current time; the same seed reproduces the same rows)",
				},
				"replace": map[string]interface{}{
					"type":        "boolean",
					"description": "Delete the campaign's prior rows before inserting (optional, defaults to true)",
				},
			},
			"required": []string{"campaign_id"},
		},
	}, adsynthServer.GeneratePerformance)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "campaign_summary",
		Description: "Aggregate the persisted hourly rows for a campaign into totals, daily rollups, averaged rates, and the peak hour",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"campaign_id": map[string]interface{}{
					"type":        "integer",
					"description": "Campaign ID to report on",
				},
				"days": map[string]interface{}{
					"type":        "integer",
					"minimum":     1,
					"description": "Number of days to include, counted back from the newest stored hour (optional, defaults to 7)",
				},
			},
			"required": []string{"campaign_id"},
		},
	}, adsynthServer.CampaignSummary)

	// Run the MCP server with logging transport for debugging
	stdioTransport := &mcp.StdioTransport{}

	// Add logging transport to debug MCP communication
	var logBuffer bytes.Buffer
	loggingTransport := &mcp.LoggingTransport{
		Transport: stdioTransport,
		Writer:    &logBuffer,
	}

	logger.Info("MCP Server running via stdio with logging enabled")

	if err := server.Run(context.Background(), loggingTransport); err != nil {
		logger.Fatal("Server error", zap.Error(err), zap.String("mcp_logs", logBuffer.String()))
	}
}
