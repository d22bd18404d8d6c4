package observability

import (
	"math/rand"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLogger builds the production logger under the default "adsynth"
// service name. Most batch tools start here.
func InitLogger() (*zap.Logger, error) {
	return InitLoggerWithLevel(getLogLevel(), "adsynth")
}

// InitLoggerWithService builds the production logger named after the
// calling binary, e.g. "adsynth-generate" or "backfill".
func InitLoggerWithService(serviceName string) (*zap.Logger, error) {
	return InitLoggerWithLevel(getLogLevel(), serviceName)
}

// InitLoggerWithLevel builds a zap logger at an explicit level and installs
// it as the global logger. Tools with a -debug flag call this directly.
func InitLoggerWithLevel(level zapcore.Level, serviceName string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)

	// Keep field names stable so Promtail parses batch logs with the same
	// pipeline as everything else.
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.NameKey = "logger"
	cfg.EncoderConfig.CallerKey = "caller"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.StacktraceKey = "stacktrace"

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	logger = logger.Named(serviceName).With(zap.String("service", serviceName))
	zap.ReplaceGlobals(logger)
	return logger, nil
}

// getLogLevel resolves the level from LOG_LEVEL, falling back to an
// ENV-based default: debug in development, info everywhere else.
func getLogLevel() zapcore.Level {
	switch strings.ToUpper(os.Getenv("LOG_LEVEL")) {
	case "DEBUG":
		return zap.DebugLevel
	case "INFO":
		return zap.InfoLevel
	case "WARN":
		return zap.WarnLevel
	case "ERROR":
		return zap.ErrorLevel
	}
	if deploymentEnv() == "development" {
		return zap.DebugLevel
	}
	return zap.InfoLevel
}

// deploymentEnv normalizes ENV to development, staging or production.
func deploymentEnv() string {
	switch strings.ToLower(os.Getenv("ENV")) {
	case "development", "dev":
		return "development"
	case "staging", "test":
		return "staging"
	default:
		return "production"
	}
}

// Per-hour generation logging is sampled. A single backfill touches tens of
// thousands of hours and a debug line for each would drown the useful output.

var (
	samplingMutex sync.Mutex
	samplingStats = make(map[float64]SamplingStats)
)

// SamplingStats counts the log decisions made at one sampling rate and how
// many of them were let through.
type SamplingStats struct {
	Total   int64
	Sampled int64
	Rate    float64
}

// ShouldSample reports whether a log line should be emitted at the given
// rate in [0.0, 1.0]. Decisions are counted so long runs can report the
// realized rate afterwards.
func ShouldSample(rate float64) bool {
	if rate >= 1.0 {
		return true
	}
	if rate <= 0.0 {
		return false
	}

	// Draws from the global source, never from a seeded generator stream.
	sampled := rand.Float64() < rate

	samplingMutex.Lock()
	stats := samplingStats[rate]
	stats.Total++
	stats.Rate = rate
	if sampled {
		stats.Sampled++
	}
	samplingStats[rate] = stats
	samplingMutex.Unlock()

	return sampled
}

// GetSamplingRate picks the per-hour debug sampling rate for the current
// deployment environment. Development keeps every line.
func GetSamplingRate() float64 {
	switch deploymentEnv() {
	case "development":
		return 1.0
	case "staging":
		return 0.5
	default:
		return 0.1
	}
}

// GetSamplingStats returns a copy of the sampling counters.
func GetSamplingStats() map[float64]SamplingStats {
	samplingMutex.Lock()
	defer samplingMutex.Unlock()

	result := make(map[float64]SamplingStats, len(samplingStats))
	for rate, stats := range samplingStats {
		result[rate] = stats
	}
	return result
}

// LogSamplingStats logs the realized sampling rate per configured rate.
// Batch tools call this once at the end of a run.
func LogSamplingStats(logger *zap.Logger) {
	for rate, stat := range GetSamplingStats() {
		if stat.Total == 0 {
			continue
		}
		logger.Info("log sampling stats",
			zap.Float64("target_rate", rate),
			zap.Float64("actual_rate", float64(stat.Sampled)/float64(stat.Total)),
			zap.Int64("total", stat.Total),
			zap.Int64("sampled", stat.Sampled),
		)
	}
}
