package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: NSCOPE_[SECTION]_[KEY], with NSCOPE_PROJECT_ROOT and NSCOPE_DB_PATH
// as the common short forms.
func ApplyEnvOverrides(cfg *Config) {
	setEnvString(&cfg.Paths.ProjectRoot, "NSCOPE_PROJECT_ROOT")
	setEnvString(&cfg.DB.Path, "NSCOPE_DB_PATH")
	setEnvBool(&cfg.DB.Enabled, "NSCOPE_DB_ENABLED")
	setEnvString(&cfg.DB.Project, "NSCOPE_DB_PROJECT")
	setEnvDuration(&cfg.DB.BusyTimeout, "NSCOPE_DB_BUSY_TIMEOUT")

	setEnvInt(&cfg.Planner.MaxReferenceAtoms, "NSCOPE_PLANNER_MAX_REFERENCE_ATOMS")
	setEnvInt(&cfg.Stream.BufferSize, "NSCOPE_STREAM_BUFFER_SIZE")

	setEnvDuration(&cfg.Watch.Debounce, "NSCOPE_WATCH_DEBOUNCE")
	setEnvFloat64(&cfg.Watch.MaxFilesPerSecond, "NSCOPE_WATCH_MAX_FILES_PER_SECOND")

	setEnvString(&cfg.Observability.MetricsAddress, "NSCOPE_OBSERVABILITY_METRICS_ADDRESS")
	setEnvString(&cfg.Observability.OTLPEndpoint, "NSCOPE_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvString(&cfg.Observability.ServiceName, "NSCOPE_OBSERVABILITY_SERVICE_NAME")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
