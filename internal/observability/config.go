package observability

import (
	"strings"
	"time"

	"github.com/smallbiznis/leadbilling/internal/config"
)

// Config is the resolved observability setup shared by the logger, tracer
// and meter providers.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel             string
	LogFormat            string
	// Requests slower than this log at warn. Period views wait on the store.
	SlowRequestThreshold time.Duration

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

func LoadConfig(cfg config.Config) Config {
	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "leadbilling"
	}
	telemetry := cfg.Telemetry
	logLevel := telemetry.LogLevel
	if logLevel == "" {
		logLevel = "info"
	}
	logFormat := telemetry.LogFormat
	if logFormat == "" {
		logFormat = "json"
	}

	return Config{
		ServiceName:          serviceName,
		Environment:          firstNonEmpty(telemetry.DeploymentEnv, cfg.Environment),
		Version:              firstNonEmpty(telemetry.DeploymentVersion, cfg.AppVersion),
		LogLevel:             logLevel,
		LogFormat:            logFormat,
		SlowRequestThreshold: time.Duration(telemetry.SlowRequestMillis) * time.Millisecond,
		OtelEnabled:          telemetry.OtelEnabled,
		OtelExporterEndpoint: firstNonEmpty(telemetry.OtelEndpoint, cfg.OTLPEndpoint),
		OtelExporterProtocol: telemetry.OtelProtocol,
		OtelSamplingRatio:    telemetry.OtelSamplingRatio,
	}
}

// Debug is on for debug level or any development-like environment.
func (c Config) Debug() bool {
	if strings.EqualFold(strings.TrimSpace(c.LogLevel), "debug") {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}
	return ""
}
