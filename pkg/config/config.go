// Package config loads the engine configuration from environment variables,
// with a .env file as an optional source for local development.
package config

import (
	"fmt"
	"log"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"github.com/hashdesk/intent-engine/pkg/logger"
	"github.com/hashdesk/intent-engine/pkg/registry"
)

// Config holds the configuration for the intent engine.
type Config struct {
	PrivateKey     string
	WorkerCount    int
	QueueSize      int
	MetricsPort    string
	MetricsAPIKey  string
	SlippageBps    int
	DedupWindow    time.Duration
	DedupRetention time.Duration
	SettleDelay    time.Duration
	MonitorTimeout time.Duration
	GasMultiplier  float64
	MaxGasPrice    *big.Int

	EntrypointEnabled bool
	Entrypoints       map[int]common.Address
	AggregatorEnabled bool
	AggregatorBaseURL string

	CircuitBreaker CircuitBreakerConfig
	LoggerConfig   LoggerConfig
}

// CircuitBreakerConfig holds circuit breaker configuration.
type CircuitBreakerConfig struct {
	Enabled   bool
	Threshold int
	Window    time.Duration
	Cooldown  time.Duration
}

// LoggerConfig holds the configuration for logging.
type LoggerConfig struct {
	Level    logger.Level
	Coloring bool
}

// LoadConfig loads the configuration from environment variables.
func LoadConfig(reg *registry.Registry) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	workerCount, err := GetEnvWorkerCount()
	if err != nil {
		return nil, err
	}

	queueSize, err := GetEnvQueueSize()
	if err != nil {
		return nil, err
	}

	metricsPort, err := GetEnvMetricsPort()
	if err != nil {
		return nil, err
	}

	slippageBps, err := GetEnvSlippageBps()
	if err != nil {
		return nil, err
	}

	dedupWindow, err := GetEnvDedupWindow()
	if err != nil {
		return nil, err
	}

	dedupRetention, err := GetEnvDedupRetention()
	if err != nil {
		return nil, err
	}

	settleDelay, err := GetEnvSettleDelay()
	if err != nil {
		return nil, err
	}

	monitorTimeout, err := GetEnvMonitorTimeout()
	if err != nil {
		return nil, err
	}

	gasMultiplier, err := GetEnvGasMultiplier()
	if err != nil {
		return nil, err
	}

	maxGasPrice, err := GetEnvMaxGasPrice()
	if err != nil {
		return nil, err
	}

	entrypointEnabled, err := GetEnvEntrypointEnabled()
	if err != nil {
		return nil, err
	}

	entrypoints, err := GetEnvEntrypoints(reg.ChainIDs())
	if err != nil {
		return nil, err
	}

	aggregatorEnabled, err := GetEnvAggregatorEnabled()
	if err != nil {
		return nil, err
	}

	aggregatorBaseURL, err := GetEnvAggregatorBaseURL()
	if err != nil {
		return nil, err
	}

	cbEnabled, err := GetEnvCircuitBreakerEnabled()
	if err != nil {
		return nil, err
	}

	cbThreshold, err := GetEnvCircuitBreakerThreshold()
	if err != nil {
		return nil, err
	}

	cbWindow, err := GetEnvCircuitBreakerWindow()
	if err != nil {
		return nil, err
	}

	cbCooldown, err := GetEnvCircuitBreakerCooldown()
	if err != nil {
		return nil, err
	}

	logLevel, err := GetEnvLogLevel()
	if err != nil {
		return nil, err
	}

	logColoring, err := GetEnvLogColoring()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		PrivateKey:        os.Getenv("PRIVATE_KEY"),
		WorkerCount:       workerCount,
		QueueSize:         queueSize,
		MetricsPort:       metricsPort,
		MetricsAPIKey:     os.Getenv("METRICS_API_KEY"),
		SlippageBps:       slippageBps,
		DedupWindow:       dedupWindow,
		DedupRetention:    dedupRetention,
		SettleDelay:       settleDelay,
		MonitorTimeout:    monitorTimeout,
		GasMultiplier:     gasMultiplier,
		MaxGasPrice:       maxGasPrice,
		EntrypointEnabled: entrypointEnabled,
		Entrypoints:       entrypoints,
		AggregatorEnabled: aggregatorEnabled,
		AggregatorBaseURL: aggregatorBaseURL,
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:   cbEnabled,
			Threshold: cbThreshold,
			Window:    cbWindow,
			Cooldown:  cbCooldown,
		},
		LoggerConfig: LoggerConfig{
			Level:    logLevel,
			Coloring: logColoring,
		},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validateConfig validates the configuration.
func validateConfig(cfg *Config) error {
	if cfg.PrivateKey == "" {
		return fmt.Errorf("PRIVATE_KEY environment variable is required")
	}
	if cfg.EntrypointEnabled && len(cfg.Entrypoints) == 0 {
		return fmt.Errorf("ENTRYPOINT_ENABLED is set but no CHAIN_<ID>_ENTRYPOINT_ADDRESS is configured")
	}
	return nil
}
