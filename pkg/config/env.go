package config

import (
	"fmt"
	"math/big"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hashdesk/intent-engine/pkg/logger"
)

const (
	// DefaultWorkerCount defines the default number of workers processing
	// submitted intents
	DefaultWorkerCount = 5

	// DefaultQueueSize defines the default capacity of the pending intent queue
	DefaultQueueSize = 100

	// DefaultMetricsPort defines the default port for the health and metrics server
	DefaultMetricsPort = "8080"

	// DefaultSlippageBps defines the default slippage tolerance for routed
	// operations, in basis points
	DefaultSlippageBps = 50

	// DefaultDedupWindow defines the duplicate-suppression window in seconds
	DefaultDedupWindow = 120

	// DefaultDedupRetention defines how long dedup records are retained, in hours
	DefaultDedupRetention = 24

	// DefaultSettleDelay defines the post-switch and post-approval settle
	// pause in milliseconds
	DefaultSettleDelay = 1000

	// DefaultMonitorTimeout defines the confirmation wait budget in seconds
	DefaultMonitorTimeout = 120

	// DefaultGasMultiplier defines the multiplier applied to suggested gas prices
	DefaultGasMultiplier = 1.2

	// DefaultMaxGasPrice defines the maximum gas price for transactions, in wei
	DefaultMaxGasPrice = "100000000000" // 100 Gwei

	// DefaultCircuitBreakerEnabled defines whether the per-chain circuit
	// breaker is enabled
	DefaultCircuitBreakerEnabled = true

	// DefaultCircuitBreakerThreshold defines the number of failures before
	// the circuit opens
	DefaultCircuitBreakerThreshold = 5

	// DefaultCircuitBreakerWindow defines the failure-counting window in minutes
	DefaultCircuitBreakerWindow = 5

	// DefaultCircuitBreakerCooldown defines the open-circuit cooldown in minutes
	DefaultCircuitBreakerCooldown = 15

	// DefaultAggregatorBaseURL defines the default routing aggregator endpoint
	DefaultAggregatorBaseURL = "https://li.quest/v1"
)

// GetEnvWorkerCount returns the number of workers from environment variables
func GetEnvWorkerCount() (int, error) {
	return getEnvPositiveInt("WORKER_COUNT", DefaultWorkerCount)
}

// GetEnvQueueSize returns the pending queue capacity from environment variables
func GetEnvQueueSize() (int, error) {
	return getEnvPositiveInt("QUEUE_SIZE", DefaultQueueSize)
}

// GetEnvMetricsPort returns the metrics server port from environment variables
func GetEnvMetricsPort() (string, error) {
	metricsPort := os.Getenv("METRICS_PORT")
	if metricsPort == "" {
		return DefaultMetricsPort, nil
	}
	if _, err := strconv.Atoi(metricsPort); err != nil {
		return "", fmt.Errorf("invalid METRICS_PORT value: %s, must be a valid integer", metricsPort)
	}
	return metricsPort, nil
}

// GetEnvSlippageBps returns the slippage tolerance from environment variables
func GetEnvSlippageBps() (int, error) {
	raw := os.Getenv("SLIPPAGE_BPS")
	if raw == "" {
		return DefaultSlippageBps, nil
	}
	bps, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid SLIPPAGE_BPS value: %s, must be an integer", raw)
	}
	if bps < 0 || bps > 10000 {
		return 0, fmt.Errorf("SLIPPAGE_BPS must be between 0 and 10000")
	}
	return bps, nil
}

// GetEnvDedupWindow returns the duplicate-suppression window from environment variables
func GetEnvDedupWindow() (time.Duration, error) {
	seconds, err := getEnvPositiveInt("DEDUP_WINDOW_SECONDS", DefaultDedupWindow)
	if err != nil {
		return 0, err
	}
	return time.Duration(seconds) * time.Second, nil
}

// GetEnvDedupRetention returns the dedup record retention from environment variables
func GetEnvDedupRetention() (time.Duration, error) {
	hours, err := getEnvPositiveInt("DEDUP_RETENTION_HOURS", DefaultDedupRetention)
	if err != nil {
		return 0, err
	}
	return time.Duration(hours) * time.Hour, nil
}

// GetEnvSettleDelay returns the settle pause from environment variables
func GetEnvSettleDelay() (time.Duration, error) {
	millis, err := getEnvPositiveInt("SETTLE_DELAY_MS", DefaultSettleDelay)
	if err != nil {
		return 0, err
	}
	return time.Duration(millis) * time.Millisecond, nil
}

// GetEnvMonitorTimeout returns the confirmation wait budget from environment variables
func GetEnvMonitorTimeout() (time.Duration, error) {
	seconds, err := getEnvPositiveInt("MONITOR_TIMEOUT_SECONDS", DefaultMonitorTimeout)
	if err != nil {
		return 0, err
	}
	return time.Duration(seconds) * time.Second, nil
}

// GetEnvGasMultiplier returns the gas price multiplier from environment variables
func GetEnvGasMultiplier() (float64, error) {
	raw := os.Getenv("GAS_MULTIPLIER")
	if raw == "" {
		return DefaultGasMultiplier, nil
	}
	multiplier, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid GAS_MULTIPLIER value: %s, must be a number", raw)
	}
	if multiplier < 1.0 {
		return 0, fmt.Errorf("GAS_MULTIPLIER must be at least 1.0")
	}
	return multiplier, nil
}

// GetEnvMaxGasPrice returns the maximum gas price from environment variables
func GetEnvMaxGasPrice() (*big.Int, error) {
	raw := os.Getenv("MAX_GAS_PRICE")
	if raw == "" {
		raw = DefaultMaxGasPrice
	}
	price, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("invalid MAX_GAS_PRICE value: %s, must be an integer in wei", raw)
	}
	if price.Sign() <= 0 {
		return nil, fmt.Errorf("MAX_GAS_PRICE must be greater than 0")
	}
	return price, nil
}

// GetEnvCircuitBreakerEnabled returns whether the circuit breaker is enabled
// from environment variables
func GetEnvCircuitBreakerEnabled() (bool, error) {
	return getEnvBool("CIRCUIT_BREAKER_ENABLED", DefaultCircuitBreakerEnabled)
}

// GetEnvCircuitBreakerThreshold returns the failure threshold from environment variables
func GetEnvCircuitBreakerThreshold() (int, error) {
	return getEnvPositiveInt("CIRCUIT_BREAKER_THRESHOLD", DefaultCircuitBreakerThreshold)
}

// GetEnvCircuitBreakerWindow returns the failure-counting window from environment variables
func GetEnvCircuitBreakerWindow() (time.Duration, error) {
	minutes, err := getEnvPositiveInt("CIRCUIT_BREAKER_WINDOW", DefaultCircuitBreakerWindow)
	if err != nil {
		return 0, err
	}
	return time.Duration(minutes) * time.Minute, nil
}

// GetEnvCircuitBreakerCooldown returns the open-circuit cooldown from environment variables
func GetEnvCircuitBreakerCooldown() (time.Duration, error) {
	minutes, err := getEnvPositiveInt("CIRCUIT_BREAKER_COOLDOWN", DefaultCircuitBreakerCooldown)
	if err != nil {
		return 0, err
	}
	return time.Duration(minutes) * time.Minute, nil
}

// GetEnvEntrypointEnabled returns whether fee-entrypoint routing is enabled
// from environment variables
func GetEnvEntrypointEnabled() (bool, error) {
	return getEnvBool("ENTRYPOINT_ENABLED", false)
}

// GetEnvEntrypoints returns the per-chain entrypoint contract addresses from
// environment variables of the form CHAIN_<ID>_ENTRYPOINT_ADDRESS.
func GetEnvEntrypoints(chainIDs []int) (map[int]common.Address, error) {
	entrypoints := make(map[int]common.Address)
	for _, chainID := range chainIDs {
		key := fmt.Sprintf("CHAIN_%d_ENTRYPOINT_ADDRESS", chainID)
		raw := os.Getenv(key)
		if raw == "" {
			continue
		}
		if !common.IsHexAddress(raw) {
			return nil, fmt.Errorf("invalid %s value: %s, must be a valid Ethereum address", key, raw)
		}
		entrypoints[chainID] = common.HexToAddress(raw)
	}
	return entrypoints, nil
}

// GetEnvAggregatorEnabled returns whether aggregator routing is enabled from
// environment variables
func GetEnvAggregatorEnabled() (bool, error) {
	return getEnvBool("AGGREGATOR_ENABLED", true)
}

// GetEnvAggregatorBaseURL returns the aggregator endpoint from environment variables
func GetEnvAggregatorBaseURL() (string, error) {
	baseURL := os.Getenv("AGGREGATOR_BASE_URL")
	if baseURL == "" {
		return DefaultAggregatorBaseURL, nil
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return "", fmt.Errorf("invalid AGGREGATOR_BASE_URL value: %s", baseURL)
	}
	return strings.TrimRight(baseURL, "/"), nil
}

// GetEnvLogLevel returns the logging level from environment variables
func GetEnvLogLevel() (logger.Level, error) {
	raw := os.Getenv("LOG_LEVEL")
	if raw == "" {
		return logger.InfoLevel, nil
	}
	switch strings.ToLower(raw) {
	case "debug":
		return logger.DebugLevel, nil
	case "info":
		return logger.InfoLevel, nil
	case "notice":
		return logger.NoticeLevel, nil
	case "error":
		return logger.ErrorLevel, nil
	default:
		return 0, fmt.Errorf("invalid LOG_LEVEL value: %s, must be debug, info, notice or error", raw)
	}
}

// GetEnvLogColoring returns whether log coloring is enabled from environment variables
func GetEnvLogColoring() (bool, error) {
	return getEnvBool("LOG_COLORING", true)
}

func getEnvPositiveInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %s, must be an integer", key, raw)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}
	return value, nil
}

func getEnvBool(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value: %s, must be true or false", key, raw)
	}
	return value, nil
}
