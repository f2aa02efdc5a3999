package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/tonkeeper/tongo/tlb"
	"go.uber.org/zap"

	"github.com/justbytes/solidity-casino/internal/logger"
)

// Config is read once at startup and never mutated.
type Config struct {
	ListenAddr   string
	DatabasePath string

	// raffle
	EntryFee      tlb.Grams
	RoundInterval time.Duration
	RoundExpiry   time.Duration

	// oracle routing
	KeyHash              string
	SubscriptionFunding  tlb.Grams
	RequestPrice         tlb.Grams
	RequestConfirmations uint16
	CallbackGasLimit     uint32
	NumWords             uint32
	BlockTime            time.Duration

	Log logger.Configuration
}

// Load reads the .env file when present, then the process environment.
// Invalid values abort startup.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logger.Warn("config: no .env file, using process environment", zap.Error(err))
	}

	return &Config{
		ListenAddr:   envString("LISTEN_ADDR", ":8080"),
		DatabasePath: envString("DATABASE_PATH", "persistent.db"),

		EntryFee:      tlb.Grams(envUint64("ENTRY_FEE", 1_000_000)),
		RoundInterval: envDuration("ROUND_INTERVAL_SECONDS", 30),
		RoundExpiry:   envDuration("ROUND_EXPIRY_SECONDS", 600),

		KeyHash:              envString("KEY_HASH", "default"),
		SubscriptionFunding:  tlb.Grams(envUint64("SUBSCRIPTION_FUNDING", 1_000_000_000)),
		RequestPrice:         tlb.Grams(envUint64("REQUEST_PRICE", 100_000)),
		RequestConfirmations: uint16(envUint64("REQUEST_CONFIRMATIONS", 3)),
		CallbackGasLimit:     uint32(envUint64("CALLBACK_GAS_LIMIT", 500_000)),
		NumWords:             uint32(envUint64("NUM_WORDS", 1)),
		BlockTime:            envDuration("BLOCK_TIME_SECONDS", 5),

		Log: logger.Configuration{
			LogFile:   os.Getenv("LOG_FILE"),
			ErrorFile: os.Getenv("ERROR_LOG_FILE"),
			Level:     envString("LOG_LEVEL", "debug"),
			Console:   envString("LOG_CONSOLE", "true") == "true",
		},
	}
}

func envString(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func envUint64(key string, fallback uint64) uint64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}

	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		panic(fmt.Sprintf("config: invalid %s=%q: %v", key, raw, err))
	}
	return value
}

func envDuration(key string, fallbackSeconds uint64) time.Duration {
	return time.Duration(envUint64(key, fallbackSeconds)) * time.Second
}
