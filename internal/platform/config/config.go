package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Wallet captures process-level configuration for the wallet daemon.
type Wallet struct {
	Addr string

	// External service endpoints.
	StoreAddURL   string
	StoreFetchURL string
	LedgerURL     string
	RelayURL      string

	// Registry write parameters.
	GasLimit uint64
	GasPrice uint64

	// Approval tokens for anchoring confirmations.
	ConfirmSigningKey string
	ConfirmTTL        time.Duration

	// Identity persistence. Empty means in-memory only.
	AccountFile string

	// Audit trail database. Empty keeps the trail in memory.
	AuditDBURL string

	Redis RedisConfig
	Kafka KafkaConfig
}

// KafkaConfig holds settings for the optional audit event sink. No brokers
// means audit events stay local.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// RedisConfig holds connection settings for the optional pointer cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PointerCacheTTL enforces retention for cached registry pointer reads.
var PointerCacheTTL = 5 * time.Minute

// FromEnv builds a Wallet config from environment variables so main stays lean.
func FromEnv() Wallet {
	cfg := Wallet{
		Addr:          envOr("PERSONA_ADDR", ":8080"),
		StoreAddURL:   envOr("PERSONA_STORE_ADD_URL", "http://127.0.0.1:5001/api/v0/add"),
		StoreFetchURL: envOr("PERSONA_STORE_FETCH_URL", "http://127.0.0.1:8081/ipfs"),
		LedgerURL:     envOr("PERSONA_LEDGER_URL", "http://127.0.0.1:8545"),
		RelayURL:      envOr("PERSONA_RELAY_URL", "http://127.0.0.1:9090/identity"),
		GasLimit:      envUint("PERSONA_GAS_LIMIT", 250000),
		GasPrice:      envUint("PERSONA_GAS_PRICE", 20000000000),
		ConfirmTTL:    5 * time.Minute,
		AccountFile:   os.Getenv("PERSONA_ACCOUNT_FILE"),
		AuditDBURL:    os.Getenv("PERSONA_AUDIT_DB_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("PERSONA_REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:    splitNonEmpty(os.Getenv("PERSONA_KAFKA_BROKERS")),
			AuditTopic: envOr("PERSONA_KAFKA_AUDIT_TOPIC", "persona.audit"),
		},
	}

	cfg.ConfirmSigningKey = os.Getenv("PERSONA_CONFIRM_SIGNING_KEY")
	if cfg.ConfirmSigningKey == "" {
		// Use a default for development - should be overridden in production
		cfg.ConfirmSigningKey = "dev-secret-key-change-in-production"
	}

	return cfg
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envUint(key string, fallback uint64) uint64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
