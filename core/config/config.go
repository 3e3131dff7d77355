// Package config loads typed configuration for the ledger node, the ledger
// client, and the blob store client from environment variables and an
// optional .env file.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Defaults for the bounded timeouts of the ledger protocol. Connect is a hard
// cutoff for reaching the backend at all; Call bounds each append/list.
const (
	DefaultConnectTimeout = 5 * time.Second
	DefaultCallTimeout    = 10 * time.Second
)

type Config struct {
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Node (medledgerd) settings.
	ListenAddr      string `mapstructure:"LISTEN_ADDR"`
	DataDir         string `mapstructure:"DATA_DIR"`
	ContractAddress string `mapstructure:"CONTRACT_ADDRESS"`
	APIKey          string `mapstructure:"API_KEY"`
	JWTSecret       string `mapstructure:"JWT_SECRET"`

	// Names the node registers its contract methods under. Deployments are
	// not expected to agree on these, which is why the client probes.
	AppendMethodName string `mapstructure:"APPEND_METHOD_NAME"`
	ListMethodName   string `mapstructure:"LIST_METHOD_NAME"`

	// Client-side settings.
	LedgerURL      string        `mapstructure:"LEDGER_URL"`
	WriterAddress  string        `mapstructure:"WRITER_ADDRESS"`
	ConnectTimeout time.Duration `mapstructure:"CONNECT_TIMEOUT"`
	CallTimeout    time.Duration `mapstructure:"CALL_TIMEOUT"`

	// Blob store boundary.
	BlobGatewayURL string `mapstructure:"BLOB_GATEWAY_URL"`
	BlobUploadURL  string `mapstructure:"BLOB_UPLOAD_URL"`
	BlobAPIKey     string `mapstructure:"BLOB_API_KEY"`
}

// Load reads configuration from the environment, with .env as a fallback
// source. Missing values take the documented defaults; nothing here is
// considered fatal except an empty data directory for the node, which the
// daemon checks itself.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LISTEN_ADDR", ":7545")
	v.SetDefault("DATA_DIR", "data/medledger")
	v.SetDefault("CONTRACT_ADDRESS", "0x2b9b83701e5efb926303cdc604d0a45519bcfff1")
	v.SetDefault("APPEND_METHOD_NAME", "addRecord")
	v.SetDefault("LIST_METHOD_NAME", "getRecords")
	v.SetDefault("LEDGER_URL", "http://127.0.0.1:7545")
	v.SetDefault("CONNECT_TIMEOUT", DefaultConnectTimeout)
	v.SetDefault("CALL_TIMEOUT", DefaultCallTimeout)
	v.SetDefault("BLOB_GATEWAY_URL", "https://gateway.lighthouse.storage")

	for _, key := range []string{
		"ENV", "LOG_LEVEL",
		"LISTEN_ADDR", "DATA_DIR", "CONTRACT_ADDRESS", "API_KEY", "JWT_SECRET",
		"APPEND_METHOD_NAME", "LIST_METHOD_NAME",
		"LEDGER_URL", "WRITER_ADDRESS", "CONNECT_TIMEOUT", "CALL_TIMEOUT",
		"BLOB_GATEWAY_URL", "BLOB_UPLOAD_URL", "BLOB_API_KEY",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	// The .env file is optional.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	return cfg, nil
}

// IsDev reports whether the node runs in development mode. Development mode
// permits the in-memory mock ledger fallback and unauthenticated writes.
func (c *Config) IsDev() bool {
	return c.Env == "development" || c.Env == "dev"
}
