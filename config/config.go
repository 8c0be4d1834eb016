// Package config provides configuration management for the price updater
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/sljivkov/fiatoracle/chains"
)

// ConfigFileEnv names an optional YAML file of KEY: value pairs using the same
// keys as the environment. Values already present in the environment win.
const ConfigFileEnv = "ORACLE_CONFIG_FILE"

// Config holds the application configuration. It is built once at startup
// and passed explicitly to every component that needs it.
type Config struct {
	Seed           string `envconfig:"ADMIN_SEED" required:"true"`                             // BIP-39 mnemonic of the price admin
	AddrPrefix     string `envconfig:"ADDR_PREFIX" required:"true"`                            // Bech32 account prefix (e.g. "kujira")
	LCD            string `envconfig:"LCD" required:"true"`                                    // LCD REST base URL
	RPC            string `envconfig:"RPC" required:"true"`                                    // CometBFT RPC URL
	PriceAddr      string `envconfig:"PRICE_ADDR" required:"true"`                             // Price contract address
	ChainID        string `envconfig:"CHAIN_ID" required:"true"`                               // Chain identifier
	FeeDenom       string `envconfig:"FEE_DENOM" required:"true"`                              // Fee denomination
	FeeAmount      uint64 `envconfig:"FEE_AMOUNT" default:"15000"`                             // Fee amount in FeeDenom
	GasLimit       uint64 `envconfig:"GAS_LIMIT" default:"500000"`                             // Gas limit
	FeedURL        string `envconfig:"FEED_URL" default:"https://api.yadio.io/exrates/usd"`   // Exchange rate feed URL
	DerivationPath string `envconfig:"DERIVATION_PATH" default:"m/44'/118'/0'/0/0"`            // HD derivation path
	Memo           string `envconfig:"MEMO"`                                                   // Transaction memo
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`                               // logrus level
	PushgatewayURL string `envconfig:"PUSHGATEWAY_URL"`                                        // Prometheus pushgateway, empty disables metrics
}

type settings struct {
	envFiles   []string
	configFile string
	logLevel   string
}

// Option is a function that modifies how the Config is loaded
type Option func(*settings) error

// WithEnvFile loads configuration from a .env file
func WithEnvFile(path string) Option {
	return func(s *settings) error {
		s.envFiles = append(s.envFiles, path)
		return nil
	}
}

// WithConfigFile loads configuration from a YAML file, overriding ORACLE_CONFIG_FILE
func WithConfigFile(path string) Option {
	return func(s *settings) error {
		s.configFile = path
		return nil
	}
}

// WithLogLevel overrides the log level after the environment is processed
func WithLogLevel(level string) Option {
	return func(s *settings) error {
		if _, err := logrus.ParseLevel(level); err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}

		s.logLevel = level

		return nil
	}
}

// NewConfig creates a new validated Config instance. Sources by precedence:
// process environment, .env files, then the YAML config file.
func NewConfig(opts ...Option) (*Config, error) {
	var s settings

	for _, opt := range opts {
		if err := opt(&s); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	for _, path := range s.envFiles {
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	configFile := s.configFile
	if configFile == "" {
		configFile = os.Getenv(ConfigFileEnv)
	}

	if configFile != "" {
		if err := loadYAML(configFile); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if s.logLevel != "" {
		cfg.LogLevel = s.logLevel
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadYAML exports the file's keys to the environment without overriding
// variables that are already set, mirroring godotenv.Load.
func loadYAML(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var values map[string]any
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	for key, value := range values {
		key = strings.ToUpper(key)
		if _, ok := os.LookupEnv(key); ok {
			continue
		}

		if err := os.Setenv(key, fmt.Sprint(value)); err != nil {
			return fmt.Errorf("failed to export %s: %w", key, err)
		}
	}

	return nil
}

// validate performs validation on the config values
func (c *Config) validate() error {
	// envconfig accepts set-but-empty variables for required fields
	for name, value := range map[string]string{
		"ADMIN_SEED":  c.Seed,
		"ADDR_PREFIX": c.AddrPrefix,
		"PRICE_ADDR":  c.PriceAddr,
		"CHAIN_ID":    c.ChainID,
		"FEE_DENOM":   c.FeeDenom,
	} {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	// Validate URLs
	for name, urlStr := range map[string]string{
		"LCD":      c.LCD,
		"RPC":      c.RPC,
		"FEED_URL": c.FeedURL,
	} {
		if urlStr == "" {
			return fmt.Errorf("%s URL is required", name)
		}

		if err := checkURL(urlStr); err != nil {
			return fmt.Errorf("invalid %s URL: %w", name, err)
		}
	}

	if c.PushgatewayURL != "" {
		if err := checkURL(c.PushgatewayURL); err != nil {
			return fmt.Errorf("invalid PUSHGATEWAY_URL: %w", err)
		}
	}

	prefix, err := chains.ValidateAddress(c.PriceAddr)
	if err != nil {
		return fmt.Errorf("invalid contract address: %w", err)
	}

	if prefix != c.AddrPrefix {
		return fmt.Errorf("contract address prefix %q does not match ADDR_PREFIX %q", prefix, c.AddrPrefix)
	}

	if c.GasLimit == 0 {
		return errors.New("GAS_LIMIT must be positive")
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	return nil
}

func checkURL(s string) error {
	u, err := url.ParseRequestURI(s)
	if err != nil {
		return err
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("missing host in %q", s)
	}

	return nil
}

// TxParams returns the transaction parameters derived from the configuration
func (c *Config) TxParams() chains.TxParams {
	return chains.TxParams{
		ContractAddress: c.PriceAddr,
		ChainID:         c.ChainID,
		Fee: chains.Fee{
			Denom:    c.FeeDenom,
			Amount:   c.FeeAmount,
			GasLimit: c.GasLimit,
		},
		Memo: c.Memo,
	}
}

// String renders the configuration with the seed phrase redacted
func (c Config) String() string {
	seed := ""
	if c.Seed != "" {
		seed = "[REDACTED]"
	}

	return fmt.Sprintf(
		"Config{Seed:%s AddrPrefix:%s LCD:%s RPC:%s PriceAddr:%s ChainID:%s FeeDenom:%s FeeAmount:%d GasLimit:%d FeedURL:%s DerivationPath:%s Memo:%q LogLevel:%s PushgatewayURL:%s}",
		seed, c.AddrPrefix, c.LCD, c.RPC, c.PriceAddr, c.ChainID, c.FeeDenom, c.FeeAmount,
		c.GasLimit, c.FeedURL, c.DerivationPath, c.Memo, c.LogLevel, c.PushgatewayURL,
	)
}
