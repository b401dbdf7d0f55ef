package config

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"vaultbank/domain"
)

// Config is the serve-time configuration. Monetary fields are decimal
// strings in 18-decimal USD-equivalent units.
type Config struct {
	Listen string `yaml:"listen"`

	BankCapacityUSD        string `yaml:"bank_capacity_usd"`
	WithdrawalThresholdUSD string `yaml:"withdrawal_threshold_usd"`
	HeartbeatSeconds       int    `yaml:"heartbeat_seconds"`

	// AuditDir enables the on-disk event journal when set.
	AuditDir string `yaml:"audit_dir"`

	Cache CacheConfig  `yaml:"cache"`
	Auth  AuthConfig   `yaml:"auth"`
	Feeds []FeedConfig `yaml:"feeds"`
}

type CacheConfig struct {
	RedisAddr  string `yaml:"redis_addr"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

type AuthConfig struct {
	Admins      []string `yaml:"admins"`
	SuperAdmins []string `yaml:"super_admins"`
}

// FeedConfig binds an asset to its price endpoint and declared precision.
// Use asset "native" for the native currency; its decimals field is ignored.
type FeedConfig struct {
	Asset    string `yaml:"asset"`
	URL      string `yaml:"url"`
	Decimals int32  `yaml:"decimals"`
}

func Default() *Config {
	return &Config{
		Listen:           ":8080",
		HeartbeatSeconds: 3600,
		Cache:            CacheConfig{TTLSeconds: 5},
	}
}

// Load reads and validates a YAML config file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the construction-time requirements: positive capacity
// and threshold, capacity at or above threshold, and well-formed feeds.
func (c *Config) Validate() error {
	capacity, err := decimal.NewFromString(c.BankCapacityUSD)
	if err != nil {
		return fmt.Errorf("%w: bank_capacity_usd %q: %v", domain.ErrInitializationFailed, c.BankCapacityUSD, err)
	}
	threshold, err := decimal.NewFromString(c.WithdrawalThresholdUSD)
	if err != nil {
		return fmt.Errorf("%w: withdrawal_threshold_usd %q: %v", domain.ErrInitializationFailed, c.WithdrawalThresholdUSD, err)
	}
	if capacity.Sign() <= 0 || threshold.Sign() <= 0 {
		return fmt.Errorf("%w: capacity and threshold must be positive", domain.ErrInitializationFailed)
	}
	if capacity.LessThan(threshold) {
		return fmt.Errorf("%w: capacity %s below threshold %s", domain.ErrInitializationFailed, capacity, threshold)
	}
	if c.HeartbeatSeconds <= 0 {
		return fmt.Errorf("%w: heartbeat_seconds must be positive", domain.ErrInitializationFailed)
	}
	for _, f := range c.Feeds {
		if f.Asset == "" || f.URL == "" {
			return fmt.Errorf("%w: feed entries need asset and url", domain.ErrInitializationFailed)
		}
	}
	return nil
}

// BankCapacity returns the parsed capacity. Call after Validate.
func (c *Config) BankCapacity() decimal.Decimal {
	d, _ := decimal.NewFromString(c.BankCapacityUSD)
	return d
}

// WithdrawalThreshold returns the parsed threshold. Call after Validate.
func (c *Config) WithdrawalThreshold() decimal.Decimal {
	d, _ := decimal.NewFromString(c.WithdrawalThresholdUSD)
	return d
}

func (c *Config) Heartbeat() time.Duration {
	return time.Duration(c.HeartbeatSeconds) * time.Second
}

func (c *Config) QuoteTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}
