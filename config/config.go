package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Walletflow WalletflowConfig `yaml:"walletflow"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	Source     SourceConfig     `yaml:"source"`
	Reader     ReaderConfig     `yaml:"reader"`
	Output     OutputConfig     `yaml:"output"`
	Ledger     LedgerConfig     `yaml:"ledger"`
	Storage    StorageConfig    `yaml:"storage"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type WalletflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// AnalysisConfig carries the scoring and qualification knobs. The score
// weights themselves are fixed policy and deliberately not configurable.
type AnalysisConfig struct {
	TopGainersLimit             int      `yaml:"top_gainers_limit"`
	BotTransactionThreshold     int      `yaml:"bot_transaction_threshold"`
	SignificantHoldingThreshold float64  `yaml:"significant_holding_threshold"`
	MinSignificantHoldings      int      `yaml:"min_significant_holdings"`
	TimeWindow                  string   `yaml:"time_window"`
	ExcludedSymbols             []string `yaml:"excluded_symbols"`
	TopWallets                  int      `yaml:"top_wallets"`
}

type SourceConfig struct {
	BaseURL  string        `yaml:"base_url"`
	Chain    string        `yaml:"chain"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout"`
	PageSize int           `yaml:"page_size"`
}

type ReaderConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Retry     RetryConfig     `yaml:"retry"`
}

type RateLimitConfig struct {
	MinCallInterval time.Duration `yaml:"min_call_interval"`
	MaxBackoff      time.Duration `yaml:"max_backoff"`
}

type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Pause       time.Duration `yaml:"pause"`
}

type OutputConfig struct {
	Dir             string `yaml:"dir"`
	SnapshotFile    string `yaml:"snapshot_file"`
	CrystalizedFile string `yaml:"crystalized_file"`
}

type LedgerConfig struct {
	Dir  string `yaml:"dir"`
	File string `yaml:"file"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type LoggingConfig struct {
	Level         string `yaml:"level"`
	Format        string `yaml:"format"`
	Output        string `yaml:"output"`
	MaxAge        int    `yaml:"max_age"`
	DashboardName string `yaml:"dashboard_name"`
}

// apiKeyEnvVar is the environment variable holding the Birdeye API key. The
// key never lives in the yaml file; it comes from the environment or .env.
const apiKeyEnvVar = "BIRDEYE_API_KEY"

func LoadConfig(path string) (*Config, error) {
	// Read configuration file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Analysis: AnalysisConfig{
			TopGainersLimit:             2500,
			BotTransactionThreshold:     350,
			SignificantHoldingThreshold: 9000,
			MinSignificantHoldings:      2,
			TimeWindow:                  "1W",
			ExcludedSymbols:             []string{"SOL", "USDC"},
			TopWallets:                  300,
		},
		Source: SourceConfig{
			BaseURL:  "https://public-api.birdeye.so",
			Chain:    "solana",
			Timeout:  10 * time.Second,
			PageSize: 10,
		},
		Reader: ReaderConfig{
			RateLimit: RateLimitConfig{
				MinCallInterval: 500 * time.Millisecond,
				MaxBackoff:      time.Minute,
			},
			Retry: RetryConfig{
				MaxAttempts: 3,
				Pause:       time.Second,
			},
		},
		Output: OutputConfig{
			Dir:             "output",
			SnapshotFile:    "wallet_holdings.csv",
			CrystalizedFile: "crystalized_wallets.csv",
		},
		Ledger: LedgerConfig{
			Dir:  "historical",
			File: "all_wallets.csv",
		},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// The API key is only ever read from the environment
	if v := os.Getenv(apiKeyEnvVar); v != "" {
		config.Source.APIKey = strings.TrimSpace(v)
	}

	// Override S3 settings from environment variables if available
	if config.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}

	config.Storage.S3.Bucket = strings.TrimSpace(config.Storage.S3.Bucket)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Walletflow.Name == "" {
		return fmt.Errorf("walletflow.name is required")
	}

	if cfg.Walletflow.Version == "" {
		return fmt.Errorf("walletflow.version is required")
	}

	if cfg.Analysis.TopGainersLimit <= 0 {
		return fmt.Errorf("analysis.top_gainers_limit must be greater than 0")
	}
	if cfg.Analysis.BotTransactionThreshold <= 0 {
		return fmt.Errorf("analysis.bot_transaction_threshold must be greater than 0")
	}
	if cfg.Analysis.SignificantHoldingThreshold <= 0 {
		return fmt.Errorf("analysis.significant_holding_threshold must be greater than 0")
	}
	if cfg.Analysis.MinSignificantHoldings <= 0 {
		return fmt.Errorf("analysis.min_significant_holdings must be greater than 0")
	}
	if cfg.Analysis.TopWallets <= 0 {
		return fmt.Errorf("analysis.top_wallets must be greater than 0")
	}

	if cfg.Source.BaseURL == "" {
		return fmt.Errorf("source.base_url is required")
	}
	if cfg.Source.PageSize <= 0 {
		return fmt.Errorf("source.page_size must be greater than 0")
	}
	if cfg.Source.Timeout <= 0 {
		return fmt.Errorf("source.timeout must be greater than 0")
	}

	if cfg.Reader.RateLimit.MinCallInterval <= 0 {
		return fmt.Errorf("reader.rate_limit.min_call_interval must be greater than 0")
	}
	if cfg.Reader.RateLimit.MaxBackoff < cfg.Reader.RateLimit.MinCallInterval {
		return fmt.Errorf("reader.rate_limit.max_backoff must be at least min_call_interval")
	}
	if cfg.Reader.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("reader.retry.max_attempts must be greater than 0")
	}

	if cfg.Output.Dir == "" || cfg.Output.SnapshotFile == "" || cfg.Output.CrystalizedFile == "" {
		return fmt.Errorf("output.dir, output.snapshot_file and output.crystalized_file are required")
	}
	if cfg.Ledger.Dir == "" || cfg.Ledger.File == "" {
		return fmt.Errorf("ledger.dir and ledger.file are required")
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		if cfg.Storage.S3.AccessKeyID == "" || cfg.Storage.S3.SecretAccessKey == "" {
			return fmt.Errorf("storage.s3.access_key_id and storage.s3.secret_access_key are required when S3 is enabled")
		}
		if !isValidS3Bucket(cfg.Storage.S3.Bucket) {
			return fmt.Errorf("storage.s3.bucket '%s' is invalid", cfg.Storage.S3.Bucket)
		}
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
