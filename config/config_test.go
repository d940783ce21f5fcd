package config

import (
	"os"
	"testing"
	"time"
)

// writeTempConfig creates a minimal configuration file required for LoadConfig
// and returns its path.
func writeTempConfig(t *testing.T) string {
	t.Helper()
	content := `walletflow:
  name: "TestApp"
  version: "1.0"
analysis:
  top_gainers_limit: 100
  bot_transaction_threshold: 350
source:
  base_url: "https://example.com"
  timeout: 5s
storage:
  s3:
    enabled: false
`
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}
	return f.Name()
}

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t)
	defer os.Remove(path)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Walletflow.Name != "TestApp" {
		t.Errorf("unexpected name: %s", cfg.Walletflow.Name)
	}
	if cfg.Analysis.TopGainersLimit != 100 {
		t.Errorf("unexpected top gainers limit: %d", cfg.Analysis.TopGainersLimit)
	}
	// Defaults fill in everything the file omits.
	if cfg.Analysis.MinSignificantHoldings != 2 {
		t.Errorf("unexpected min significant holdings: %d", cfg.Analysis.MinSignificantHoldings)
	}
	if cfg.Reader.RateLimit.MinCallInterval != 500*time.Millisecond {
		t.Errorf("unexpected min call interval: %s", cfg.Reader.RateLimit.MinCallInterval)
	}
	if cfg.Source.PageSize != 10 {
		t.Errorf("unexpected page size: %d", cfg.Source.PageSize)
	}
}

func TestLoadConfigAPIKeyFromEnv(t *testing.T) {
	path := writeTempConfig(t)
	defer os.Remove(path)

	t.Setenv("BIRDEYE_API_KEY", "secret-key")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Source.APIKey != "secret-key" {
		t.Errorf("API key not taken from environment: %q", cfg.Source.APIKey)
	}
}

func TestLoadConfigMissingName(t *testing.T) {
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.WriteString("walletflow:\n  version: \"1.0\"\n"); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	f.Close()

	if _, err := LoadConfig(f.Name()); err == nil {
		t.Fatal("expected validation error for missing name")
	}
}

func TestValidateConfigS3(t *testing.T) {
	path := writeTempConfig(t)
	defer os.Remove(path)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	cfg.Storage.S3.Enabled = true
	cfg.Storage.S3.Bucket = "Bad_Bucket!"
	cfg.Storage.S3.Region = "eu-west-1"
	cfg.Storage.S3.AccessKeyID = "id"
	cfg.Storage.S3.SecretAccessKey = "secret"
	if err := validateConfig(cfg); err == nil {
		t.Fatal("expected error for invalid bucket name")
	}

	cfg.Storage.S3.Bucket = "walletflow-archive"
	if err := validateConfig(cfg); err != nil {
		t.Fatalf("unexpected error for valid S3 config: %v", err)
	}
}
