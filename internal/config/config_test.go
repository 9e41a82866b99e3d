package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	// Create a temporary YAML config file.
	yamlContent := []byte(`
storage:
  data_dir: "/tmp/optiq/data"
  sqlite_path: "/tmp/optiq/optiq.db"
server:
  host: "0.0.0.0"
  port: 8080
alpaca:
  api_key: "test-key"
  api_secret: "test-secret"
  base_url: "https://paper-api.alpaca.markets"
  data_url: "https://data.alpaca.markets"
logging:
  level: "info"
  format: "json"
trading:
  symbols: ["SPY", "QQQ"]
  strategy: "vol-arb"
  loop_interval_ms: 500
  paper_mode: true
  starting_cash: 250000
  risk_free_rate: 0.04
  ref_vol: 0.18
  vol_band: 0.10
risk:
  max_position_size: 50000
  max_drawdown: 0.15
  max_leverage: 3.0
  max_risk_per_trade: 0.01
  max_daily_loss: 2500
`)

	tmpFile, err := os.CreateTemp("", "optiq-config-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(yamlContent); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	if err := tmpFile.Close(); err != nil {
		t.Fatalf("failed to close temp file: %v", err)
	}

	// Clear any environment overrides that might interfere.
	os.Unsetenv("ALPACA_API_KEY")
	os.Unsetenv("ALPACA_API_SECRET")
	os.Unsetenv("APCA_API_KEY_ID")
	os.Unsetenv("APCA_API_SECRET_KEY")
	os.Unsetenv("DATA_DIR")
	os.Unsetenv("LOOP_INTERVAL_MS")
	os.Unsetenv("PAPER_MODE")

	cfg, err := Load(tmpFile.Name())
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	// -- Storage --
	if cfg.Storage.DataDir != "/tmp/optiq/data" {
		t.Errorf("Storage.DataDir = %q, want %q", cfg.Storage.DataDir, "/tmp/optiq/data")
	}
	if cfg.Storage.SQLitePath != "/tmp/optiq/optiq.db" {
		t.Errorf("Storage.SQLitePath = %q, want %q", cfg.Storage.SQLitePath, "/tmp/optiq/optiq.db")
	}

	// -- Server --
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}

	// -- Alpaca --
	if cfg.Alpaca.APIKey != "test-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q", cfg.Alpaca.APIKey, "test-key")
	}
	if cfg.Alpaca.APISecret != "test-secret" {
		t.Errorf("Alpaca.APISecret = %q, want %q", cfg.Alpaca.APISecret, "test-secret")
	}
	if cfg.Alpaca.BaseURL != "https://paper-api.alpaca.markets" {
		t.Errorf("Alpaca.BaseURL = %q, want %q", cfg.Alpaca.BaseURL, "https://paper-api.alpaca.markets")
	}

	// -- Logging --
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "json")
	}

	// -- Trading --
	if len(cfg.Trading.Symbols) != 2 || cfg.Trading.Symbols[0] != "SPY" {
		t.Errorf("Trading.Symbols = %v, want [SPY QQQ]", cfg.Trading.Symbols)
	}
	if cfg.Trading.LoopIntervalMS != 500 {
		t.Errorf("Trading.LoopIntervalMS = %d, want %d", cfg.Trading.LoopIntervalMS, 500)
	}
	if cfg.Trading.StartingCash != 250000 {
		t.Errorf("Trading.StartingCash = %f, want %f", cfg.Trading.StartingCash, 250000.0)
	}
	if cfg.Trading.RefVol != 0.18 {
		t.Errorf("Trading.RefVol = %f, want %f", cfg.Trading.RefVol, 0.18)
	}
	if !cfg.Trading.PaperMode {
		t.Error("Trading.PaperMode = false, want true")
	}

	// -- Risk --
	if cfg.Risk.MaxPositionSize != 50000 {
		t.Errorf("Risk.MaxPositionSize = %f, want %f", cfg.Risk.MaxPositionSize, 50000.0)
	}
	if cfg.Risk.MaxDrawdown != 0.15 {
		t.Errorf("Risk.MaxDrawdown = %f, want %f", cfg.Risk.MaxDrawdown, 0.15)
	}
	if cfg.Risk.MaxLeverage != 3.0 {
		t.Errorf("Risk.MaxLeverage = %f, want %f", cfg.Risk.MaxLeverage, 3.0)
	}
	if cfg.Risk.MaxRiskPerTrade != 0.01 {
		t.Errorf("Risk.MaxRiskPerTrade = %f, want %f", cfg.Risk.MaxRiskPerTrade, 0.01)
	}
	if cfg.Risk.MaxDailyLoss != 2500 {
		t.Errorf("Risk.MaxDailyLoss = %f, want %f", cfg.Risk.MaxDailyLoss, 2500.0)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	// A minimal config should still come back fully populated.
	yamlContent := []byte(`
storage:
  data_dir: "/tmp/optiq/data"
`)

	tmpFile, err := os.CreateTemp("", "optiq-config-min-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(yamlContent); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	tmpFile.Close()

	os.Unsetenv("LOOP_INTERVAL_MS")
	os.Unsetenv("LOG_LEVEL")

	cfg, err := Load(tmpFile.Name())
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Trading.LoopIntervalMS != 1000 {
		t.Errorf("default LoopIntervalMS = %d, want 1000", cfg.Trading.LoopIntervalMS)
	}
	if cfg.Risk.MaxPositionSize != 100000 {
		t.Errorf("default MaxPositionSize = %f, want 100000", cfg.Risk.MaxPositionSize)
	}
	if cfg.Risk.MaxDrawdown != 0.10 {
		t.Errorf("default MaxDrawdown = %f, want 0.10", cfg.Risk.MaxDrawdown)
	}
	if cfg.Risk.MaxLeverage != 2.0 {
		t.Errorf("default MaxLeverage = %f, want 2.0", cfg.Risk.MaxLeverage)
	}
	if cfg.Risk.MaxRiskPerTrade != 0.02 {
		t.Errorf("default MaxRiskPerTrade = %f, want 0.02", cfg.Risk.MaxRiskPerTrade)
	}
	if cfg.Risk.MaxDailyLoss != 5000 {
		t.Errorf("default MaxDailyLoss = %f, want 5000", cfg.Risk.MaxDailyLoss)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("default Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Trading.Strategy != "vol-arb" {
		t.Errorf("default Trading.Strategy = %q, want %q", cfg.Trading.Strategy, "vol-arb")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	yamlContent := []byte(`
alpaca:
  api_key: "yaml-key"
  api_secret: "yaml-secret"
storage:
  data_dir: "/original/data"
trading:
  loop_interval_ms: 1000
`)

	tmpFile, err := os.CreateTemp("", "optiq-config-env-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(yamlContent); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	tmpFile.Close()

	// Set environment overrides.
	os.Setenv("ALPACA_API_KEY", "env-key")
	os.Setenv("DATA_DIR", "/env/data")
	os.Setenv("LOOP_INTERVAL_MS", "250")
	os.Unsetenv("APCA_API_KEY_ID")
	os.Unsetenv("APCA_API_SECRET_KEY")
	defer os.Unsetenv("ALPACA_API_KEY")
	defer os.Unsetenv("DATA_DIR")
	defer os.Unsetenv("LOOP_INTERVAL_MS")

	cfg, err := Load(tmpFile.Name())
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Alpaca.APIKey != "env-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q (env override)", cfg.Alpaca.APIKey, "env-key")
	}
	// api_secret should remain from YAML since no env override was set.
	if cfg.Alpaca.APISecret != "yaml-secret" {
		t.Errorf("Alpaca.APISecret = %q, want %q (from YAML)", cfg.Alpaca.APISecret, "yaml-secret")
	}
	if cfg.Storage.DataDir != "/env/data" {
		t.Errorf("Storage.DataDir = %q, want %q (env override)", cfg.Storage.DataDir, "/env/data")
	}
	if cfg.Trading.LoopIntervalMS != 250 {
		t.Errorf("Trading.LoopIntervalMS = %d, want %d (env override)", cfg.Trading.LoopIntervalMS, 250)
	}
}
