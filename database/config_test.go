package database

import (
	"strings"
	"testing"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{DSN: "file:orders.db"}
	cfg.ApplyDefaults()

	if cfg.MaxOpenConns != 25 {
		t.Errorf("MaxOpenConns = %d, want 25", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns != 5 {
		t.Errorf("MaxIdleConns = %d, want 5", cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime != "1h" {
		t.Errorf("ConnMaxLifetime = %q, want %q", cfg.ConnMaxLifetime, "1h")
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if cfg.SlowQueryThreshold != "200ms" {
		t.Errorf("SlowQueryThreshold = %q, want %q", cfg.SlowQueryThreshold, "200ms")
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "warn")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() after defaults: %v", err)
	}
}

func TestConfig_ApplyDefaults_InMemoryPinsOneConnection(t *testing.T) {
	cfg := Config{MaxOpenConns: 10, ConnMaxIdleTime: "5m"}
	cfg.ApplyDefaults()

	if !cfg.IsInMemory() {
		t.Fatalf("empty DSN should default to in-memory, got %q", cfg.DSN)
	}
	if !strings.HasPrefix(cfg.DSN, "file:") || !strings.Contains(cfg.DSN, "cache=shared") {
		t.Errorf("unexpected in-memory DSN %q", cfg.DSN)
	}
	if cfg.MaxOpenConns != 1 || cfg.MaxIdleConns != 1 {
		t.Errorf("pool = %d/%d, want 1/1", cfg.MaxOpenConns, cfg.MaxIdleConns)
	}
	if cfg.ConnMaxIdleTime != "" {
		t.Errorf("ConnMaxIdleTime = %q, want no idle timeout", cfg.ConnMaxIdleTime)
	}
}

func TestInMemoryDSN_Unique(t *testing.T) {
	if InMemoryDSN() == InMemoryDSN() {
		t.Error("InMemoryDSN() should name a new database on every call")
	}
}

func TestConfig_ApplyDefaults_PreservesExistingValues(t *testing.T) {
	cfg := Config{
		DSN:                "host=db",
		MaxOpenConns:       50,
		MaxIdleConns:       10,
		ConnMaxLifetime:    "2h",
		MaxRetries:         7,
		SlowQueryThreshold: "1s",
		LogLevel:           "info",
	}
	cfg.ApplyDefaults()

	if cfg.MaxOpenConns != 50 || cfg.MaxIdleConns != 10 || cfg.ConnMaxLifetime != "2h" ||
		cfg.MaxRetries != 7 || cfg.SlowQueryThreshold != "1s" || cfg.LogLevel != "info" {
		t.Errorf("ApplyDefaults overwrote explicit values: %+v", cfg)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		cfg := Config{DSN: "file:orders.db"}
		cfg.ApplyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing dsn", func(c *Config) { c.DSN = "" }, "DSN is required"},
		{"zero max open", func(c *Config) { c.MaxOpenConns = 0 }, "max_open_conns"},
		{"zero max idle", func(c *Config) { c.MaxIdleConns = 0 }, "max_idle_conns must be > 0"},
		{"idle above open", func(c *Config) { c.MaxIdleConns = 30 }, "must be <= max_open_conns"},
		{"bad lifetime", func(c *Config) { c.ConnMaxLifetime = "forever" }, "conn_max_lifetime"},
		{"bad idle time", func(c *Config) { c.ConnMaxIdleTime = "soon" }, "conn_max_idle_time"},
		{"empty idle time", func(c *Config) { c.ConnMaxIdleTime = "" }, ""},
		{"bad slow threshold", func(c *Config) { c.SlowQueryThreshold = "slow" }, "slow_query_threshold"},
		{"zero retries", func(c *Config) { c.MaxRetries = 0 }, "max_retries"},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, "log_level"},
		{"upper-case log level", func(c *Config) { c.LogLevel = "INFO" }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}
