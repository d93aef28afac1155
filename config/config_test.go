package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kbukum/fixturekit/errors"
)

type testConfig struct {
	Base         `yaml:",inline" mapstructure:",squash"`
	CleanupOrder string         `yaml:"cleanup_order" mapstructure:"cleanup_order"`
	SkipCleanup  bool           `yaml:"skip_cleanup" mapstructure:"skip_cleanup"`
	Options      map[string]any `yaml:"options" mapstructure:"options"`
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestBaseApplyDefaults(t *testing.T) {
	var b Base
	b.ApplyDefaults()
	if b.Name != "fixturekit" {
		t.Errorf("expected default name 'fixturekit', got %q", b.Name)
	}
	if b.Logging.Level != "warn" {
		t.Errorf("expected logging defaults to be applied, got level %q", b.Logging.Level)
	}
	if b.GetBase() != &b {
		t.Error("expected GetBase to return the receiver")
	}
}

func TestBaseValidate(t *testing.T) {
	b := Base{}
	b.ApplyDefaults()
	if err := b.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	b.Logging.Format = "xml"
	err := b.Validate()
	if err == nil {
		t.Fatal("expected error for invalid logging format")
	}
	if !strings.Contains(err.Error(), "config.logging") {
		t.Errorf("expected error prefixed with config.logging, got %q", err.Error())
	}
}

func TestLoadConfigWithYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.yml")
	writeFile(t, path, `
name: orders
cleanup_order: declaration
skip_cleanup: true
logging:
  level: debug
  format: json
options:
  migrations_dir: ./migrations
`)

	var cfg testConfig
	files, err := LoadConfig("fixture", &cfg, WithConfigFile(path))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if !files.Found() {
		t.Error("expected config file to be reported as found")
	}
	if cfg.Name != "orders" {
		t.Errorf("expected name 'orders', got %q", cfg.Name)
	}
	if cfg.CleanupOrder != "declaration" {
		t.Errorf("expected cleanup_order 'declaration', got %q", cfg.CleanupOrder)
	}
	if !cfg.SkipCleanup {
		t.Error("expected skip_cleanup=true")
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("unexpected logging config %+v", cfg.Logging)
	}
	if cfg.Options["migrations_dir"] != "./migrations" {
		t.Errorf("expected migrations_dir option, got %v", cfg.Options)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	var cfg testConfig
	files, err := LoadConfig("nonexistent", &cfg, WithConfigFile("/nonexistent/path.yml"))
	if err != nil {
		t.Fatalf("expected LoadConfig to succeed with missing file, got %v", err)
	}
	if files.Found() {
		t.Error("expected no config file to be found")
	}
	if cfg.CleanupOrder != "" {
		t.Errorf("expected zero config, got %+v", cfg)
	}
}

func TestLoadConfigMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.yml")
	writeFile(t, path, "cleanup_order: [unterminated\n")

	var cfg testConfig
	_, err := LoadConfig("fixture", &cfg, WithConfigFile(path))
	if err == nil {
		t.Fatal("expected error for malformed config")
	}
	if !errors.HasCode(err, errors.ErrCodeConfiguration) {
		t.Errorf("expected CONFIGURATION_ERROR, got %v", err)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.yml")
	writeFile(t, path, "cleanup_order: reverse\n")
	t.Setenv("FIXTURE_CLEANUP_ORDER", "declaration")
	t.Setenv("FIXTURE_LOGGING_LEVEL", "error")
	t.Setenv("UNRELATED_CLEANUP_ORDER", "ignored")

	var cfg testConfig
	if _, err := LoadConfig("fixture", &cfg, WithConfigFile(path)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.CleanupOrder != "declaration" {
		t.Errorf("expected env override 'declaration', got %q", cfg.CleanupOrder)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("expected nested env override 'error', got %q", cfg.Logging.Level)
	}
}

func TestLoadConfigEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.fixture")
	writeFile(t, envPath, "FIXTURE_SKIP_CLEANUP=true\n")
	t.Cleanup(func() { os.Unsetenv("FIXTURE_SKIP_CLEANUP") })

	var cfg testConfig
	if _, err := LoadConfig("fixture", &cfg, WithConfigFile("/nonexistent.yml"), WithEnvFile(envPath)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if !cfg.SkipCleanup {
		t.Error("expected skip_cleanup from .env file")
	}
}

func TestLoadConfigExplicitEnvVar(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yml")
	writeFile(t, path, "name: from-env-path\n")
	t.Setenv("FIXTURE_CONFIG", path)

	var cfg testConfig
	files, err := LoadConfig("fixture", &cfg)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if files.ConfigFile != path {
		t.Errorf("expected config file %q, got %q", path, files.ConfigFile)
	}
	if cfg.Name != "from-env-path" {
		t.Errorf("expected name from explicit file, got %q", cfg.Name)
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool { return m.files[path] }
func (m *mockFS) LoadEnv(string) error    { return nil }

func TestResolverWithMockFS(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"../testdata/fixture.yml": true,
		"../fixture.yml":          true,
		"./.env.fixture":          true,
	}}
	resolver := &Resolver{FileSystem: fs}
	files := resolver.ResolveFiles("fixture", LoaderConfig{})
	if files.ConfigFile != "../testdata/fixture.yml" {
		t.Errorf("expected testdata config to win, got %q", files.ConfigFile)
	}
	if files.EnvFile != "./.env.fixture" {
		t.Errorf("expected env file ./.env.fixture, got %q", files.EnvFile)
	}
}

func TestResolverNothingFound(t *testing.T) {
	resolver := &Resolver{FileSystem: &mockFS{}}
	files := resolver.ResolveFiles("fixture", LoaderConfig{ConfigFile: "/missing.yml"})
	if files.Found() {
		t.Errorf("expected nothing found, got %+v", files)
	}
}

func TestGenerateEnvKeyVariants(t *testing.T) {
	got := generateEnvKeyVariants("LOGGING_NO_COLOR")
	want := map[string]bool{
		"logging_no_color": true,
		"logging.no.color": true,
		"logging.no_color": true,
	}
	for _, v := range got {
		delete(want, v)
	}
	if len(want) != 0 {
		t.Errorf("missing variants %v in %v", want, got)
	}
	if single := generateEnvKeyVariants("NAME"); len(single) != 1 || single[0] != "name" {
		t.Errorf("expected [name], got %v", single)
	}
}

func TestLoaderOptions(t *testing.T) {
	var lc LoaderConfig
	fs := &mockFS{}
	WithFileSystem(fs)(&lc)
	WithConfigFile("/path/to/fixture.yml")(&lc)
	WithEnvFile("/path/to/.env")(&lc)
	if lc.FileSystem == nil {
		t.Error("expected FileSystem to be set")
	}
	if lc.ConfigFile != "/path/to/fixture.yml" {
		t.Errorf("expected config file path, got %q", lc.ConfigFile)
	}
	if lc.EnvFile != "/path/to/.env" {
		t.Errorf("expected env file path, got %q", lc.EnvFile)
	}
}
