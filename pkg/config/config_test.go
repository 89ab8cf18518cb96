package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// chdirTemp moves the test into a fresh temp directory so Load() resolves
// config.yaml relative to it.
func chdirTemp(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	originalDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}
	t.Cleanup(func() {
		os.Chdir(originalDir)
	})
	return tmpDir
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	tmpDir := chdirTemp(t)
	writeConfig(t, tmpDir, `
port: "8080"
env: "test"
database:
  host: "db.example.com"
  port: 5432
  user: "testuser"
  database: "supply_chain"
`)

	os.Unsetenv("PGHOST")
	os.Unsetenv("BASE_URL")
	t.Setenv("PORT", "9090")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("expected Port=9090 (from env), got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Errorf("expected Env=production (from env), got %s", cfg.Env)
	}
	if cfg.Version != "test-version" {
		t.Errorf("expected Version=test-version, got %s", cfg.Version)
	}
	if cfg.BaseURL != "http://localhost:9090" {
		t.Errorf("expected BaseURL=http://localhost:9090 (auto-derived from PORT), got %s", cfg.BaseURL)
	}
	if cfg.Database.Host != "db.example.com" {
		t.Errorf("expected Database.Host=db.example.com (from yaml), got %s", cfg.Database.Host)
	}
}

func TestLoad_BaseURLExplicit(t *testing.T) {
	tmpDir := chdirTemp(t)
	writeConfig(t, tmpDir, `
port: "8080"
env: "test"
base_url: "http://my-server.internal:8081"
`)

	os.Unsetenv("BASE_URL")
	os.Unsetenv("PORT")

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.BaseURL != "http://my-server.internal:8081" {
		t.Errorf("expected explicit BaseURL, got %s", cfg.BaseURL)
	}
}

func TestLoad_MissingConfigFileFallsBackToEnv(t *testing.T) {
	chdirTemp(t)

	os.Unsetenv("BASE_URL")
	t.Setenv("PORT", "7070")
	t.Setenv("PGDATABASE", "supply_chain_test")

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() without config.yaml failed: %v", err)
	}

	if cfg.Port != "7070" {
		t.Errorf("expected Port=7070 (from env), got %s", cfg.Port)
	}
	if cfg.Database.Database != "supply_chain_test" {
		t.Errorf("expected Database.Database=supply_chain_test (from env), got %s", cfg.Database.Database)
	}
}

func TestLoad_PipelineDefaults(t *testing.T) {
	tmpDir := chdirTemp(t)
	writeConfig(t, tmpDir, `
port: "8080"
env: "test"
`)

	os.Unsetenv("PIPELINE_MAX_ATTEMPTS")
	os.Unsetenv("PIPELINE_ROW_LIMIT")
	os.Unsetenv("PIPELINE_TIME_BUDGET_MS")

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Pipeline.MaxAttempts != 3 {
		t.Errorf("expected MaxAttempts=3 (default), got %d", cfg.Pipeline.MaxAttempts)
	}
	if cfg.Pipeline.RowLimit != 100 {
		t.Errorf("expected RowLimit=100 (default), got %d", cfg.Pipeline.RowLimit)
	}
	if got := cfg.Pipeline.TimeBudget().Milliseconds(); got != 10000 {
		t.Errorf("expected TimeBudget=10000ms (default), got %dms", got)
	}
	if cfg.LLM.Provider != "openai" {
		t.Errorf("expected LLM.Provider=openai (default), got %s", cfg.LLM.Provider)
	}
	if cfg.Catalog.Schema != "public" {
		t.Errorf("expected Catalog.Schema=public (default), got %s", cfg.Catalog.Schema)
	}
}

func TestLoad_PipelineFromYAML(t *testing.T) {
	tmpDir := chdirTemp(t)
	writeConfig(t, tmpDir, `
port: "8080"
env: "test"
pipeline:
  max_attempts: 5
  row_limit: 50
  time_budget_ms: 2500
llm:
  provider: "anthropic"
  model: "claude-sonnet-4-20250514"
`)

	os.Unsetenv("PIPELINE_MAX_ATTEMPTS")
	os.Unsetenv("LLM_PROVIDER")

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Pipeline.MaxAttempts != 5 {
		t.Errorf("expected MaxAttempts=5 (from yaml), got %d", cfg.Pipeline.MaxAttempts)
	}
	if cfg.Pipeline.RowLimit != 50 {
		t.Errorf("expected RowLimit=50 (from yaml), got %d", cfg.Pipeline.RowLimit)
	}
	if cfg.LLM.Provider != "anthropic" {
		t.Errorf("expected LLM.Provider=anthropic (from yaml), got %s", cfg.LLM.Provider)
	}
}

func TestLoad_AuthRequiresSecret(t *testing.T) {
	tmpDir := chdirTemp(t)
	writeConfig(t, tmpDir, `
port: "8080"
env: "test"
auth:
  enable_verification: true
`)

	os.Unsetenv("AUTH_SHARED_SECRET")

	_, err := Load("test-version")
	if err == nil {
		t.Fatal("expected error when auth enabled without AUTH_SHARED_SECRET")
	}
	if !strings.Contains(err.Error(), "AUTH_SHARED_SECRET") {
		t.Errorf("expected error to name AUTH_SHARED_SECRET, got: %v", err)
	}
}

func TestValidateTLS_BothProvided(t *testing.T) {
	tmpDir := chdirTemp(t)
	certPath := filepath.Join(tmpDir, "test-cert.pem")
	keyPath := filepath.Join(tmpDir, "test-key.pem")

	if err := os.WriteFile(certPath, []byte("fake-cert-content"), 0644); err != nil {
		t.Fatalf("failed to write test cert: %v", err)
	}
	if err := os.WriteFile(keyPath, []byte("fake-key-content"), 0644); err != nil {
		t.Fatalf("failed to write test key: %v", err)
	}

	writeConfig(t, tmpDir, fmt.Sprintf(`
port: "8080"
env: "test"
tls_cert_path: "%s"
tls_key_path: "%s"
`, certPath, keyPath))

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.TLSCertPath != certPath {
		t.Errorf("expected TLSCertPath=%s, got %s", certPath, cfg.TLSCertPath)
	}
	if !strings.HasPrefix(cfg.BaseURL, "https://") {
		t.Errorf("expected https BaseURL with TLS configured, got %s", cfg.BaseURL)
	}
}

func TestValidateTLS_OnlyCertProvided(t *testing.T) {
	tmpDir := chdirTemp(t)
	certPath := filepath.Join(tmpDir, "test-cert.pem")

	if err := os.WriteFile(certPath, []byte("fake-cert-content"), 0644); err != nil {
		t.Fatalf("failed to write test cert: %v", err)
	}

	writeConfig(t, tmpDir, fmt.Sprintf(`
port: "8080"
env: "test"
tls_cert_path: "%s"
`, certPath))

	os.Unsetenv("TLS_KEY_PATH")

	_, err := Load("test-version")
	if err == nil {
		t.Fatal("expected error when only cert provided, got nil")
	}
	if !strings.Contains(err.Error(), "both") {
		t.Errorf("expected error to mention 'both', got: %v", err)
	}
}

func TestConnectionString(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "askdb",
		Password: "secret",
		Database: "supply_chain",
		SSLMode:  "disable",
	}

	got := cfg.ConnectionString()
	want := "host=localhost port=5432 user=askdb password=secret dbname=supply_chain sslmode=disable"
	// Outside Docker the host passes through unchanged.
	if !IsRunningInDocker() && got != want {
		t.Errorf("ConnectionString() = %q, want %q", got, want)
	}
}

func TestResolveHostForDocker_Passthrough(t *testing.T) {
	if IsRunningInDocker() {
		t.Skip("test asserts non-Docker behavior")
	}
	if got := ResolveHostForDocker("localhost"); got != "localhost" {
		t.Errorf("expected localhost unchanged outside Docker, got %s", got)
	}
	if got := ResolveHostForDocker("db.internal"); got != "db.internal" {
		t.Errorf("expected db.internal unchanged, got %s", got)
	}
}
