package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

type proxyConfig struct {
	Address string `mapstructure:"address"`
}

type testConfig struct {
	Name        string        `mapstructure:"name"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	Proxy       proxyConfig   `mapstructure:"proxy"`

	defaulted bool
	failWith  error
}

func (c *testConfig) ApplyDefaults()  { c.defaulted = true }
func (c *testConfig) Validate() error { return c.failWith }

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestLoadConfigWithYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "client.yml")
	writeFile(t, path, `
name: orders
read_timeout: 3s
proxy:
  address: proxy.local:3128
`)

	var cfg testConfig
	if err := LoadConfig("orders", &cfg, WithConfigFile(path)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "orders" {
		t.Errorf("expected name 'orders', got %q", cfg.Name)
	}
	if cfg.ReadTimeout != 3*time.Second {
		t.Errorf("expected 3s read timeout, got %v", cfg.ReadTimeout)
	}
	if cfg.Proxy.Address != "proxy.local:3128" {
		t.Errorf("expected proxy address, got %q", cfg.Proxy.Address)
	}
	if !cfg.defaulted {
		t.Error("expected ApplyDefaults to be called")
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "client.yml")
	writeFile(t, path, "read_timeout: 3s\n")

	t.Setenv("TESTKIT_READ_TIMEOUT", "7s")
	t.Setenv("TESTKIT_PROXY_ADDRESS", "env-proxy:8080")

	var cfg testConfig
	err := LoadConfig("orders", &cfg, WithConfigFile(path), WithEnvPrefix("TESTKIT"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.ReadTimeout != 7*time.Second {
		t.Errorf("expected env override 7s, got %v", cfg.ReadTimeout)
	}
	if cfg.Proxy.Address != "env-proxy:8080" {
		t.Errorf("expected env proxy, got %q", cfg.Proxy.Address)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	var cfg testConfig
	err := LoadConfig("nonexistent", &cfg, WithConfigFile("/nonexistent/path.yml"), WithEnvPrefix("NOPE_PREFIX"))
	if err != nil {
		t.Fatalf("expected LoadConfig to succeed with missing file, got %v", err)
	}
}

func TestLoadConfigValidateError(t *testing.T) {
	cfg := testConfig{failWith: errors.New("proxy required")}
	err := LoadConfig("x", &cfg, WithFileSystem(&mockFS{}), WithEnvPrefix("NOPE_PREFIX"))
	if err == nil || !strings.Contains(err.Error(), "proxy required") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

type mockFS struct {
	files  map[string]bool
	loaded []string
}

func (m *mockFS) Exists(path string) bool { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error {
	m.loaded = append(m.loaded, path)
	return nil
}

func TestLoadConfigFindsEnvFile(t *testing.T) {
	fs := &mockFS{files: map[string]bool{".env.orders": true, ".env": true}}
	var cfg testConfig
	if err := LoadConfig("orders", &cfg, WithFileSystem(fs), WithEnvPrefix("NOPE_PREFIX")); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if len(fs.loaded) != 1 || fs.loaded[0] != ".env.orders" {
		t.Errorf("expected service-specific .env to win, got %v", fs.loaded)
	}
}

func TestEnvKeyVariants(t *testing.T) {
	got := envKeyVariants("PROXY_AUTH_TOKEN")
	for _, want := range []string{"proxy_auth_token", "proxy.auth_token", "proxy_auth.token", "proxy.auth.token"} {
		if !slices.Contains(got, want) {
			t.Errorf("expected variant %q in %v", want, got)
		}
	}
	if got := envKeyVariants("NAME"); len(got) != 1 || got[0] != "name" {
		t.Errorf("expected single variant, got %v", got)
	}
}
