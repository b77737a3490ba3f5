package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func missingPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.yaml")
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("SITE_SERVER__PORT", "")
		os.Unsetenv("SITE_SERVER__PORT")

		cfg, err := Load(missingPath(t))
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.Server.Port != 3000 {
			t.Errorf("Load() port = %v, want 3000", cfg.Server.Port)
		}
		if cfg.Server.UpstreamTimeout != 15*time.Second {
			t.Errorf("Load() upstream timeout = %v, want 15s", cfg.Server.UpstreamTimeout)
		}
		if cfg.Cache.Type != "memory" {
			t.Errorf("Load() cache type = %q, want memory", cfg.Cache.Type)
		}
		if cfg.Analytics.Sink != "upstream" {
			t.Errorf("Load() analytics sink = %q, want upstream", cfg.Analytics.Sink)
		}
	})

	t.Run("env var port override", func(t *testing.T) {
		t.Setenv("SITE_SERVER__PORT", "9000")

		cfg, err := Load(missingPath(t))
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.Server.Port != 9000 {
			t.Errorf("Load() port = %v, want 9000", cfg.Server.Port)
		}
	})

	t.Run("plain env fallbacks", func(t *testing.T) {
		t.Setenv("BACKEND_URL", "https://cms.example.com/")
		t.Setenv("API_KEY", "global-key")
		t.Setenv("TENANT_SLUG", "ridgeline-homes")

		cfg, err := Load(missingPath(t))
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.Backend.BaseURL != "https://cms.example.com" {
			t.Errorf("BaseURL = %q, want trailing slash trimmed", cfg.Backend.BaseURL)
		}
		if cfg.Backend.AuthURL != "https://cms.example.com" {
			t.Errorf("AuthURL = %q, want BaseURL fallback", cfg.Backend.AuthURL)
		}
		if cfg.Backend.APIKey != "global-key" {
			t.Errorf("APIKey = %q, want global-key", cfg.Backend.APIKey)
		}
		if cfg.Tenants.DefaultSlug != "ridgeline-homes" {
			t.Errorf("DefaultSlug = %q, want ridgeline-homes", cfg.Tenants.DefaultSlug)
		}
	})

	t.Run("yaml file with host table", func(t *testing.T) {
		t.Setenv("CMS_KEY", "from-env")
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `
backend:
  base_url: https://cms.example.com
  api_key: ${CMS_KEY}
tenants:
  default_slug: fallback
  hosts:
    - host: ridgelinehomes.net
      slug: ridgeline-homes
    - host: "*.preview.example.com"
`
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.Backend.APIKey != "from-env" {
			t.Errorf("APIKey = %q, want substituted value", cfg.Backend.APIKey)
		}
		if len(cfg.Tenants.Hosts) != 2 {
			t.Fatalf("Hosts = %d, want 2", len(cfg.Tenants.Hosts))
		}
		if cfg.Tenants.Hosts[0].Host != "ridgelinehomes.net" || cfg.Tenants.Hosts[0].Slug != "ridgeline-homes" {
			t.Errorf("Hosts[0] = %+v", cfg.Tenants.Hosts[0])
		}
		if cfg.Tenants.Hosts[1].Slug != "" {
			t.Errorf("Hosts[1].Slug = %q, want empty", cfg.Tenants.Hosts[1].Slug)
		}
	})
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Backend:   BackendConfig{BaseURL: "https://cms.example.com"},
			Cache:     CacheConfig{Type: "memory"},
			Analytics: AnalyticsConfig{Sink: "upstream"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing backend", mutate: func(c *Config) { c.Backend.BaseURL = "" }, wantErr: true},
		{name: "redis without addr", mutate: func(c *Config) { c.Cache.Type = "redis" }, wantErr: true},
		{name: "unknown cache", mutate: func(c *Config) { c.Cache.Type = "memcached" }, wantErr: true},
		{name: "kafka without brokers", mutate: func(c *Config) { c.Analytics.Sink = "kafka" }, wantErr: true},
		{name: "empty host rule", mutate: func(c *Config) { c.Tenants.Hosts = []HostRule{{Slug: "x"}} }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "test-value")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "simple substitution",
			input: "${TEST_VAR}",
			want:  "test-value",
		},
		{
			name:  "substitution in string",
			input: "prefix-${TEST_VAR}-suffix",
			want:  "prefix-test-value-suffix",
		},
		{
			name:  "no substitution",
			input: "plain-string",
			want:  "plain-string",
		},
		{
			name:  "undefined var",
			input: "${UNDEFINED_VAR}",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := substituteEnvVars(tt.input)
			if got != tt.want {
				t.Errorf("substituteEnvVars() = %v, want %v", got, tt.want)
			}
		})
	}
}
