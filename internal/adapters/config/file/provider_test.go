package file

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sitefront/tenant-gateway/internal/pkg/config"
)

const initialConfig = `backend:
  base_url: http://content.internal
tenants:
  default_slug: fallback
  hosts:
    - host: ridgelinehomes.net
      slug: ridgeline-homes
`

const updatedConfig = `backend:
  base_url: http://content.internal
tenants:
  default_slug: fallback
  hosts:
    - host: ridgelinehomes.net
      slug: ridgeline-homes
    - host: maplegrovehomes.com
      slug: maple-grove
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestNewProvider_RequiresPath(t *testing.T) {
	if _, err := NewProvider("", nil); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestProvider_LoadReadsGivenPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.yaml")
	writeFile(t, path, initialConfig)

	p, err := NewProvider(path, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	cfg, err := p.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := len(cfg.Tenants.Hosts); got != 1 {
		t.Fatalf("hosts = %d, want 1", got)
	}
	if p.Current() != cfg {
		t.Error("Current should return the loaded config")
	}
}

func TestProvider_WatchReloadsHostTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.yaml")
	writeFile(t, path, initialConfig)

	p, err := NewProvider(path, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if _, err := p.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *config.Config, 8)
	if err := p.Watch(ctx, func(cfg *config.Config) { changes <- cfg }); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer p.Close()

	writeFile(t, path, updatedConfig)

	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-changes:
			if len(cfg.Tenants.Hosts) == 2 {
				if got := cfg.Tenants.Hosts[1].Slug; got != "maple-grove" {
					t.Errorf("second slug = %q, want maple-grove", got)
				}
				return
			}
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}

func TestProvider_WatchSkipsInvalidConfig(t *testing.T) {
	t.Setenv("BACKEND_URL", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "site.yaml")
	writeFile(t, path, initialConfig)

	p, err := NewProvider(path, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *config.Config, 8)
	if err := p.Watch(ctx, func(cfg *config.Config) { changes <- cfg }); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer p.Close()

	// Missing base_url fails validation; unrelated files are ignored.
	writeFile(t, path, "tenants:\n  default_slug: x\n")
	writeFile(t, filepath.Join(dir, "other.yaml"), updatedConfig)

	select {
	case cfg := <-changes:
		t.Fatalf("unexpected reload: %+v", cfg.Tenants)
	case <-time.After(300 * time.Millisecond):
	}
}
