package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSite struct {
	mu    sync.Mutex
	hosts []string
}

func (f *fakeSite) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tenant", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.hosts = append(f.hosts, r.Host)
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"t-1","slug":"ridgeline-homes","name":"Ridgeline Homes","homepageTemplate":"bold"}`))
	})
	mux.HandleFunc("GET /api/search", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[{"type":"community","id":"c-1","title":"Aspen Ridge","href":"/communities/aspen-ridge"}]}`))
	})
	mux.HandleFunc("POST /api/analytics", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func run(t *testing.T, srvURL string, args ...string) (string, error) {
	t.Helper()
	state := filepath.Join(t.TempDir(), "state.db")
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--gateway", srvURL, "--state", state}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestThemeCommand_SendsHostAndPrintsCSS(t *testing.T) {
	site := &fakeSite{}
	srv := httptest.NewServer(site.handler())
	defer srv.Close()

	out, err := run(t, srv.URL, "theme", "ridgelinehomes.net")
	require.NoError(t, err)
	assert.Contains(t, out, "Ridgeline Homes (ridgeline-homes)")
	assert.Contains(t, out, "template: BOLD")

	site.mu.Lock()
	defer site.mu.Unlock()
	require.NotEmpty(t, site.hosts)
	assert.Equal(t, "ridgelinehomes.net", site.hosts[0])
}

func TestSearchCommand(t *testing.T) {
	srv := httptest.NewServer((&fakeSite{}).handler())
	defer srv.Close()

	out, err := run(t, srv.URL, "search", "aspen")
	require.NoError(t, err)
	assert.Contains(t, out, "Aspen Ridge")
}

func TestWhoami_SignedOut(t *testing.T) {
	srv := httptest.NewServer((&fakeSite{}).handler())
	defer srv.Close()

	out, err := run(t, srv.URL, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "not signed in")
}

func TestFavoritesToggle_RequiresSession(t *testing.T) {
	srv := httptest.NewServer((&fakeSite{}).handler())
	defer srv.Close()

	_, err := run(t, srv.URL, "favorites", "toggle", "home", "h-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not signed in")
}

func TestLogin_RequiresToken(t *testing.T) {
	srv := httptest.NewServer((&fakeSite{}).handler())
	defer srv.Close()

	_, err := run(t, srv.URL, "login")
	assert.Error(t, err)
}
