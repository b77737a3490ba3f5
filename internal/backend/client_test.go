package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitefront/tenant-gateway/internal/domain"
	"github.com/sitefront/tenant-gateway/internal/metrics"
	"github.com/sitefront/tenant-gateway/internal/tenant"
	vcr "github.com/sitefront/tenant-gateway/internal/testutil"
)

func testCredentials() *tenant.Credentials {
	env := map[string]string{"TENANT_API_KEY_RIDGELINE_HOMES": "ridgeline-key"}
	return tenant.NewCredentials("global-key", func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
}

func TestClient_AttachesTenantHeaders(t *testing.T) {
	tests := []struct {
		name     string
		slug     string
		auth     string
		wantSlug string
		wantKey  string
	}{
		{name: "tenant key", slug: "ridgeline-homes", wantSlug: "ridgeline-homes", wantKey: "ridgeline-key"},
		{name: "global fallback", slug: "cedar-builders", wantSlug: "cedar-builders", wantKey: "global-key"},
		{name: "default slug", slug: "", wantSlug: "fallback", wantKey: "global-key"},
		{name: "forwards authorization", slug: "ridgeline-homes", auth: "Bearer tok", wantSlug: "ridgeline-homes", wantKey: "ridgeline-key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got http.Header
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Clone()
				w.Write([]byte(`{}`))
			}))
			defer srv.Close()

			c := NewClient(srv.URL+"/", testCredentials(), WithDefaultSlug("fallback"))
			_, err := c.Do(context.Background(), Request{Path: PathNavigation, Slug: tt.slug, Authorization: tt.auth})
			require.NoError(t, err)

			assert.Equal(t, tt.wantSlug, got.Get(tenant.HeaderSlug))
			assert.Equal(t, tt.wantKey, got.Get(tenant.HeaderAPIKey))
			assert.Equal(t, tt.auth, got.Get("Authorization"))
		})
	}
}

func TestClient_DefaultSlugFuncReadPerRequest(t *testing.T) {
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get(tenant.HeaderSlug))
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	current := "fallback"
	c := NewClient(srv.URL, testCredentials(), WithDefaultSlugFunc(func() string { return current }))

	_, err := c.Do(context.Background(), Request{Path: PathNavigation})
	require.NoError(t, err)
	current = "ridgeline-homes"
	_, err = c.Do(context.Background(), Request{Path: PathNavigation})
	require.NoError(t, err)

	assert.Equal(t, []string{"fallback", "ridgeline-homes"}, got)
}

func TestClient_SendsJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.JSONEq(t, `{"type":"home","homeId":"h1"}`, string(body))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"f1"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testCredentials())
	var out struct {
		ID string `json:"id"`
	}
	err := c.DoJSON(context.Background(), Request{
		Method: http.MethodPost,
		Path:   PathFavorites,
		Body:   domain.NewFavorite(domain.FavoriteHome, "h1"),
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, "f1", out.ID)
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantType    domain.ErrorType
		wantStatus  int
		wantMessage string
	}{
		{name: "error field", status: 404, body: `{"error":"Home not found"}`, wantType: domain.ErrorTypeUpstreamRejected, wantStatus: 404, wantMessage: "Home not found"},
		{name: "message field", status: 422, body: `{"message":"email is invalid"}`, wantType: domain.ErrorTypeUpstreamRejected, wantStatus: 422, wantMessage: "email is invalid"},
		{name: "nested error", status: 403, body: `{"error":{"message":"forbidden tenant"}}`, wantType: domain.ErrorTypeUpstreamRejected, wantStatus: 403, wantMessage: "forbidden tenant"},
		{name: "plain text", status: 503, body: "maintenance\n", wantType: domain.ErrorTypeUpstreamRejected, wantStatus: 503, wantMessage: "maintenance"},
		{name: "empty body", status: 500, body: "", wantType: domain.ErrorTypeUpstreamRejected, wantStatus: 500, wantMessage: "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, testCredentials())
			_, err := c.Do(context.Background(), Request{Path: PathTenant})

			var apiErr *domain.APIError
			require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
			assert.Equal(t, tt.wantType, apiErr.Type)
			assert.Equal(t, tt.wantStatus, apiErr.HTTPStatusCode())
			assert.Equal(t, tt.wantMessage, apiErr.Message)
		})
	}
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg, reg)
	c := NewClient(url, testCredentials(), WithMetrics(m))

	_, err := c.Do(context.Background(), Request{Path: PathTenant, Resource: "tenant"})

	var apiErr *domain.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, domain.ErrorTypeUpstreamUnreachable, apiErr.Type)
	assert.Equal(t, http.StatusInternalServerError, apiErr.HTTPStatusCode())
	assert.Equal(t, 1, testutil.CollectAndCount(m.UpstreamLatency))
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(srv.URL, testCredentials(), WithTimeout(50*time.Millisecond))

	start := time.Now()
	_, err := c.Do(context.Background(), Request{Path: PathTenant})

	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	var apiErr *domain.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, domain.ErrorTypeUpstreamUnreachable, apiErr.Type)
}

func TestClient_Cassette(t *testing.T) {
	rec := vcr.NewVCRRecorder(t, "content_api")
	c := NewClient("https://cms.example.com", testCredentials(), WithHTTPClient(vcr.VCRHTTPClient(rec)))
	ctx := context.Background()

	t.Run("tenant", func(t *testing.T) {
		res := c.Tenant(ctx, "ridgeline-homes")
		require.True(t, res.OK(), "tenant fetch failed: %v", res.Err)

		got := res.Value
		assert.Equal(t, "tnt_01HRIDGE", got.ID)
		assert.Equal(t, domain.TemplateBold, got.HomepageTemplate)
		require.NotNil(t, got.Theme)
		assert.Equal(t, "#23395b", got.Theme.PrimaryColor)
		assert.Len(t, got.Sections, 3)
	})

	t.Run("communities", func(t *testing.T) {
		communities := c.Communities(ctx, "ridgeline-homes").OrElse(nil)
		require.Len(t, communities, 2)
		assert.Equal(t, "Maple Grove", communities[0].Name)
		assert.Equal(t, "Round Rock", communities[0].City)
	})

	t.Run("unknown tenant degrades", func(t *testing.T) {
		res := c.Tenant(ctx, "unknown-tenant")
		require.False(t, res.OK())
		assert.True(t, res.Err.NotFound())
		assert.Nil(t, res.OrElse(nil))
	})
}

func TestDecodeList(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "envelope", body: `{"data":[{"id":"a"},{"id":"b"}]}`, want: 2},
		{name: "bare array", body: `[{"id":"a"}]`, want: 1},
		{name: "null", body: `null`, want: 0},
		{name: "empty envelope", body: `{}`, want: 0},
		{name: "empty", body: ``, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := DecodeList[domain.Community]([]byte(tt.body))
			require.NoError(t, err)
			assert.NotNil(t, items)
			assert.Len(t, items, tt.want)
		})
	}

	_, err := DecodeList[domain.Community]([]byte(`{"data":"nope"}`))
	assert.Error(t, err)
}

func TestResult(t *testing.T) {
	ok := Ok([]string{"a"})
	assert.True(t, ok.OK())
	assert.Equal(t, []string{"a"}, ok.OrElse(nil))

	failed := Fail[[]string]("homes", domain.ErrUpstreamRejected(502, "bad gateway"))
	assert.False(t, failed.OK())
	assert.Equal(t, []string{}, failed.OrElse([]string{}))
	assert.Equal(t, 502, failed.Err.StatusCode)
	assert.Contains(t, failed.Err.Error(), "fetch homes: status 502")

	_, err := failed.Get()
	var apiErr *domain.APIError
	assert.True(t, errors.As(err, &apiErr))
}
