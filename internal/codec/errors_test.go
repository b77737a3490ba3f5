package codec

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sitefront/tenant-gateway/internal/domain"
)

func decodeEnvelope(t *testing.T, body []byte) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v (body=%s)", err, body)
	}
	return env
}

func TestFormatError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "unreachable upstream uses fixed body",
			err:         domain.ErrUpstreamUnreachable(errors.New("dial tcp 10.0.0.1:443: i/o timeout")),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Internal server error",
		},
		{
			name:        "rejected upstream passes status and message",
			err:         domain.ErrUpstreamRejected(http.StatusNotFound, "Community not found"),
			wantStatus:  http.StatusNotFound,
			wantMessage: "Community not found",
		},
		{
			name:        "unauthorized",
			err:         domain.ErrUnauthorized("Authorization required"),
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Authorization required",
		},
		{
			name:        "plain error hides details",
			err:         errors.New("panic: runtime error at handler.go:42"),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := FormatError(tt.err)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			env := decodeEnvelope(t, resp.Body)
			if env.Error != tt.wantMessage {
				t.Errorf("error = %q, want %q", env.Error, tt.wantMessage)
			}
			if env.Status != tt.wantStatus {
				t.Errorf("status = %d, want %d", env.Status, tt.wantStatus)
			}
		})
	}
}

func TestFormatError_TruncatesLongMessages(t *testing.T) {
	long := strings.Repeat("x", 500)
	resp := FormatError(domain.ErrUpstreamRejected(http.StatusBadRequest, long))
	env := decodeEnvelope(t, resp.Body)

	if got := len([]rune(env.Error)); got != maxMessageRunes+1 {
		t.Errorf("message length = %d runes, want %d", got, maxMessageRunes+1)
	}
	if !strings.HasSuffix(env.Error, "…") {
		t.Errorf("truncated message should end with ellipsis, got %q", env.Error[len(env.Error)-5:])
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, domain.ErrInvalidRequest("bad"))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("héllo", 10); got != "héllo" {
		t.Errorf("Truncate() = %q, want unchanged", got)
	}
	if got := Truncate("héllo", 2); got != "hé…" {
		t.Errorf("Truncate() = %q, want %q", got, "hé…")
	}
}
