package proxy

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/sitefront/tenant-gateway/internal/backend"
	"github.com/sitefront/tenant-gateway/internal/domain"
	"github.com/sitefront/tenant-gateway/internal/events"
	"github.com/sitefront/tenant-gateway/internal/server"
)

const (
	resourceInquiries = "inquiries"
	resourceAnalytics = "analytics"

	maxNameRunes    = 200
	maxMessageRunes = 5000
)

func (h *Handler) createInquiry(w http.ResponseWriter, r *http.Request) {
	var in domain.Inquiry
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&in); err != nil {
		h.fail(w, r, resourceInquiries, domain.ErrInvalidRequest("Invalid JSON body").WithCause(err))
		return
	}
	if err := validateInquiry(&in); err != nil {
		h.fail(w, r, resourceInquiries, err)
		return
	}

	resp, err := h.backend.Do(r.Context(), backend.Request{
		Method:   http.MethodPost,
		Path:     backend.PathInquiries,
		Body:     in,
		Slug:     h.slug(r),
		Resource: resourceInquiries,
	})
	h.respond(w, r, resourceInquiries, resp, err)
}

// validateInquiry trims the submission in place and checks required fields.
func validateInquiry(in *domain.Inquiry) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Message = strings.TrimSpace(in.Message)

	switch {
	case in.Name == "":
		return domain.ErrInvalidRequest("Name is required")
	case utf8.RuneCountInString(in.Name) > maxNameRunes:
		return domain.ErrInvalidRequest("Name is too long")
	case in.Email == "":
		return domain.ErrInvalidRequest("Email is required")
	case utf8.RuneCountInString(in.Message) > maxMessageRunes:
		return domain.ErrInvalidRequest("Message is too long")
	}
	addr, err := mail.ParseAddress(in.Email)
	if err != nil || addr.Name != "" {
		return domain.ErrInvalidRequest("Email is invalid")
	}
	return nil
}

// ingestAnalytics stamps a client event with the tenant id and hands it to the
// configured sink.
func (h *Handler) ingestAnalytics(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		h.fail(w, r, resourceAnalytics, domain.ErrInvalidRequest("Invalid event payload").WithCause(err))
		return
	}
	payload, err := events.ParsePayload(raw)
	if err != nil {
		h.fail(w, r, resourceAnalytics, domain.ErrInvalidRequest("Invalid event payload").WithCause(err))
		return
	}

	ctx := r.Context()
	slug := h.slug(r)
	tenantID, err := h.tenantIDs.TenantID(ctx, slug)
	if err != nil {
		h.logger.WarnContext(ctx, "analytics tenant lookup failed",
			slog.String("tenant", slug),
			slog.String("error", err.Error()))
		h.fail(w, r, resourceAnalytics, err)
		return
	}

	event, err := payload.Event(slug, tenantID, h.now())
	if err != nil {
		h.fail(w, r, resourceAnalytics, domain.ErrInvalidRequest("Invalid event payload").WithCause(err))
		return
	}
	server.AddLogField(ctx, "event_type", event.Type)

	if err := h.events.Publish(ctx, event); err != nil {
		h.fail(w, r, resourceAnalytics, err)
		return
	}
	h.count(resourceAnalytics, http.StatusAccepted)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	w.Write([]byte(`{"success":true}`))
}
