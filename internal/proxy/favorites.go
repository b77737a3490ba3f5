package proxy

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/sitefront/tenant-gateway/internal/backend"
	"github.com/sitefront/tenant-gateway/internal/domain"
	"github.com/sitefront/tenant-gateway/internal/server"
)

const resourceFavorites = "favorites"

func (h *Handler) listFavorites(w http.ResponseWriter, r *http.Request) {
	query := url.Values{}
	if t := r.URL.Query().Get("type"); t != "" {
		if !domain.FavoriteType(t).Valid() {
			h.fail(w, r, resourceFavorites, domain.ErrInvalidRequest("Invalid favorite type"))
			return
		}
		query.Set("type", t)
	}

	resp, err := h.backend.Do(r.Context(), backend.Request{
		Method:        http.MethodGet,
		Path:          backend.PathFavorites,
		Query:         query,
		Slug:          h.slug(r),
		Authorization: server.GetAuthorization(r.Context()),
		Resource:      resourceFavorites,
	})
	h.respond(w, r, resourceFavorites, resp, err)
}

func (h *Handler) addFavorite(w http.ResponseWriter, r *http.Request) {
	var in domain.Favorite
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&in); err != nil {
		h.fail(w, r, resourceFavorites, domain.ErrInvalidRequest("Invalid JSON body").WithCause(err))
		return
	}
	fav, err := validateFavorite(in)
	if err != nil {
		h.fail(w, r, resourceFavorites, err)
		return
	}

	resp, err := h.backend.Do(r.Context(), backend.Request{
		Method:        http.MethodPost,
		Path:          backend.PathFavorites,
		Body:          fav,
		Slug:          h.slug(r),
		Authorization: server.GetAuthorization(r.Context()),
		Resource:      resourceFavorites,
	})
	h.respond(w, r, resourceFavorites, resp, err)
}

// validateFavorite requires a known type and exactly one item id, matching
// that type.
func validateFavorite(in domain.Favorite) (domain.Favorite, error) {
	if !in.Type.Valid() {
		return domain.Favorite{}, domain.ErrInvalidRequest("Invalid favorite type")
	}
	set := 0
	for _, id := range []string{in.HomeID, in.CommunityID, in.FloorplanID} {
		if id != "" {
			set++
		}
	}
	if set != 1 || in.ItemID() == "" {
		return domain.Favorite{}, domain.ErrInvalidRequest("Exactly one of homeId, communityId, floorplanId is required")
	}
	return domain.NewFavorite(in.Type, in.ItemID()), nil
}

func (h *Handler) removeFavorite(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	resp, err := h.backend.Do(r.Context(), backend.Request{
		Method:        http.MethodDelete,
		Path:          backend.PathFavorites + "/" + url.PathEscape(id),
		Slug:          h.slug(r),
		Authorization: server.GetAuthorization(r.Context()),
		Resource:      resourceFavorites,
	})
	h.respond(w, r, resourceFavorites, resp, err)
}

// removeFavoriteItem deletes by listing rather than favorite id. A favorite
// that is already gone counts as removed.
func (h *Handler) removeFavoriteItem(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	favType, itemID := domain.FavoriteType(q.Get("type")), q.Get("itemId")
	if !favType.Valid() || itemID == "" {
		h.fail(w, r, resourceFavorites, domain.ErrInvalidRequest("type and itemId are required"))
		return
	}

	resp, err := h.backend.Do(r.Context(), backend.Request{
		Method:        http.MethodDelete,
		Path:          backend.PathFavoriteItem,
		Query:         url.Values{"type": {string(favType)}, "itemId": {itemID}},
		Slug:          h.slug(r),
		Authorization: server.GetAuthorization(r.Context()),
		Resource:      resourceFavorites,
	})
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) && apiErr.Type == domain.ErrorTypeUpstreamRejected && apiErr.StatusCode == http.StatusNotFound {
		h.count(resourceFavorites, http.StatusNoContent)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.respond(w, r, resourceFavorites, resp, err)
}
