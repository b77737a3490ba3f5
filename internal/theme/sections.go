package theme

import (
	"cmp"
	"slices"
	"time"

	"github.com/sitefront/tenant-gateway/internal/domain"
)

// Homepage section types.
const (
	SectionHero                = "hero"
	SectionSearch              = "search"
	SectionFeaturedCommunities = "featured_communities"
	SectionFeaturedHomes       = "featured_homes"
	SectionFloorplans          = "floorplans"
	SectionAbout               = "about"
	SectionTestimonials        = "testimonials"
	SectionGallery             = "gallery"
	SectionContact             = "contact"
)

// DefaultSections is the homepage order for tenants that configure none.
var DefaultSections = []string{
	SectionHero,
	SectionSearch,
	SectionFeaturedCommunities,
	SectionFeaturedHomes,
	SectionFloorplans,
	SectionAbout,
	SectionTestimonials,
	SectionGallery,
	SectionContact,
}

// Sections returns the enabled homepage sections sorted by order. Equal
// orders keep their configured sequence.
func Sections(t *domain.Tenant) []string {
	if t == nil || len(t.Sections) == 0 {
		return slices.Clone(DefaultSections)
	}

	enabled := make([]domain.SectionConfig, 0, len(t.Sections))
	for _, s := range t.Sections {
		if s.Enabled && s.Type != "" {
			enabled = append(enabled, s)
		}
	}
	slices.SortStableFunc(enabled, func(a, b domain.SectionConfig) int {
		return cmp.Compare(a.Order, b.Order)
	})

	out := make([]string, len(enabled))
	for i, s := range enabled {
		out[i] = s.Type
	}
	return out
}

// ActiveBanners returns the tenant's enabled banners whose window contains now
// and whose id is not in dismissed.
func ActiveBanners(t *domain.Tenant, dismissed []string, now time.Time) []domain.FlyoutBanner {
	if t == nil {
		return nil
	}
	var out []domain.FlyoutBanner
	for _, b := range t.FlyoutBanners {
		switch {
		case !b.Enabled:
		case b.StartsAt != nil && now.Before(*b.StartsAt):
		case b.EndsAt != nil && !now.Before(*b.EndsAt):
		case slices.Contains(dismissed, b.ID):
		default:
			out = append(out, b)
		}
	}
	return out
}
