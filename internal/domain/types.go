package domain

import "time"

// Tenant is the read-only brand record served by the content API.
type Tenant struct {
	ID               string           `json:"id"`
	Slug             string           `json:"slug"`
	Name             string           `json:"name"`
	Contact          Contact          `json:"contact"`
	Theme            *Theme           `json:"theme,omitempty"`
	HomepageTemplate HomepageTemplate `json:"homepageTemplate,omitempty"`
	Sections         []SectionConfig  `json:"sections,omitempty"`
	FlyoutBanners    []FlyoutBanner   `json:"flyoutBanners,omitempty"`
}

// Contact holds public contact details for a tenant.
type Contact struct {
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}

// Theme is the tenant's published branding. Empty fields fall back to defaults.
type Theme struct {
	PrimaryColor    string `json:"primaryColor,omitempty"`
	SecondaryColor  string `json:"secondaryColor,omitempty"`
	AccentColor     string `json:"accentColor,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
	ForegroundColor string `json:"foregroundColor,omitempty"`
	HeadingFont     string `json:"headingFont,omitempty"`
	BodyFont        string `json:"bodyFont,omitempty"`
	BorderRadius    string `json:"borderRadius,omitempty"`
	LogoURL         string `json:"logoUrl,omitempty"`
	FaviconURL      string `json:"faviconUrl,omitempty"`
}

// HomepageTemplate selects the homepage layout variant.
type HomepageTemplate string

const (
	TemplateModern HomepageTemplate = "MODERN"
	TemplateBold   HomepageTemplate = "BOLD"
)

// SectionConfig enables and orders one homepage section.
type SectionConfig struct {
	Type    string `json:"type"`
	Enabled bool   `json:"enabled"`
	Order   int    `json:"order"`
}

// FlyoutBanner is a time-windowed promotional popup.
type FlyoutBanner struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Body     string     `json:"body,omitempty"`
	LinkURL  string     `json:"linkUrl,omitempty"`
	ImageURL string     `json:"imageUrl,omitempty"`
	Enabled  bool       `json:"enabled"`
	StartsAt *time.Time `json:"startsAt,omitempty"`
	EndsAt   *time.Time `json:"endsAt,omitempty"`
}

// Community is a listing of a residential community.
type Community struct {
	ID    string `json:"id"`
	Slug  string `json:"slug"`
	Name  string `json:"name"`
	City  string `json:"city"`
	State string `json:"state"`
}

// Home is a single home listing.
type Home struct {
	ID      string `json:"id"`
	Slug    string `json:"slug"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
}

// Floorplan is a plan offered in one or more communities.
type Floorplan struct {
	ID            string `json:"id"`
	Slug          string `json:"slug"`
	Name          string `json:"name"`
	CommunityName string `json:"communityName,omitempty"`
	City          string `json:"city,omitempty"`
	State         string `json:"state,omitempty"`
}

// ListResponse is the envelope the content API uses for collections.
type ListResponse[T any] struct {
	Data []T `json:"data"`
}

// FavoriteType identifies what a favorite points at.
type FavoriteType string

const (
	FavoriteHome      FavoriteType = "home"
	FavoriteCommunity FavoriteType = "community"
	FavoriteFloorplan FavoriteType = "floorplan"
)

// Valid reports whether t is one of the known favorite types.
func (t FavoriteType) Valid() bool {
	switch t {
	case FavoriteHome, FavoriteCommunity, FavoriteFloorplan:
		return true
	}
	return false
}

// Favorite associates an authenticated user with one listing.
type Favorite struct {
	ID          string       `json:"id,omitempty"`
	UserID      string       `json:"userId,omitempty"`
	Type        FavoriteType `json:"type"`
	HomeID      string       `json:"homeId,omitempty"`
	CommunityID string       `json:"communityId,omitempty"`
	FloorplanID string       `json:"floorplanId,omitempty"`
	CreatedAt   *time.Time   `json:"createdAt,omitempty"`
}

// ItemID returns the id of the favorited listing for the favorite's type.
func (f Favorite) ItemID() string {
	switch f.Type {
	case FavoriteHome:
		return f.HomeID
	case FavoriteCommunity:
		return f.CommunityID
	case FavoriteFloorplan:
		return f.FloorplanID
	}
	return ""
}

// NewFavorite builds an add request with exactly one item id set.
func NewFavorite(t FavoriteType, itemID string) Favorite {
	f := Favorite{Type: t}
	switch t {
	case FavoriteHome:
		f.HomeID = itemID
	case FavoriteCommunity:
		f.CommunityID = itemID
	case FavoriteFloorplan:
		f.FloorplanID = itemID
	}
	return f
}

// Inquiry is a contact form submission.
type Inquiry struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	Message     string `json:"message,omitempty"`
	CommunityID string `json:"communityId,omitempty"`
	HomeID      string `json:"homeId,omitempty"`
	Source      string `json:"source,omitempty"`
}
