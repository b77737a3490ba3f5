// Package theme derives a tenant's effective branding: palette, font pair,
// corner radius, homepage section order, and active flyout banners. A nil
// tenant always yields the documented defaults.
package theme

import (
	"strings"

	"github.com/sitefront/tenant-gateway/internal/domain"
)

// Default palette and fonts.
const (
	DefaultPrimary     = "#1c2d37"
	DefaultSecondary   = "#eed26e"
	DefaultAccent      = "#c8a24a"
	DefaultBackground  = "#ffffff"
	DefaultForeground  = "#1c2d37"
	DefaultHeadingFont = "Playfair Display"
	DefaultBodyFont    = "Open Sans"
	DefaultRadius      = RadiusMedium

	DefaultFavicon = "/favicon.ico"
	DefaultLogo    = "/images/logo.svg"
)

// Radius is the corner-rounding token.
type Radius string

const (
	RadiusNone   Radius = "none"
	RadiusSmall  Radius = "small"
	RadiusMedium Radius = "medium"
	RadiusLarge  Radius = "large"
)

var radiusLengths = map[Radius]string{
	RadiusNone:   "0px",
	RadiusSmall:  "0.25rem",
	RadiusMedium: "0.5rem",
	RadiusLarge:  "1rem",
}

// ParseRadius maps a tenant value to a token. Unknown values are medium.
func ParseRadius(s string) Radius {
	r := Radius(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := radiusLengths[r]; ok {
		return r
	}
	return DefaultRadius
}

// Length returns the CSS length for r.
func (r Radius) Length() string {
	if l, ok := radiusLengths[r]; ok {
		return l
	}
	return radiusLengths[DefaultRadius]
}

// Theme is a fully resolved theme. Every field is set.
type Theme struct {
	Primary     string
	Secondary   string
	Accent      string
	Background  string
	Foreground  string
	HeadingFont string
	BodyFont    string
	Radius      Radius
}

// Default returns the fallback theme.
func Default() Theme {
	return Theme{
		Primary:     DefaultPrimary,
		Secondary:   DefaultSecondary,
		Accent:      DefaultAccent,
		Background:  DefaultBackground,
		Foreground:  DefaultForeground,
		HeadingFont: DefaultHeadingFont,
		BodyFont:    DefaultBodyFont,
		Radius:      DefaultRadius,
	}
}

// Resolve overlays the tenant's published theme on the defaults, field by
// field.
func Resolve(t *domain.Tenant) Theme {
	th := Default()
	if t == nil || t.Theme == nil {
		return th
	}
	src := t.Theme
	overlay(&th.Primary, src.PrimaryColor)
	overlay(&th.Secondary, src.SecondaryColor)
	overlay(&th.Accent, src.AccentColor)
	overlay(&th.Background, src.BackgroundColor)
	overlay(&th.Foreground, src.ForegroundColor)
	overlay(&th.HeadingFont, src.HeadingFont)
	overlay(&th.BodyFont, src.BodyFont)
	if src.BorderRadius != "" {
		th.Radius = ParseRadius(src.BorderRadius)
	}
	return th
}

func overlay(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

// Variable is one CSS custom property.
type Variable struct {
	Name  string
	Value string
}

// Variables returns the custom properties in a fixed order.
func (th Theme) Variables() []Variable {
	return []Variable{
		{"--color-primary", th.Primary},
		{"--color-secondary", th.Secondary},
		{"--color-accent", th.Accent},
		{"--color-background", th.Background},
		{"--color-foreground", th.Foreground},
		{"--font-heading", fontStack(th.HeadingFont, "serif")},
		{"--font-body", fontStack(th.BodyFont, "sans-serif")},
		{"--radius", th.Radius.Length()},
	}
}

func fontStack(family, generic string) string {
	return `"` + family + `", ` + generic
}

// FontFamilies returns the heading and body families, deduplicated.
func (th Theme) FontFamilies() []string {
	if strings.EqualFold(th.HeadingFont, th.BodyFont) {
		return []string{th.HeadingFont}
	}
	return []string{th.HeadingFont, th.BodyFont}
}

const fontsBaseURL = "https://fonts.googleapis.com/css2"

// FontStylesheetURL returns the Google Fonts stylesheet for the theme's
// families.
func (th Theme) FontStylesheetURL() string {
	var b strings.Builder
	b.WriteString(fontsBaseURL)
	for i, family := range th.FontFamilies() {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString("family=")
		b.WriteString(strings.ReplaceAll(family, " ", "+"))
		b.WriteString(":wght@400;500;600;700")
	}
	b.WriteString("&display=swap")
	return b.String()
}

// Template returns the tenant's homepage template, MODERN when unset or
// unknown.
func Template(t *domain.Tenant) domain.HomepageTemplate {
	if t != nil {
		switch tpl := domain.HomepageTemplate(strings.ToUpper(string(t.HomepageTemplate))); tpl {
		case domain.TemplateModern, domain.TemplateBold:
			return tpl
		}
	}
	return domain.TemplateModern
}

// Favicon returns the tenant favicon URL or the site default.
func Favicon(t *domain.Tenant) string {
	if t != nil && t.Theme != nil && t.Theme.FaviconURL != "" {
		return t.Theme.FaviconURL
	}
	return DefaultFavicon
}

// Logo returns the tenant logo URL or the site default.
func Logo(t *domain.Tenant) string {
	if t != nil && t.Theme != nil && t.Theme.LogoURL != "" {
		return t.Theme.LogoURL
	}
	return DefaultLogo
}
