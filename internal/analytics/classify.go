package analytics

import (
	"net/url"
	"strings"
)

// Page types.
const (
	PageHome        = "home"
	PageCommunity   = "community"
	PageCommunities = "communities"
	PageHomeDetail  = "home_detail"
	PageHomes       = "homes"
	PageFloorplan   = "floorplan"
	PageFloorplans  = "floorplans"
	PageBlog        = "blog"
	PageAbout       = "about"
	PageContact     = "contact"
	PageGallery     = "gallery"
	PageOther       = "other"
)

// PageType classifies a URL path by prefix.
func PageType(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}
	switch {
	case path == "/" || path == "":
		return PageHome
	case strings.HasPrefix(path, "/communities/"):
		return PageCommunity
	case path == "/communities":
		return PageCommunities
	case strings.HasPrefix(path, "/homes/"):
		return PageHomeDetail
	case path == "/homes":
		return PageHomes
	case strings.HasPrefix(path, "/floorplans/"):
		return PageFloorplan
	case path == "/floorplans":
		return PageFloorplans
	case path == "/blog" || strings.HasPrefix(path, "/blog/"):
		return PageBlog
	case strings.HasPrefix(path, "/about"):
		return PageAbout
	case strings.HasPrefix(path, "/contact"):
		return PageContact
	case strings.HasPrefix(path, "/gallery"):
		return PageGallery
	}
	return PageOther
}

// Client is what a user-agent string says about the visitor's device.
type Client struct {
	Device  string `json:"deviceType"`
	Browser string `json:"browser"`
	OS      string `json:"os"`
}

type rule struct {
	needles []string
	value   string
}

// Rules are checked in order against the lowercased user agent; the first
// match wins.
var (
	deviceRules = []rule{
		{[]string{"ipad", "tablet", "kindle", "silk"}, "tablet"},
		{[]string{"mobi", "iphone", "ipod", "android"}, "mobile"},
	}
	browserRules = []rule{
		{[]string{"edg/", "edge/"}, "Edge"},
		{[]string{"opr/", "opera"}, "Opera"},
		{[]string{"samsungbrowser"}, "Samsung Internet"},
		{[]string{"firefox", "fxios"}, "Firefox"},
		{[]string{"chrome", "crios"}, "Chrome"},
		{[]string{"safari"}, "Safari"},
	}
	osRules = []rule{
		{[]string{"windows"}, "Windows"},
		{[]string{"iphone", "ipad", "ipod"}, "iOS"},
		{[]string{"android"}, "Android"},
		{[]string{"cros"}, "ChromeOS"},
		{[]string{"mac os", "macintosh"}, "macOS"},
		{[]string{"linux"}, "Linux"},
	}
)

func firstMatch(ua string, rules []rule, fallback string) string {
	for _, r := range rules {
		for _, n := range r.needles {
			if strings.Contains(ua, n) {
				return r.value
			}
		}
	}
	return fallback
}

// ParseUserAgent derives device type, browser and OS from ua.
func ParseUserAgent(ua string) Client {
	ua = strings.ToLower(ua)
	return Client{
		Device:  firstMatch(ua, deviceRules, "desktop"),
		Browser: firstMatch(ua, browserRules, "Other"),
		OS:      firstMatch(ua, osRules, "Other"),
	}
}

// UTMParams are the campaign parameters found in the landing query.
var UTMParams = []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content"}

// ExtractUTM returns the non-empty UTM parameters of q.
func ExtractUTM(q url.Values) map[string]string {
	out := make(map[string]string)
	for _, name := range UTMParams {
		if v := strings.TrimSpace(q.Get(name)); v != "" {
			out[name] = v
		}
	}
	return out
}
