package theme

import (
	"fmt"
	"strings"
	"sync"
)

// FontLinkID identifies the injected font stylesheet link.
const FontLinkID = "tenant-theme-fonts"

// Document is the page surface a theme is applied to.
type Document interface {
	SetProperty(name, value string)
	// Link returns the href of the stylesheet link with the given id.
	Link(id string) (href string, ok bool)
	SetLink(id, href string)
	RemoveLink(id string)
}

// Apply writes the theme's custom properties and loads its fonts. A font link
// already pointing at the same stylesheet is left in place; any other one is
// replaced.
func Apply(doc Document, th Theme) {
	for _, v := range th.Variables() {
		doc.SetProperty(v.Name, v.Value)
	}

	href := th.FontStylesheetURL()
	if current, ok := doc.Link(FontLinkID); ok {
		if current == href {
			return
		}
		doc.RemoveLink(FontLinkID)
	}
	doc.SetLink(FontLinkID, href)
}

// Page is an in-memory Document. The zero value is ready to use.
type Page struct {
	mu    sync.Mutex
	names []string
	props map[string]string
	links map[string]string
	// LinkWrites counts SetLink calls.
	LinkWrites int
}

func (p *Page) SetProperty(name, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.props == nil {
		p.props = make(map[string]string)
	}
	if _, ok := p.props[name]; !ok {
		p.names = append(p.names, name)
	}
	p.props[name] = value
}

// Property returns a custom property value.
func (p *Page) Property(name string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.props[name]
}

func (p *Page) Link(id string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	href, ok := p.links[id]
	return href, ok
}

func (p *Page) SetLink(id, href string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.links == nil {
		p.links = make(map[string]string)
	}
	p.links[id] = href
	p.LinkWrites++
}

func (p *Page) RemoveLink(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.links, id)
}

// CSS renders the properties as a :root rule in first-set order.
func (p *Page) CSS() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var b strings.Builder
	b.WriteString(":root {\n")
	for _, name := range p.names {
		fmt.Fprintf(&b, "  %s: %s;\n", name, p.props[name])
	}
	b.WriteString("}\n")
	return b.String()
}
