// Package card renders the floating dashboard cards as sanitized HTML
// fragments, with a Markdown rendition for text-only clients.
package card

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/farmdash/idgen"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Card kinds.
const (
	KindSummary     = "summary"
	KindCropMachine = "crop_machine"
	KindResource    = "resource"
)

// Card is a rendered card: the header fields plus the body fragment.
type Card struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Title string `json:"title"`
	Icon  string `json:"icon,omitempty"`
	HTML  string `json:"html"`
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLocation sets the time zone used for absolute dates. Default: time.Local.
func WithLocation(loc *time.Location) Option {
	return func(r *Renderer) { r.loc = loc }
}

// WithIDs sets the generator for card ids. Default: idgen.UUIDv7.
func WithIDs(gen idgen.Generator) Option {
	return func(r *Renderer) { r.newID = gen }
}

// Renderer builds cards. It is safe for concurrent use.
type Renderer struct {
	tmpl   *template.Template
	policy *bluemonday.Policy
	md     *converter.Converter
	loc    *time.Location
	newID  idgen.Generator
}

// NewRenderer parses the embedded templates.
func NewRenderer(opts ...Option) (*Renderer, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("card: parse templates: %w", err)
	}
	r := &Renderer{
		tmpl:   tmpl,
		policy: cardPolicy(),
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		loc:   time.Local,
		newID: idgen.UUIDv7(),
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// cardPolicy is the UGC policy plus the markup the cards need: layout
// classes, tab buttons and the pack index used to switch panes.
func cardPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("div", "span", "ul", "li", "h6", "hr", "p", "img", "button")
	p.AllowAttrs("class").Globally()
	p.AllowAttrs("type").Matching(bluemonday.SpaceSeparatedTokens).OnElements("button")
	p.AllowAttrs("data-pack-index").Matching(bluemonday.Integer).OnElements("button", "div")
	p.AllowAttrs("src", "alt").OnElements("img")
	return p
}

func (r *Renderer) execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("card: render %s: %w", name, err)
	}
	return r.policy.Sanitize(buf.String()), nil
}

// Markdown converts a card to Markdown, title first.
func (r *Renderer) Markdown(c *Card) (string, error) {
	html := "<h3>" + template.HTMLEscapeString(c.Title) + "</h3>" + c.HTML
	md, err := r.md.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("card: markdown: %w", err)
	}
	return strings.TrimSpace(md), nil
}

func (r *Renderer) dateTime(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).In(r.loc).Format("02/01/2006, 15:04:05")
}
