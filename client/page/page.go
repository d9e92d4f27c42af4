package page

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/tkrehbiel/distrolace/client/content"
	"github.com/tkrehbiel/distrolace/client/feed"
)

// TextPage configures how to render a view for the terminal
type TextPage struct {
	Name     string // Name of the view, for errors
	Template string // Golang template to create the view
}

// internalTextPage holds the parsed template for a TextPage
type internalTextPage struct {
	source TextPage
	parsed *template.Template
}

// Renderer renders one kind of view. Init must succeed before Render.
type Renderer interface {
	Init() error
	Render(w io.Writer, data any) error
	Name() string
}

func NewTextPage(page TextPage) Renderer {
	return &internalTextPage{source: page}
}

var funcs = template.FuncMap{
	"count":   feed.FormatCount,
	"content": content.Render,
	"indent": func(prefix, s string) string {
		return prefix + strings.ReplaceAll(s, "\n", "\n"+prefix)
	},
	"date": func(v any) string {
		if t, ok := v.(interface{ Format(string) string }); ok {
			return t.Format("2006-01-02 15:04")
		}
		return ""
	},
}

func (p internalTextPage) Name() string {
	return p.source.Name
}

func (p *internalTextPage) Init() error {
	t, err := template.New(p.source.Name).Funcs(funcs).Option("missingkey=error").Parse(strings.TrimSpace(p.source.Template))
	if err != nil {
		return fmt.Errorf("parsing %s template: %w", p.source.Name, err)
	}
	p.parsed = t
	return nil
}

func (p *internalTextPage) Render(w io.Writer, data any) error {
	if p.parsed == nil {
		return fmt.Errorf("%s template was not initialized", p.source.Name)
	}
	var buf bytes.Buffer
	if err := p.parsed.Execute(&buf, data); err != nil {
		return fmt.Errorf("executing %s template: %w", p.source.Name, err)
	}
	_, err := io.WriteString(w, strings.TrimSpace(buf.String())+"\n")
	return err
}
