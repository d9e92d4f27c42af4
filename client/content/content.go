// Package content turns a post's wire content type and body into a
// single variant, and renders that variant for the terminal.
package content

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/tkrehbiel/distrolace/client/telemetry"
)

// PostContent is one of PlainText, Markdown or Image
type PostContent interface {
	ContentType() string
}

type PlainText struct {
	Text string
}

// Markdown holds markdown content already rendered to HTML.
// Use MarkdownFrom to build one from markdown source.
type Markdown struct {
	HTML string
}

// Image references image data, either a URL or base64 data
type Image struct {
	Ref       string
	MediaType string
}

func (PlainText) ContentType() string { return "text/plain" }
func (Markdown) ContentType() string  { return "text/markdown" }
func (i Image) ContentType() string   { return i.MediaType + ";base64" }

// Parse picks the variant for a wire content type. Unknown types are plain text.
func Parse(contentType, body string) PostContent {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case ct == "text/markdown":
		return MarkdownFrom(body)
	case strings.HasPrefix(ct, "image/"):
		mediaType, _, _ := strings.Cut(ct, ";")
		return Image{Ref: body, MediaType: mediaType}
	}
	return PlainText{Text: body}
}

// Raw HTML inside markdown is kept. Crossposted feed items carry HTML
// bodies, and rendering only ever produces terminal text.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
)

// MarkdownFrom converts markdown source to its HTML form
func MarkdownFrom(source string) Markdown {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(source), &buf); err != nil {
		telemetry.Error(err, "converting markdown")
		return Markdown{HTML: "<pre>" + html.EscapeString(source) + "</pre>"}
	}
	return Markdown{HTML: buf.String()}
}

// Render returns terminal text for any content variant
func Render(c PostContent) string {
	switch v := c.(type) {
	case PlainText:
		return v.Text
	case Markdown:
		return renderHTML(v.HTML)
	case Image:
		return renderImage(v)
	}
	return ""
}

func renderImage(img Image) string {
	ref := strings.TrimSpace(img.Ref)
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return "[image " + ref + "]"
	}
	return "[" + img.MediaType + " image]"
}

var (
	paragraphElements = "p, h1, h2, h3, h4, h5, h6, pre, blockquote, ul, ol, table, hr"
	lineElements      = "li, tr, div"
	spaces            = regexp.MustCompile(`\s+`)
)

func renderHTML(source string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(source))
	if err != nil {
		telemetry.Error(err, "parsing markdown html")
		return source
	}
	doc.Find("script, style").Remove()
	// source line breaks are not text breaks outside of pre
	doc.Find("*").Not("pre, pre *").Contents().Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) == "#text" {
			s.Nodes[0].Data = spaces.ReplaceAllString(s.Nodes[0].Data, " ")
		}
	})
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		alt := s.AttrOr("alt", "")
		s.ReplaceWithHtml(html.EscapeString("[image " + alt + "]"))
	})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := s.AttrOr("href", "")
		if href != "" && strings.TrimSpace(s.Text()) != href {
			s.AppendHtml(html.EscapeString(" (" + href + ")"))
		}
	})
	doc.Find("li").Each(func(_ int, s *goquery.Selection) {
		s.PrependHtml("- ")
	})
	doc.Find(lineElements).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	doc.Find(paragraphElements).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n\n")
	})
	return tidy(doc.Text())
}

// tidy trims lines and collapses runs of blank lines. Indentation
// inside code blocks does not survive.
func tidy(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
