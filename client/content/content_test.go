package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	assert.Equal(t, PlainText{Text: "hi"}, Parse("text/plain", "hi"))
	assert.Equal(t, Markdown{HTML: "<p><em>hi</em></p>\n"}, Parse("text/markdown", "*hi*"))
	assert.Equal(t, Image{Ref: "abc", MediaType: "image/png"}, Parse("image/png;base64", "abc"))
	assert.Equal(t, Image{Ref: "abc", MediaType: "image/jpeg"}, Parse("IMAGE/JPEG;base64", "abc"))
	assert.Equal(t, PlainText{Text: "x"}, Parse("application/weird", "x"))
	assert.Equal(t, PlainText{Text: "x"}, Parse("", "x"))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/plain", PlainText{}.ContentType())
	assert.Equal(t, "text/markdown", Markdown{}.ContentType())
	assert.Equal(t, "image/png;base64", Image{MediaType: "image/png"}.ContentType())
}

func TestRender_Plain(t *testing.T) {
	assert.Equal(t, "<b>not html</b>", Render(PlainText{Text: "<b>not html</b>"}))
}

func TestRender_Markdown(t *testing.T) {
	source := `<h1>Title</h1><p>Hello <a href="http://x.example">link</a></p><ul><li>one</li><li>two</li></ul>`
	assert.Equal(t, "Title\n\nHello link (http://x.example)\n\n- one\n- two", Render(Markdown{HTML: source}))
}

func TestRender_MarkdownSource(t *testing.T) {
	source := "# Title\n\nHello [link](http://x.example)\nand more\n\n- one\n- two\n"
	assert.Equal(t, "Title\n\nHello link (http://x.example) and more\n\n- one\n- two", Render(Parse("text/markdown", source)))

	// markdown syntax and a literal < never leak into the output
	assert.Equal(t, "a < b and bold", Render(Parse("text/markdown", "a < b and **bold**")))
	assert.Equal(t, "first\nsecond", Render(Parse("text/markdown", "first\\\nsecond")))
}

func TestRender_MarkdownWithHTML(t *testing.T) {
	source := "<p>from a feed</p><script>alert(1)</script>"
	assert.Equal(t, "from a feed", Render(Parse("text/markdown", source)))
}

func TestRender_MarkdownLineBreaks(t *testing.T) {
	source := "<p>a<br>b</p>\n\n\n<p>c</p>"
	assert.Equal(t, "a\nb\n\nc", Render(Markdown{HTML: source}))
}

func TestRender_Image(t *testing.T) {
	assert.Equal(t, "[image https://x.example/a.png]", Render(Image{Ref: "https://x.example/a.png", MediaType: "image/png"}))
	assert.Equal(t, "[image/png image]", Render(Image{Ref: "iVBORw0KGgo=", MediaType: "image/png"}))
}
