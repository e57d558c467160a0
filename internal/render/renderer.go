// Package render turns markdown pages into HTML.
package render

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
)

// Options controls markdown rendering.
type Options struct {
	// HardWraps renders single newlines as <br>.
	HardWraps bool
	// SafeMode drops raw HTML embedded in pages.
	SafeMode bool
	// Math asks the page template to load MathJax.
	Math bool
}

// Renderer converts markdown to HTML. It is safe for concurrent use.
type Renderer struct {
	opts Options
	md   goldmark.Markdown
}

// New builds a Renderer with GFM tables, footnotes, definition lists, heading
// anchors and attribute syntax enabled.
func New(opts Options) *Renderer {
	rendererOptions := []renderer.Option{}
	if opts.HardWraps {
		rendererOptions = append(rendererOptions, html.WithHardWraps())
	}
	if !opts.SafeMode {
		rendererOptions = append(rendererOptions, html.WithUnsafe())
	}

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			extension.DefinitionList,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithAttribute(),
		),
		goldmark.WithRendererOptions(rendererOptions...),
	)
	return &Renderer{opts: opts, md: md}
}

// Options returns the options the renderer was built with.
func (r *Renderer) Options() Options {
	return r.opts
}

// Fingerprint identifies the options that change rendered HTML. Math only
// affects the page template and is left out.
func (o Options) Fingerprint() string {
	return fmt.Sprintf("hard_wraps=%t;safe_mode=%t", o.HardWraps, o.SafeMode)
}

// Render converts markdown source to an HTML fragment.
func (r *Renderer) Render(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.md.Convert(src, &buf); err != nil {
		return nil, fmt.Errorf("render: markdown: %w", err)
	}
	return buf.Bytes(), nil
}
