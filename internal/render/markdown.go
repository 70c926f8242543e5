// Package render turns post markdown into the HTML served to readers.
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Renderer converts markdown to HTML. Implementations must be deterministic:
// the same input always yields the same output.
type Renderer interface {
	Render(markdown string) (string, error)
}

// Func adapts a plain function to Renderer.
type Func func(markdown string) (string, error)

func (f Func) Render(markdown string) (string, error) {
	return f(markdown)
}

// Markdown renders GitHub flavoured markdown and sanitizes the result so
// that raw HTML embedded by authors cannot inject scripts.
type Markdown struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewMarkdown creates the default renderer.
func NewMarkdown() *Markdown {
	return &Markdown{
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy: bluemonday.UGCPolicy(),
	}
}

func (m *Markdown) Render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return strings.TrimSpace(m.policy.Sanitize(buf.String())), nil
}
