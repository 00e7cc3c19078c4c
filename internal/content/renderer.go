// Package content renders lesson steps to HTML.
package content

import (
	"bytes"
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"codemaster-service/internal/domain"
)

// Renderer converts steps with goldmark. Raw HTML in lesson markdown is
// escaped (WithUnsafe is not set).
type Renderer struct {
	md goldmark.Markdown
}

func NewRenderer() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(goldmarkHTML.WithHardWraps()),
		),
	}
}

// Render implements app.StepRenderer.
func (r *Renderer) Render(step domain.Step) (string, error) {
	var buf bytes.Buffer
	switch step.Type {
	case domain.StepText:
		if err := r.convert(&buf, step.Content); err != nil {
			return "", err
		}
	case domain.StepCode:
		if err := r.convert(&buf, fence(step.Language, step.Content)); err != nil {
			return "", err
		}
		if step.Explanation != "" {
			if err := r.convert(&buf, step.Explanation); err != nil {
				return "", err
			}
		}
	case domain.StepVideo:
		if u, err := url.Parse(step.Content); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
			fmt.Fprintf(&buf, "<video controls src=\"%s\"></video>\n", html.EscapeString(u.String()))
		}
		if step.Description != "" {
			if err := r.convert(&buf, step.Description); err != nil {
				return "", err
			}
		}
	default:
		return "", fmt.Errorf("render step %q: unknown type %q", step.Title, step.Type)
	}
	return buf.String(), nil
}

func (r *Renderer) convert(buf *bytes.Buffer, source string) error {
	if err := r.md.Convert([]byte(source), buf); err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	return nil
}

// fence wraps code in a backtick fence longer than any run inside it.
func fence(lang, code string) string {
	longest, run := 0, 0
	for _, c := range code {
		if c == '`' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	marker := strings.Repeat("`", max(3, longest+1))
	return marker + lang + "\n" + strings.TrimRight(code, "\n") + "\n" + marker + "\n"
}
