// Package preview assembles the playground's markup, style and script
// buffers into one document for a sandboxed frame.
package preview

import (
	"bytes"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

const baseStyle = `body {
  margin: 0;
  padding: 20px;
  font-family: Arial, sans-serif;
}
@keyframes rainbow {
  0% { background-position: 0% 50% }
  50% { background-position: 100% 50% }
  100% { background-position: 0% 50% }
}`

var (
	scriptCloser = regexp.MustCompile(`(?i)</(script)`)
	styleCloser  = regexp.MustCompile(`(?i)</(style)`)
)

// Compose builds the preview document. Script elements embedded in markup
// are dropped so the script buffer is the only executable code; the script
// buffer runs inside a try/catch that logs runtime errors to the console.
// Compose never fails: malformed input still yields a complete document.
func Compose(markup, style, script string) string {
	var b strings.Builder
	b.Grow(len(markup) + len(style) + len(script) + len(baseStyle) + 256)

	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<style>")
	b.WriteString(styleCloser.ReplaceAllString(style, `<\/$1`))
	b.WriteString("</style>\n<style>\n")
	b.WriteString(baseStyle)
	b.WriteString("\n</style>\n</head>\n<body>\n")
	b.WriteString(StripScripts(markup))
	b.WriteString("\n<script>\ntry {\n")
	b.WriteString(scriptCloser.ReplaceAllString(script, `<\/$1`))
	b.WriteString("\n} catch(error) {\n  console.error('JavaScript Error:', error);\n}\n</script>\n</body>\n</html>\n")
	return b.String()
}

// StripScripts removes every script element (tag names are matched
// case-insensitively, with any attributes) and keeps all other markup byte
// for byte. An unterminated script element swallows the rest of the input,
// as it would in a browser.
//
// Nothing else may stay open at the end of the input, or it would swallow the
// script buffer that follows in the document. A raw text element such as
// textarea or style gets its end tag, a comment or doctype gets its closer and
// a trailing partial tag is kept as escaped text. A plaintext start tag is
// dropped and the text after it is escaped.
func StripScripts(markup string) string {
	if !strings.Contains(markup, "<") {
		return markup
	}

	var (
		out      bytes.Buffer
		inScript bool
		plain    bool
		openRaw  string
	)
	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		tt := z.Next()
		// TagName lowercases the buffer in place, so copy first.
		raw := string(z.Raw())
		if tt == html.ErrorToken {
			if !inScript {
				out.WriteString(html.EscapeString(raw))
			}
			break
		}
		if inScript {
			if tt == html.EndTagToken && tagName(z) == "script" {
				inScript = false
			}
			continue
		}
		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			switch name := tagName(z); {
			case name == "script":
				inScript = true
				continue
			case name == "plaintext":
				plain = true
				continue
			case rawText[name]:
				openRaw = name
			}
		case html.EndTagToken:
			switch tagName(z) {
			case "script":
				continue
			case openRaw:
				openRaw = ""
			}
		case html.TextToken:
			if plain {
				out.WriteString(html.EscapeString(raw))
				continue
			}
		case html.CommentToken, html.DoctypeToken:
			raw += declarationCloser(raw)
		}
		out.WriteString(raw)
	}

	switch {
	case openRaw != "":
		out.WriteString("</" + openRaw + ">")
	case bytes.HasSuffix(out.Bytes(), []byte("</")):
		// "</" before the script tag would open a bogus comment.
		out.Truncate(out.Len() - len("</"))
		out.WriteString("&lt;/")
	}
	return out.String()
}

// rawText holds the elements, other than script and plaintext, whose content
// is read as text up to the matching end tag.
var rawText = map[string]bool{
	"iframe":   true,
	"noembed":  true,
	"noframes": true,
	"noscript": true,
	"style":    true,
	"textarea": true,
	"title":    true,
	"xmp":      true,
}

// declarationCloser returns what a comment, bogus comment or doctype cut off
// by the end of the input still needs.
func declarationCloser(raw string) string {
	switch {
	case strings.HasPrefix(raw, "<!--"):
		if strings.HasSuffix(raw, "-->") || strings.HasSuffix(raw, "--!>") {
			return ""
		}
		return "-->"
	case strings.HasSuffix(raw, ">"):
		return ""
	}
	return ">"
}

func tagName(z *html.Tokenizer) string {
	name, _ := z.TagName()
	return string(name)
}
