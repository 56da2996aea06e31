// Package markdown renders model output for display: markdown prose through
// goldmark, and structured insight JSON through typed HTML panels.
package markdown

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

var markdownEngine = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Table,
		extension.Strikethrough,
		extension.TaskList,
		extension.Linkify,
		extension.Typographer,
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithHardWraps(),
		htmlrenderer.WithXHTML(),
	),
)

// RenderMarkdown converts markdown to HTML. Input that fails to convert is
// escaped and wrapped in a <pre> so something readable always comes back.
func RenderMarkdown(source string) template.HTML {
	text := strings.TrimSpace(source)
	if text == "" {
		return ""
	}

	var out bytes.Buffer
	if err := markdownEngine.Convert([]byte(text), &out); err != nil {
		return renderRawText(text)
	}
	return template.HTML(out.String())
}

// RenderInsightBody picks the right presentation for one cached insight:
// markdown for prose entries, a typed panel for structured entries, and an
// escaped <pre> for anything that does not parse.
func RenderInsightBody(key, content string) template.HTML {
	switch key {
	case "tldr":
		return RenderMarkdown(content)
	case "workload":
		if p, ok := ParseWorkloadPanel(content); ok {
			return p.HTML()
		}
	case "grading":
		if p, ok := ParseGradingPanel(content); ok {
			return p.HTML()
		}
	case "prereqs":
		if p, ok := ParsePrereqPanel(content); ok {
			return p.HTML()
		}
	}
	return renderRawText(content)
}

func renderRawText(text string) template.HTML {
	return template.HTML(`<pre class="mono">` + template.HTMLEscapeString(text) + `</pre>`)
}
