// ABOUTME: Renders a conversation log as an HTML transcript for operators.
// ABOUTME: Message text goes through markdown; tool exchanges render as preformatted blocks.

package transcript

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"github.com/yuin/goldmark"

	"github.com/2389/coven-relay/internal/engine"
)

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; }
.turn { margin: 1rem 0; padding: 0.75rem 1rem; border-radius: 6px; }
.human { background: #eef4ff; }
.agent { background: #f6f6f6; }
.tool { background: #fffbe6; font-size: 0.85rem; }
.meta { color: #888; font-size: 0.75rem; margin-bottom: 0.25rem; }
pre { overflow-x: auto; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{range .Turns}}<div class="turn {{.Class}}">
<div class="meta">{{.Meta}}</div>
{{.Body}}
</div>
{{end}}</body>
</html>
`

// turn is one rendered transcript entry.
type turn struct {
	Class string
	Meta  string
	Body  template.HTML
}

type page struct {
	Title string
	Turns []turn
}

var tmpl = template.Must(template.New("transcript").Parse(pageTemplate))

// Render writes an HTML transcript of the conversation log events.
func Render(w io.Writer, title string, events []engine.Event) error {
	p := page{Title: title}

	for _, ev := range events {
		t, ok := renderEvent(ev)
		if !ok {
			continue
		}
		p.Turns = append(p.Turns, t)
	}

	if err := tmpl.Execute(w, p); err != nil {
		return fmt.Errorf("rendering transcript: %w", err)
	}
	return nil
}

// renderEvent converts one event into a transcript turn. System chatter is
// skipped; it carries nothing a reader of the conversation wants.
func renderEvent(ev engine.Event) (turn, bool) {
	stamp := ev.Timestamp.Format("2006-01-02 15:04:05 UTC")

	switch ev.Kind {
	case engine.KindText, engine.KindResult:
		if ev.Text == "" {
			return turn{}, false
		}
		class := "agent"
		if ev.Role == "human" {
			class = "human"
		}
		return turn{
			Class: class,
			Meta:  fmt.Sprintf("%s · %s", ev.Role, stamp),
			Body:  markdownHTML(ev.Text),
		}, true

	case engine.KindToolUse:
		body := fmt.Sprintf("<pre>%s %s</pre>",
			template.HTMLEscapeString(ev.ToolName),
			template.HTMLEscapeString(string(ev.ToolInput)))
		return turn{
			Class: "tool",
			Meta:  fmt.Sprintf("tool call · %s", stamp),
			Body:  template.HTML(body),
		}, true

	case engine.KindToolResult:
		body := fmt.Sprintf("<pre>%s</pre>", template.HTMLEscapeString(ev.ToolOutput))
		return turn{
			Class: "tool",
			Meta:  fmt.Sprintf("tool result · %s", stamp),
			Body:  template.HTML(body),
		}, true

	default:
		return turn{}, false
	}
}

// markdownHTML converts markdown message text to HTML, falling back to an
// escaped block when conversion fails.
func markdownHTML(text string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(text), &buf); err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(text) + "</pre>")
	}
	return template.HTML(buf.String())
}
