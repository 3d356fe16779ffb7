package app

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"phaengine/ports"
)

// RenderMarkdown lays a snapshot out as a markdown table, one row per
// quantity and one column per scenario. Problems are footnoted below.
func RenderMarkdown(snap *ports.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", snap.Workspace)
	fmt.Fprintf(&b, "Generation %d, %d quantities.\n\n", snap.Generation, len(snap.Rows))

	b.WriteString("| Quantity | Kind | Unit |")
	for _, sc := range snap.Scenarios {
		fmt.Fprintf(&b, " %s |", sc)
	}
	b.WriteString("\n|---|---|---|")
	for range snap.Scenarios {
		b.WriteString("---:|")
	}
	b.WriteString("\n")

	var notes []string
	for _, row := range snap.Rows {
		fmt.Fprintf(&b, "| %s | %s | %s |", escapeCell(row.Name), row.Kind, escapeCell(row.Unit))
		for _, v := range row.Values {
			cell := v.Display
			if v.FellBack {
				cell += " *"
			}
			fmt.Fprintf(&b, " %s |", escapeCell(cell))
			if v.Problem != "" {
				notes = append(notes, fmt.Sprintf("- **%s** (%s): %s. %s", escapeCell(row.Name), v.Scenario, v.Problem, v.Reason))
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("\n\\* value taken from the default scenario\n")
	if len(notes) > 0 {
		b.WriteString("\n## Problems\n\n")
		b.WriteString(strings.Join(notes, "\n"))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderHTML converts the markdown report into a standalone HTML page.
func RenderHTML(snap *ports.Snapshot) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	r := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: snap.Workspace,
	})
	return markdown.ToHTML([]byte(RenderMarkdown(snap)), p, r)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
