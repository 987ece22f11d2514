package render

import (
	"fmt"
	"strings"

	"github.com/ticktockbent/charlotte/internal/interactive"
)

// ToTokenString renders a PageRepresentation as a compact, line-oriented
// summary suitable for a terminal or a token-constrained agent transcript,
// rather than for the wire (that's the JSON form in PageRepresentation's
// own tags). maxElements caps how many interactive elements are listed
// before truncating with a count of the remainder.
func ToTokenString(rep *PageRepresentation, maxElements int) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Page: %s\n", rep.Title)
	fmt.Fprintf(&sb, "URL: %s\n\n", rep.URL)

	if len(rep.Structure.Headings) > 0 {
		sb.WriteString("Headings:\n")
		for _, h := range rep.Structure.Headings {
			fmt.Fprintf(&sb, "  [%s] h%d %q\n", h.ID, h.Level, h.Text)
		}
		sb.WriteString("\n")
	}

	if rep.Structure.ContentSummary != "" {
		fmt.Fprintf(&sb, "Content summary: %s\n\n", rep.Structure.ContentSummary)
	}

	count := len(rep.Interactive)
	shown := count
	if maxElements > 0 && shown > maxElements {
		shown = maxElements
	}

	fmt.Fprintf(&sb, "Interactive elements (%d):\n", count)
	for i, el := range rep.Interactive {
		if maxElements > 0 && i >= maxElements {
			fmt.Fprintf(&sb, "... and %d more\n", count-shown)
			break
		}
		sb.WriteString(formatElementLine(el))
		sb.WriteString("\n")
	}

	return sb.String()
}

func formatElementLine(el *interactive.Element) string {
	parts := []string{fmt.Sprintf("[%s]", el.ID), string(el.Type)}

	if el.Label != "" {
		label := el.Label
		if len(label) > 40 {
			label = label[:40] + "..."
		}
		parts = append(parts, fmt.Sprintf("%q", label))
	}

	if el.Href != "" {
		href := el.Href
		if len(href) > 50 {
			href = href[:50] + "..."
		}
		parts = append(parts, "href="+href)
	}

	if el.Bounds != nil {
		parts = append(parts, fmt.Sprintf("(%d,%d)", el.Bounds.X, el.Bounds.Y))
	}

	if !el.State.Enabled {
		parts = append(parts, "[disabled]")
	}

	return strings.Join(parts, " ")
}
