// Package render orchestrates a single page render: extracting the
// accessibility forest and layout, walking it into landmarks, headings,
// interactive elements and forms, and assembling the immutable
// PageRepresentation the snapshot store stamps and retains.
package render

import (
	"time"

	"github.com/ticktockbent/charlotte/internal/interactive"
	"github.com/ticktockbent/charlotte/internal/layout"
)

// DetailLevel controls which derived content fields a render computes.
type DetailLevel string

const (
	DetailMinimal DetailLevel = "minimal"
	DetailSummary DetailLevel = "summary"
	DetailFull    DetailLevel = "full"
)

// Options configures a render call.
type Options struct {
	Detail        DetailLevel
	Selector      string // optional; scopes emission to a matched subtree
	IncludeStyles bool   // advisory, reserved
}

// Landmark is a rendered landmark region.
type Landmark struct {
	Role   string        `json:"role"`
	Label  string        `json:"label,omitempty"`
	Bounds layout.Bounds `json:"bounds"`
}

// Heading is a rendered heading.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
	ID    string `json:"id"`
}

// Viewport is the page's reported (or default) viewport size.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Structure holds the non-interactive content of a PageRepresentation.
type Structure struct {
	Landmarks          []Landmark          `json:"landmarks"`
	Headings           []Heading           `json:"headings"`
	ContentSummary     string              `json:"content_summary,omitempty"`
	FullContent        string              `json:"full_content,omitempty"`
}

// PageErrors holds console/network diagnostics collected during the render.
type PageErrors struct {
	Console []string `json:"console"`
	Network []string `json:"network"`
}

// InteractiveSummary is the minimal-detail alternative to content_summary:
// a total count plus a per-landmark breakdown by element type.
type InteractiveSummary struct {
	Total      int                       `json:"total"`
	ByLandmark map[string]map[string]int `json:"by_landmark"`
}

// PageRepresentation is the immutable, wire-stable result of one render.
type PageRepresentation struct {
	URL        string   `json:"url"`
	Title      string   `json:"title"`
	Viewport   Viewport `json:"viewport"`
	SnapshotID uint64   `json:"snapshot_id"`
	Timestamp  time.Time `json:"timestamp"`

	Structure          Structure            `json:"structure"`
	Interactive        []*interactive.Element `json:"interactive"`
	Forms              []*interactive.Form  `json:"forms"`
	InteractiveSummary *InteractiveSummary  `json:"interactive_summary,omitempty"`
	Errors             PageErrors           `json:"errors"`
}
