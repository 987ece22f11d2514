// Package cdpsession adapts a go-rod page into the narrow CDP surface the
// renderer pipeline needs: Accessibility.getFullAXTree and DOM.getBoxModel,
// plus the handful of page-level facts (url, title, viewport) the pipeline
// stamps onto every PageRepresentation. Everything else — launching,
// navigating, dispatching input — belongs to internal/browserctl and is
// explicitly out of scope for this package.
package cdpsession

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
)

// Session is the CDP surface the renderer pipeline depends on. Implemented
// by *PageSession; defined as an interface so internal/axtree and
// internal/layout can be tested against a fake.
type Session interface {
	// GetFullAXTree returns the raw JSON body of an
	// Accessibility.getFullAXTree response.
	GetFullAXTree(ctx context.Context) ([]byte, error)

	// GetBoxModel returns the raw JSON body of a DOM.getBoxModel response
	// for the given backend DOM node id.
	GetBoxModel(ctx context.Context, backendNodeID int) ([]byte, error)

	// PageInfo returns the current url, title and viewport.
	PageInfo(ctx context.Context) (url, title string, viewportW, viewportH int, err error)

	// QuerySelectorBackendID resolves a CSS selector to the backend DOM
	// node id of its first match, or ok=false if nothing matches.
	QuerySelectorBackendID(ctx context.Context, selector string) (backendNodeID int, ok bool, err error)
}

// PageSession binds the CDP surface to one go-rod page (one browser tab).
// A page is single-owner: callers must not issue two renders against the
// same PageSession concurrently (see §5 of the spec).
type PageSession struct {
	page *rod.Page
}

// NewPageSession wraps a rod.Page.
func NewPageSession(page *rod.Page) *PageSession {
	return &PageSession{page: page}
}

// GetFullAXTree issues Accessibility.getFullAXTree directly, the same raw
// page.Call path the teacher codebase uses for ad-hoc CDP methods it has no
// typed proto binding for.
func (s *PageSession) GetFullAXTree(ctx context.Context) ([]byte, error) {
	data, err := s.page.Call(ctx, "", "Accessibility.getFullAXTree", nil)
	if err != nil {
		return nil, fmt.Errorf("cdpsession: Accessibility.getFullAXTree: %w", err)
	}
	return data, nil
}

// GetBoxModel issues DOM.getBoxModel for a single backend node id.
func (s *PageSession) GetBoxModel(ctx context.Context, backendNodeID int) ([]byte, error) {
	data, err := s.page.Call(ctx, "", "DOM.getBoxModel", map[string]any{
		"backendNodeId": backendNodeID,
	})
	if err != nil {
		return nil, fmt.Errorf("cdpsession: DOM.getBoxModel(%d): %w", backendNodeID, err)
	}
	return data, nil
}

// PageInfo returns the page's current url/title and the driver-reported
// viewport (0,0 if unset — callers fall back to the default per spec §4.7).
func (s *PageSession) PageInfo(ctx context.Context) (string, string, int, int, error) {
	info, err := s.page.Info()
	if err != nil {
		return "", "", 0, 0, fmt.Errorf("cdpsession: page info: %w", err)
	}

	width, height := 0, 0
	if metrics, err := s.page.Call(ctx, "", "Page.getLayoutMetrics", nil); err == nil {
		var parsed struct {
			CSSVisualViewport struct {
				ClientWidth  float64 `json:"clientWidth"`
				ClientHeight float64 `json:"clientHeight"`
			} `json:"cssVisualViewport"`
		}
		if jsonUnmarshalQuiet(metrics, &parsed) {
			width = int(parsed.CSSVisualViewport.ClientWidth)
			height = int(parsed.CSSVisualViewport.ClientHeight)
		}
	}

	return info.URL, info.Title, width, height, nil
}

// QuerySelectorBackendID resolves selector via DOM.querySelector against the
// document root, then DOM.describeNode to obtain its backendNodeId.
func (s *PageSession) QuerySelectorBackendID(ctx context.Context, selector string) (int, bool, error) {
	doc, err := s.page.Call(ctx, "", "DOM.getDocument", map[string]any{"depth": 0})
	if err != nil {
		return 0, false, fmt.Errorf("cdpsession: DOM.getDocument: %w", err)
	}
	var docResp struct {
		Root struct {
			NodeID int `json:"nodeId"`
		} `json:"root"`
	}
	if !jsonUnmarshalQuiet(doc, &docResp) {
		return 0, false, fmt.Errorf("cdpsession: malformed DOM.getDocument response")
	}

	found, err := s.page.Call(ctx, "", "DOM.querySelector", map[string]any{
		"nodeId":   docResp.Root.NodeID,
		"selector": selector,
	})
	if err != nil {
		return 0, false, fmt.Errorf("cdpsession: DOM.querySelector(%q): %w", selector, err)
	}
	var foundResp struct {
		NodeID int `json:"nodeId"`
	}
	if !jsonUnmarshalQuiet(found, &foundResp) || foundResp.NodeID == 0 {
		return 0, false, nil
	}

	described, err := s.page.Call(ctx, "", "DOM.describeNode", map[string]any{
		"nodeId": foundResp.NodeID,
	})
	if err != nil {
		return 0, false, fmt.Errorf("cdpsession: DOM.describeNode: %w", err)
	}
	var describeResp struct {
		Node struct {
			BackendNodeID int `json:"backendNodeId"`
		} `json:"node"`
	}
	if !jsonUnmarshalQuiet(described, &describeResp) || describeResp.Node.BackendNodeID == 0 {
		return 0, false, nil
	}
	return describeResp.Node.BackendNodeID, true, nil
}
