package axtree

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ticktockbent/charlotte/internal/cdpsession"
	"github.com/ticktockbent/charlotte/internal/toolerr"
)

// cdpNode mirrors a single entry in the Accessibility.getFullAXTree response.
type cdpNode struct {
	NodeID           string        `json:"nodeId"`
	Ignored          bool          `json:"ignored"`
	Role             *cdpAXValue   `json:"role,omitempty"`
	Name             *cdpAXValue   `json:"name,omitempty"`
	Description      *cdpAXValue   `json:"description,omitempty"`
	Value            *cdpAXValue   `json:"value,omitempty"`
	Properties       []cdpAXProp   `json:"properties,omitempty"`
	ChildIDs         []string      `json:"childIds,omitempty"`
	ParentID         string        `json:"parentId,omitempty"`
	BackendDOMNodeID int           `json:"backendDOMNodeId,omitempty"`
}

type cdpAXValue struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

type cdpAXProp struct {
	Name  string      `json:"name"`
	Value *cdpAXValue `json:"value,omitempty"`
}

type cdpAXTreeResponse struct {
	Nodes []cdpNode `json:"nodes"`
}

// Extractor fetches the accessibility tree for a page and normalizes it.
type Extractor struct{}

// NewExtractor constructs an Extractor. It holds no state — extraction is
// pure given a session handle.
func NewExtractor() *Extractor { return &Extractor{} }

// Extract requests the full accessibility tree over CDP and returns the
// ordered sequence of root nodes. The result is empty iff the page is
// blank. A driver-level failure is reported as toolerr.SessionError.
func (e *Extractor) Extract(ctx context.Context, sess cdpsession.Session) ([]*Node, error) {
	raw, err := sess.GetFullAXTree(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("axtree: getFullAXTree failed")
		return nil, toolerr.New(toolerr.SessionError, "failed to fetch accessibility tree", "retry once the session recovers")
	}

	var resp cdpAXTreeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("axtree: decode getFullAXTree response: %w", err)
	}
	if len(resp.Nodes) == 0 {
		return nil, nil
	}

	rawByID := make(map[string]*cdpNode, len(resp.Nodes))
	for i := range resp.Nodes {
		rawByID[resp.Nodes[i].NodeID] = &resp.Nodes[i]
	}

	byID := make(map[string]*Node, len(resp.Nodes))
	for i := range resp.Nodes {
		raw := &resp.Nodes[i]
		if raw.Ignored {
			// Ignored nodes carry no semantic content of their own, but CDP
			// routinely wraps live content in them (body, generic
			// containers). Drop the node itself below, not its subtree.
			continue
		}
		byID[raw.NodeID] = convertNode(raw)
	}

	var roots []*Node
	for i := range resp.Nodes {
		raw := &resp.Nodes[i]
		if raw.Ignored {
			continue
		}
		node := byID[raw.NodeID]
		if parent, ok := nearestSurvivingAncestor(rawByID, byID, raw.ParentID); ok {
			node.Parent = parent
			parent.Children = append(parent.Children, node)
		} else {
			roots = append(roots, node)
		}
	}
	return roots, nil
}

// nearestSurvivingAncestor walks the raw parent chain starting at parentID,
// skipping over ignored nodes that never made it into byID, and returns the
// nearest ancestor that did. Children of an ignored wrapper are spliced onto
// that ancestor (or promoted to roots if none survived) instead of being
// discarded along with the wrapper.
func nearestSurvivingAncestor(rawByID map[string]*cdpNode, byID map[string]*Node, parentID string) (*Node, bool) {
	seen := make(map[string]bool)
	for parentID != "" {
		if seen[parentID] {
			return nil, false
		}
		seen[parentID] = true

		if parent, ok := byID[parentID]; ok {
			return parent, true
		}
		raw, ok := rawByID[parentID]
		if !ok {
			return nil, false
		}
		parentID = raw.ParentID
	}
	return nil, false
}

func convertNode(n *cdpNode) *Node {
	node := &Node{
		NodeID:           n.NodeID,
		BackendDOMNodeID: n.BackendDOMNodeID,
	}
	if n.Role != nil {
		if s, ok := n.Role.Value.(string); ok {
			node.Role = s
		}
	}
	if n.Name != nil {
		if s, ok := n.Name.Value.(string); ok {
			node.Name = s
		}
	}
	if n.Description != nil {
		if s, ok := n.Description.Value.(string); ok {
			node.Description = s
		}
	}
	if n.Value != nil {
		if s, ok := n.Value.Value.(string); ok {
			node.Value = s
		} else if n.Value.Value != nil {
			node.Value = fmt.Sprintf("%v", n.Value.Value)
		}
	}
	if len(n.Properties) > 0 {
		node.Properties = make(map[string]any, len(n.Properties))
		for _, p := range n.Properties {
			if p.Value != nil {
				node.Properties[p.Name] = p.Value.Value
			}
		}
	}
	return node
}
