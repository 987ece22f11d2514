package render

import (
	"context"
	"fmt"
	"time"

	"github.com/ticktockbent/charlotte/internal/axtree"
	"github.com/ticktockbent/charlotte/internal/cdpsession"
	"github.com/ticktockbent/charlotte/internal/content"
	"github.com/ticktockbent/charlotte/internal/domsig"
	"github.com/ticktockbent/charlotte/internal/elementid"
	"github.com/ticktockbent/charlotte/internal/interactive"
	"github.com/ticktockbent/charlotte/internal/layout"
	"github.com/ticktockbent/charlotte/internal/snapshot"
	"github.com/ticktockbent/charlotte/internal/toolerr"
)

// DefaultViewport is used when the driver reports no viewport.
var DefaultViewport = Viewport{Width: 1280, Height: 720}

// Pipeline owns the single shared ElementIdGenerator published between
// renders, and the SnapshotStore renders are pushed into.
type Pipeline struct {
	axExtractor     *axtree.Extractor
	layoutExtractor *layout.Extractor
	shared          *elementid.Generator
	store           *snapshot.Store

	nowFn func() time.Time
}

// New builds a Pipeline against the given snapshot store. nowFn defaults to
// time.Now if nil; tests may override it for deterministic timestamps.
func New(store *snapshot.Store, nowFn func() time.Time) *Pipeline {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Pipeline{
		axExtractor:     axtree.NewExtractor(),
		layoutExtractor: layout.NewExtractor(),
		shared:          elementid.New(),
		store:           store,
		nowFn:           nowFn,
	}
}

// Render executes the twelve-step render sequence of the design: extract,
// fetch bounds, build a fresh generator, emit structure, atomically publish
// the fresh generator, then stamp and push the representation.
func (p *Pipeline) Render(ctx context.Context, sess cdpsession.Session, opts Options) (*snapshot.Snapshot, error) {
	roots, err := p.axExtractor.Extract(ctx, sess)
	if err != nil {
		// Session-level failure: shared generator is left untouched.
		return nil, err
	}

	if opts.Selector != "" {
		roots = pruneToSelector(ctx, sess, roots, opts.Selector)
	}

	backendIDs := collectBackendIDs(roots)
	bounds := p.layoutExtractor.Extract(ctx, sess, backendIDs)

	fresh := elementid.New()

	landmarks := emitLandmarks(roots, bounds, fresh)
	headings := emitHeadings(roots, bounds, fresh)

	walker := interactive.NewWalker(fresh)
	elements, forms := walker.Walk(roots, bounds)

	structure := Structure{Landmarks: landmarks, Headings: headings}
	var interactiveSummary *InteractiveSummary

	switch opts.Detail {
	case DetailSummary:
		structure.ContentSummary = content.ExtractSummary(roots)
	case DetailFull:
		structure.ContentSummary = content.ExtractSummary(roots)
		structure.FullContent = content.ExtractFullContent(roots)
	default: // DetailMinimal or unset
		interactiveSummary = summarizeInteractive(elements, landmarks)
	}

	url, title, vw, vh, err := sess.PageInfo(ctx)
	if err != nil {
		return nil, toolerr.New(toolerr.SessionError, err.Error(), "")
	}
	viewport := Viewport{Width: vw, Height: vh}
	if viewport.Width == 0 || viewport.Height == 0 {
		viewport = DefaultViewport
	}

	// Atomic publish: any concurrent resolve_id call sees either the
	// complete previous table or the complete new one, never a mix.
	p.shared.ReplaceWith(fresh)

	rep := &PageRepresentation{
		URL:                url,
		Title:              title,
		Viewport:           viewport,
		Structure:          structure,
		Interactive:        elements,
		Forms:              forms,
		InteractiveSummary: interactiveSummary,
		Errors:             PageErrors{Console: []string{}, Network: []string{}},
	}

	snap := p.store.Push(rep, p.nowFn())
	rep.SnapshotID = snap.ID
	rep.Timestamp = snap.Timestamp

	return &snap, nil
}

// ResolveElement looks up the backend DOM node id for id against the
// currently published shared generator.
func (p *Pipeline) ResolveElement(id string) (int, bool) {
	return p.shared.ResolveID(id)
}

// FindSimilar recovers a stale id against the shared generator's currently
// live id set.
func (p *Pipeline) FindSimilar(id string) (string, bool) {
	return elementid.FindSimilar(id, p.shared.Snapshot())
}

// LatestRepresentation returns the most recently pushed PageRepresentation,
// or false if no render has happened yet.
func (p *Pipeline) LatestRepresentation() (*PageRepresentation, bool) {
	snap, ok := p.store.GetLatest()
	if !ok {
		return nil, false
	}
	rep, ok := snap.Representation.(*PageRepresentation)
	return rep, ok
}

// SnapshotGet fetches a held snapshot by id, or toolerr.SnapshotExpired.
func (p *Pipeline) SnapshotGet(id uint64) (*snapshot.Snapshot, error) {
	snap, ok := p.store.Get(id)
	if !ok {
		return nil, toolerr.New(toolerr.SnapshotExpired, fmt.Sprintf("snapshot %d is no longer held", id), "")
	}
	return &snap, nil
}

func collectBackendIDs(roots []*axtree.Node) []int {
	var ids []int
	axtree.WalkPreOrder(roots, func(n *axtree.Node) {
		if !n.HasBackendNode() {
			return
		}
		if axtree.IsLandmarkRole(n.Role) || axtree.IsHeadingRole(n.Role) || axtree.IsInteractiveRole(n.Role) {
			ids = append(ids, n.BackendDOMNodeID)
		}
	})
	return ids
}

func emitLandmarks(roots []*axtree.Node, bounds map[int]layout.Bounds, gen *elementid.Generator) []Landmark {
	var out []Landmark
	axtree.WalkPreOrder(roots, func(n *axtree.Node) {
		if !axtree.IsLandmarkRole(n.Role) {
			return
		}
		gen.GenerateID(elementid.TypeLandmark, n.Role, n.Name, domsig.Compute(n), n.BackendDOMNodeID)
		b := layout.ZeroBounds
		if n.HasBackendNode() {
			if v, ok := bounds[n.BackendDOMNodeID]; ok {
				b = v
			}
		}
		out = append(out, Landmark{Role: n.Role, Label: n.Name, Bounds: b})
	})
	return out
}

func emitHeadings(roots []*axtree.Node, bounds map[int]layout.Bounds, gen *elementid.Generator) []Heading {
	var out []Heading
	axtree.WalkPreOrder(roots, func(n *axtree.Node) {
		if !axtree.IsHeadingRole(n.Role) {
			return
		}
		level := 2
		if lv, ok := n.Properties["level"]; ok {
			if f, ok := toFloat(lv); ok && f >= 1 && f <= 6 {
				level = int(f)
			}
		}
		id := gen.GenerateID(elementid.TypeHeading, n.Role, n.Name, domsig.Compute(n), n.BackendDOMNodeID)
		out = append(out, Heading{Level: level, Text: n.Name, ID: id})
	})
	return out
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case string:
		var f float64
		if _, err := fmt.Sscanf(x, "%f", &f); err == nil {
			return f, true
		}
	}
	return 0, false
}

// summarizeInteractive builds the minimal-detail InteractiveSummary: total
// count plus a per-landmark breakdown by element type. Elements outside
// every landmark are grouped under "(page root)".
func summarizeInteractive(elements []*interactive.Element, landmarks []Landmark) *InteractiveSummary {
	summary := &InteractiveSummary{
		Total:      len(elements),
		ByLandmark: make(map[string]map[string]int),
	}
	for _, el := range elements {
		key := landmarkKeyFor(el, landmarks)
		byType, ok := summary.ByLandmark[key]
		if !ok {
			byType = make(map[string]int)
			summary.ByLandmark[key] = byType
		}
		byType[string(el.Type)]++
	}
	return summary
}

// landmarkKeyFor is a best-effort attribution: since InteractiveElement
// does not carry its enclosing landmark directly, elements are attributed
// to "(page root)" when no landmark's bounds contain theirs, else the
// nearest (smallest-area) containing landmark.
func landmarkKeyFor(el *interactive.Element, landmarks []Landmark) string {
	if el.Bounds == nil {
		return "(page root)"
	}
	var best *Landmark
	bestArea := -1
	for i := range landmarks {
		lm := &landmarks[i]
		if lm.Bounds.IsZero() {
			continue
		}
		if containsBounds(lm.Bounds, *el.Bounds) {
			area := lm.Bounds.W * lm.Bounds.H
			if best == nil || area < bestArea {
				best = lm
				bestArea = area
			}
		}
	}
	if best == nil {
		return "(page root)"
	}
	if best.Label != "" && best.Label != best.Role {
		return fmt.Sprintf("%s (%s)", best.Role, best.Label)
	}
	return best.Role
}

func containsBounds(outer, inner layout.Bounds) bool {
	return inner.X >= outer.X &&
		inner.Y >= outer.Y &&
		inner.X+inner.W <= outer.X+outer.W &&
		inner.Y+inner.H <= outer.Y+outer.H
}

// pruneToSelector resolves selector to a backend DOM node id and, if found
// among roots, returns a single-element root slice scoped to that subtree.
// If resolution fails or nothing matches, roots are returned unchanged.
func pruneToSelector(ctx context.Context, sess cdpsession.Session, roots []*axtree.Node, selector string) []*axtree.Node {
	backendID, ok, err := sess.QuerySelectorBackendID(ctx, selector)
	if err != nil || !ok {
		return roots
	}
	var match *axtree.Node
	axtree.WalkPreOrder(roots, func(n *axtree.Node) {
		if match == nil && n.HasBackendNode() && n.BackendDOMNodeID == backendID {
			match = n
		}
	})
	if match == nil {
		return roots
	}
	return []*axtree.Node{match}
}
