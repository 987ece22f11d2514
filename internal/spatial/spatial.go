// Package spatial answers geometric queries ("within", "near") over
// InteractiveElement bounds.
package spatial

import (
	"math"
	"sort"

	"github.com/ticktockbent/charlotte/internal/interactive"
	"github.com/ticktockbent/charlotte/internal/layout"
)

// DefaultNearRadius is the default search radius in CSS pixels for Near.
const DefaultNearRadius = 200.0

// Within returns every element in all whose bounds are fully contained in
// target (inclusive of the boundary). Elements with no bounds never match.
func Within(target layout.Bounds, all []*interactive.Element) []*interactive.Element {
	var out []*interactive.Element
	for _, el := range all {
		if el.Bounds == nil {
			continue
		}
		if contains(target, *el.Bounds) {
			out = append(out, el)
		}
	}
	return out
}

func contains(outer, inner layout.Bounds) bool {
	return inner.X >= outer.X &&
		inner.Y >= outer.Y &&
		inner.X+inner.W <= outer.X+outer.W &&
		inner.Y+inner.H <= outer.Y+outer.H
}

// Near returns every element in all (excluding the element at target)
// whose center distance to target's center is <= radius, sorted ascending
// by that distance.
func Near(target layout.Bounds, all []*interactive.Element, targetID string, radius float64) []*interactive.Element {
	if radius <= 0 {
		radius = DefaultNearRadius
	}
	tx, ty := center(target)

	type scored struct {
		el   *interactive.Element
		dist float64
	}
	var candidates []scored
	for _, el := range all {
		if el.ID == targetID || el.Bounds == nil {
			continue
		}
		ex, ey := center(*el.Bounds)
		d := math.Hypot(ex-tx, ey-ty)
		if d <= radius {
			candidates = append(candidates, scored{el, d})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })

	out := make([]*interactive.Element, len(candidates))
	for i, c := range candidates {
		out[i] = c.el
	}
	return out
}

func center(b layout.Bounds) (float64, float64) {
	return float64(b.X) + float64(b.W)/2, float64(b.Y) + float64(b.H)/2
}
