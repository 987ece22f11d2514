// Package domsig computes a structural fingerprint (DOMPathSignature) for
// an accessibility tree node — nearest landmark, nearest labelled
// container, sibling index among same-role peers. It is a pure function
// of forest topology and node labels, used by internal/elementid to derive
// stable element ids across re-renders of the same logical page.
package domsig

import "github.com/ticktockbent/charlotte/internal/axtree"

// Signature is the structural fingerprint of a node.
type Signature struct {
	NearestLandmarkRole      string
	NearestLandmarkLabel     string
	NearestLabelledContainer string
	SiblingIndex             int
}

// Compute derives the signature of node n within its forest.
func Compute(n *axtree.Node) Signature {
	landmark := nearestLandmark(n)
	container := nearestLabelledContainer(n, landmark)

	sig := Signature{
		SiblingIndex: siblingIndex(n),
	}
	if landmark != nil {
		sig.NearestLandmarkRole = landmark.Role
		sig.NearestLandmarkLabel = landmark.Name
	}
	if container != nil {
		sig.NearestLabelledContainer = container.Name
	}
	return sig
}

// nearestLandmark walks ancestors until the first landmark ancestor, or
// returns nil if none exists before the root.
func nearestLandmark(n *axtree.Node) *axtree.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if axtree.IsLandmarkRole(p.Role) {
			return p
		}
	}
	return nil
}

// nearestLabelledContainer scans ancestors strictly between n and landmark
// (exclusive of both) for the first one with a non-empty accessible name.
func nearestLabelledContainer(n *axtree.Node, landmark *axtree.Node) *axtree.Node {
	for p := n.Parent; p != nil && p != landmark; p = p.Parent {
		if p.Name != "" {
			return p
		}
	}
	return nil
}

// siblingIndex returns n's 0-based position among its parent's children
// that share n's role. A node with no parent is index 0.
func siblingIndex(n *axtree.Node) int {
	if n.Parent == nil {
		return 0
	}
	idx := 0
	for _, sib := range n.Parent.Children {
		if sib == n {
			return idx
		}
		if sib.Role == n.Role {
			idx++
		}
	}
	return 0
}
