package domsig

import (
	"testing"

	"github.com/ticktockbent/charlotte/internal/axtree"
)

func TestCompute_NearestLandmark(t *testing.T) {
	nav := &axtree.Node{Role: "navigation", Name: "primary"}
	btn := &axtree.Node{Role: "button", Name: "Go"}
	nav.Children = []*axtree.Node{btn}
	btn.Parent = nav

	sig := Compute(btn)
	if sig.NearestLandmarkRole != "navigation" {
		t.Fatalf("NearestLandmarkRole = %q, want navigation", sig.NearestLandmarkRole)
	}
	if sig.NearestLandmarkLabel != "primary" {
		t.Fatalf("NearestLandmarkLabel = %q, want primary", sig.NearestLandmarkLabel)
	}
}

func TestCompute_NoLandmarkAncestor(t *testing.T) {
	root := &axtree.Node{Role: "generic"}
	btn := &axtree.Node{Role: "button", Name: "Go"}
	root.Children = []*axtree.Node{btn}
	btn.Parent = root

	sig := Compute(btn)
	if sig.NearestLandmarkRole != "" {
		t.Fatalf("NearestLandmarkRole = %q, want empty", sig.NearestLandmarkRole)
	}
}

func TestCompute_LabelledContainerStopsAtLandmark(t *testing.T) {
	nav := &axtree.Node{Role: "navigation", Name: "primary"}
	group := &axtree.Node{Role: "group", Name: "account menu"}
	btn := &axtree.Node{Role: "button", Name: "Go"}
	nav.Children = []*axtree.Node{group}
	group.Parent = nav
	group.Children = []*axtree.Node{btn}
	btn.Parent = group

	sig := Compute(btn)
	if sig.NearestLabelledContainer != "account menu" {
		t.Fatalf("NearestLabelledContainer = %q, want %q", sig.NearestLabelledContainer, "account menu")
	}
}

func TestCompute_SiblingIndexCountsOnlySameRole(t *testing.T) {
	parent := &axtree.Node{Role: "group"}
	link := &axtree.Node{Role: "link"}
	b1 := &axtree.Node{Role: "button"}
	b2 := &axtree.Node{Role: "button"}
	parent.Children = []*axtree.Node{link, b1, b2}
	for _, c := range parent.Children {
		c.Parent = parent
	}

	if got := Compute(b1).SiblingIndex; got != 0 {
		t.Fatalf("b1 SiblingIndex = %d, want 0", got)
	}
	if got := Compute(b2).SiblingIndex; got != 1 {
		t.Fatalf("b2 SiblingIndex = %d, want 1", got)
	}
	if got := Compute(link).SiblingIndex; got != 0 {
		t.Fatalf("link SiblingIndex = %d, want 0", got)
	}
}

func TestCompute_RootHasSiblingIndexZero(t *testing.T) {
	root := &axtree.Node{Role: "button"}
	if got := Compute(root).SiblingIndex; got != 0 {
		t.Fatalf("root SiblingIndex = %d, want 0", got)
	}
}
