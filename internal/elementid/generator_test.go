package elementid

import (
	"regexp"
	"testing"

	"github.com/ticktockbent/charlotte/internal/domsig"
)

var idPattern = regexp.MustCompile(`^[a-z]{3}-[0-9a-f]{4}(-[0-9]+)?$`)

func TestGenerateID_MatchesIDShape(t *testing.T) {
	g := New()
	id := g.GenerateID(TypeButton, "button", "Submit", domsig.Signature{}, 7)
	if !idPattern.MatchString(id) {
		t.Fatalf("id %q does not match %s", id, idPattern.String())
	}
}

func TestGenerateID_DeterministicForIdenticalInput(t *testing.T) {
	sig := domsig.Signature{NearestLandmarkRole: "navigation", SiblingIndex: 2}
	a := New().GenerateID(TypeLink, "link", "Home", sig, 1)
	b := New().GenerateID(TypeLink, "link", "Home", sig, 1)
	if a != b {
		t.Fatalf("ids differ across generators for identical input: %q vs %q", a, b)
	}
}

func TestGenerateID_CollisionDisambiguation(t *testing.T) {
	g := New()
	sig := domsig.Signature{}
	// Same composite key twice (two distinct backend nodes, identical
	// classification/label/signature) forces a hash collision the
	// generator must disambiguate with a numeric suffix.
	first := g.GenerateID(TypeButton, "button", "Go", sig, 1)
	second := g.GenerateID(TypeButton, "button", "Go", sig, 2)

	if first == second {
		t.Fatalf("expected distinct ids, got %q twice", first)
	}
	if second != first+"-2" {
		t.Fatalf("second id = %q, want %q", second, first+"-2")
	}

	third := g.GenerateID(TypeButton, "button", "Go", sig, 3)
	if third != first+"-3" {
		t.Fatalf("third id = %q, want %q", third, first+"-3")
	}
}

func TestGenerateID_DifferentBackendNodesDoNotCollideAcrossTypes(t *testing.T) {
	g := New()
	sig := domsig.Signature{}
	btnID := g.GenerateID(TypeButton, "button", "Go", sig, 1)
	linkID := g.GenerateID(TypeLink, "link", "Go", sig, 2)
	if btnID == linkID {
		t.Fatalf("ids from different types collided: %q", btnID)
	}
}

func TestResolveID_RoundTrip(t *testing.T) {
	g := New()
	id := g.GenerateID(TypeButton, "button", "Go", domsig.Signature{}, 42)

	backend, ok := g.ResolveID(id)
	if !ok || backend != 42 {
		t.Fatalf("ResolveID(%q) = (%d, %v), want (42, true)", id, backend, ok)
	}

	back, ok := g.IDForBackendNode(42)
	if !ok || back != id {
		t.Fatalf("IDForBackendNode(42) = (%q, %v), want (%q, true)", back, ok, id)
	}
}

func TestResolveID_UnknownIDNotFound(t *testing.T) {
	g := New()
	if _, ok := g.ResolveID("btn-dead"); ok {
		t.Fatal("ResolveID on unknown id returned ok=true")
	}
}

func TestFindSimilar_SinglePrefixMatch(t *testing.T) {
	current := []string{"btn-1234", "lnk-5678"}
	got, ok := FindSimilar("btn-0000", current)
	if !ok || got != "btn-1234" {
		t.Fatalf("FindSimilar = (%q, %v), want (btn-1234, true)", got, ok)
	}
}

func TestFindSimilar_AmbiguousPrefixFails(t *testing.T) {
	current := []string{"btn-1234", "btn-5678"}
	if _, ok := FindSimilar("btn-0000", current); ok {
		t.Fatal("FindSimilar should fail when more than one candidate shares the prefix")
	}
}

func TestFindSimilar_NoMatchFails(t *testing.T) {
	current := []string{"lnk-1234"}
	if _, ok := FindSimilar("btn-0000", current); ok {
		t.Fatal("FindSimilar should fail when no candidate shares the prefix")
	}
}

func TestReplaceWith_AtomicSwap(t *testing.T) {
	shared := New()
	oldID := shared.GenerateID(TypeButton, "button", "old", domsig.Signature{}, 1)

	fresh := New()
	freshID := fresh.GenerateID(TypeLink, "link", "new", domsig.Signature{}, 2)

	shared.ReplaceWith(fresh)

	if _, ok := shared.ResolveID(freshID); !ok {
		t.Fatalf("shared generator did not adopt fresh id %q after ReplaceWith", freshID)
	}
	if _, ok := shared.ResolveID(oldID); ok {
		t.Fatalf("shared generator still resolves the pre-swap id %q after ReplaceWith", oldID)
	}
	if backend, ok := shared.ResolveID(freshID); !ok || backend != 2 {
		t.Fatalf("shared.ResolveID(%q) = (%d, %v), want (2, true)", freshID, backend, ok)
	}
}

func TestSnapshot_ReturnsAllocatedIDs(t *testing.T) {
	g := New()
	a := g.GenerateID(TypeButton, "button", "a", domsig.Signature{}, 1)
	b := g.GenerateID(TypeLink, "link", "b", domsig.Signature{}, 2)

	ids := g.Snapshot()
	if len(ids) != 2 {
		t.Fatalf("Snapshot returned %d ids, want 2", len(ids))
	}
	seen := map[string]bool{}
	for _, id := range ids {
		seen[id] = true
	}
	if !seen[a] || !seen[b] {
		t.Fatalf("Snapshot %v missing one of %q, %q", ids, a, b)
	}
}

func TestTypePrefix_UnknownTypeDefaultsToEl(t *testing.T) {
	if got := TypePrefix(ElementType("nonsense")); got != "el" {
		t.Fatalf("TypePrefix(unknown) = %q, want el", got)
	}
}
