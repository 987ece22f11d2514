package render

import (
	"context"
	"testing"
	"time"

	"github.com/ticktockbent/charlotte/internal/snapshot"
)

const exampleAXTree = `{
  "nodes": [
    {"nodeId": "1", "role": {"type": "role", "value": "WebArea"}, "name": {"type": "computedString", "value": "Example Domain"}, "childIds": ["2"]},
    {"nodeId": "2", "parentId": "1", "role": {"type": "role", "value": "main"}, "childIds": ["3", "4"], "backendDOMNodeId": 10},
    {"nodeId": "3", "parentId": "2", "role": {"type": "role", "value": "heading"}, "name": {"type": "computedString", "value": "Example Domain"}, "backendDOMNodeId": 11, "properties": [{"name": "level", "value": {"type": "integer", "value": 1}}]},
    {"nodeId": "4", "parentId": "2", "role": {"type": "role", "value": "link"}, "name": {"type": "computedString", "value": "More information..."}, "backendDOMNodeId": 12, "properties": [{"name": "url", "value": {"type": "string", "value": "https://www.iana.org/domains/example"}}]}
  ]
}`

type fakeSession struct {
	axTree       []byte
	boxModels    map[int]string
	url, title   string
	viewW, viewH int
}

func (f *fakeSession) GetFullAXTree(ctx context.Context) ([]byte, error) { return f.axTree, nil }

func (f *fakeSession) GetBoxModel(ctx context.Context, backendNodeID int) ([]byte, error) {
	body, ok := f.boxModels[backendNodeID]
	if !ok {
		return nil, nil
	}
	return []byte(body), nil
}

func (f *fakeSession) PageInfo(ctx context.Context) (string, string, int, int, error) {
	return f.url, f.title, f.viewW, f.viewH, nil
}

func (f *fakeSession) QuerySelectorBackendID(ctx context.Context, selector string) (int, bool, error) {
	if selector == "main" {
		return 10, true, nil
	}
	return 0, false, nil
}

func exampleSession() *fakeSession {
	return &fakeSession{
		axTree: []byte(exampleAXTree),
		boxModels: map[int]string{
			10: `{"model": {"content": [0, 0, 800, 0, 800, 200, 0, 200]}}`,
			11: `{"model": {"content": [10, 10, 300, 10, 300, 40, 10, 40]}}`,
			12: `{"model": {"content": [10, 50, 200, 50, 200, 70, 10, 70]}}`,
		},
		url:   "https://example.com/",
		title: "Example Domain",
		viewW: 1280,
		viewH: 720,
	}
}

func TestRender_MinimalDetailProducesInteractiveSummary(t *testing.T) {
	p := New(snapshot.New(), func() time.Time { return time.Unix(0, 0) })
	snap, err := p.Render(context.Background(), exampleSession(), Options{Detail: DetailMinimal})
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	rep := snap.Representation.(*PageRepresentation)

	if rep.URL != "https://example.com/" || rep.Title != "Example Domain" {
		t.Fatalf("url/title = %q/%q, want example.com/Example Domain", rep.URL, rep.Title)
	}
	if rep.Structure.ContentSummary != "" {
		t.Fatalf("ContentSummary = %q, want absent at minimal detail", rep.Structure.ContentSummary)
	}
	if rep.InteractiveSummary == nil || rep.InteractiveSummary.Total != 1 {
		t.Fatalf("InteractiveSummary = %+v, want Total=1", rep.InteractiveSummary)
	}
	if len(rep.Structure.Landmarks) != 1 || rep.Structure.Landmarks[0].Role != "main" {
		t.Fatalf("Landmarks = %+v, want one main landmark", rep.Structure.Landmarks)
	}
	if len(rep.Structure.Headings) != 1 || rep.Structure.Headings[0].Level != 1 {
		t.Fatalf("Headings = %+v, want one h1", rep.Structure.Headings)
	}
	if rep.SnapshotID != snap.ID {
		t.Fatalf("SnapshotID = %d, want %d", rep.SnapshotID, snap.ID)
	}
}

func TestRender_SummaryAndFullDetailPopulateContent(t *testing.T) {
	p := New(snapshot.New(), nil)

	summarySnap, err := p.Render(context.Background(), exampleSession(), Options{Detail: DetailSummary})
	if err != nil {
		t.Fatalf("Render(summary) returned error: %v", err)
	}
	summaryRep := summarySnap.Representation.(*PageRepresentation)
	if summaryRep.Structure.ContentSummary == "" {
		t.Fatal("ContentSummary should be populated at summary detail")
	}
	if summaryRep.Structure.FullContent != "" {
		t.Fatal("FullContent should be absent at summary detail")
	}
	if summaryRep.InteractiveSummary != nil {
		t.Fatal("InteractiveSummary should be absent above minimal detail")
	}

	fullSnap, err := p.Render(context.Background(), exampleSession(), Options{Detail: DetailFull})
	if err != nil {
		t.Fatalf("Render(full) returned error: %v", err)
	}
	fullRep := fullSnap.Representation.(*PageRepresentation)
	if fullRep.Structure.FullContent == "" {
		t.Fatal("FullContent should be populated at full detail")
	}
}

func TestRender_ElementIDsAreStableAcrossRerenders(t *testing.T) {
	p := New(snapshot.New(), nil)

	snap1, err := p.Render(context.Background(), exampleSession(), Options{Detail: DetailMinimal})
	if err != nil {
		t.Fatalf("first Render returned error: %v", err)
	}
	snap2, err := p.Render(context.Background(), exampleSession(), Options{Detail: DetailMinimal})
	if err != nil {
		t.Fatalf("second Render returned error: %v", err)
	}

	rep1 := snap1.Representation.(*PageRepresentation)
	rep2 := snap2.Representation.(*PageRepresentation)

	if len(rep1.Interactive) != 1 || len(rep2.Interactive) != 1 {
		t.Fatalf("expected exactly one interactive element per render, got %d and %d", len(rep1.Interactive), len(rep2.Interactive))
	}
	if rep1.Interactive[0].ID != rep2.Interactive[0].ID {
		t.Fatalf("ids differ across re-renders of the same page: %q vs %q", rep1.Interactive[0].ID, rep2.Interactive[0].ID)
	}
	if rep1.Structure.Headings[0].ID != rep2.Structure.Headings[0].ID {
		t.Fatalf("heading ids differ across re-renders: %q vs %q", rep1.Structure.Headings[0].ID, rep2.Structure.Headings[0].ID)
	}
}

func TestRender_ResolveElementAgainstSharedGenerator(t *testing.T) {
	p := New(snapshot.New(), nil)
	snap, err := p.Render(context.Background(), exampleSession(), Options{Detail: DetailMinimal})
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	rep := snap.Representation.(*PageRepresentation)
	el := rep.Interactive[0]

	backendID, ok := p.ResolveElement(el.ID)
	if !ok || backendID != 12 {
		t.Fatalf("ResolveElement(%q) = (%d, %v), want (12, true)", el.ID, backendID, ok)
	}
}

func TestRender_ViewportFallsBackToDefaultWhenDriverReportsZero(t *testing.T) {
	p := New(snapshot.New(), nil)
	sess := exampleSession()
	sess.viewW, sess.viewH = 0, 0

	snap, err := p.Render(context.Background(), sess, Options{Detail: DetailMinimal})
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	rep := snap.Representation.(*PageRepresentation)
	if rep.Viewport != DefaultViewport {
		t.Fatalf("Viewport = %+v, want default %+v", rep.Viewport, DefaultViewport)
	}
}

func TestRender_SelectorPrunesToMatchedSubtree(t *testing.T) {
	p := New(snapshot.New(), nil)
	snap, err := p.Render(context.Background(), exampleSession(), Options{Detail: DetailMinimal, Selector: "main"})
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	rep := snap.Representation.(*PageRepresentation)
	if len(rep.Structure.Landmarks) != 1 {
		t.Fatalf("Landmarks = %+v, pruning to \"main\" should still surface the main landmark itself", rep.Structure.Landmarks)
	}
}

func TestSnapshotGet_MissingIDReturnsError(t *testing.T) {
	p := New(snapshot.New(), nil)
	if _, err := p.SnapshotGet(999); err == nil {
		t.Fatal("SnapshotGet on an unheld id should return an error")
	}
}

func TestFindSimilar_RecoversStaleID(t *testing.T) {
	p := New(snapshot.New(), nil)
	snap, err := p.Render(context.Background(), exampleSession(), Options{Detail: DetailMinimal})
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	rep := snap.Representation.(*PageRepresentation)
	liveID := rep.Interactive[0].ID

	prefix, _, _ := cutPrefix(liveID)
	stale := prefix + "-ffff"

	got, ok := p.FindSimilar(stale)
	if !ok || got != liveID {
		t.Fatalf("FindSimilar(%q) = (%q, %v), want (%q, true)", stale, got, ok, liveID)
	}
}

func cutPrefix(id string) (string, string, bool) {
	for i := 0; i < len(id); i++ {
		if id[i] == '-' {
			return id[:i], id[i+1:], true
		}
	}
	return id, "", false
}
