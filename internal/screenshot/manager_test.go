package screenshot

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"
	"time"

	"github.com/ticktockbent/charlotte/internal/interactive"
	"github.com/ticktockbent/charlotte/internal/layout"
)

func samplePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture png: %v", err)
	}
	return buf.Bytes()
}

func TestAnnotate_SkipsHiddenAndZeroBoundsElements(t *testing.T) {
	m := NewManager(Config{})
	raw := samplePNG(t)

	bounds := layout.Bounds{X: 1, Y: 1, W: 5, H: 5}
	visible := &interactive.Element{ID: "btn-0001", Bounds: &bounds, State: interactive.State{Visible: true}}
	hidden := &interactive.Element{ID: "btn-0002", Bounds: &bounds, State: interactive.State{Visible: false}}
	noBounds := &interactive.Element{ID: "btn-0003", State: interactive.State{Visible: true}}

	out, err := m.Annotate(raw, []*interactive.Element{visible, hidden, noBounds})
	if err != nil {
		t.Fatalf("Annotate returned error: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("Annotate returned empty output")
	}
	if _, _, err := image.Decode(bytes.NewReader(out)); err != nil {
		t.Fatalf("annotated output is not a valid image: %v", err)
	}
}

func TestAnnotate_NoElementsReturnsInputUnchanged(t *testing.T) {
	m := NewManager(Config{})
	raw := samplePNG(t)
	out, err := m.Annotate(raw, nil)
	if err != nil {
		t.Fatalf("Annotate returned error: %v", err)
	}
	if !bytes.Equal(out, raw) {
		t.Fatal("Annotate with no elements should return the input unchanged")
	}
}

func TestSaveAndList_FIFOEviction(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(Config{StorageDir: dir, MaxScreenshots: 2})
	raw := samplePNG(t)

	for i := 0; i < 3; i++ {
		if _, err := m.Save(raw, "shot"); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		time.Sleep(2 * time.Millisecond) // ensure distinct timestamped filenames
	}

	paths, err := m.List()
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("got %d screenshots, want 2 after eviction past MaxScreenshots=2", len(paths))
	}
}

func TestSave_SanitizesName(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(Config{StorageDir: dir})
	path, err := m.Save(samplePNG(t), "my shot!.png")
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	base := filepath.Base(path)
	if !bytesContainOnlySafeChars(base) {
		t.Fatalf("filename %q contains unsanitized characters", base)
	}
}

func bytesContainOnlySafeChars(s string) bool {
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}

func TestSave_NoStorageDirConfiguredErrors(t *testing.T) {
	m := NewManager(Config{})
	if _, err := m.Save(samplePNG(t), "shot"); err == nil {
		t.Fatal("expected an error when no storage directory is configured")
	}
}
