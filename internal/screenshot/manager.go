// Package screenshot captures and annotates page screenshots and stores
// them on disk with FIFO eviction once a configured retention count is
// exceeded.
package screenshot

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fogleman/gg"

	"github.com/ticktockbent/charlotte/internal/interactive"
)

// Style configures the visual appearance of element annotations.
type Style struct {
	BoxColor   color.Color
	LabelColor color.Color
	TextColor  color.Color
	BoxWidth   float64
}

// DefaultStyle mirrors the coral-box-with-label look used elsewhere in the
// corpus for element annotation overlays.
func DefaultStyle() Style {
	return Style{
		BoxColor:   color.RGBA{255, 107, 107, 200},
		LabelColor: color.RGBA{255, 107, 107, 230},
		TextColor:  color.White,
		BoxWidth:   2,
	}
}

// Config configures a Manager.
type Config struct {
	StorageDir     string
	MaxScreenshots int // 0 disables eviction
	Style          Style
}

// Manager annotates screenshot bytes with interactive-element bounding
// boxes and persists them to StorageDir.
type Manager struct {
	cfg Config
	mu  sync.Mutex
}

// NewManager constructs a Manager, creating StorageDir if set.
func NewManager(cfg Config) *Manager {
	if cfg.Style == (Style{}) {
		cfg.Style = DefaultStyle()
	}
	if cfg.StorageDir != "" {
		_ = os.MkdirAll(cfg.StorageDir, 0o755)
	}
	return &Manager{cfg: cfg}
}

// Annotate draws a bounding box and element-id label over every visible,
// non-zero-bounds element in elements.
func (m *Manager) Annotate(raw []byte, elements []*interactive.Element) ([]byte, error) {
	if len(elements) == 0 {
		return raw, nil
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("screenshot: decode: %w", err)
	}

	dc := gg.NewContextForImage(img)
	style := m.cfg.Style

	for _, el := range elements {
		if el.Bounds == nil || !el.State.Visible {
			continue
		}
		b := *el.Bounds
		if b.W <= 0 || b.H <= 0 {
			continue
		}

		dc.SetColor(style.BoxColor)
		dc.SetLineWidth(style.BoxWidth)
		dc.DrawRectangle(float64(b.X), float64(b.Y), float64(b.W), float64(b.H))
		dc.Stroke()

		drawLabel(dc, el.ID, float64(b.X), float64(b.Y), style)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("screenshot: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// drawLabel draws a small filled tag above the element's top-left corner
// holding its element id. No font file is loaded, so the id is rendered as
// a run of character-width blocks rather than real glyphs.
func drawLabel(dc *gg.Context, label string, x, y float64, style Style) {
	width := float64(len(label))*6 + 4
	top := y - 14
	if top < 0 {
		top = y
	}

	dc.SetColor(style.LabelColor)
	dc.DrawRectangle(x, top, width, 12)
	dc.Fill()

	dc.SetColor(style.TextColor)
	for i := range label {
		dc.DrawRectangle(x+2+float64(i)*6, top+3, 4, 6)
	}
	dc.Fill()
}

// Save writes data under StorageDir with a timestamped, sanitized name and
// evicts the oldest files past MaxScreenshots.
func (m *Manager) Save(data []byte, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg.StorageDir == "" {
		return "", fmt.Errorf("screenshot: no storage directory configured")
	}
	if err := os.MkdirAll(m.cfg.StorageDir, 0o755); err != nil {
		return "", fmt.Errorf("screenshot: mkdir: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.png", time.Now().UTC().Format("20060102-150405.000000"), sanitize(name))
	path := filepath.Join(m.cfg.StorageDir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("screenshot: write: %w", err)
	}

	if m.cfg.MaxScreenshots > 0 {
		m.evict()
	}
	return path, nil
}

func (m *Manager) evict() {
	entries, err := os.ReadDir(m.cfg.StorageDir)
	if err != nil {
		return
	}
	var files []os.DirEntry
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".png" {
			files = append(files, e)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name() < files[j].Name() })

	excess := len(files) - m.cfg.MaxScreenshots
	for i := 0; i < excess; i++ {
		os.Remove(filepath.Join(m.cfg.StorageDir, files[i].Name()))
	}
}

// List returns saved screenshot paths, newest first.
func (m *Manager) List() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg.StorageDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(m.cfg.StorageDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".png" {
			paths = append(paths, filepath.Join(m.cfg.StorageDir, e.Name()))
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(paths)))
	return paths, nil
}

func sanitize(name string) string {
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			out = append(out, c)
		case c == ' ':
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "screenshot"
	}
	if len(out) > 50 {
		out = out[:50]
	}
	return string(out)
}
