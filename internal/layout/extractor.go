// Package layout fetches DOM box-model geometry for a set of backend DOM
// node ids, in bounded-concurrency batches, and projects CDP quads into
// simple integer rectangles.
package layout

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/ticktockbent/charlotte/internal/cdpsession"
)

// BatchSize is the maximum number of in-flight DOM.getBoxModel requests per
// batch (spec §4.2/§5: "dispatch in parallel batches of size <= 50").
const BatchSize = 50

// ZeroBounds is the sentinel for "no geometry available."
var ZeroBounds = Bounds{}

// Bounds is an integer rectangle. W and H are always >= 0.
type Bounds struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// IsZero reports whether b is the sentinel ZeroBounds.
func (b Bounds) IsZero() bool { return b == ZeroBounds }

type boxModelResponse struct {
	Model struct {
		Content []float64 `json:"content"`
	} `json:"model"`
}

// Extractor fetches bounds for backend DOM node ids.
type Extractor struct{}

// NewExtractor constructs an Extractor.
func NewExtractor() *Extractor { return &Extractor{} }

// Extract fetches bounds for every id in backendIDs. Per-node failures
// (missing node, stale id, timeout) are absorbed as ZeroBounds; a
// session-wide failure is not possible here because each request is
// independent — GetBoxModel errors are always per-node.
func (e *Extractor) Extract(ctx context.Context, sess cdpsession.Session, backendIDs []int) map[int]Bounds {
	result := make(map[int]Bounds, len(backendIDs))
	if len(backendIDs) == 0 {
		return result
	}

	var mu sync.Mutex
	for start := 0; start < len(backendIDs); start += BatchSize {
		end := start + BatchSize
		if end > len(backendIDs) {
			end = len(backendIDs)
		}
		batch := backendIDs[start:end]

		var wg sync.WaitGroup
		wg.Add(len(batch))
		for _, id := range batch {
			go func(id int) {
				defer wg.Done()
				b := fetchOne(ctx, sess, id)
				mu.Lock()
				result[id] = b
				mu.Unlock()
			}(id)
		}
		// Join the batch before dispatching the next one, bounding
		// outstanding CDP traffic to BatchSize in-flight requests.
		wg.Wait()
	}

	return result
}

func fetchOne(ctx context.Context, sess cdpsession.Session, backendID int) Bounds {
	raw, err := sess.GetBoxModel(ctx, backendID)
	if err != nil {
		log.Debug().Err(err).Int("backendNodeId", backendID).Msg("layout: getBoxModel failed, using zero bounds")
		return ZeroBounds
	}

	var resp boxModelResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return ZeroBounds
	}
	return quadToBounds(resp.Model.Content)
}

// quadToBounds projects an 8-number [x1,y1,x2,y2,x3,y3,x4,y4] content quad
// to a min/max rounded rectangle.
func quadToBounds(quad []float64) Bounds {
	if len(quad) < 8 {
		return ZeroBounds
	}
	minX, maxX := quad[0], quad[0]
	minY, maxY := quad[1], quad[1]
	for i := 0; i < 8; i += 2 {
		x, y := quad[i], quad[i+1]
		if x < minX {
			minX = x
		}
		if x > maxX {
			maxX = x
		}
		if y < minY {
			minY = y
		}
		if y > maxY {
			maxY = y
		}
	}

	b := Bounds{
		X: roundInt(minX),
		Y: roundInt(minY),
		W: roundInt(maxX - minX),
		H: roundInt(maxY - minY),
	}
	if b.W < 0 {
		b.W = 0
	}
	if b.H < 0 {
		b.H = 0
	}
	return b
}

func roundInt(f float64) int {
	if f >= 0 {
		return int(f + 0.5)
	}
	return int(f - 0.5)
}
