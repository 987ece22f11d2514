// Package elementid derives short, stable, prefixed hash ids for elements
// and headings, and maintains the bidirectional id <-> backend-DOM-node-id
// mapping the tool dispatcher resolves against between renders.
package elementid

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/ticktockbent/charlotte/internal/domsig"
)

// ElementType is the closed set of interactive element classifications,
// reused here only to select an id prefix (see TypePrefix).
type ElementType string

const (
	TypeButton     ElementType = "button"
	TypeLink       ElementType = "link"
	TypeTextInput  ElementType = "text_input"
	TypeSelect     ElementType = "select"
	TypeCheckbox   ElementType = "checkbox"
	TypeRadio      ElementType = "radio"
	TypeToggle     ElementType = "toggle"
	TypeTextarea   ElementType = "textarea"
	TypeFileInput  ElementType = "file_input"
	TypeRange      ElementType = "range"
	TypeDateInput  ElementType = "date_input"
	TypeColorInput ElementType = "color_input"

	// TypeHeading and TypeLandmark are synthetic — headings and landmarks
	// are not InteractiveElements but still get generator-issued ids.
	TypeHeading  ElementType = "heading"
	TypeLandmark ElementType = "landmark"
	TypeForm     ElementType = "form"
)

var typePrefix = map[ElementType]string{
	TypeButton:     "btn",
	TypeLink:       "lnk",
	TypeTextInput:  "inp",
	TypeSelect:     "sel",
	TypeCheckbox:   "chk",
	TypeRadio:      "rad",
	TypeToggle:     "tog",
	TypeTextarea:   "inp",
	TypeFileInput:  "inp",
	TypeRange:      "inp",
	TypeDateInput:  "inp",
	TypeColorInput: "inp",
	TypeHeading:    "hdg",
	TypeLandmark:   "rgn",
	TypeForm:       "frm",
}

const defaultPrefix = "el"

// TypePrefix returns the id prefix for an element type, defaulting to "el"
// for anything not in the closed set.
func TypePrefix(t ElementType) string {
	if p, ok := typePrefix[t]; ok {
		return p
	}
	return defaultPrefix
}

// Generator allocates and resolves element ids. A Generator is built fresh
// for each render (RendererPipeline.render step 5) and is immutable once
// built; the pipeline publishes it to the shared, process-wide generator
// via a single ReplaceWith call (spec §4.6/§9).
type Generator struct {
	idToBackend map[string]int
	backendToID map[int]string
	used        mapset.Set[string]

	mu sync.RWMutex
}

// New returns an empty Generator ready for a render pass.
func New() *Generator {
	return &Generator{
		idToBackend: make(map[string]int),
		backendToID: make(map[int]string),
		used:        mapset.NewSet[string](),
	}
}

// GenerateID derives an id for (elementType, role, name, sig) and, when
// backendID is non-zero, records the id <-> backend mapping. Collisions on
// the 4-hex hash are disambiguated with a "-2", "-3", ... suffix. The
// composite key construction and hashing are deterministic: the same forest
// and classifier output always yields the same id set in the same order.
func (g *Generator) GenerateID(elementType ElementType, role, name string, sig domsig.Signature, backendID int) string {
	prefix := TypePrefix(elementType)
	composite := strings.Join([]string{
		string(elementType),
		role,
		name,
		sig.NearestLandmarkRole,
		sig.NearestLandmarkLabel,
		sig.NearestLabelledContainer,
		strconv.Itoa(sig.SiblingIndex),
	}, "|")

	sum := md5.Sum([]byte(composite))
	hex4 := hex.EncodeToString(sum[:])[:4]

	g.mu.Lock()
	defer g.mu.Unlock()

	candidate := fmt.Sprintf("%s-%s", prefix, hex4)
	for n := 2; g.used.Contains(candidate); n++ {
		candidate = fmt.Sprintf("%s-%s-%d", prefix, hex4, n)
	}

	g.used.Add(candidate)
	if backendID != 0 {
		g.idToBackend[candidate] = backendID
		g.backendToID[backendID] = candidate
	}
	return candidate
}

// ResolveID looks up the backend DOM node id for an element id, O(1).
func (g *Generator) ResolveID(id string) (int, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	backendID, ok := g.idToBackend[id]
	return backendID, ok
}

// IDForBackendNode is the inverse lookup of ResolveID.
func (g *Generator) IDForBackendNode(backendID int) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.backendToID[backendID]
	return id, ok
}

// FindSimilar is the recovery path for an id that referred to a
// pre-rerender snapshot: if exactly one id among currentIDs shares the
// queried id's prefix (the substring before the first '-'), return it.
func FindSimilar(id string, currentIDs []string) (string, bool) {
	prefix, _, found := strings.Cut(id, "-")
	if !found {
		return "", false
	}

	var match string
	count := 0
	for _, candidate := range currentIDs {
		p, _, ok := strings.Cut(candidate, "-")
		if ok && p == prefix {
			match = candidate
			count++
		}
	}
	if count == 1 {
		return match, true
	}
	return "", false
}

// ReplaceWith atomically adopts other's tables. Readers via ResolveID/
// IDForBackendNode never observe a half-replaced state: the three maps are
// swapped under a single lock acquisition, and other is never mutated
// again after this call (the pipeline discards its local reference).
func (g *Generator) ReplaceWith(other *Generator) {
	other.mu.RLock()
	idToBackend := other.idToBackend
	backendToID := other.backendToID
	used := other.used
	other.mu.RUnlock()

	g.mu.Lock()
	g.idToBackend = idToBackend
	g.backendToID = backendToID
	g.used = used
	g.mu.Unlock()
}

// Snapshot returns the currently allocated ids that carry a backend DOM node
// mapping, for FindSimilar callers that need "current elements." Ids
// allocated with a zero backend id are not included.
func (g *Generator) Snapshot() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := make([]string, 0, len(g.idToBackend))
	for id := range g.idToBackend {
		ids = append(ids, id)
	}
	return ids
}
