// Package browserctl drives the browser for the non-core tools (navigate,
// click, type, press_key, scroll, tab management, evaluate) by resolving
// agent-facing element ids against the renderer pipeline's shared generator
// and dispatching CDP input against the resolved node's geometry.
package browserctl

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"

	"github.com/ticktockbent/charlotte/internal/cdpsession"
	"github.com/ticktockbent/charlotte/internal/toolerr"
)

// Resolver is the subset of *render.Pipeline the controller needs to turn
// an agent-facing element id into a backend DOM node id.
type Resolver interface {
	ResolveElement(id string) (int, bool)
}

// TabInfo describes one open tab.
type TabInfo struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Controller owns the rod browser and its tabs, and is the single owner of
// CDP input dispatch. One render may be in progress per page at a time
// (the tool dispatcher enforces this); the controller itself holds a mutex
// purely to protect the tabs map, not to serialize renders.
type Controller struct {
	rod *rod.Browser

	mu          sync.RWMutex
	pages       map[string]*rod.Page
	activeTabID string

	viewportW, viewportH int
}

// New wraps an already-launched rod.Browser.
func New(rodBrowser *rod.Browser, viewportW, viewportH int) *Controller {
	return &Controller{
		rod:       rodBrowser,
		pages:     make(map[string]*rod.Page),
		viewportW: viewportW,
		viewportH: viewportH,
	}
}

// ActivePage returns the active tab's page, or nil if no tab is open.
func (c *Controller) ActivePage() *rod.Page {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pages[c.activeTabID]
}

// Session wraps the active page as a cdpsession.Session for the renderer
// pipeline.
func (c *Controller) Session() (cdpsession.Session, error) {
	page := c.ActivePage()
	if page == nil {
		return nil, toolerr.New(toolerr.SessionError, "no active tab", "call navigate to open one")
	}
	return cdpsession.NewPageSession(page), nil
}

// Navigate navigates the active tab to url, opening the first tab if none
// exists yet.
func (c *Controller) Navigate(ctx context.Context, url string) error {
	c.mu.Lock()
	page := c.pages[c.activeTabID]
	c.mu.Unlock()

	if page == nil {
		_, err := c.NewTab(ctx, url)
		return err
	}

	if err := page.Navigate(url); err != nil {
		return toolerr.New(toolerr.NavigationFailed, err.Error(), "")
	}
	settle(page)
	return nil
}

// GoBack navigates the active tab back in history.
func (c *Controller) GoBack(ctx context.Context) error {
	page := c.ActivePage()
	if page == nil {
		return toolerr.New(toolerr.SessionError, "no active tab", "")
	}
	if err := page.NavigateBack(); err != nil {
		return toolerr.New(toolerr.NavigationFailed, err.Error(), "")
	}
	settle(page)
	return nil
}

// GoForward navigates the active tab forward in history.
func (c *Controller) GoForward(ctx context.Context) error {
	page := c.ActivePage()
	if page == nil {
		return toolerr.New(toolerr.SessionError, "no active tab", "")
	}
	if err := page.NavigateForward(); err != nil {
		return toolerr.New(toolerr.NavigationFailed, err.Error(), "")
	}
	settle(page)
	return nil
}

// Click resolves id to a backend node, fetches its box model, and clicks
// its center.
func (c *Controller) Click(ctx context.Context, resolver Resolver, id string) error {
	page := c.ActivePage()
	if page == nil {
		return toolerr.New(toolerr.SessionError, "no active tab", "")
	}
	cx, cy, err := c.centerOf(ctx, resolver, id)
	if err != nil {
		return err
	}
	if err := page.Mouse.MoveTo(proto.Point{X: cx, Y: cy}); err != nil {
		return toolerr.New(toolerr.EvaluationError, fmt.Sprintf("move to element failed: %v", err), "")
	}
	if err := page.Mouse.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return toolerr.New(toolerr.EvaluationError, fmt.Sprintf("click failed: %v", err), "")
	}
	settle(page)
	return nil
}

// Type clicks id to focus it, clears any existing value, then inserts
// text.
func (c *Controller) Type(ctx context.Context, resolver Resolver, id, text string) error {
	page := c.ActivePage()
	if page == nil {
		return toolerr.New(toolerr.SessionError, "no active tab", "")
	}
	cx, cy, err := c.centerOf(ctx, resolver, id)
	if err != nil {
		return err
	}
	if err := page.Mouse.MoveTo(proto.Point{X: cx, Y: cy}); err != nil {
		return toolerr.New(toolerr.EvaluationError, fmt.Sprintf("move to element failed: %v", err), "")
	}
	if err := page.Mouse.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return toolerr.New(toolerr.EvaluationError, fmt.Sprintf("click to focus failed: %v", err), "")
	}
	time.Sleep(50 * time.Millisecond)

	_ = clearFocused(page)

	if err := page.InsertText(text); err != nil {
		return toolerr.New(toolerr.EvaluationError, fmt.Sprintf("insert text failed: %v", err), "")
	}
	return nil
}

func clearFocused(page *rod.Page) error {
	if err := page.Keyboard.Press(input.ControlLeft); err != nil {
		return err
	}
	if err := page.Keyboard.Type(input.KeyA); err != nil {
		return err
	}
	if err := page.Keyboard.Release(input.ControlLeft); err != nil {
		return err
	}
	return page.Keyboard.Type(input.Backspace)
}

var namedKeys = map[string]input.Key{
	"Enter":      input.Enter,
	"Escape":     input.Escape,
	"Tab":        input.Tab,
	"Backspace":  input.Backspace,
	"Delete":     input.Delete,
	"ArrowUp":    input.ArrowUp,
	"ArrowDown":  input.ArrowDown,
	"ArrowLeft":  input.ArrowLeft,
	"ArrowRight": input.ArrowRight,
	"Home":       input.Home,
	"End":        input.End,
	"PageUp":     input.PageUp,
	"PageDown":   input.PageDown,
	"Space":      input.Space,
}

// PressKey sends a named key (Enter, Escape, Tab, arrows, ...) to the
// currently focused element in the active tab.
func (c *Controller) PressKey(ctx context.Context, key string) error {
	page := c.ActivePage()
	if page == nil {
		return toolerr.New(toolerr.SessionError, "no active tab", "")
	}
	k, ok := namedKeys[key]
	if !ok {
		return toolerr.New(toolerr.EvaluationError, fmt.Sprintf("unknown key %q", key), "use a named key like Enter, Tab, Escape")
	}
	if err := page.Keyboard.Type(k); err != nil {
		return toolerr.New(toolerr.EvaluationError, err.Error(), "")
	}
	return nil
}

// Scroll scrolls the active tab's viewport by (dx, dy) CSS pixels.
func (c *Controller) Scroll(ctx context.Context, dx, dy float64) error {
	page := c.ActivePage()
	if page == nil {
		return toolerr.New(toolerr.SessionError, "no active tab", "")
	}
	if err := page.Mouse.Scroll(dx, dy, 1); err != nil {
		return toolerr.New(toolerr.EvaluationError, err.Error(), "")
	}
	return nil
}

// Evaluate runs script in the active tab and returns its JSON-encoded
// result value.
func (c *Controller) Evaluate(ctx context.Context, script string) (string, error) {
	page := c.ActivePage()
	if page == nil {
		return "", toolerr.New(toolerr.SessionError, "no active tab", "")
	}
	result, err := page.Eval(script)
	if err != nil {
		return "", toolerr.New(toolerr.EvaluationError, err.Error(), "")
	}
	encoded, err := json.Marshal(result.Value)
	if err != nil {
		return "", toolerr.New(toolerr.EvaluationError, err.Error(), "")
	}
	return string(encoded), nil
}

// NewTab opens url in a new tab, makes it active, and returns its id.
func (c *Controller) NewTab(ctx context.Context, url string) (string, error) {
	page, err := c.rod.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return "", toolerr.New(toolerr.NavigationFailed, err.Error(), "")
	}
	if c.viewportW > 0 && c.viewportH > 0 {
		_ = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             c.viewportW,
			Height:            c.viewportH,
			DeviceScaleFactor: 1,
		})
	}

	tabID := uuid.New().String()[:8]

	c.mu.Lock()
	c.pages[tabID] = page
	c.activeTabID = tabID
	c.mu.Unlock()

	if err := page.WaitLoad(); err != nil {
		return tabID, toolerr.New(toolerr.NavigationFailed, err.Error(), "")
	}
	settle(page)
	return tabID, nil
}

// SwitchTab makes tabID the active tab.
func (c *Controller) SwitchTab(ctx context.Context, tabID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	page, ok := c.pages[tabID]
	if !ok {
		return toolerr.New(toolerr.SessionError, fmt.Sprintf("tab %q not found", tabID), "call list_tabs for valid ids")
	}
	c.activeTabID = tabID
	page.MustActivate()
	return nil
}

// CloseTab closes tabID. Refuses to close the last remaining tab.
func (c *Controller) CloseTab(ctx context.Context, tabID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	page, ok := c.pages[tabID]
	if !ok {
		return toolerr.New(toolerr.SessionError, fmt.Sprintf("tab %q not found", tabID), "")
	}
	if len(c.pages) <= 1 {
		return toolerr.New(toolerr.SessionError, "cannot close the last tab", "")
	}

	page.Close()
	delete(c.pages, tabID)

	if c.activeTabID == tabID {
		for id, p := range c.pages {
			c.activeTabID = id
			p.MustActivate()
			break
		}
	}
	return nil
}

// ListTabs returns info for every open tab.
func (c *Controller) ListTabs(ctx context.Context) []TabInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tabs := make([]TabInfo, 0, len(c.pages))
	for id, page := range c.pages {
		info, err := page.Info()
		if err != nil {
			continue
		}
		tabs = append(tabs, TabInfo{ID: id, URL: info.URL, Title: info.Title})
	}
	return tabs
}

// Close closes every tab and the underlying browser.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, page := range c.pages {
		page.Close()
		delete(c.pages, id)
	}
	return c.rod.Close()
}

func (c *Controller) centerOf(ctx context.Context, resolver Resolver, id string) (float64, float64, error) {
	backendID, ok := resolver.ResolveElement(id)
	if !ok {
		return 0, 0, toolerr.New(toolerr.ElementNotFound, fmt.Sprintf("element %q does not resolve", id), "")
	}

	page := c.ActivePage()
	sess := cdpsession.NewPageSession(page)
	raw, err := sess.GetBoxModel(ctx, backendID)
	if err != nil {
		return 0, 0, toolerr.New(toolerr.ElementNotInteractive, fmt.Sprintf("element %q has no geometry", id), "")
	}

	var resp struct {
		Model struct {
			Content []float64 `json:"content"`
		} `json:"model"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil || len(resp.Model.Content) < 8 {
		return 0, 0, toolerr.New(toolerr.ElementNotInteractive, fmt.Sprintf("element %q has no geometry", id), "")
	}

	quad := resp.Model.Content
	minX, maxX := quad[0], quad[0]
	minY, maxY := quad[1], quad[1]
	for i := 0; i < 8; i += 2 {
		if quad[i] < minX {
			minX = quad[i]
		}
		if quad[i] > maxX {
			maxX = quad[i]
		}
		if quad[i+1] < minY {
			minY = quad[i+1]
		}
		if quad[i+1] > maxY {
			maxY = quad[i+1]
		}
	}
	return (minX + maxX) / 2, (minY + maxY) / 2, nil
}

// settle waits briefly for the page to stop mutating after an action that
// may have triggered navigation, animation, or lazy loading. Failures here
// are not fatal: the page may simply be static.
func settle(page *rod.Page) {
	_ = page.WaitStable(500 * time.Millisecond)
}
