// Package toolserver exposes Charlotte's tool surface over stdio: one JSON
// request per line in, one JSON response per line out. The dispatcher is
// single-threaded and cooperative — at most one render is in flight per
// page — matching the concurrency model of §5.
package toolserver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/ticktockbent/charlotte/internal/browserctl"
	"github.com/ticktockbent/charlotte/internal/interactive"
	"github.com/ticktockbent/charlotte/internal/render"
	"github.com/ticktockbent/charlotte/internal/screenshot"
	"github.com/ticktockbent/charlotte/internal/spatial"
	"github.com/ticktockbent/charlotte/internal/toolerr"
)

// Request is one inbound tool call.
type Request struct {
	ID     string          `json:"id"`
	Tool   string          `json:"tool"`
	Params json.RawMessage `json:"params"`
}

// Response is one outbound tool result.
type Response struct {
	ID     string         `json:"id"`
	Result any            `json:"result,omitempty"`
	Error  *toolerr.Error `json:"error,omitempty"`
}

// Server holds the collaborators every tool handler needs.
type Server struct {
	Pipeline   *render.Pipeline
	Controller *browserctl.Controller
	Screens    *screenshot.Manager

	handlers map[string]handlerFunc
}

type handlerFunc func(ctx context.Context, s *Server, params json.RawMessage) (any, error)

// NewServer wires a dispatcher against its collaborators and registers the
// full tool surface.
func NewServer(pipeline *render.Pipeline, controller *browserctl.Controller, screens *screenshot.Manager) *Server {
	s := &Server{Pipeline: pipeline, Controller: controller, Screens: screens}
	s.handlers = map[string]handlerFunc{
		"render":          handleRender,
		"resolve_element": handleResolveElement,
		"find_similar":    handleFindSimilar,
		"snapshot_get":    handleSnapshotGet,
		"find":            handleFind,

		"navigate":    handleNavigate,
		"click":       handleClick,
		"type":        handleType,
		"press_key":   handlePressKey,
		"scroll":      handleScroll,
		"go_back":     handleGoBack,
		"go_forward":  handleGoForward,
		"evaluate":    handleEvaluate,
		"screenshot":  handleScreenshot,
		"list_tabs":   handleListTabs,
		"new_tab":     handleNewTab,
		"switch_tab":  handleSwitchTab,
		"close_tab":   handleCloseTab,
	}
	return s
}

// Serve reads newline-delimited JSON requests from r and writes
// newline-delimited JSON responses to w until r is exhausted or ctx is
// cancelled. Malformed lines produce an error response rather than
// terminating the loop.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			_ = enc.Encode(Response{Error: toolerr.New(toolerr.EvaluationError, fmt.Sprintf("malformed request: %v", err), "")})
			continue
		}

		resp := s.dispatch(ctx, req)
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("toolserver: write response: %w", err)
		}
	}
	return scanner.Err()
}

func (s *Server) dispatch(ctx context.Context, req Request) Response {
	handler, ok := s.handlers[req.Tool]
	if !ok {
		return Response{ID: req.ID, Error: toolerr.New(toolerr.EvaluationError, fmt.Sprintf("unknown tool %q", req.Tool), "")}
	}

	result, err := handler(ctx, s, req.Params)
	if err != nil {
		log.Debug().Str("tool", req.Tool).Err(err).Msg("toolserver: handler failed")
		if te, ok := err.(*toolerr.Error); ok {
			return Response{ID: req.ID, Error: te}
		}
		return Response{ID: req.ID, Error: toolerr.New(toolerr.EvaluationError, err.Error(), "")}
	}
	return Response{ID: req.ID, Result: result}
}

func decodeParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// --- core tools --------------------------------------------------------

type renderParams struct {
	Detail        string `json:"detail"`
	Selector      string `json:"selector"`
	IncludeStyles bool   `json:"include_styles"`
}

func handleRender(ctx context.Context, s *Server, raw json.RawMessage) (any, error) {
	var p renderParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, toolerr.New(toolerr.EvaluationError, err.Error(), "")
	}
	detail := render.DetailLevel(p.Detail)
	if detail == "" {
		detail = render.DetailSummary
	}

	sess, err := s.Controller.Session()
	if err != nil {
		return nil, err
	}

	snap, err := s.Pipeline.Render(ctx, sess, render.Options{
		Detail:        detail,
		Selector:      p.Selector,
		IncludeStyles: p.IncludeStyles,
	})
	if err != nil {
		return nil, err
	}
	return snap.Representation, nil
}

type elementIDParams struct {
	ID string `json:"id"`
}

func handleResolveElement(ctx context.Context, s *Server, raw json.RawMessage) (any, error) {
	var p elementIDParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, toolerr.New(toolerr.EvaluationError, err.Error(), "")
	}
	backendID, ok := s.Pipeline.ResolveElement(p.ID)
	if !ok {
		return nil, toolerr.New(toolerr.ElementNotFound, fmt.Sprintf("element %q does not resolve", p.ID), "")
	}
	return map[string]int{"backend_dom_node_id": backendID}, nil
}

type findSimilarParams struct {
	ID string `json:"id"`
}

func handleFindSimilar(ctx context.Context, s *Server, raw json.RawMessage) (any, error) {
	var p findSimilarParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, toolerr.New(toolerr.EvaluationError, err.Error(), "")
	}
	match, ok := s.Pipeline.FindSimilar(p.ID)
	if !ok {
		return map[string]any{"match": nil}, nil
	}
	return map[string]any{"match": match}, nil
}

type snapshotGetParams struct {
	ID uint64 `json:"id"`
}

func handleSnapshotGet(ctx context.Context, s *Server, raw json.RawMessage) (any, error) {
	var p snapshotGetParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, toolerr.New(toolerr.EvaluationError, err.Error(), "")
	}
	snap, err := s.Pipeline.SnapshotGet(p.ID)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

type findParams struct {
	Within string  `json:"within"`
	Near   string  `json:"near"`
	Radius float64 `json:"radius"`
}

func handleFind(ctx context.Context, s *Server, raw json.RawMessage) (any, error) {
	var p findParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, toolerr.New(toolerr.EvaluationError, err.Error(), "")
	}

	rep, ok := s.Pipeline.LatestRepresentation()
	if !ok {
		return nil, toolerr.New(toolerr.SnapshotExpired, "no snapshot available; call render first", "")
	}

	targetID := p.Within
	if targetID == "" {
		targetID = p.Near
	}
	target, ok := findElement(rep, targetID)
	if !ok {
		return nil, toolerr.New(toolerr.ElementNotFound, fmt.Sprintf("element %q not in the latest snapshot", targetID), "")
	}
	if target.Bounds == nil {
		return nil, toolerr.New(toolerr.ElementNotInteractive, fmt.Sprintf("element %q has no geometry", targetID), "")
	}

	if p.Within != "" {
		return spatial.Within(*target.Bounds, rep.Interactive), nil
	}
	return spatial.Near(*target.Bounds, rep.Interactive, target.ID, p.Radius), nil
}

func findElement(rep *render.PageRepresentation, id string) (*interactive.Element, bool) {
	for _, el := range rep.Interactive {
		if el.ID == id {
			return el, true
		}
	}
	return nil, false
}
