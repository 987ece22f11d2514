package toolserver

import (
	"context"
	"encoding/json"

	"github.com/ticktockbent/charlotte/internal/toolerr"
)

type navigateParams struct {
	URL string `json:"url"`
}

func handleNavigate(ctx context.Context, s *Server, raw json.RawMessage) (any, error) {
	var p navigateParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, toolerr.New(toolerr.EvaluationError, err.Error(), "")
	}
	if err := s.Controller.Navigate(ctx, p.URL); err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}

type clickParams struct {
	ID string `json:"id"`
}

func handleClick(ctx context.Context, s *Server, raw json.RawMessage) (any, error) {
	var p clickParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, toolerr.New(toolerr.EvaluationError, err.Error(), "")
	}
	if err := s.Controller.Click(ctx, s.Pipeline, p.ID); err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}

type typeParams struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func handleType(ctx context.Context, s *Server, raw json.RawMessage) (any, error) {
	var p typeParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, toolerr.New(toolerr.EvaluationError, err.Error(), "")
	}
	if err := s.Controller.Type(ctx, s.Pipeline, p.ID, p.Text); err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}

type pressKeyParams struct {
	Key string `json:"key"`
}

func handlePressKey(ctx context.Context, s *Server, raw json.RawMessage) (any, error) {
	var p pressKeyParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, toolerr.New(toolerr.EvaluationError, err.Error(), "")
	}
	if err := s.Controller.PressKey(ctx, p.Key); err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}

type scrollParams struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

func handleScroll(ctx context.Context, s *Server, raw json.RawMessage) (any, error) {
	var p scrollParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, toolerr.New(toolerr.EvaluationError, err.Error(), "")
	}
	if err := s.Controller.Scroll(ctx, p.DX, p.DY); err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}

func handleGoBack(ctx context.Context, s *Server, raw json.RawMessage) (any, error) {
	if err := s.Controller.GoBack(ctx); err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}

func handleGoForward(ctx context.Context, s *Server, raw json.RawMessage) (any, error) {
	if err := s.Controller.GoForward(ctx); err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}

type evaluateParams struct {
	Script string `json:"script"`
}

func handleEvaluate(ctx context.Context, s *Server, raw json.RawMessage) (any, error) {
	var p evaluateParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, toolerr.New(toolerr.EvaluationError, err.Error(), "")
	}
	result, err := s.Controller.Evaluate(ctx, p.Script)
	if err != nil {
		return nil, err
	}
	return map[string]string{"result": result}, nil
}

type screenshotParams struct {
	Annotate bool   `json:"annotate"`
	Name     string `json:"name"`
}

func handleScreenshot(ctx context.Context, s *Server, raw json.RawMessage) (any, error) {
	var p screenshotParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, toolerr.New(toolerr.EvaluationError, err.Error(), "")
	}

	page := s.Controller.ActivePage()
	if page == nil {
		return nil, toolerr.New(toolerr.SessionError, "no active tab", "")
	}
	data, err := page.Screenshot(true, nil)
	if err != nil {
		return nil, toolerr.New(toolerr.EvaluationError, err.Error(), "")
	}

	if p.Annotate {
		if rep, ok := s.Pipeline.LatestRepresentation(); ok {
			annotated, err := s.Screens.Annotate(data, rep.Interactive)
			if err == nil {
				data = annotated
			}
		}
	}

	name := p.Name
	if name == "" {
		name = "screenshot"
	}
	path, err := s.Screens.Save(data, name)
	if err != nil {
		return nil, toolerr.New(toolerr.EvaluationError, err.Error(), "")
	}
	return map[string]string{"path": path}, nil
}

func handleListTabs(ctx context.Context, s *Server, raw json.RawMessage) (any, error) {
	return s.Controller.ListTabs(ctx), nil
}

type newTabParams struct {
	URL string `json:"url"`
}

func handleNewTab(ctx context.Context, s *Server, raw json.RawMessage) (any, error) {
	var p newTabParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, toolerr.New(toolerr.EvaluationError, err.Error(), "")
	}
	id, err := s.Controller.NewTab(ctx, p.URL)
	if err != nil {
		return nil, err
	}
	return map[string]string{"tab_id": id}, nil
}

type tabIDParams struct {
	TabID string `json:"tab_id"`
}

func handleSwitchTab(ctx context.Context, s *Server, raw json.RawMessage) (any, error) {
	var p tabIDParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, toolerr.New(toolerr.EvaluationError, err.Error(), "")
	}
	if err := s.Controller.SwitchTab(ctx, p.TabID); err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}

func handleCloseTab(ctx context.Context, s *Server, raw json.RawMessage) (any, error) {
	var p tabIDParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, toolerr.New(toolerr.EvaluationError, err.Error(), "")
	}
	if err := s.Controller.CloseTab(ctx, p.TabID); err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}
