// Package charlotte is the browser tool server: it launches a controlled
// Chrome instance, renders pages into structured, element-addressable
// representations over the accessibility tree, and exposes both the core
// rendering operations and the non-core browser-control tools over a
// stdio JSON dispatcher.
package charlotte

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/rs/zerolog/log"

	"github.com/ticktockbent/charlotte/internal/browserctl"
	"github.com/ticktockbent/charlotte/internal/config"
	"github.com/ticktockbent/charlotte/internal/render"
	"github.com/ticktockbent/charlotte/internal/screenshot"
	"github.com/ticktockbent/charlotte/internal/snapshot"
	"github.com/ticktockbent/charlotte/internal/toolserver"
)

// Server is the top-level handle: one launched browser, one renderer
// pipeline, one tool dispatcher. Call Start before Serve; Close releases
// the browser and all its tabs.
type Server struct {
	cfg *config.Config

	controller *browserctl.Controller
	pipeline   *render.Pipeline
	screens    *screenshot.Manager
	dispatcher *toolserver.Server

	started bool
	mu      sync.RWMutex
}

// New builds a Server from cfg. Call Start to launch the browser.
func New(cfg *config.Config) *Server {
	return &Server{cfg: cfg}
}

// Start launches the browser and wires the renderer pipeline, screenshot
// manager, and tool dispatcher together.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}

	l := launcher.New().Headless(s.cfg.Headless)
	if s.cfg.ProfileName != "" {
		l = l.UserDataDir(s.cfg.ProfileDir + "/" + s.cfg.ProfileName)
	}
	url, err := l.Launch()
	if err != nil {
		return fmt.Errorf("charlotte: launch browser: %w", err)
	}

	rodBrowser := rod.New().ControlURL(url)
	if err := rodBrowser.Connect(); err != nil {
		return fmt.Errorf("charlotte: connect to browser: %w", err)
	}

	controller := browserctl.New(rodBrowser, s.cfg.Viewport.Width, s.cfg.Viewport.Height)
	store := snapshot.NewWithDepth(s.cfg.SnapshotDepth)
	pipeline := render.New(store, nil)
	screens := screenshot.NewManager(screenshot.Config{
		StorageDir:     s.cfg.ScreenshotDir,
		MaxScreenshots: s.cfg.MaxScreenshots,
	})

	s.controller = controller
	s.pipeline = pipeline
	s.screens = screens
	s.dispatcher = toolserver.NewServer(pipeline, controller, screens)
	s.started = true

	log.Debug().Bool("headless", s.cfg.Headless).Msg("charlotte: browser started")
	return nil
}

// Serve runs the stdio tool dispatcher against r/w until the input is
// exhausted or ctx is cancelled.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	s.mu.RLock()
	started := s.started
	dispatcher := s.dispatcher
	s.mu.RUnlock()

	if !started {
		return ErrNotStarted
	}
	return dispatcher.Serve(ctx, r, w)
}

// Close releases the browser and all its tabs.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	err := s.controller.Close()
	s.started = false
	return err
}

// IsStarted reports whether Start has completed successfully.
func (s *Server) IsStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}
