// Package api exposes the controller over HTTP: the /api/v0 REST surface,
// websocket frame preview, diagnostics and control channels, and /health.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/hidden-shades/internal/diagnostics"
	"github.com/coreman2200/hidden-shades/internal/engine"
	"github.com/coreman2200/hidden-shades/internal/globals"
	"github.com/coreman2200/hidden-shades/internal/layer"
	"github.com/coreman2200/hidden-shades/internal/render"
	"github.com/coreman2200/hidden-shades/internal/stack"
	"github.com/coreman2200/hidden-shades/internal/variables"
)

// Runner serializes API operations with the render loop.
type Runner interface {
	Do(fn func() error) error
	Stats() engine.Stats
}

type Options struct {
	Runner   Runner
	Stacks   *stack.Manager
	Globals  *globals.Manager
	Registry *layer.Registry
	Diag     *diagnostics.Hub
	Dim      render.Dimensions
	Driver   string
}

// Server owns the HTTP handlers and the websocket client sets.
type Server struct {
	run     Runner
	stacks  *stack.Manager
	globals *globals.Manager
	reg     *layer.Registry
	diag    *diagnostics.Hub
	dim     render.Dimensions
	driver  string
	start   time.Time

	upgrader websocket.Upgrader

	mu      sync.RWMutex
	frameID uint64
	viewers map[*client]struct{}
}

func New(opts Options) *Server {
	return &Server{
		run:      opts.Runner,
		stacks:   opts.Stacks,
		globals:  opts.Globals,
		reg:      opts.Registry,
		diag:     opts.Diag,
		dim:      opts.Dim,
		driver:   opts.Driver,
		start:    time.Now(),
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		viewers:  map[*client]struct{}{},
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(withCORS)

	r.Get("/alive", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/index", s.getIndex)
	r.Get("/health", s.getHealth)
	r.Get("/ws", s.serveFrames)
	r.Get("/diag", s.serveDiag)
	r.Get("/control", s.serveControl)

	r.Route("/api/v0", func(r chi.Router) {
		r.Get("/shards", s.getShards)
		r.Route("/global", func(r chi.Router) {
			r.Get("/", s.getGlobals)
			r.Get("/variable/{variable}", s.getGlobalVariable)
			r.Put("/variable/{variable}", s.putGlobalVariable)
		})
		r.Route("/output", func(r chi.Router) {
			r.Get("/", s.getOutput)
			r.Route("/stack/{stack}", func(r chi.Router) {
				r.Get("/", s.getStack)
				r.Put("/activate", s.activateStack)
				r.Delete("/layers", s.clearLayers)
				r.Post("/layers", s.addLayers)
				r.Post("/layer", s.addLayer)
				r.Route("/layer/{layer}", func(r chi.Router) {
					r.Get("/", s.getLayer)
					r.Delete("/", s.deleteLayer)
					r.Put("/config", s.putLayerConfig)
					r.Put("/index", s.putLayerIndex)
					r.Get("/variable/{variable}", s.getLayerVariable(false))
					r.Put("/variable/{variable}", s.putLayerVariable(false))
					r.Get("/standard_variable/{variable}", s.getLayerVariable(true))
					r.Put("/standard_variable/{variable}", s.putLayerVariable(true))
				})
			})
		})
	})
	return r
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, POST, DELETE, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// errBadRequest marks malformed request bodies.
var errBadRequest = errors.New("bad request")

func statusFor(err error) int {
	switch {
	case errors.Is(err, stack.ErrInvalidStack),
		errors.Is(err, stack.ErrUnknownLayer),
		errors.Is(err, variables.ErrUnknown):
		return http.StatusNotFound
	case errors.Is(err, variables.ErrValidation),
		errors.Is(err, stack.ErrIndexRange),
		errors.Is(err, layer.ErrUnknownShard),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("write response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		log.Error().Err(err).Msg("api request failed")
	}
	writeJSON(w, code, map[string]any{"status": code, "error": err.Error()})
}

// respond runs fn under the run lock and writes its result.
func (s *Server) respond(w http.ResponseWriter, fn func() (any, error)) {
	var out any
	err := s.run.Do(func() error {
		var err error
		out, err = fn()
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"api": map[string]any{
			"latest":   "v0",
			"versions": map[string]string{"v0": "/api/v0"},
		},
		"dim": s.dim,
	})
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	st := s.run.Stats()
	s.mu.RLock()
	viewers := len(s.viewers)
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"frame_id": st.Frames,
		"uptime_s": time.Since(s.start).Seconds(),
		"count":    s.dim.Pixels(),
		"fps":      st.FPS,
		"layers":   st.Layers,
		"stack":    st.Stack,
		"faults":   st.Faults,
		"driver":   s.driver,
		"viewers":  viewers,
	})
}
