// Package web serves the compiler pipeline and an edit session over HTTP
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/ritzau/scenegraph/pkg/codegen"
	"github.com/ritzau/scenegraph/pkg/cycles"
	"github.com/ritzau/scenegraph/pkg/graph"
	"github.com/ritzau/scenegraph/pkg/ir"
	"github.com/ritzau/scenegraph/pkg/logging"
	"github.com/ritzau/scenegraph/pkg/preview"
	"github.com/ritzau/scenegraph/pkg/project"
	"github.com/ritzau/scenegraph/pkg/pubsub"
	"github.com/ritzau/scenegraph/pkg/registry"
	"github.com/ritzau/scenegraph/pkg/session"
	"github.com/ritzau/scenegraph/pkg/validation"
)

// maxBodyBytes bounds request documents
const maxBodyBytes = 8 << 20

// ValidateResponse is returned by POST /api/validate
type ValidateResponse struct {
	OK       bool                         `json:"ok"`
	Findings []validation.ValidationError `json:"findings"`
	Cycles   map[string][]cycles.Cycle    `json:"cycles,omitempty"`
}

// ExportResponse is returned by the export endpoints
type ExportResponse struct {
	Module    string `json:"module"`
	Component string `json:"component"`
	FileName  string `json:"fileName"`
	Source    string `json:"source"`
}

// errorResponse is the body of every failed request
type errorResponse struct {
	Error string `json:"error"`
}

// Server represents the web server
type Server struct {
	router    *mux.Router
	publisher *pubsub.Hub
	metrics   *metrics

	mu      sync.RWMutex
	reg     *registry.Registry
	session *session.Session
}

// NewServer creates a new web server over reg
func NewServer(reg *registry.Registry) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		publisher: pubsub.NewHub(),
		metrics:   newMetrics(),
		reg:       reg,
	}
	s.setupRoutes()
	return s
}

// SetRegistry replaces the node type catalog, e.g. after the adapter changed
func (s *Server) SetRegistry(reg *registry.Registry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reg = reg
}

// SetSession exposes sess under /api/session
func (s *Server) SetSession(sess *session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = sess
}

func (s *Server) registry() *registry.Registry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reg
}

func (s *Server) currentSession() *session.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// PublishExport publishes the outcome of writing a module to disk
func (s *Server) PublishExport(data pubsub.ExportData) error {
	result := "ok"
	if data.Failed() {
		result = "failed"
	}
	s.metrics.exports.WithLabelValues(result).Inc()
	return s.publisher.PublishExport(data)
}

// Handler returns the root handler including middleware
func (s *Server) Handler() http.Handler {
	return logging.RequestIDMiddleware(s.router)
}

// Close ends every open subscription
func (s *Server) Close() error {
	return s.publisher.Close()
}

func (s *Server) setupRoutes() {
	s.router.Use(s.metrics.middleware)

	// SSE subscription endpoints
	s.router.HandleFunc("/api/subscribe/{topic:exports|session}", s.handleSubscribe).Methods("GET")

	// Stateless pipeline over a posted project document
	s.router.HandleFunc("/api/registry", s.handleRegistry).Methods("GET")
	s.router.HandleFunc("/api/validate", s.handleValidate).Methods("POST")
	s.router.HandleFunc("/api/export", s.handleExport).Methods("POST")
	s.router.HandleFunc("/api/preview", s.handlePreview).Methods("POST")
	s.router.HandleFunc("/api/format", s.handleFormat).Methods("POST")

	s.setupSessionRoutes(s.router.PathPrefix("/api/session").Subrouter())

	s.router.Handle("/metrics", s.metrics.handler()).Methods("GET")
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	topic := mux.Vars(r)["topic"]

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	sub, err := s.publisher.Subscribe(r.Context(), topic)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	defer sub.Close()

	// Send initial comment to establish connection (Safari compatibility)
	fmt.Fprintf(w, ": connected\n\n")
	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := pubsub.WriteSSE(w, event); err != nil {
				logging.WarnContext(r.Context(), "error writing SSE event", "topic", topic, "error", err)
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

func (s *Server) handleRegistry(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry().Definitions())
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	p, ok := readProject(w, r)
	if !ok {
		return
	}
	reg := s.registry()

	resp := ValidateResponse{Findings: validation.ValidateProject(reg, p)}
	if resp.Findings == nil {
		resp.Findings = []validation.ValidationError{}
	}
	resp.OK = len(resp.Findings) == 0
	for _, m := range p.Modules {
		if found := cycles.FindCycles(graph.NewIndex(m.Graph)); len(found) > 0 {
			if resp.Cycles == nil {
				resp.Cycles = make(map[string][]cycles.Cycle)
			}
			resp.Cycles[m.Tree.ModuleName] = found
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	p, ok := readProject(w, r)
	if !ok {
		return
	}
	m, ok := selectModule(w, p, r.URL.Query().Get("module"))
	if !ok {
		return
	}
	component, ok := componentParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, export(s.registry(), m, component))
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	p, ok := readProject(w, r)
	if !ok {
		return
	}
	m, ok := selectModule(w, p, r.URL.Query().Get("module"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, preview.Compute(s.registry(), m.Graph))
}

func (s *Server) handleFormat(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	formatted, err := project.Format(string(body))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, formatted)
}

// componentParam reads the optional component override. An override that
// is not an identifier is rejected.
func componentParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	component := r.URL.Query().Get("component")
	if component == "" {
		return "", true
	}
	if err := codegen.CheckComponentName(component); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return "", false
	}
	return component, true
}

// exportName resolves the component and file name for m. component
// overrides the module name when set.
func exportName(m ir.IRModule, component string) ExportResponse {
	name := component
	if name == "" {
		name = m.Tree.ModuleName
	}
	name = codegen.ComponentName(name)
	return ExportResponse{
		Module:    m.Tree.ModuleName,
		Component: name,
		FileName:  codegen.FileName(name),
	}
}

// export renders m
func export(reg *registry.Registry, m ir.IRModule, component string) ExportResponse {
	resp := exportName(m, component)
	resp.Source = codegen.Emit(reg, m, codegen.Options{ComponentName: resp.Component})
	return resp
}

// readProject decodes the request body as a project document. On failure
// the response has been written.
func readProject(w http.ResponseWriter, r *http.Request) (*ir.Project, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return nil, false
	}
	p, err := project.Load(string(body))
	if err != nil {
		logging.DebugContext(r.Context(), "project rejected", "error", err)
		writeError(w, http.StatusBadRequest, err)
		return nil, false
	}
	return p, true
}

// selectModule picks the named module, or the first one when name is empty
func selectModule(w http.ResponseWriter, p *ir.Project, name string) (ir.IRModule, bool) {
	if name == "" {
		if len(p.Modules) == 0 {
			writeError(w, http.StatusNotFound, errors.New("project has no modules"))
			return ir.IRModule{}, false
		}
		return p.Modules[0], true
	}
	m, ok := p.Module(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("module not found: %s", name))
		return ir.IRModule{}, false
	}
	return m, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// Start serves on port until ctx is done
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logging.Info("starting web server", "url", fmt.Sprintf("http://localhost:%d", port))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		// Open SSE streams only end once the publisher closes
		s.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}
