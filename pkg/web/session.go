package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ritzau/scenegraph/pkg/codegen"
	"github.com/ritzau/scenegraph/pkg/codenode"
	"github.com/ritzau/scenegraph/pkg/diff"
	"github.com/ritzau/scenegraph/pkg/ir"
	"github.com/ritzau/scenegraph/pkg/logging"
	"github.com/ritzau/scenegraph/pkg/pubsub"
	"github.com/ritzau/scenegraph/pkg/session"
	"github.com/ritzau/scenegraph/pkg/validation"
)

type addNodeRequest struct {
	TypeKey string `json:"typeKey"`
}

type connectRequest struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	TargetHandle string `json:"targetHandle"`
}

type paramRequest struct {
	Value ir.Value `json:"value"`
}

type labelRequest struct {
	Label string `json:"label"`
}

type codeRequest struct {
	Code string `json:"code"`
}

type historyResponse struct {
	Applied bool `json:"applied"`
	Undo    int  `json:"undo"`
	Redo    int  `json:"redo"`
}

func (s *Server) setupSessionRoutes(r *mux.Router) {
	r.HandleFunc("", s.withSession(s.handleSessionModule)).Methods("GET")
	r.HandleFunc("/nodes", s.withSession(s.handleAddNode)).Methods("POST")
	r.HandleFunc("/nodes/{id}", s.withSession(s.handleRemoveNode)).Methods("DELETE")
	r.HandleFunc("/nodes/{id}/params/{key}", s.withSession(s.handleSetParam)).Methods("PUT")
	r.HandleFunc("/nodes/{id}/label", s.withSession(s.handleSetLabel)).Methods("PUT")
	r.HandleFunc("/nodes/{id}/code", s.withSession(s.handleSetCode)).Methods("PUT")
	r.HandleFunc("/edges", s.withSession(s.handleConnect)).Methods("POST")
	r.HandleFunc("/edges/{id}", s.withSession(s.handleRemoveEdge)).Methods("DELETE")
	r.HandleFunc("/undo", s.withSession(s.handleUndo)).Methods("POST")
	r.HandleFunc("/redo", s.withSession(s.handleRedo)).Methods("POST")
	r.HandleFunc("/preview", s.withSession(s.handleSessionPreview)).Methods("GET")
	r.HandleFunc("/export", s.withSession(s.handleSessionExport)).Methods("GET")
	r.HandleFunc("/validate", s.withSession(s.handleSessionValidate)).Methods("GET")
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session.Session)

func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := s.currentSession()
		if sess == nil {
			writeError(w, http.StatusServiceUnavailable, errors.New("no module is open for editing"))
			return
		}
		h(w, r, sess)
	}
}

// edited records an accepted or rejected edit and announces accepted ones
// with the changes relative to before
func (s *Server) edited(r *http.Request, sess *session.Session, op string, before ir.GraphLayer, err error) {
	s.metrics.edit(op, err)
	if err != nil {
		logging.DebugContext(r.Context(), "edit rejected", "op", op, "error", err)
		return
	}
	m := sess.Module()
	undo, redo := sess.History()
	data := pubsub.SessionData{
		Module: m.Tree.ModuleName,
		Nodes:  len(m.Graph.Nodes),
		Edges:  len(m.Graph.Edges),
		Undo:   undo,
		Redo:   redo,
		Hash:   diff.Hash(m.Graph),
		Diff:   diff.Compute(before, m.Graph),
	}
	if err := s.publisher.PublishSession(data); err != nil {
		logging.WarnContext(r.Context(), "failed to publish session event", "error", err)
	}
}

// writeEditError maps session errors onto HTTP statuses. Registry
// rejections are returned as the finding itself.
func writeEditError(w http.ResponseWriter, err error) {
	var verr *validation.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, verr)
	case errors.Is(err, session.ErrNodeNotFound), errors.Is(err, session.ErrEdgeNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, session.ErrNoFreeHandle):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, codenode.ErrInvalidSource):
		writeError(w, http.StatusUnprocessableEntity, err)
	default:
		writeError(w, http.StatusBadRequest, err)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func (s *Server) handleSessionModule(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	m := sess.Module()
	etag := `"` + diff.Hash(m.Graph) + `"`
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleAddNode(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	before := sess.Graph()
	var req addNodeRequest
	if !decode(w, r, &req) {
		return
	}
	n, err := sess.AddNode(req.TypeKey)
	s.edited(r, sess, "add_node", before, err)
	if err != nil {
		writeEditError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (s *Server) handleRemoveNode(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	before := sess.Graph()
	err := sess.RemoveNode(mux.Vars(r)["id"])
	s.edited(r, sess, "remove_node", before, err)
	if err != nil {
		writeEditError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetParam(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	before := sess.Graph()
	var req paramRequest
	if !decode(w, r, &req) {
		return
	}
	vars := mux.Vars(r)
	err := sess.SetParam(vars["id"], vars["key"], req.Value)
	s.edited(r, sess, "set_param", before, err)
	if err != nil {
		writeEditError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetLabel(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	before := sess.Graph()
	var req labelRequest
	if !decode(w, r, &req) {
		return
	}
	err := sess.SetLabel(mux.Vars(r)["id"], req.Label)
	s.edited(r, sess, "set_label", before, err)
	if err != nil {
		writeEditError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetCode(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	before := sess.Graph()
	var req codeRequest
	if !decode(w, r, &req) {
		return
	}
	err := sess.SetCode(mux.Vars(r)["id"], req.Code)
	s.edited(r, sess, "set_code", before, err)
	if err != nil {
		writeEditError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	before := sess.Graph()
	var req connectRequest
	if !decode(w, r, &req) {
		return
	}
	if req.TargetHandle == "" {
		req.TargetHandle = ir.AutoHandle
	}
	e, err := sess.Connect(req.Source, req.Target, req.TargetHandle)
	s.edited(r, sess, "connect", before, err)
	if err != nil {
		writeEditError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleRemoveEdge(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	before := sess.Graph()
	err := sess.RemoveEdge(mux.Vars(r)["id"])
	s.edited(r, sess, "remove_edge", before, err)
	if err != nil {
		writeEditError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	s.history(w, r, sess, "undo", sess.Undo)
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	s.history(w, r, sess, "redo", sess.Redo)
}

func (s *Server) history(w http.ResponseWriter, r *http.Request, sess *session.Session, op string, step func() bool) {
	before := sess.Graph()
	applied := step()
	if applied {
		s.edited(r, sess, op, before, nil)
	}
	undo, redo := sess.History()
	writeJSON(w, http.StatusOK, historyResponse{Applied: applied, Undo: undo, Redo: redo})
}

func (s *Server) handleSessionPreview(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	writeJSON(w, http.StatusOK, sess.Preview())
}

func (s *Server) handleSessionExport(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	component, ok := componentParam(w, r)
	if !ok {
		return
	}
	resp := exportName(sess.Module(), component)
	resp.Source = sess.Export(codegen.Options{ComponentName: resp.Component})
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSessionValidate(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	findings := sess.Validate()
	if findings == nil {
		findings = []validation.ValidationError{}
	}
	writeJSON(w, http.StatusOK, ValidateResponse{OK: len(findings) == 0, Findings: findings})
}
