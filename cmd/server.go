package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jsphweid/rollindex/fraction"
	"github.com/jsphweid/rollindex/metrics"
	"github.com/jsphweid/rollindex/model"
	"github.com/jsphweid/rollindex/quantize"
	"github.com/jsphweid/rollindex/snapshot"
	"github.com/jsphweid/rollindex/track"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// cap on request bodies
const maxBodyBytes = 1 << 20

// Server exposes one track for editing over HTTP. The track and its index
// have a single owner, so every handler holds mu.
type Server struct {
	mu       sync.Mutex
	track    *track.Track
	id       uuid.UUID
	name     string
	grid     fraction.Fraction
	workers  int
	autosave *snapshot.Autosaver
	log      *slog.Logger
}

type ServerOption func(*Server)

func WithSnapshot(id uuid.UUID, name string) ServerOption {
	return func(s *Server) {
		s.id = id
		s.name = name
	}
}

func WithGrid(grid fraction.Fraction) ServerOption {
	return func(s *Server) {
		s.grid = grid
	}
}

func WithWorkers(n int) ServerOption {
	return func(s *Server) {
		s.workers = n
	}
}

func WithServerLogger(log *slog.Logger) ServerOption {
	return func(s *Server) {
		s.log = log
	}
}

func NewServer(t *track.Track, opts ...ServerOption) *Server {
	s := &Server{
		track:   t,
		id:      uuid.New(),
		grid:    fraction.Sixteenth,
		workers: 1,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnableAutosave writes a snapshot to dir after edits settle for delay.
func (s *Server) EnableAutosave(dir string, delay time.Duration) *snapshot.Autosaver {
	s.autosave = snapshot.NewAutosaver(dir, delay, s.Snapshot, s.log)
	return s.autosave
}

// Snapshot copies the current notes. It takes the lock itself.
func (s *Server) Snapshot() snapshot.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot.Snapshot{
		ID:              s.id,
		Name:            s.name,
		TicksPerQuarter: s.track.TicksPerQuarter(),
		Notes:           s.track.Notes(),
	}
}

func (s *Server) Router() *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/notes", s.handleListNotes).Methods(http.MethodGet)
	router.HandleFunc("/notes", s.handleCreateNote).Methods(http.MethodPost)
	router.HandleFunc("/notes/{id:[0-9]+}", s.handleDeleteNote).Methods(http.MethodDelete)
	router.HandleFunc("/notes/{id:[0-9]+}", s.handlePatchNote).Methods(http.MethodPatch)
	router.HandleFunc("/query/viewport", s.handleViewport).Methods(http.MethodPost)
	router.HandleFunc("/query/rect", s.handleRect).Methods(http.MethodPost)
	router.HandleFunc("/quantize", s.handleQuantize).Methods(http.MethodPost)
	router.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return router
}

func (s *Server) edited() {
	if s.autosave != nil {
		s.autosave.Touch()
	}
}

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	notes := s.track.Notes()
	s.mu.Unlock()
	s.respond(w, "list", http.StatusOK, model.QueryResponse{NumNotes: len(notes), Notes: notes})
}

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var n model.Note
	if err := decodeBody(r, &n); err != nil {
		s.fail(w, "create", err)
		return
	}

	s.mu.Lock()
	id, err := s.track.Insert(n)
	s.mu.Unlock()
	if err != nil {
		s.fail(w, "create", err)
		return
	}
	s.edited()
	s.respond(w, "create", http.StatusCreated, model.IndexedNote{ID: id, Note: n})
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	id, err := noteID(r)
	if err != nil {
		s.fail(w, "delete", err)
		return
	}

	s.mu.Lock()
	err = s.track.Delete(id)
	s.mu.Unlock()
	if err != nil {
		s.fail(w, "delete", err)
		return
	}
	s.edited()
	metrics.HTTPRequests.WithLabelValues("delete", "success").Inc()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePatchNote(w http.ResponseWriter, r *http.Request) {
	id, err := noteID(r)
	if err != nil {
		s.fail(w, "patch", err)
		return
	}
	var body model.NotePatchBody
	if err := decodeBody(r, &body); err != nil {
		s.fail(w, "patch", err)
		return
	}

	s.mu.Lock()
	err = s.track.Update(id, func(n *model.Note) error {
		if body.Start != nil {
			n.Start = *body.Start
		}
		if body.Duration != nil {
			n.Duration = *body.Duration
		}
		if body.Velocity != nil {
			n.Velocity = *body.Velocity
		}
		n.Pitch += body.Transpose
		if body.Snap {
			n.Start = quantize.Fraction(n.Start, s.grid, s.track.TicksPerQuarter())
		}
		return nil
	})
	n, _ := s.track.Get(id)
	s.mu.Unlock()
	if err != nil {
		s.fail(w, "patch", err)
		return
	}
	s.edited()
	s.respond(w, "patch", http.StatusOK, model.IndexedNote{ID: id, Note: n})
}

func (s *Server) handleViewport(w http.ResponseWriter, r *http.Request) {
	s.query(w, r, "viewport", s.track.QueryViewport)
}

func (s *Server) handleRect(w http.ResponseWriter, r *http.Request) {
	s.query(w, r, "rect", s.track.QueryRect)
}

func (s *Server) query(w http.ResponseWriter, r *http.Request, route string, find func(float64, float64, int, int) []model.IndexedNote) {
	var body model.ViewportRequestBody
	if err := decodeBody(r, &body); err != nil {
		s.fail(w, route, err)
		return
	}

	s.mu.Lock()
	notes := find(body.StartTicks, body.EndTicks, body.MinPitch, body.MaxPitch)
	s.mu.Unlock()
	s.respond(w, route, http.StatusOK, model.QueryResponse{NumNotes: len(notes), Notes: notes})
}

func (s *Server) handleQuantize(w http.ResponseWriter, r *http.Request) {
	var body model.QuantizeRequestBody
	if err := decodeBody(r, &body); err != nil {
		s.fail(w, "quantize", err)
		return
	}
	grid := body.Grid
	if grid.IsZero() {
		grid = s.grid
	}

	s.mu.Lock()
	moved, err := s.track.Quantize(r.Context(), body.IDs, grid, s.workers)
	s.mu.Unlock()
	if err != nil {
		s.fail(w, "quantize", err)
		return
	}
	if moved > 0 {
		s.edited()
	}
	s.respond(w, "quantize", http.StatusOK, map[string]int{"moved": moved})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	stats := s.track.Statistics()
	s.mu.Unlock()
	s.respond(w, "stats", http.StatusOK, stats)
}

var errBadRequest = errors.New("bad request")

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func noteID(r *http.Request) (model.NoteID, error) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: note id: %v", errBadRequest, err)
	}
	return id, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, track.ErrNoteNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, track.ErrInvalidNote),
		errors.Is(err, fraction.ErrInvalidArgument),
		errors.Is(err, fraction.ErrOverflow):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, route string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "route", route, "error", err)
	} else {
		s.log.Debug("request rejected", "route", route, "status", status, "error", err)
	}
	metrics.HTTPRequests.WithLabelValues(route, "error").Inc()
	writeJSON(w, status, model.ErrorResponse{Error: err.Error()})
}

func (s *Server) respond(w http.ResponseWriter, route string, status int, v any) {
	metrics.HTTPRequests.WithLabelValues(route, "success").Inc()
	writeJSON(w, status, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
