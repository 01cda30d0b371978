package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jsphweid/rollindex/fraction"
	"github.com/jsphweid/rollindex/logging"
	"github.com/jsphweid/rollindex/model"
	"github.com/jsphweid/rollindex/snapshot"
	"github.com/jsphweid/rollindex/track"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer() *Server {
	t := track.New(96, track.WithLogger(logging.Discard()))
	return NewServer(t, WithServerLogger(logging.Discard()), WithWorkers(2))
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func decode[A any](t *testing.T, w *httptest.ResponseRecorder) A {
	t.Helper()
	var v A
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func noteIDs(res model.QueryResponse) []model.NoteID {
	ids := make([]model.NoteID, len(res.Notes))
	for i, n := range res.Notes {
		ids[i] = n.ID
	}
	return ids
}

func TestCreateAndQueryNotes(t *testing.T) {
	s := newTestServer()

	w := do(t, s, http.MethodPost, "/notes", `{"pitch":60,"start":"0","duration":"1/4","velocity":100}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[model.IndexedNote](t, w)
	assert.Equal(t, model.NoteID(1), created.ID)
	assert.Equal(t, fraction.Quarter, created.Duration)

	w = do(t, s, http.MethodPost, "/notes", `{"pitch":60,"start":"1/4","duration":"1/4","velocity":100}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, s, http.MethodPost, "/query/viewport", `{"start_ticks":0,"end_ticks":96,"min_pitch":0,"max_pitch":127}`)
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[model.QueryResponse](t, w)
	assert.Equal(t, 1, res.NumNotes)
	assert.Equal(t, []model.NoteID{1}, noteIDs(res))

	w = do(t, s, http.MethodPost, "/query/rect", `{"start_ticks":50,"end_ticks":150,"min_pitch":60,"max_pitch":60}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []model.NoteID{1, 2}, noteIDs(decode[model.QueryResponse](t, w)))

	w = do(t, s, http.MethodGet, "/notes", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[model.QueryResponse](t, w).NumNotes)

	w = do(t, s, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[model.Statistics](t, w)
	assert.Equal(t, 2, stats.TotalNotes)
	assert.Equal(t, 1, stats.SpatialBuckets)
}

func TestCreateRejectsInvalidNotes(t *testing.T) {
	s := newTestServer()
	for _, body := range []string{
		`{"pitch":200,"start":"0","duration":"1/4","velocity":100}`,
		`{"pitch":60,"start":"0","duration":"0","velocity":100}`,
		`{"pitch":60,"start":"0","duration":"1/0","velocity":100}`,
		`{"pitch":60,"colour":"red"}`,
		`not json`,
	} {
		w := do(t, s, http.MethodPost, "/notes", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.NotEmpty(t, decode[model.ErrorResponse](t, w).Error)
	}
	assert.Equal(t, 0, s.track.Len())
}

func TestPatchAndDeleteNotes(t *testing.T) {
	s := newTestServer()
	do(t, s, http.MethodPost, "/notes", `{"pitch":60,"start":"0","duration":"1/4","velocity":100}`)
	do(t, s, http.MethodPost, "/notes", `{"pitch":60,"start":"1/4","duration":"1/4","velocity":100}`)

	w := do(t, s, http.MethodPatch, "/notes/1", `{"start":"1/2","transpose":12}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	patched := decode[model.IndexedNote](t, w)
	assert.Equal(t, 72, patched.Pitch)
	assert.Equal(t, fraction.Half, patched.Start)

	w = do(t, s, http.MethodPost, "/query/viewport", `{"start_ticks":0,"end_ticks":96,"min_pitch":0,"max_pitch":127}`)
	assert.Equal(t, 0, decode[model.QueryResponse](t, w).NumNotes)
	w = do(t, s, http.MethodPost, "/query/viewport", `{"start_ticks":192,"end_ticks":192,"min_pitch":72,"max_pitch":72}`)
	assert.Equal(t, []model.NoteID{1}, noteIDs(decode[model.QueryResponse](t, w)))

	// a rejected patch leaves the note where it was
	w = do(t, s, http.MethodPatch, "/notes/1", `{"transpose":100}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	n, _ := s.track.Get(1)
	assert.Equal(t, 72, n.Pitch)

	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodPatch, "/notes/99", `{"transpose":1}`).Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodPatch, "/notes/abc", `{}`).Code)

	// snapping uses the server grid
	w = do(t, s, http.MethodPatch, "/notes/2", `{"start":"17/64","snap":true}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, fraction.Quarter, decode[model.IndexedNote](t, w).Start)

	assert.Equal(t, http.StatusNoContent, do(t, s, http.MethodDelete, "/notes/2", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodDelete, "/notes/2", "").Code)
	assert.Equal(t, []model.NoteID{1}, s.track.IDs())
}

func TestQuantizeEndpoint(t *testing.T) {
	s := newTestServer()
	do(t, s, http.MethodPost, "/notes", `{"pitch":60,"start":"5/64","duration":"1/16","velocity":100}`)
	do(t, s, http.MethodPost, "/notes", `{"pitch":62,"start":"1/2","duration":"1/16","velocity":100}`)

	w := do(t, s, http.MethodPost, "/quantize", `{}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, map[string]int{"moved": 1}, decode[map[string]int](t, w))
	n, _ := s.track.Get(1)
	assert.Equal(t, fraction.Sixteenth, n.Start)

	w = do(t, s, http.MethodPost, "/quantize", `{"grid":"1/4","ids":[1]}`)
	require.Equal(t, http.StatusOK, w.Code)
	n, _ = s.track.Get(1)
	assert.Equal(t, fraction.Zero, n.Start)

	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodPost, "/quantize", `{"ids":[42]}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/quantize", `{"grid":"-1/4"}`).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer()
	do(t, s, http.MethodGet, "/stats", "")
	w := do(t, s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "rollindex_http_requests_total")
}

func TestEditsAreAutosaved(t *testing.T) {
	s := newTestServer()
	dir := t.TempDir()
	autosave := s.EnableAutosave(dir, 10*time.Millisecond)

	do(t, s, http.MethodPost, "/notes", `{"pitch":64,"start":"3/8","duration":"1/8","velocity":70}`)
	require.Eventually(t, func() bool {
		saves, _ := autosave.Stats()
		return saves >= 1
	}, 2*time.Second, 5*time.Millisecond)

	snap, err := snapshot.Read(snapshot.Path(dir, s.id))
	require.NoError(t, err)
	require.Len(t, snap.Notes, 1)
	assert.Equal(t, 64, snap.Notes[0].Pitch)
	assert.Equal(t, int64(96), snap.TicksPerQuarter)

	// a restored track keeps the ids the server handed out
	restored := track.New(snap.TicksPerQuarter)
	require.NoError(t, restored.Load(snap.Notes))
	assert.Equal(t, []model.NoteID{1}, restored.IDs())
}
