package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/notas/internal/backend/local"
	"github.com/starford/notas/internal/models"
	"github.com/starford/notas/internal/testutil"
)

type recordedEvent struct {
	kind string
	id   string
}

type recorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recorder) PublishNoteEvent(kind, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{kind: kind, id: id})
}

func (r *recorder) all() []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedEvent(nil), r.events...)
}

// testEnv builds a router over a local backend in a temp directory.
// A non-empty token enables bearer auth.
func testEnv(t *testing.T, token string) (http.Handler, *recorder, *testutil.FlakyKV) {
	t.Helper()
	kv := testutil.NewFlakyKV(testutil.TestFS(t))
	b := local.New(kv,
		local.WithFactory(models.NewFactory(uuid.NewString, nil)),
		local.WithLogger(testutil.Logger()),
	)
	rec := &recorder{}
	return NewRouter(b, rec, testutil.Logger(), token != "", token, nil), rec, kv
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}

func createNote(t *testing.T, h http.Handler, title, content string) models.Note {
	t.Helper()
	w := doJSON(t, h, http.MethodPost, "/notas/", map[string]string{"title": title, "content": content})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.Note](t, w)
}

func TestListEmpty(t *testing.T) {
	h, _, _ := testEnv(t, "")
	w := doJSON(t, h, http.MethodGet, "/notas/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]\n", w.Body.String())
}

func TestCreateAndGet(t *testing.T) {
	h, rec, _ := testEnv(t, "")

	n := createNote(t, h, "Shopping", "milk, eggs")
	_, err := uuid.Parse(n.ID)
	require.NoError(t, err, "id should be a uuid")
	assert.Equal(t, "Shopping", n.Title)
	assert.True(t, n.CreatedAt.Equal(n.UpdatedAt))

	w := doJSON(t, h, http.MethodGet, "/notas/"+n.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[models.Note](t, w)
	assert.Equal(t, n.ID, got.ID)
	assert.Equal(t, "milk, eggs", got.Content)
	assert.NotEmpty(t, w.Header().Get("ETag"))

	assert.Equal(t, []recordedEvent{{kind: EventCreated, id: n.ID}}, rec.all())
}

func TestGetNotModified(t *testing.T) {
	h, _, _ := testEnv(t, "")
	n := createNote(t, h, "Work", "")

	w := doJSON(t, h, http.MethodGet, "/notas/"+n.ID, nil)
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/notas/"+n.ID, nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestGetMissing(t *testing.T) {
	h, _, _ := testEnv(t, "")
	w := doJSON(t, h, http.MethodGet, "/notas/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "note not found", decode[errResponse](t, w).Error)
}

func TestCreateValidation(t *testing.T) {
	h, rec, _ := testEnv(t, "")

	tests := []struct {
		name string
		body any
		code int
		msg  string
	}{
		{"blank title", map[string]string{"title": "   "}, http.StatusUnprocessableEntity, "title is required"},
		{"long title", map[string]string{"title": strings.Repeat("x", 101)}, http.StatusUnprocessableEntity, "title too long"},
		{"bad json", "not an object", http.StatusBadRequest, "invalid JSON body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, h, http.MethodPost, "/notas/", tt.body)
			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, tt.msg, decode[errResponse](t, w).Error)
		})
	}

	w := doJSON(t, h, http.MethodGet, "/notas/", nil)
	assert.Empty(t, decode[[]models.Note](t, w))
	assert.Empty(t, rec.all())
}

func TestUpdatePartial(t *testing.T) {
	h, rec, _ := testEnv(t, "")
	n := createNote(t, h, "Work", "standup")

	w := doJSON(t, h, http.MethodPut, "/notas/"+n.ID, map[string]string{"content": "retro"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[models.Note](t, w)
	assert.Equal(t, "Work", got.Title)
	assert.Equal(t, "retro", got.Content)
	assert.True(t, got.UpdatedAt.After(n.UpdatedAt))
	assert.True(t, got.CreatedAt.Equal(n.CreatedAt))

	events := rec.all()
	require.Len(t, events, 2)
	assert.Equal(t, recordedEvent{kind: EventUpdated, id: n.ID}, events[1])
}

func TestUpdateErrors(t *testing.T) {
	h, _, _ := testEnv(t, "")
	n := createNote(t, h, "Work", "")

	w := doJSON(t, h, http.MethodPut, "/notas/missing", map[string]string{"content": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, h, http.MethodPut, "/notas/"+n.ID, map[string]string{"title": ""})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "title is required", decode[errResponse](t, w).Error)
}

func TestDelete(t *testing.T) {
	h, rec, _ := testEnv(t, "")
	n := createNote(t, h, "Shopping", "")

	w := doJSON(t, h, http.MethodDelete, "/notas/"+n.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, h, http.MethodDelete, "/notas/"+n.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, h, http.MethodGet, "/notas/"+n.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	events := rec.all()
	require.Len(t, events, 2)
	assert.Equal(t, recordedEvent{kind: EventDeleted, id: n.ID}, events[1])
}

func TestSearch(t *testing.T) {
	h, _, _ := testEnv(t, "")
	createNote(t, h, "Shopping", "milk, eggs")
	createNote(t, h, "Work", "standup at 10")

	w := doJSON(t, h, http.MethodGet, "/notas/search?q=MILK", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[[]models.Note](t, w)
	require.Len(t, got, 1)
	assert.Equal(t, "Shopping", got[0].Title)

	w = doJSON(t, h, http.MethodGet, "/notas/search?q=zzz", nil)
	assert.Equal(t, "[]\n", w.Body.String())
}

func TestStorageFailureIs500(t *testing.T) {
	h, _, kv := testEnv(t, "")
	kv.FailReads(errors.New("disk gone"))

	w := doJSON(t, h, http.MethodGet, "/notas/", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal error", decode[errResponse](t, w).Error)

	kv.FailReads(nil)
	kv.FailWrites(errors.New("read-only"))
	w = doJSON(t, h, http.MethodPost, "/notas/", map[string]string{"title": "x"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHandlerFailuresUseInjectedLogger(t *testing.T) {
	kv := testutil.NewFlakyKV(testutil.NewMemKV())
	b := local.New(kv, local.WithLogger(testutil.Logger()))
	var buf bytes.Buffer
	h := NewRouter(b, nil, slog.New(slog.NewJSONHandler(&buf, nil)), false, "", nil)

	kv.FailReads(errors.New("disk gone"))
	w := doJSON(t, h, http.MethodGet, "/notas/", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, buf.String(), "list notes failed")
	assert.NotContains(t, w.Body.String(), "disk gone")
}

func TestAuth(t *testing.T) {
	h, _, _ := testEnv(t, "secret")

	w := doJSON(t, h, http.MethodGet, "/notas/", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/notas/", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/notas/", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	h := RateLimit(0.001, 2)(ok)

	codes := make([]int, 0, 3)
	for range 3 {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

func TestRateLimitDisabled(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	h := RateLimit(0, 0)(ok)
	for range 50 {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
}
