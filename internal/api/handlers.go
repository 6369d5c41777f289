package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notas/internal/apperr"
	"github.com/starford/notas/internal/backend"
	"github.com/starford/notas/internal/checksum"
	"github.com/starford/notas/internal/models"
	"github.com/starford/notas/internal/validate"
)

const maxBodyBytes = 1 << 20

// Note event kinds published after successful mutations.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// Publisher receives note change notifications.
type Publisher interface {
	PublishNoteEvent(kind, id string)
}

// Handler holds the /notas route handlers.
type Handler struct {
	notes  backend.Backend
	events Publisher
	logger *slog.Logger
}

// NewHandler creates a new Handler. events may be nil; a nil logger falls
// back to slog.Default.
func NewHandler(notes backend.Backend, events Publisher, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{notes: notes, events: events, logger: logger}
}

func (h *Handler) publish(kind, id string) {
	if h.events != nil {
		h.events.PublishNoteEvent(kind, id)
	}
}

// ListNotes handles GET /notas/.
//
//	@Summary	List every note
//	@Tags		notas
//	@Produce	json
//	@Success	200	{array}	models.Note
//	@Router		/notas/ [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.notes.List(r.Context())
	if err != nil {
		h.logger.Error("list notes failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, nonNilSlice(notes))
}

// GetNote handles GET /notas/{id}.
//
//	@Summary	Get a single note
//	@Tags		notas
//	@Produce	json
//	@Param		id	path		string	true	"Note id"
//	@Success	200	{object}	models.Note
//	@Failure	404	{object}	errResponse
//	@Router		/notas/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	note, err := h.notes.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("note not found"))
		} else {
			h.logger.Error("get note failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}

	if etag, err := checksum.ETag(note); err == nil {
		w.Header().Set("ETag", etag)
		if match := r.Header.Get("If-None-Match"); match != "" && checksum.Matches(match, etag) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /notas/.
//
//	@Summary	Create a note
//	@Tags		notas
//	@Accept		json
//	@Produce	json
//	@Param		body	body		models.CreateNoteInput	true	"Note to create"
//	@Success	201		{object}	models.Note
//	@Failure	400		{object}	errResponse
//	@Failure	422		{object}	errResponse
//	@Router		/notas/ [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var in models.CreateNoteInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := validate.Create(in); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
		return
	}
	note, err := h.notes.Create(r.Context(), in)
	if err != nil {
		h.logger.Error("create note failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	h.publish(EventCreated, note.ID)
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PUT /notas/{id}. Absent fields are left untouched.
//
//	@Summary	Partially update a note
//	@Tags		notas
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string					true	"Note id"
//	@Param		body	body		models.UpdateNoteInput	true	"Fields to change"
//	@Success	200		{object}	models.Note
//	@Failure	400		{object}	errResponse
//	@Failure	404		{object}	errResponse
//	@Failure	422		{object}	errResponse
//	@Router		/notas/{id} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	id := chi.URLParam(r, "id")

	var in models.UpdateNoteInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := validate.Update(in); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
		return
	}

	note, err := h.notes.Update(r.Context(), id, in)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("note not found"))
		} else {
			h.logger.Error("update note failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	h.publish(EventUpdated, note.ID)
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /notas/{id}.
//
//	@Summary	Delete a note
//	@Tags		notas
//	@Param		id	path	string	true	"Note id"
//	@Success	204	"Note deleted"
//	@Failure	404	{object}	errResponse
//	@Router		/notas/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	deleted, err := h.notes.Delete(r.Context(), id)
	if err != nil {
		h.logger.Error("delete note failed", slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if !deleted {
		writeJSON(w, http.StatusNotFound, errorBody("note not found"))
		return
	}
	h.publish(EventDeleted, id)
	w.WriteHeader(http.StatusNoContent)
}

// SearchNotes handles GET /notas/search?q=.
func (h *Handler) SearchNotes(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	notes, err := h.notes.Search(r.Context(), q)
	if err != nil {
		h.logger.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, nonNilSlice(notes))
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
