package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/chronos/internal/chronos"
	"github.com/starford/chronos/internal/service"
)

// Handler holds API route handlers.
type Handler struct {
	svc *service.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// notePath extracts the note path from the wildcard part of the URL.
// Supports encoded slashes from OpenAPI clients (e.g. topics%2Fnote.md).
func notePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListNotes handles GET /notes.
//
//	@Summary		List notes by modification time
//	@Tags			notes
//	@Produce		json
//	@Param			order	query		string	false	"Sort order"	Enums(newest, oldest)
//	@Param			limit	query		int		false	"Max notes"
//	@Success		200		{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	order := chronos.ParseOrder(q.Get("order"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	notes, err := h.svc.Timeline(r.Context(), order, limit)
	if err != nil {
		writeError(w, "list notes", "", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Order: string(order)})
}

// GetNote handles GET /notes/*.
//
//	@Summary		Get a note with its tags, neighbors and child counts
//	@Tags			notes
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	NoteDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	note, err := h.svc.GetNote(r.Context(), path)
	if err != nil {
		writeError(w, "get note", path, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// Neighbors handles GET /neighbors/*.
//
//	@Summary		List notes linked with a note
//	@Tags			graph
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	NeighborsResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/neighbors/{path} [get]
func (h *Handler) Neighbors(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	notes, err := h.svc.Neighbors(r.Context(), path)
	if err != nil {
		writeError(w, "neighbors", path, err)
		return
	}
	writeJSON(w, http.StatusOK, NeighborsResponse{Path: service.NotePath(path), Neighbors: notes})
}

// Candidates handles GET /candidates/*.
//
//	@Summary		Suggest parent notes
//	@Tags			parents
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	CandidatesResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/candidates/{path} [get]
func (h *Handler) Candidates(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	cs, err := h.svc.SuggestParents(r.Context(), path)
	if err != nil {
		writeError(w, "candidates", path, err)
		return
	}
	writeJSON(w, http.StatusOK, CandidatesResponse{Path: service.NotePath(path), Candidates: cs})
}

// Choices handles GET /choices/*.
//
//	@Summary		Parent picker list: candidates first, then every other note
//	@Tags			parents
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Param			q		query		string	false	"Path filter"
//	@Success		200		{object}	CandidatesResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/choices/{path} [get]
func (h *Handler) Choices(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	cs, err := h.svc.Choices(r.Context(), path, r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, "choices", path, err)
		return
	}
	writeJSON(w, http.StatusOK, CandidatesResponse{Path: service.NotePath(path), Candidates: cs})
}

// AddParents handles POST /parents/*.
//
//	@Summary		Record a note as child of the given parents
//	@Tags			parents
//	@Accept			json
//	@Produce		json
//	@Param			path	path		string				true	"Child note path"
//	@Param			body	body		AddParentsRequest	true	"Parents to link"
//	@Success		200		{object}	AddParentsResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/parents/{path} [post]
func (h *Handler) AddParents(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req AddParentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if err := h.svc.AddParents(r.Context(), path, req.Parents); err != nil {
		writeError(w, "add parents", path, err)
		return
	}
	writeJSON(w, http.StatusOK, AddParentsResponse{Child: service.NotePath(path), Parents: req.Parents})
}
