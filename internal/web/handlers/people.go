package handlers

import (
	"errors"
	"net/http"

	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/people"
)

// PeopleHandler manages persons
type PeopleHandler struct {
	people *people.Service
}

// NewPeopleHandler creates a people handler
func NewPeopleHandler(svc *people.Service) *PeopleHandler {
	return &PeopleHandler{people: svc}
}

// CreatePersonRequest is the body of a person creation
type CreatePersonRequest struct {
	FullName string `json:"full_name"`
	GroupID  int64  `json:"group_id"`
}

// List returns people matching ?q=, all of them when empty
func (h *PeopleHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.people.FindByName(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if list == nil {
		list = []database.Person{}
	}
	respondJSON(w, http.StatusOK, list)
}

// Create adds a person
func (h *PeopleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePersonRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	p, err := h.people.Create(r.Context(), req.FullName, req.GroupID)
	switch {
	case errors.Is(err, people.ErrEmptyName):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, people.ErrDuplicateName):
		respondError(w, http.StatusConflict, err.Error())
	case err != nil:
		respondStoreError(w, err)
	default:
		respondJSON(w, http.StatusCreated, p)
	}
}

// Delete removes a person; their faces fall back to the Unknown Person
func (h *PeopleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.people.Delete(r.Context(), id); err != nil {
		respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Thumbnail serves the picture of a person
func (h *PeopleHandler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	f, err := h.people.Thumbnail(r.Context(), id)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if f == nil || len(f.Thumbnail) == 0 {
		respondError(w, http.StatusNotFound, "thumbnail not found")
		return
	}
	writeJPEG(w, f.Thumbnail)
}
