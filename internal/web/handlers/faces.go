package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/people"
)

// FacesHandler lists faces, serves thumbnails and applies manual review
type FacesHandler struct {
	store  database.Store
	people *people.Service
}

// NewFacesHandler creates a faces handler
func NewFacesHandler(store database.Store, svc *people.Service) *FacesHandler {
	return &FacesHandler{store: store, people: svc}
}

// List returns faces filtered by ?person=ID or ?status=name (default unassigned)
func (h *FacesHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		faces []database.Face
		err   error
	)
	if p := r.URL.Query().Get("person"); p != "" {
		personID, perr := strconv.ParseInt(p, 10, 64)
		if perr != nil {
			respondError(w, http.StatusBadRequest, "invalid person")
			return
		}
		faces, err = h.store.ListFacesByPerson(r.Context(), personID)
	} else {
		name := r.URL.Query().Get("status")
		if name == "" {
			name = database.FaceUnassigned.String()
		}
		status, ok := database.ParseFaceStatus(name)
		if !ok {
			respondError(w, http.StatusBadRequest, "invalid status")
			return
		}
		faces, err = h.store.ListFacesByStatus(r.Context(), status)
	}
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if faces == nil {
		faces = []database.Face{}
	}
	respondJSON(w, http.StatusOK, faces)
}

// Thumbnail serves the stored JPEG thumbnail of a face
func (h *FacesHandler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	f, err := h.store.GetFace(r.Context(), id)
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

func writeJPEG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ReviewRequest is the body of a confirm action
type ReviewRequest struct {
	PersonID int64 `json:"person_id"`
}

// Review applies confirm, ignore, remove or reset to a face
func (h *FacesHandler) Review(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	switch chi.URLParam(r, "action") {
	case "confirm":
		var req ReviewRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, errInvalidRequestBody)
			return
		}
		if req.PersonID == 0 {
			respondError(w, http.StatusBadRequest, "person_id is required")
			return
		}
		err = h.people.ConfirmFace(ctx, id, req.PersonID)
	case "ignore":
		err = h.people.IgnoreFace(ctx, id)
	case "remove":
		err = h.people.RemoveFace(ctx, id)
	case "reset":
		err = h.people.ResetFace(ctx, id)
	default:
		respondError(w, http.StatusNotFound, "unknown action")
		return
	}
	if err != nil {
		respondStoreError(w, err)
		return
	}

	f, err := h.store.GetFace(ctx, id)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, f)
}
