package handlers

import (
	"errors"
	"net/http"

	"github.com/kozaktomas/photo-library/internal/albums"
)

// AlbumsHandler manages albums
type AlbumsHandler struct {
	albums *albums.Service
}

// NewAlbumsHandler creates an albums handler
func NewAlbumsHandler(svc *albums.Service) *AlbumsHandler {
	return &AlbumsHandler{albums: svc}
}

// CreateAlbumRequest is the body of an album creation
type CreateAlbumRequest struct {
	Name     string `json:"name"`
	ParentID int64  `json:"parent_id"`
}

// AddFileRequest is the body of an album membership change
type AddFileRequest struct {
	FileID int64 `json:"file_id"`
}

// Tree returns the album hierarchy with paths and counts
func (h *AlbumsHandler) Tree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.albums.Tree(r.Context(), 0)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if tree == nil {
		tree = []albums.Node{}
	}
	respondJSON(w, http.StatusOK, tree)
}

// Create adds an album
func (h *AlbumsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAlbumRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	a, err := h.albums.Create(r.Context(), req.Name, req.ParentID)
	if errors.Is(err, albums.ErrCycle) || errors.Is(err, albums.ErrInvalidName) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, a)
}

// AddFile links a file to an album
func (h *AlbumsHandler) AddFile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req AddFileRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if err := h.albums.AddFile(r.Context(), id, req.FileID); err != nil {
		respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
