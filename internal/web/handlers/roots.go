package handlers

import (
	"net/http"
	"os"
	"strings"

	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/library"
)

// RootsHandler manages filesystem roots
type RootsHandler struct {
	store database.Store
}

// NewRootsHandler creates a roots handler
func NewRootsHandler(store database.Store) *RootsHandler {
	return &RootsHandler{store: store}
}

// CreateRootRequest is the body of a root creation
type CreateRootRequest struct {
	Name     string `json:"name"`
	RealPath string `json:"real_path"`
}

// List returns all roots
func (h *RootsHandler) List(w http.ResponseWriter, r *http.Request) {
	roots, err := h.store.ListRoots(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if roots == nil {
		roots = []database.Root{}
	}
	respondJSON(w, http.StatusOK, roots)
}

// Create registers a directory as a new root
func (h *RootsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRootRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.RealPath == "" {
		respondError(w, http.StatusBadRequest, "name and real_path are required")
		return
	}
	if info, err := os.Stat(req.RealPath); err != nil || !info.IsDir() {
		respondError(w, http.StatusBadRequest, "real_path must be an existing directory")
		return
	}

	root, err := h.store.CreateRoot(r.Context(), req.Name, library.NormalizeRealPath(req.RealPath))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, root)
}
