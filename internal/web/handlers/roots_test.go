package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kozaktomas/photo-library/internal/database"
)

func TestRootsHandler_List(t *testing.T) {
	l := newFixture(t)
	h := NewRootsHandler(l.store)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest("GET", "/api/v1/roots", nil))
	var roots []database.Root
	decodeBody(t, rec, &roots)
	if len(roots) != 1 || roots[0].Name != "Photos" {
		t.Errorf("unexpected roots %+v", roots)
	}

	l.store.ListRootsError = errors.New("db down")
	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest("GET", "/api/v1/roots", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}
}

func TestRootsHandler_Create(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name       string
		body       map[string]string
		wantStatus int
	}{
		{"valid", map[string]string{"name": "Archive", "real_path": dir}, http.StatusCreated},
		{"missing name", map[string]string{"real_path": dir}, http.StatusBadRequest},
		{"missing directory", map[string]string{"name": "Gone", "real_path": filepath.Join(dir, "nope")}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewRootsHandler(newFixture(t).store)
			body, _ := json.Marshal(tt.body)
			rec := httptest.NewRecorder()
			h.Create(rec, httptest.NewRequest("POST", "/api/v1/roots", bytes.NewReader(body)))
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantStatus != http.StatusCreated {
				return
			}
			var root database.Root
			decodeBody(t, rec, &root)
			if !strings.HasSuffix(root.RealPath, "/") {
				t.Errorf("expected normalised real path, got %q", root.RealPath)
			}
		})
	}
}
