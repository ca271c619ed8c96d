package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/photo-library/internal/albums"
	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/logging"
)

func TestAlbumsHandler(t *testing.T) {
	l := newFixture(t)
	h := NewAlbumsHandler(albums.NewService(l.store, logging.Nop()))

	create := func(body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.Create(rec, httptest.NewRequest("POST", "/api/v1/albums", bytes.NewBufferString(body)))
		return rec
	}

	rec := create(`{"name": "Holidays"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var parent database.Album
	decodeBody(t, rec, &parent)

	rec = create(fmt.Sprintf(`{"name": "Alps", "parent_id": %d}`, parent.ID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var child database.Album
	decodeBody(t, rec, &child)

	if rec := create(`{"name": "a/b"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a name with a slash, got %d", rec.Code)
	}
	if rec := create(`{"name": "Orphan", "parent_id": 999}`); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for a missing parent, got %d", rec.Code)
	}

	ids := fmt.Sprint(child.ID)
	req := httptest.NewRequest("POST", "/api/v1/albums/"+ids+"/files", bytes.NewBufferString(fmt.Sprintf(`{"file_id": %d}`, l.file)))
	req = requestWithChiParams(req, map[string]string{"id": ids})
	rec = httptest.NewRecorder()
	h.AddFile(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.Tree(rec, httptest.NewRequest("GET", "/api/v1/albums", nil))
	var tree []albums.Node
	decodeBody(t, rec, &tree)
	if len(tree) != 1 || len(tree[0].Children) != 1 {
		t.Fatalf("unexpected tree %+v", tree)
	}
	if tree[0].Children[0].Path != "Holidays/Alps/" {
		t.Errorf("unexpected child path %q", tree[0].Children[0].Path)
	}
	if tree[0].FileCount != 1 {
		t.Errorf("expected aggregate count 1 on the parent, got %d", tree[0].FileCount)
	}
}
