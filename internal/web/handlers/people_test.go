package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/logging"
	"github.com/kozaktomas/photo-library/internal/people"
)

func newPeopleHandler(l *fixture) *PeopleHandler {
	return NewPeopleHandler(people.NewService(l.store, logging.Nop()))
}

func TestPeopleHandler_Create(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"valid", `{"full_name": "Jan Novák"}`, http.StatusCreated},
		{"duplicate after normalisation", `{"full_name": "jan  novak"}`, http.StatusConflict},
		{"empty", `{"full_name": "  "}`, http.StatusBadRequest},
		{"missing group", `{"full_name": "Eva", "group_id": 77}`, http.StatusNotFound},
		{"invalid json", `{"full_name":`, http.StatusBadRequest},
	}

	l := newFixture(t)
	l.person(t, "Jan Novák")
	h := newPeopleHandler(l)

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if i == 0 {
				// first case runs against a fresh library
				l := newFixture(t)
				rec := httptest.NewRecorder()
				newPeopleHandler(l).Create(rec, httptest.NewRequest("POST", "/api/v1/people", bytes.NewBufferString(tt.body)))
				if rec.Code != tt.wantStatus {
					t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
				}
				var p database.Person
				decodeBody(t, rec, &p)
				if p.ID == 0 || p.FullName != "Jan Novák" {
					t.Errorf("unexpected person %+v", p)
				}
				return
			}
			rec := httptest.NewRecorder()
			h.Create(rec, httptest.NewRequest("POST", "/api/v1/people", bytes.NewBufferString(tt.body)))
			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestPeopleHandler_List(t *testing.T) {
	l := newFixture(t)
	l.person(t, "Jiří Dvořák")
	l.person(t, "Anna Svobodová")
	h := newPeopleHandler(l)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest("GET", "/api/v1/people", nil))
	var all []database.Person
	decodeBody(t, rec, &all)
	if len(all) != 2 {
		t.Fatalf("expected 2 people without the Unknown Person, got %+v", all)
	}
	if all[0].FullName != "Anna Svobodová" {
		t.Errorf("expected name ordering, got %+v", all)
	}

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest("GET", "/api/v1/people?q=dvorak", nil))
	var found []database.Person
	decodeBody(t, rec, &found)
	if len(found) != 1 || found[0].FullName != "Jiří Dvořák" {
		t.Errorf("unexpected search result %+v", found)
	}

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest("GET", "/api/v1/people?q=zzz", nil))
	if body := rec.Body.String(); body != "[]\n" {
		t.Errorf("expected empty JSON array, got %q", body)
	}
}

func TestPeopleHandler_Delete(t *testing.T) {
	l := newFixture(t)
	alice := l.person(t, "Alice")
	face := l.face(t, alice, database.FaceConfirmedUser)
	h := newPeopleHandler(l)

	del := func(id string) int {
		req := requestWithChiParams(httptest.NewRequest("DELETE", "/api/v1/people/"+id, nil), map[string]string{"id": id})
		rec := httptest.NewRecorder()
		h.Delete(rec, req)
		return rec.Code
	}

	if code := del(fmt.Sprint(alice)); code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", code)
	}
	f, err := l.store.GetFace(context.Background(), face)
	if err != nil {
		t.Fatal(err)
	}
	if f.PersonID != 0 || f.Status != database.FaceUnassigned {
		t.Errorf("expected face to fall back to the Unknown Person, got %+v", f)
	}

	if code := del("0"); code != http.StatusConflict {
		t.Errorf("expected 409 for the Unknown Person, got %d", code)
	}
	if code := del(fmt.Sprint(alice)); code != http.StatusNotFound {
		t.Errorf("expected 404 for a deleted person, got %d", code)
	}
}

func TestPeopleHandler_Thumbnail(t *testing.T) {
	l := newFixture(t)
	alice := l.person(t, "Alice")
	bob := l.person(t, "Bob")
	face := l.face(t, alice, database.FaceConfirmedUser)
	if err := l.store.UpdateFaceThumbnail(context.Background(), face, []byte{0xFF, 0xD8}); err != nil {
		t.Fatal(err)
	}
	h := newPeopleHandler(l)

	get := func(id int64) int {
		ids := fmt.Sprint(id)
		req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/people/"+ids+"/thumbnail", nil), map[string]string{"id": ids})
		rec := httptest.NewRecorder()
		h.Thumbnail(rec, req)
		return rec.Code
	}

	if code := get(alice); code != http.StatusOK {
		t.Errorf("expected 200, got %d", code)
	}
	if code := get(bob); code != http.StatusNotFound {
		t.Errorf("expected 404 for a person without confirmed faces, got %d", code)
	}
}
