package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/mediaforge-backend/internal/data/repos/testutil"
)

func boolPtr(b bool) *bool { return &b }

func TestActivateKeepsSingleActiveProfile(t *testing.T) {
	h := newHarness(t)
	dbc := h.dbc(h.admin)
	a, err := h.profiles.Create(dbc, ProfileInput{Name: "alpha", APIKey: "k1", IsActive: boolPtr(true)})
	if err != nil {
		t.Fatalf("Create alpha: %v", err)
	}
	b, err := h.profiles.Create(dbc, ProfileInput{Name: "beta", APIKey: "k2", IsActive: boolPtr(true)})
	if err != nil {
		t.Fatalf("Create beta: %v", err)
	}
	active, err := h.profiles.ActiveProfile(dbc)
	if err != nil || active == nil || active.ID != b.ID {
		t.Fatalf("active after create: %+v %v", active, err)
	}
	if _, err := h.profiles.Activate(dbc, a.ID); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	all, err := h.profiles.List(dbc)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	n := 0
	for _, p := range all {
		if p.IsActive {
			n++
			if p.ID != a.ID {
				t.Fatalf("wrong profile active: %s", p.Name)
			}
		}
	}
	if n != 1 {
		t.Fatalf("active profiles=%d", n)
	}
	if _, err := h.profiles.Activate(dbc, uuid.New()); statusOf(err) != http.StatusNotFound {
		t.Fatalf("activate unknown: %v", err)
	}
}

func TestProfileValidationAndConflicts(t *testing.T) {
	h := newHarness(t)
	dbc := h.dbc(h.admin)
	if _, err := h.profiles.Create(dbc, ProfileInput{Name: "  "}); statusOf(err) != http.StatusUnprocessableEntity {
		t.Fatalf("blank name: %v", err)
	}
	testutil.SeedProfile(t, context.Background(), h.db, "dup", false)
	if _, err := h.profiles.Create(dbc, ProfileInput{Name: "dup"}); statusOf(err) != http.StatusConflict {
		t.Fatalf("duplicate name: %v", err)
	}
	if _, err := h.profiles.Get(dbc, uuid.New()); statusOf(err) != http.StatusNotFound {
		t.Fatalf("get unknown: %v", err)
	}
	if err := h.profiles.Delete(dbc, uuid.New()); statusOf(err) != http.StatusNotFound {
		t.Fatalf("delete unknown: %v", err)
	}
}

func TestUpdateWithEmptyKeyKeepsStoredKey(t *testing.T) {
	h := newHarness(t)
	dbc := h.dbc(h.admin)
	p, err := h.profiles.Create(dbc, ProfileInput{Name: "main", APIKey: "secret", Vendor: "threeplay"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := h.profiles.Update(dbc, p.ID, ProfileInput{Name: "renamed", Vendor: "threeplay", Configurations: map[string]any{"turnaround": "standard"}})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Name != "renamed" || got.APIKey != "secret" || got.IsActive {
		t.Fatalf("updated %+v", got)
	}
	got, err = h.profiles.Update(dbc, p.ID, ProfileInput{APIKey: "rotated", IsActive: boolPtr(true)})
	if err != nil || got.APIKey != "rotated" || !got.IsActive {
		t.Fatalf("rotate+activate: %+v %v", got, err)
	}
	if err := h.profiles.Delete(dbc, p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if active, err := h.profiles.ActiveProfile(dbc); err != nil || active != nil {
		t.Fatalf("active after delete: %+v %v", active, err)
	}
}
