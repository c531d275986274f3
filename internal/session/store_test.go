// SPDX-License-Identifier: AGPL-3.0-only
package session

import (
	"testing"
	"time"

	"github.com/jplfaria/gem-flux-mcp-sub000/internal/model"
)

func TestMediaCRUD(t *testing.T) {
	s := NewStore()

	m := &model.Media{ID: "glucose_minimal", Name: "Glucose minimal media"}
	s.PutMedia(m)

	got, err := s.GetMedia("glucose_minimal")
	if err != nil {
		t.Fatalf("GetMedia: %v", err)
	}
	if got.Name != "Glucose minimal media" {
		t.Errorf("Name = %q, want %q", got.Name, "Glucose minimal media")
	}

	ids := s.ListMedia()
	if len(ids) != 1 || ids[0] != "glucose_minimal" {
		t.Errorf("ListMedia = %v, want [glucose_minimal]", ids)
	}

	if err := s.DeleteMedia("glucose_minimal"); err != nil {
		t.Fatalf("DeleteMedia: %v", err)
	}
	if _, err := s.GetMedia("glucose_minimal"); err == nil {
		t.Error("expected error after delete, got nil")
	}
}

func TestModelCRUD(t *testing.T) {
	s := NewStore()

	m := &model.MetabolicModel{ID: "model_ecoli", GenomeID: "511145.12"}
	s.PutModel(m)

	got, err := s.GetModel("model_ecoli")
	if err != nil {
		t.Fatalf("GetModel: %v", err)
	}
	if got.GenomeID != "511145.12" {
		t.Errorf("GenomeID = %q, want 511145.12", got.GenomeID)
	}

	if err := s.DeleteModel("model_ecoli"); err != nil {
		t.Fatalf("DeleteModel: %v", err)
	}
	if err := s.DeleteModel("model_ecoli"); err == nil {
		t.Error("expected error deleting missing model, got nil")
	}
}

func TestListIsSorted(t *testing.T) {
	s := NewStore()
	s.PutModel(&model.MetabolicModel{ID: "model_b"})
	s.PutModel(&model.MetabolicModel{ID: "model_a"})
	s.PutModel(&model.MetabolicModel{ID: "model_c"})

	ids := s.ListModels()
	want := []string{"model_a", "model_b", "model_c"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ListModels = %v, want %v", ids, want)
		}
	}
}

func TestSweepPrunesStaleEntries(t *testing.T) {
	s := NewStore()
	s.PutMedia(&model.Media{ID: "old_media"})
	s.PutModel(&model.MetabolicModel{ID: "old_model"})

	// Backdate the touch timestamps.
	s.mu.Lock()
	s.touched["media:old_media"] = time.Now().Add(-2 * time.Hour)
	s.touched["model:old_model"] = time.Now().Add(-2 * time.Hour)
	s.mu.Unlock()

	s.PutMedia(&model.Media{ID: "fresh_media"})

	pruned := s.Sweep(time.Hour)
	if pruned != 2 {
		t.Fatalf("Sweep pruned %d entries, want 2", pruned)
	}
	if _, err := s.GetMedia("old_media"); err == nil {
		t.Error("old_media should have been pruned")
	}
	if _, err := s.GetModel("old_model"); err == nil {
		t.Error("old_model should have been pruned")
	}
	if _, err := s.GetMedia("fresh_media"); err != nil {
		t.Errorf("fresh_media should survive the sweep: %v", err)
	}
}

func TestSweepDisabledForZeroTTL(t *testing.T) {
	s := NewStore()
	s.PutMedia(&model.Media{ID: "m"})

	s.mu.Lock()
	s.touched["media:m"] = time.Now().Add(-48 * time.Hour)
	s.mu.Unlock()

	if pruned := s.Sweep(0); pruned != 0 {
		t.Errorf("Sweep(0) pruned %d entries, want 0", pruned)
	}
	if _, err := s.GetMedia("m"); err != nil {
		t.Errorf("entry should survive disabled sweep: %v", err)
	}
}
