package services

import (
	"testing"

	"studyprep/internal/models"
)

func TestPaperStoreAddGet(t *testing.T) {
	store := NewPaperStore()
	paper := store.Add("exam2023.pdf", "/tmp/exam2023.pdf", "stub content")

	if paper.ID == "" {
		t.Fatal("paper id not assigned")
	}

	got, ok := store.Get(paper.ID)
	if !ok {
		t.Fatal("stored paper not retrievable")
	}
	if got.Filename != "exam2023.pdf" || got.Content != "stub content" {
		t.Errorf("unexpected paper: %+v", got)
	}

	if _, ok := store.Get("missing"); ok {
		t.Error("unknown id should report false")
	}
}

func TestPaperStoreList(t *testing.T) {
	store := NewPaperStore()
	a := store.Add("a.pdf", "", "")
	store.Add("b.pdf", "", "")
	c := store.Add("c.pdf", "", "")

	t.Run("AllWhenNoIDs", func(t *testing.T) {
		if got := store.List(nil); len(got) != 3 {
			t.Errorf("expected 3 papers, got %d", len(got))
		}
	})

	t.Run("FilterByIDs", func(t *testing.T) {
		got := store.List([]string{a.ID, c.ID, "missing"})
		if len(got) != 2 {
			t.Fatalf("expected 2 papers, got %d", len(got))
		}
		for _, p := range got {
			if p.Filename == "b.pdf" {
				t.Error("unrequested paper returned")
			}
		}
	})
}

func TestQuestionSetStore(t *testing.T) {
	store := NewQuestionSetStore()
	set := store.Add([]models.Question{
		{Question: "What is entropy?", Answer: "A measure of disorder.", Topic: "Physics"},
	})

	if set.ID == "" {
		t.Fatal("set id not assigned")
	}
	if set.GeneratedAt.IsZero() {
		t.Error("generatedAt not set")
	}

	got, ok := store.Get(set.ID)
	if !ok {
		t.Fatal("stored set not retrievable")
	}
	if len(got.Questions) != 1 || got.Questions[0].Topic != "Physics" {
		t.Errorf("unexpected set: %+v", got)
	}

	// Mutating the returned slice must not affect the stored copy.
	got.Questions[0].Answer = "mutated"
	again, _ := store.Get(set.ID)
	if again.Questions[0].Answer == "mutated" {
		t.Error("caller mutation leaked into the store")
	}
}
