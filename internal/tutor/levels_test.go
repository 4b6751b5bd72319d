package tutor_test

import (
	"testing"

	"github.com/p-n-ai/pai-deck/internal/tutor"
)

func TestLevels(t *testing.T) {
	levels, err := tutor.Levels()
	if err != nil {
		t.Fatalf("Levels() error = %v", err)
	}

	wantIDs := []string{"philanthropic", "ethical", "legal", "economic"}
	if len(levels) != len(wantIDs) {
		t.Fatalf("got %d levels, want %d", len(levels), len(wantIDs))
	}
	for i, l := range levels {
		if l.ID != wantIDs[i] {
			t.Errorf("level %d = %q, want %q", i, l.ID, wantIDs[i])
		}
		if l.Title == "" || l.Description == "" || len(l.SuggestedQuestions) == 0 {
			t.Errorf("level %q is incomplete: %+v", l.ID, l)
		}
	}
}

func TestLevelByID(t *testing.T) {
	l, ok := tutor.LevelByID("legal")
	if !ok || l.Title != "Legal" || l.Subtitle != "(Required)" {
		t.Errorf("LevelByID(legal) = %+v, %v", l, ok)
	}
	if _, ok := tutor.LevelByID("cosmic"); ok {
		t.Error("LevelByID(cosmic) should not be found")
	}
}
