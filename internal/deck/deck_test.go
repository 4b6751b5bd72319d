package deck_test

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/p-n-ai/pai-deck/internal/deck"
)

func quiz(id string, correct int) deck.QuizQuestion {
	return deck.QuizQuestion{
		ID:            id,
		Question:      "Question " + id,
		Options:       []string{"a", "b", "c", "d"},
		CorrectAnswer: correct,
		Explanation:   "Because.",
	}
}

// deckWithQuizCounts builds bullet slides carrying the given quiz counts,
// followed by the final score slide.
func deckWithQuizCounts(counts ...int) *deck.Deck {
	d := &deck.Deck{ID: "test", Title: "Test"}
	for i, n := range counts {
		s := deck.Slide{ID: i + 1, Layout: deck.LayoutTitle, Title: fmt.Sprintf("Slide %d", i+1)}
		for j := range n {
			s.Quizzes = append(s.Quizzes, quiz(fmt.Sprintf("q%d-%d", i+1, j+1), 0))
		}
		d.Slides = append(d.Slides, s)
	}
	d.Slides = append(d.Slides, deck.Slide{ID: len(counts) + 1, Layout: deck.LayoutFinalScore, Title: "Done"})
	return d
}

func TestSlide_RequiredPoints(t *testing.T) {
	bullets := []deck.BulletItem{{Text: "one"}, {Text: "two"}, {Text: "three"}}
	comparison := &deck.Comparison{
		LeftTitle:   "Narrow",
		LeftPoints:  []string{"l1", "l2"},
		RightTitle:  "Broad",
		RightPoints: []string{"r1", "r2", "r3"},
	}

	tests := []struct {
		name  string
		slide deck.Slide
		want  int
	}{
		{"bullets", deck.Slide{Layout: deck.LayoutBullets, Bullets: bullets}, 3},
		{"split", deck.Slide{Layout: deck.LayoutSplit, Bullets: bullets}, 3},
		{"quote", deck.Slide{Layout: deck.LayoutQuote, Bullets: bullets}, 3},
		{"pyramid", deck.Slide{Layout: deck.LayoutPyramid, Bullets: bullets}, 3},
		{"comparison", deck.Slide{Layout: deck.LayoutComparison, Comparison: comparison}, 5},
		{"comparison without block", deck.Slide{Layout: deck.LayoutComparison}, 0},
		{"title ignores bullets", deck.Slide{Layout: deck.LayoutTitle, Bullets: bullets}, 0},
		{"final score", deck.Slide{Layout: deck.LayoutFinalScore}, 0},
		{"bullets without items", deck.Slide{Layout: deck.LayoutBullets}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.slide.RequiredPoints(); got != tt.want {
				t.Errorf("RequiredPoints() = %d, want %d", got, tt.want)
			}
			if got := len(tt.slide.PointKeys()); got != tt.want {
				t.Errorf("len(PointKeys()) = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSlide_PointKeys(t *testing.T) {
	tests := []struct {
		name  string
		slide deck.Slide
		want  []string
	}{
		{
			name:  "bullets",
			slide: deck.Slide{Layout: deck.LayoutBullets, Bullets: []deck.BulletItem{{Text: "a"}, {Text: "b"}}},
			want:  []string{"bullet-0", "bullet-1"},
		},
		{
			name:  "split",
			slide: deck.Slide{Layout: deck.LayoutSplit, Bullets: []deck.BulletItem{{Text: "a"}}},
			want:  []string{"split-0"},
		},
		{
			name:  "pyramid",
			slide: deck.Slide{Layout: deck.LayoutPyramid, Bullets: []deck.BulletItem{{Text: "a"}}},
			want:  []string{"pyramid-0"},
		},
		{
			name: "comparison",
			slide: deck.Slide{Layout: deck.LayoutComparison, Comparison: &deck.Comparison{
				LeftPoints:  []string{"x"},
				RightPoints: []string{"y", "z"},
			}},
			want: []string{"left-0", "right-0", "right-1"},
		},
		{
			name:  "title",
			slide: deck.Slide{Layout: deck.LayoutTitle},
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.slide.PointKeys(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("PointKeys() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDeck_MaxPossibleScore(t *testing.T) {
	d := deckWithQuizCounts(2, 0, 3)
	if got := d.MaxPossibleScore(); got != 50 {
		t.Errorf("MaxPossibleScore() = %d, want 50", got)
	}
}

func TestDeck_Passed(t *testing.T) {
	d := deckWithQuizCounts(2, 0, 3)

	tests := []struct {
		score int
		want  bool
	}{
		{50, true},
		{35, true},
		{34, false},
		{0, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("score %d", tt.score), func(t *testing.T) {
			if got := d.Passed(tt.score); got != tt.want {
				t.Errorf("Passed(%d) = %v, want %v", tt.score, got, tt.want)
			}
		})
	}
	if got := d.PassThreshold(); got != 35 {
		t.Errorf("PassThreshold() = %d, want 35", got)
	}
}

func TestDeck_PassThreshold_RoundsUp(t *testing.T) {
	d := deckWithQuizCounts(1, 2) // max 30, 70% = 21
	if got := d.PassThreshold(); got != 21 {
		t.Errorf("PassThreshold() = %d, want 21", got)
	}

	d.PassPercent = 75 // 22.5 -> 23
	if got := d.PassThreshold(); got != 23 {
		t.Errorf("PassThreshold() = %d, want 23", got)
	}
	if d.Passed(22) {
		t.Error("Passed(22) = true, want false at 75% of 30")
	}
}

func TestDeck_Passed_NoQuizzes(t *testing.T) {
	d := deckWithQuizCounts(0)
	if !d.Passed(0) {
		t.Error("Passed(0) = false, want true when there is nothing to score")
	}
}

func TestDeck_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(d *deck.Deck)
		wantErr string
	}{
		{"valid", func(d *deck.Deck) {}, ""},
		{"no slides", func(d *deck.Deck) { d.Slides = nil }, "no slides"},
		{"non-positive id", func(d *deck.Deck) { d.Slides[0].ID = 0 }, "non-positive id"},
		{"duplicate id", func(d *deck.Deck) { d.Slides[1].ID = d.Slides[0].ID }, "duplicate slide id"},
		{"unknown layout", func(d *deck.Deck) { d.Slides[0].Layout = "carousel" }, "unknown layout"},
		{"final not last", func(d *deck.Deck) {
			d.Slides[0], d.Slides[len(d.Slides)-1] = d.Slides[len(d.Slides)-1], d.Slides[0]
		}, "is not last"},
		{"no final", func(d *deck.Deck) { d.Slides[len(d.Slides)-1].Layout = deck.LayoutTitle }, "exactly one final"},
		{"two finals", func(d *deck.Deck) {
			d.Slides = append(d.Slides, deck.Slide{ID: 99, Layout: deck.LayoutFinalScore})
		}, "is not last"},
		{"comparison without block", func(d *deck.Deck) { d.Slides[0].Layout = deck.LayoutComparison }, "no comparison block"},
		{"duplicate quiz id", func(d *deck.Deck) { d.Slides[0].Quizzes[1].ID = d.Slides[0].Quizzes[0].ID }, "repeats quiz id"},
		{"too few options", func(d *deck.Deck) { d.Slides[0].Quizzes[0].Options = []string{"only"} }, "at least 2 options"},
		{"correct out of range", func(d *deck.Deck) { d.Slides[0].Quizzes[0].CorrectAnswer = 4 }, "out of range"},
		{"negative correct", func(d *deck.Deck) { d.Slides[0].Quizzes[0].CorrectAnswer = -1 }, "out of range"},
		{"pass percent", func(d *deck.Deck) { d.PassPercent = 101 }, "pass_percent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := deckWithQuizCounts(2, 1)
			tt.mutate(d)
			err := d.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !errors.Is(err, deck.ErrInvalidDeck) {
				t.Errorf("Validate() error does not wrap ErrInvalidDeck: %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestSlide_NarrationScript(t *testing.T) {
	tests := []struct {
		name  string
		slide deck.Slide
		want  string
	}{
		{
			name: "bullets with details",
			slide: deck.Slide{
				Layout:  deck.LayoutBullets,
				Title:   "Big Questions",
				Bullets: []deck.BulletItem{{Text: "One", Detail: "More on one"}, {Text: "Two"}},
			},
			want: "Big Questions. One. More on one. Two",
		},
		{
			name: "comparison",
			slide: deck.Slide{
				Layout: deck.LayoutComparison,
				Title:  "Views",
				Comparison: &deck.Comparison{
					LeftTitle: "Narrow", LeftPoints: []string{"profit"},
					RightTitle: "Broad", RightPoints: []string{"society"},
				},
			},
			want: "Views. Narrow. profit. Broad. society",
		},
		{
			name:  "quote",
			slide: deck.Slide{Layout: deck.LayoutQuote, MainText: "Be good", QuoteAuthor: "Friedman"},
			want:  "Be good. Quote by Friedman",
		},
		{
			name:  "final",
			slide: deck.Slide{Layout: deck.LayoutFinalScore, Title: "Done"},
			want:  "Done. This is the final score screen.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.slide.NarrationScript(); got != tt.want {
				t.Errorf("NarrationScript() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSlide_NarrationScript_Pyramid(t *testing.T) {
	s := deck.Slide{Layout: deck.LayoutPyramid, Title: "Pyramid"}
	got := s.NarrationScript()
	if !strings.HasPrefix(got, "Pyramid. The CSR Pyramid consists of four levels.") {
		t.Errorf("NarrationScript() = %q, want pyramid summary after the title", got)
	}
}

func TestSlide_Quiz(t *testing.T) {
	s := deck.Slide{Quizzes: []deck.QuizQuestion{quiz("a", 1), quiz("b", 2)}}

	q, ok := s.Quiz("b")
	if !ok {
		t.Fatal("Quiz(b) not found")
	}
	if q.CorrectAnswer != 2 {
		t.Errorf("CorrectAnswer = %d, want 2", q.CorrectAnswer)
	}
	if _, ok := s.Quiz("missing"); ok {
		t.Error("Quiz(missing) should not be found")
	}
}
