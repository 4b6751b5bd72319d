// Package deck models an authored lesson deck: its slides, discussion points,
// quizzes and the scoring rules that go with them.
package deck

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// PointsPerQuiz is awarded once per quiz, on its first correct answer.
	PointsPerQuiz = 10
	// WrongAnswerPenalty is deducted for every incorrect answer.
	WrongAnswerPenalty = 5
	// DefaultPassPercent applies when a deck does not set its own threshold.
	DefaultPassPercent = 70
)

// ErrInvalidDeck is wrapped by every validation failure.
var ErrInvalidDeck = errors.New("invalid deck")

// pyramidNarration is read after the bullets of a pyramid slide.
const pyramidNarration = "The CSR Pyramid consists of four levels. From top to bottom: Philanthropic, Ethical, Legal, and Economic responsibilities."

const finalNarration = "This is the final score screen."

// pointRule counts the discussion points a layout requires, and names them.
type pointRule struct {
	count func(s Slide) int
	keys  func(s Slide) []string
}

func bulletRule(prefix string) pointRule {
	return pointRule{
		count: func(s Slide) int { return len(s.Bullets) },
		keys: func(s Slide) []string {
			return indexedKeys(prefix, len(s.Bullets))
		},
	}
}

var comparisonRule = pointRule{
	count: func(s Slide) int {
		if s.Comparison == nil {
			return 0
		}
		return len(s.Comparison.LeftPoints) + len(s.Comparison.RightPoints)
	},
	keys: func(s Slide) []string {
		if s.Comparison == nil {
			return nil
		}
		keys := indexedKeys("left", len(s.Comparison.LeftPoints))
		return append(keys, indexedKeys("right", len(s.Comparison.RightPoints))...)
	},
}

// pointRules is the gating table. Layouts missing from it (title, final
// score) require no acknowledgements.
var pointRules = map[Layout]pointRule{
	LayoutBullets:    bulletRule("bullet"),
	LayoutSplit:      bulletRule("split"),
	LayoutQuote:      bulletRule("quote"),
	LayoutPyramid:    bulletRule("pyramid"),
	LayoutComparison: comparisonRule,
}

func indexedKeys(prefix string, n int) []string {
	keys := make([]string, n)
	for i := range n {
		keys[i] = fmt.Sprintf("%s-%d", prefix, i)
	}
	return keys
}

// RequiredPoints returns how many discussion points must be acknowledged
// before the slide counts as read.
func (s Slide) RequiredPoints() int {
	rule, ok := pointRules[s.Layout]
	if !ok {
		return 0
	}
	return rule.count(s)
}

// PointKeys returns the keys identifying each discussion point of the slide,
// in display order. len(PointKeys()) == RequiredPoints().
func (s Slide) PointKeys() []string {
	rule, ok := pointRules[s.Layout]
	if !ok {
		return nil
	}
	return rule.keys(s)
}

// Quiz returns the quiz with the given id.
func (s Slide) Quiz(id string) (QuizQuestion, bool) {
	for _, q := range s.Quizzes {
		if q.ID == id {
			return q, true
		}
	}
	return QuizQuestion{}, false
}

// IsFinal reports whether the slide is the final score screen.
func (s Slide) IsFinal() bool {
	return s.Layout == LayoutFinalScore
}

// NarrationScript builds the text read aloud for the slide.
func (s Slide) NarrationScript() string {
	parts := []string{s.Title, s.Subtitle, s.MainText}

	if s.Layout == LayoutComparison && s.Comparison != nil {
		parts = append(parts, s.Comparison.LeftTitle)
		parts = append(parts, s.Comparison.LeftPoints...)
		parts = append(parts, s.Comparison.RightTitle)
		parts = append(parts, s.Comparison.RightPoints...)
	}
	for _, b := range s.Bullets {
		parts = append(parts, b.Text, b.Detail)
	}
	if s.QuoteAuthor != "" {
		parts = append(parts, "Quote by "+s.QuoteAuthor)
	}
	switch s.Layout {
	case LayoutPyramid:
		parts = append(parts, pyramidNarration)
	case LayoutFinalScore:
		parts = append(parts, finalNarration)
	}

	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ". ")
}

// Len returns the number of slides.
func (d *Deck) Len() int {
	return len(d.Slides)
}

// MaxPossibleScore is the score of a viewer who solves every quiz first try.
func (d *Deck) MaxPossibleScore() int {
	total := 0
	for _, s := range d.Slides {
		total += len(s.Quizzes) * PointsPerQuiz
	}
	return total
}

func (d *Deck) passPercent() int {
	if d.PassPercent <= 0 {
		return DefaultPassPercent
	}
	return d.PassPercent
}

// Passed reports whether score meets the pass threshold. Integer arithmetic
// keeps the boundary exact: 35 of 50 passes at 70%, 34 does not.
func (d *Deck) Passed(score int) bool {
	return score*100 >= d.passPercent()*d.MaxPossibleScore()
}

// PassThreshold is the smallest passing score.
func (d *Deck) PassThreshold() int {
	n := d.passPercent() * d.MaxPossibleScore()
	return (n + 99) / 100
}

// Validate checks the authoring invariants of the deck.
func (d *Deck) Validate() error {
	if len(d.Slides) == 0 {
		return fmt.Errorf("%w: no slides", ErrInvalidDeck)
	}
	if d.PassPercent < 0 || d.PassPercent > 100 {
		return fmt.Errorf("%w: pass_percent %d out of range", ErrInvalidDeck, d.PassPercent)
	}

	seen := make(map[int]bool, len(d.Slides))
	finals := 0
	for i, s := range d.Slides {
		if s.ID <= 0 {
			return fmt.Errorf("%w: slide %d has non-positive id %d", ErrInvalidDeck, i, s.ID)
		}
		if seen[s.ID] {
			return fmt.Errorf("%w: duplicate slide id %d", ErrInvalidDeck, s.ID)
		}
		seen[s.ID] = true

		if !s.Layout.Valid() {
			return fmt.Errorf("%w: slide %d has unknown layout %q", ErrInvalidDeck, s.ID, s.Layout)
		}
		if s.Layout == LayoutComparison && s.Comparison == nil {
			return fmt.Errorf("%w: comparison slide %d has no comparison block", ErrInvalidDeck, s.ID)
		}
		if s.IsFinal() {
			finals++
			if i != len(d.Slides)-1 {
				return fmt.Errorf("%w: final score slide %d is not last", ErrInvalidDeck, s.ID)
			}
		}
		if err := validateQuizzes(s); err != nil {
			return err
		}
	}
	if finals != 1 {
		return fmt.Errorf("%w: want exactly one final score slide, got %d", ErrInvalidDeck, finals)
	}
	return nil
}

func validateQuizzes(s Slide) error {
	ids := make(map[string]bool, len(s.Quizzes))
	for _, q := range s.Quizzes {
		if q.ID == "" {
			return fmt.Errorf("%w: slide %d has a quiz without id", ErrInvalidDeck, s.ID)
		}
		if ids[q.ID] {
			return fmt.Errorf("%w: slide %d repeats quiz id %q", ErrInvalidDeck, s.ID, q.ID)
		}
		ids[q.ID] = true
		if len(q.Options) < 2 {
			return fmt.Errorf("%w: quiz %q needs at least 2 options", ErrInvalidDeck, q.ID)
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			return fmt.Errorf("%w: quiz %q correct_answer %d out of range", ErrInvalidDeck, q.ID, q.CorrectAnswer)
		}
	}
	return nil
}
