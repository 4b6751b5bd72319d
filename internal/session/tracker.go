package session

import (
	"slices"

	"github.com/p-n-ai/pai-deck/internal/deck"
)

// Gate is the forward-navigation gate the tracker drives.
type Gate interface {
	SetCanProceed(v bool)
}

// Scorer receives score deltas from quiz answers.
type Scorer interface {
	UpdateScore(delta int)
}

// AnswerResult describes what an answer did.
type AnswerResult string

const (
	AnswerIgnored AnswerResult = "ignored"
	AnswerCorrect AnswerResult = "correct"
	AnswerWrong   AnswerResult = "wrong"
)

// SlideProgress is the per-slide interaction state. It is discarded whenever
// the displayed slide changes.
type SlideProgress struct {
	SlideID          int            `json:"slide_id"`
	Acknowledged     []string       `json:"acknowledged"`
	SolvedQuizzes    []string       `json:"solved_quizzes"`
	LastWrongAnswers map[string]int `json:"last_wrong_answers"`
}

// Tracker records which discussion points and quizzes of the current slide
// are done, scores answers and opens the gate once everything is complete.
type Tracker struct {
	slide  deck.Slide
	gate   Gate
	scorer Scorer
	cues   CuePlayer

	acknowledged map[string]bool
	solved       map[string]bool
	lastWrong    map[string]int
}

// NewTracker creates a tracker for slide and pushes the initial completion
// state to the gate.
func NewTracker(slide deck.Slide, gate Gate, scorer Scorer, cues CuePlayer) *Tracker {
	if cues == nil {
		cues = NopCues{}
	}
	t := &Tracker{gate: gate, scorer: scorer, cues: cues}
	t.Reset(slide)
	return t
}

// RestoreTracker resumes progress saved for the same slide. Progress recorded
// against another slide, or keys the slide does not have, are dropped.
func RestoreTracker(slide deck.Slide, p SlideProgress, gate Gate, scorer Scorer, cues CuePlayer) *Tracker {
	t := NewTracker(slide, gate, scorer, cues)
	if p.SlideID != slide.ID {
		return t
	}
	keys := slide.PointKeys()
	for _, k := range p.Acknowledged {
		if slices.Contains(keys, k) {
			t.acknowledged[k] = true
		}
	}
	for _, id := range p.SolvedQuizzes {
		if _, ok := slide.Quiz(id); ok {
			t.solved[id] = true
		}
	}
	for id, opt := range p.LastWrongAnswers {
		if _, ok := slide.Quiz(id); ok && !t.solved[id] {
			t.lastWrong[id] = opt
		}
	}
	t.recompute()
	return t
}

// Reset clears all interaction state for a newly displayed slide.
func (t *Tracker) Reset(slide deck.Slide) {
	t.slide = slide
	t.acknowledged = make(map[string]bool)
	t.solved = make(map[string]bool)
	t.lastWrong = make(map[string]int)
	t.recompute()
}

// TotalPointsRequired is the number of points that must be acknowledged.
func (t *Tracker) TotalPointsRequired() int {
	return t.slide.RequiredPoints()
}

// AcknowledgedCount is the number of distinct points acknowledged so far.
func (t *Tracker) AcknowledgedCount() int {
	return len(t.acknowledged)
}

// PointsComplete reports whether every discussion point has been read.
func (t *Tracker) PointsComplete() bool {
	return len(t.acknowledged) >= t.TotalPointsRequired()
}

// Complete reports whether all points are read and all quizzes solved.
func (t *Tracker) Complete() bool {
	return t.PointsComplete() && len(t.solved) == len(t.slide.Quizzes)
}

// MarkPointAcknowledged records that a discussion point was read. It returns
// false for keys the slide does not have and for repeats.
func (t *Tracker) MarkPointAcknowledged(key string) bool {
	if t.acknowledged[key] || !slices.Contains(t.slide.PointKeys(), key) {
		return false
	}
	t.acknowledged[key] = true
	t.recompute()
	return true
}

// AnswerQuiz scores an answer. Answers to solved quizzes or to quizzes not
// on the slide are ignored.
func (t *Tracker) AnswerQuiz(quizID string, chosen, correct int) AnswerResult {
	if t.solved[quizID] {
		return AnswerIgnored
	}
	if _, ok := t.slide.Quiz(quizID); !ok {
		return AnswerIgnored
	}

	if chosen == correct {
		t.cues.PlaySuccessCue()
		t.scorer.UpdateScore(deck.PointsPerQuiz)
		t.solved[quizID] = true
		delete(t.lastWrong, quizID)
		t.recompute()
		return AnswerCorrect
	}

	t.cues.PlayFailureCue()
	t.scorer.UpdateScore(-deck.WrongAnswerPenalty)
	t.lastWrong[quizID] = chosen
	t.recompute()
	return AnswerWrong
}

// IsSolved reports whether quizID has been answered correctly.
func (t *Tracker) IsSolved(quizID string) bool {
	return t.solved[quizID]
}

// CanProceed reports whether the gate should be open: always on the final
// slide, otherwise once the slide is complete.
func (t *Tracker) CanProceed() bool {
	return t.slide.IsFinal() || t.Complete()
}

func (t *Tracker) recompute() {
	t.gate.SetCanProceed(t.CanProceed())
}

// Progress returns a serialisable copy of the state. Key lists are sorted.
func (t *Tracker) Progress() SlideProgress {
	p := SlideProgress{
		SlideID:          t.slide.ID,
		Acknowledged:     sortedKeys(t.acknowledged),
		SolvedQuizzes:    sortedKeys(t.solved),
		LastWrongAnswers: make(map[string]int, len(t.lastWrong)),
	}
	for id, opt := range t.lastWrong {
		p.LastWrongAnswers[id] = opt
	}
	return p
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
