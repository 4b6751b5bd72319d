// Package session runs one viewer's pass through a deck: navigation, the
// per-slide reading and quiz gate, scoring and narration.
package session

import (
	"time"

	"github.com/p-n-ai/pai-deck/internal/deck"
)

// NarrationState tracks the speech synthesis flags.
type NarrationState struct {
	Speaking bool `json:"speaking"`
	Paused   bool `json:"paused"`
}

// State is everything needed to rebuild a Session.
type State struct {
	ID        string         `json:"id"`
	DeckID    string         `json:"deck_id"`
	Deck      DeckState      `json:"deck"`
	Progress  SlideProgress  `json:"progress"`
	Narration NarrationState `json:"narration"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Session combines a Controller and a Tracker with the injected narration
// and cue capabilities. It is not safe for concurrent use; Manager
// serialises access.
type Session struct {
	id        string
	createdAt time.Time
	ctrl      *Controller
	tracker   *Tracker
	caps      Capabilities
	narration NarrationState
}

// New starts a fresh session on the first slide.
func New(id string, d *deck.Deck, caps Capabilities) *Session {
	caps = caps.withDefaults()
	ctrl := NewController(d)
	return &Session{
		id:        id,
		createdAt: time.Now().UTC(),
		ctrl:      ctrl,
		tracker:   NewTracker(ctrl.CurrentSlide(), ctrl, ctrl, caps.Cues),
		caps:      caps,
	}
}

// Restore rebuilds a session from saved state.
func Restore(d *deck.Deck, st State, caps Capabilities) *Session {
	caps = caps.withDefaults()
	ctrl := RestoreController(d, st.Deck)
	return &Session{
		id:        st.ID,
		createdAt: st.CreatedAt,
		ctrl:      ctrl,
		tracker:   RestoreTracker(ctrl.CurrentSlide(), st.Progress, ctrl, ctrl, caps.Cues),
		caps:      caps,
		narration: st.Narration,
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Controller exposes the deck controller.
func (s *Session) Controller() *Controller { return s.ctrl }

// Tracker exposes the interaction tracker for the current slide.
func (s *Session) Tracker() *Tracker { return s.tracker }

// Narration returns the narration flags.
func (s *Session) Narration() NarrationState { return s.narration }

// State returns the serialisable state of the session.
func (s *Session) State() State {
	return State{
		ID:        s.id,
		DeckID:    s.ctrl.Deck().ID,
		Deck:      s.ctrl.State(),
		Progress:  s.tracker.Progress(),
		Narration: s.narration,
		CreatedAt: s.createdAt,
		UpdatedAt: time.Now().UTC(),
	}
}

// Advance moves to the next slide if the gate allows.
func (s *Session) Advance() bool {
	return s.navigated(s.ctrl.Advance())
}

// Retreat moves to the previous slide.
func (s *Session) Retreat() bool {
	return s.navigated(s.ctrl.Retreat())
}

// JumpTo moves to an unlocked slide.
func (s *Session) JumpTo(index int) bool {
	if index == s.ctrl.State().CurrentIndex {
		return false
	}
	return s.navigated(s.ctrl.JumpTo(index))
}

// Restart returns to slide one with a zero score and a cleared high-water mark.
func (s *Session) Restart() {
	s.ctrl.Restart()
	s.navigated(true)
}

func (s *Session) navigated(changed bool) bool {
	if !changed {
		return false
	}
	s.cancelNarration()
	s.tracker.Reset(s.ctrl.CurrentSlide())
	return true
}

// AcknowledgePoint marks a discussion point of the current slide as read.
func (s *Session) AcknowledgePoint(key string) bool {
	return s.tracker.MarkPointAcknowledged(key)
}

// QuizzesUnlocked reports whether the slide's quizzes are open for answers.
// They stay hidden until every discussion point has been read.
func (s *Session) QuizzesUnlocked() bool {
	return s.tracker.PointsComplete()
}

// AnswerQuiz answers a quiz on the current slide. The correct option comes
// from the deck. Answers while the quizzes are locked, or with an option
// outside the question's range, are ignored.
func (s *Session) AnswerQuiz(quizID string, option int) AnswerResult {
	if !s.QuizzesUnlocked() {
		return AnswerIgnored
	}
	q, ok := s.ctrl.CurrentSlide().Quiz(quizID)
	if !ok || option < 0 || option >= len(q.Options) {
		return AnswerIgnored
	}
	return s.tracker.AnswerQuiz(quizID, option, q.CorrectAnswer)
}

// ToggleNarration starts, pauses or resumes reading the current slide.
func (s *Session) ToggleNarration() NarrationState {
	switch {
	case s.narration.Speaking && !s.narration.Paused:
		s.caps.Narrator.Pause()
		s.narration.Paused = true
	case s.narration.Speaking && s.narration.Paused:
		s.caps.Narrator.Resume()
		s.narration.Paused = false
	default:
		s.caps.Narrator.Cancel()
		s.caps.Narrator.Speak(s.ctrl.CurrentSlide().NarrationScript())
		s.narration = NarrationState{Speaking: true}
	}
	return s.narration
}

// NarrationEnded records that the narrator finished on its own.
func (s *Session) NarrationEnded() {
	s.narration = NarrationState{}
}

// StopNarration cancels any ongoing narration.
func (s *Session) StopNarration() {
	s.cancelNarration()
}

func (s *Session) cancelNarration() {
	s.caps.Narrator.Cancel()
	s.narration = NarrationState{}
}
