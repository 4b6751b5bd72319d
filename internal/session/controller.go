package session

import "github.com/p-n-ai/pai-deck/internal/deck"

// DeckState is the navigation and score state of one viewing session.
type DeckState struct {
	CurrentIndex    int  `json:"current_index"`
	MaxReachedIndex int  `json:"max_reached_index"`
	Score           int  `json:"score"`
	CanProceed      bool `json:"can_proceed"`
}

func initialDeckState() DeckState {
	return DeckState{CanProceed: true}
}

// TOCEntry is one line of the table of contents.
type TOCEntry struct {
	Index  int    `json:"index"`
	Title  string `json:"title"`
	Locked bool   `json:"locked"`
	Active bool   `json:"active"`
}

// Controller owns the slide position, the high-water mark, the score and the
// forward-navigation gate. Refused transitions are silent and return false.
type Controller struct {
	deck  *deck.Deck
	state DeckState
}

// NewController starts at the first slide with an open gate.
func NewController(d *deck.Deck) *Controller {
	return &Controller{deck: d, state: initialDeckState()}
}

// RestoreController resumes from a saved state, clamped to the deck.
func RestoreController(d *deck.Deck, st DeckState) *Controller {
	last := d.Len() - 1
	st.CurrentIndex = min(max(st.CurrentIndex, 0), last)
	st.MaxReachedIndex = min(max(st.MaxReachedIndex, st.CurrentIndex), last)
	st.Score = max(st.Score, 0)
	return &Controller{deck: d, state: st}
}

// State returns a copy of the current state.
func (c *Controller) State() DeckState {
	return c.state
}

// Deck returns the deck being presented.
func (c *Controller) Deck() *deck.Deck {
	return c.deck
}

// CurrentSlide returns the displayed slide.
func (c *Controller) CurrentSlide() deck.Slide {
	return c.deck.Slides[c.state.CurrentIndex]
}

func (c *Controller) lastIndex() int {
	return c.deck.Len() - 1
}

// Advance moves forward one slide when the gate is open and the current
// slide is not the last.
func (c *Controller) Advance() bool {
	if c.state.CurrentIndex >= c.lastIndex() || !c.state.CanProceed {
		return false
	}
	c.state.CurrentIndex++
	c.state.MaxReachedIndex = max(c.state.MaxReachedIndex, c.state.CurrentIndex)
	return true
}

// Retreat moves back one slide. It never touches the high-water mark or the
// score.
func (c *Controller) Retreat() bool {
	if c.state.CurrentIndex <= 0 {
		return false
	}
	c.state.CurrentIndex--
	return true
}

// JumpTo moves to any slide already reached.
func (c *Controller) JumpTo(index int) bool {
	if c.IsLocked(index) {
		return false
	}
	c.state.CurrentIndex = index
	return true
}

// IsLocked reports whether index is out of range or beyond the high-water mark.
func (c *Controller) IsLocked(index int) bool {
	return index < 0 || index > c.state.MaxReachedIndex || index > c.lastIndex()
}

// UpdateScore adds delta to the score, flooring at zero.
func (c *Controller) UpdateScore(delta int) {
	c.state.Score = max(0, c.state.Score+delta)
}

// SetCanProceed sets the gate. Only the tracker's completion check calls it.
func (c *Controller) SetCanProceed(v bool) {
	c.state.CanProceed = v
}

// Restart returns to the initial state of a fresh session.
func (c *Controller) Restart() {
	c.state = initialDeckState()
}

// ProgressFraction is (current+1)/total.
func (c *Controller) ProgressFraction() float64 {
	return float64(c.state.CurrentIndex+1) / float64(c.deck.Len())
}

// MaxPossibleScore is the deck's maximum score.
func (c *Controller) MaxPossibleScore() int {
	return c.deck.MaxPossibleScore()
}

// Passed evaluates the current score against the pass threshold.
func (c *Controller) Passed() bool {
	return c.deck.Passed(c.state.Score)
}

// TOC lists every slide with its locked and active flags.
func (c *Controller) TOC() []TOCEntry {
	entries := make([]TOCEntry, c.deck.Len())
	for i, s := range c.deck.Slides {
		entries[i] = TOCEntry{
			Index:  i,
			Title:  s.Title,
			Locked: c.IsLocked(i),
			Active: i == c.state.CurrentIndex,
		}
	}
	return entries
}
