package tutor

import (
	"context"
	"errors"
	"sync"
)

// ErrBusy is returned when a question is submitted while another is loading.
var ErrBusy = errors.New("tutor is already answering a question")

// ErrAnswerShown is returned when a question is submitted while an answer is
// still on the panel. Clear the panel first.
var ErrAnswerShown = errors.New("tutor panel is showing an answer")

// PanelState is the display state of the tutor panel.
type PanelState string

const (
	PanelIdle     PanelState = "idle"
	PanelLoading  PanelState = "loading"
	PanelAnswered PanelState = "answered"
)

// PanelView is the panel as shown to the viewer.
type PanelView struct {
	State    PanelState `json:"state"`
	Question string     `json:"question,omitempty"`
	Level    string     `json:"level,omitempty"`
	Answer   *Answer    `json:"answer,omitempty"`
}

// Panel holds one viewer's tutor conversation: a single question in
// flight at a time and the last answer.
type Panel struct {
	tutor *Tutor

	mu   sync.Mutex
	view PanelView
}

// NewPanel creates an idle panel.
func NewPanel(t *Tutor) *Panel {
	return &Panel{tutor: t, view: PanelView{State: PanelIdle}}
}

// View returns the current panel state.
func (p *Panel) View() PanelView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view
}

// Submit asks a question from an idle panel and waits for the answer. A
// rejected question leaves the panel untouched.
func (p *Panel) Submit(ctx context.Context, question, levelID string) (Answer, error) {
	p.mu.Lock()
	switch p.view.State {
	case PanelLoading:
		p.mu.Unlock()
		return Answer{}, ErrBusy
	case PanelAnswered:
		p.mu.Unlock()
		return Answer{}, ErrAnswerShown
	}
	prev := p.view
	p.view = PanelView{State: PanelLoading, Question: question, Level: levelID}
	p.mu.Unlock()

	answer, err := p.tutor.Ask(ctx, question, levelID)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.view = prev
		return Answer{}, err
	}
	p.view.State = PanelAnswered
	p.view.Answer = &answer
	return answer, nil
}

// Clear dismisses the shown answer so another question can be asked.
func (p *Panel) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.view.State == PanelLoading {
		return ErrBusy
	}
	p.view = PanelView{State: PanelIdle}
	return nil
}

// Panels keeps one Panel per session id.
type Panels struct {
	tutor *Tutor

	mu     sync.Mutex
	panels map[string]*Panel
}

// NewPanels creates an empty registry.
func NewPanels(t *Tutor) *Panels {
	return &Panels{tutor: t, panels: make(map[string]*Panel)}
}

// Get returns the panel for id, creating it on first use.
func (ps *Panels) Get(id string) *Panel {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	p, ok := ps.panels[id]
	if !ok {
		p = NewPanel(ps.tutor)
		ps.panels[id] = p
	}
	return p
}

// Remove forgets the panel for id.
func (ps *Panels) Remove(id string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	delete(ps.panels, id)
}

// Prune removes idle or answered panels whose id fails keep, and returns
// how many it removed. keep is called without the registry lock held.
func (ps *Panels) Prune(keep func(id string) bool) int {
	ps.mu.Lock()
	ids := make([]string, 0, len(ps.panels))
	for id := range ps.panels {
		ids = append(ids, id)
	}
	ps.mu.Unlock()

	removed := 0
	for _, id := range ids {
		if keep(id) {
			continue
		}
		ps.mu.Lock()
		if p, ok := ps.panels[id]; ok && p.View().State != PanelLoading {
			delete(ps.panels, id)
			removed++
		}
		ps.mu.Unlock()
	}
	return removed
}

// Len returns the number of panels.
func (ps *Panels) Len() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return len(ps.panels)
}
