package session

import "sync"

// Narrator reads slide text aloud. Calls are fire-and-forget; completion is
// reported back through Session.NarrationEnded.
type Narrator interface {
	Speak(text string)
	Pause()
	Resume()
	Cancel()
}

// CuePlayer plays the short feedback tones for quiz answers.
type CuePlayer interface {
	PlaySuccessCue()
	PlayFailureCue()
}

// Capabilities are the external collaborators injected into a session.
type Capabilities struct {
	Narrator Narrator
	Cues     CuePlayer
}

func (c Capabilities) withDefaults() Capabilities {
	if c.Narrator == nil {
		c.Narrator = NopNarrator{}
	}
	if c.Cues == nil {
		c.Cues = NopCues{}
	}
	return c
}

// NopNarrator ignores all narration calls.
type NopNarrator struct{}

func (NopNarrator) Speak(string) {}
func (NopNarrator) Pause()       {}
func (NopNarrator) Resume()      {}
func (NopNarrator) Cancel()      {}

// NopCues ignores all cue calls.
type NopCues struct{}

func (NopCues) PlaySuccessCue() {}
func (NopCues) PlayFailureCue() {}

// Recorder is a test double implementing Narrator and CuePlayer. It records
// every call in order, e.g. "speak", "cancel", "success".
type Recorder struct {
	mu     sync.Mutex
	calls  []string
	spoken []string
}

func (r *Recorder) record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *Recorder) Speak(text string) {
	r.mu.Lock()
	r.spoken = append(r.spoken, text)
	r.mu.Unlock()
	r.record("speak")
}

func (r *Recorder) Pause()          { r.record("pause") }
func (r *Recorder) Resume()         { r.record("resume") }
func (r *Recorder) Cancel()         { r.record("cancel") }
func (r *Recorder) PlaySuccessCue() { r.record("success") }
func (r *Recorder) PlayFailureCue() { r.record("failure") }

// Calls returns the recorded call names.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.calls...)
}

// Spoken returns every text passed to Speak.
func (r *Recorder) Spoken() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.spoken...)
}

// Reset forgets recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
	r.spoken = nil
}
