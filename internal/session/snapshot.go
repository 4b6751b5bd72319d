package session

import "github.com/p-n-ai/pai-deck/internal/deck"

// Snapshot is the outbound view of a session sent to clients.
type Snapshot struct {
	ID        string         `json:"id"`
	Deck      DeckView       `json:"deck"`
	Slide     SlideView      `json:"slide"`
	Progress  ProgressView   `json:"progress"`
	Narration NarrationState `json:"narration"`
	TOC       []TOCEntry     `json:"toc"`
}

// DeckView carries the controller state and the derived totals.
type DeckView struct {
	Title            string  `json:"title"`
	CurrentIndex     int     `json:"current_index"`
	MaxReachedIndex  int     `json:"max_reached_index"`
	TotalSlides      int     `json:"total_slides"`
	Score            int     `json:"score"`
	CanProceed       bool    `json:"can_proceed"`
	ProgressFraction float64 `json:"progress_fraction"`
	MaxPossibleScore int     `json:"max_possible_score"`
	PassThreshold    int     `json:"pass_threshold"`
	Passed           bool    `json:"passed"`
}

// SlideView is the current slide with unsolved answers withheld.
type SlideView struct {
	deck.Slide
	PointKeys []string   `json:"point_keys,omitempty"`
	Quizzes   []QuizView `json:"quizzes,omitempty"`
}

// QuizView is a quiz as the client sees it. CorrectAnswer and Explanation are
// only set once the quiz is solved.
type QuizView struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	Solved        bool     `json:"solved"`
	LastWrong     *int     `json:"last_wrong,omitempty"`
	CorrectAnswer *int     `json:"correct_answer,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
}

// ProgressView is the tracker state of the current slide.
type ProgressView struct {
	Acknowledged     []string       `json:"acknowledged"`
	RequiredPoints   int            `json:"required_points"`
	SolvedQuizzes    []string       `json:"solved_quizzes"`
	LastWrongAnswers map[string]int `json:"last_wrong_answers"`
	QuizzesUnlocked  bool           `json:"quizzes_unlocked"`
	Complete         bool           `json:"complete"`
}

// Snapshot renders the session for clients.
func (s *Session) Snapshot() Snapshot {
	d := s.ctrl.Deck()
	st := s.ctrl.State()
	slide := s.ctrl.CurrentSlide()
	progress := s.tracker.Progress()

	view := SlideView{Slide: slide, PointKeys: slide.PointKeys()}
	view.Slide.Quizzes = nil
	for _, q := range slide.Quizzes {
		qv := QuizView{
			ID:       q.ID,
			Question: q.Question,
			Options:  q.Options,
			Solved:   s.tracker.IsSolved(q.ID),
		}
		if qv.Solved {
			correct := q.CorrectAnswer
			qv.CorrectAnswer = &correct
			qv.Explanation = q.Explanation
		} else if wrong, ok := progress.LastWrongAnswers[q.ID]; ok {
			qv.LastWrong = &wrong
		}
		view.Quizzes = append(view.Quizzes, qv)
	}

	return Snapshot{
		ID: s.id,
		Deck: DeckView{
			Title:            d.Title,
			CurrentIndex:     st.CurrentIndex,
			MaxReachedIndex:  st.MaxReachedIndex,
			TotalSlides:      d.Len(),
			Score:            st.Score,
			CanProceed:       st.CanProceed,
			ProgressFraction: s.ctrl.ProgressFraction(),
			MaxPossibleScore: d.MaxPossibleScore(),
			PassThreshold:    d.PassThreshold(),
			Passed:           s.ctrl.Passed(),
		},
		Slide: view,
		Progress: ProgressView{
			Acknowledged:     progress.Acknowledged,
			RequiredPoints:   s.tracker.TotalPointsRequired(),
			SolvedQuizzes:    progress.SolvedQuizzes,
			LastWrongAnswers: progress.LastWrongAnswers,
			QuizzesUnlocked:  s.QuizzesUnlocked(),
			Complete:         s.tracker.Complete(),
		},
		Narration: s.narration,
		TOC:       s.ctrl.TOC(),
	}
}
