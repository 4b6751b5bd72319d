// Package tutor answers free-form questions about the CSR pyramid through
// the AI gateway.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/p-n-ai/pai-deck/internal/ai"
)

// SystemPrompt frames every tutor request.
const SystemPrompt = "You are an expert professor in Business Ethics, specifically teaching Carroll's CSR Pyramid. " +
	"The pyramid has 4 levels: Economic (Base, Required), Legal (Required), Ethical (Expected), and Philanthropic (Top, Desired). " +
	"Answer the student's question clearly, concisely (under 100 words), and engagingly. " +
	"If the question relates to conflicts between levels (e.g. Legal vs Ethical), explain the tension."

const (
	// FallbackAnswer replaces the answer when the AI service fails.
	FallbackAnswer = "Sorry, I'm having trouble connecting to the ethics database right now."
	// EmptyAnswer replaces an answer the model left blank.
	EmptyAnswer = "I couldn't generate an answer. Please try again."
	// MaxQuestionLength bounds a question, in characters.
	MaxQuestionLength = 1000
)

var (
	ErrEmptyQuestion   = errors.New("question is empty")
	ErrQuestionTooLong = fmt.Errorf("question longer than %d characters", MaxQuestionLength)
	ErrUnknownLevel    = errors.New("unknown pyramid level")
)

// Answer is what the tutor shows for a question.
type Answer struct {
	Text     string `json:"text"`
	Fallback bool   `json:"fallback"`
	Cached   bool   `json:"cached"`
}

// Tutor turns questions into completion requests.
type Tutor struct {
	ai    ai.Completer
	cache AnswerCache
	model string
}

// Option configures a Tutor.
type Option func(*Tutor)

// WithCache sets the answer cache.
func WithCache(c AnswerCache) Option {
	return func(t *Tutor) { t.cache = c }
}

// WithModel requests a specific model.
func WithModel(model string) Option {
	return func(t *Tutor) { t.model = model }
}

// New creates a tutor.
func New(completer ai.Completer, opts ...Option) *Tutor {
	t := &Tutor{ai: completer}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Prompt builds the user message for a question, optionally focused on a level.
func Prompt(question string, level *Level) string {
	p := fmt.Sprintf("User Question: \"%s\".", question)
	if level != nil {
		p += fmt.Sprintf(" The user is specifically asking about the %s level.", level.Title)
	}
	return p
}

// Ask answers question. levelID may be empty. AI failures never surface as
// errors; they produce a fallback answer instead.
func (t *Tutor) Ask(ctx context.Context, question, levelID string) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, ErrEmptyQuestion
	}
	if utf8.RuneCountInString(question) > MaxQuestionLength {
		return Answer{}, ErrQuestionTooLong
	}

	var level *Level
	if levelID != "" {
		l, ok := LevelByID(levelID)
		if !ok {
			return Answer{}, fmt.Errorf("%w: %s", ErrUnknownLevel, levelID)
		}
		level = &l
	}

	key := CacheKey(question, levelID)
	if t.cache != nil {
		text, ok, err := t.cache.Get(ctx, key)
		if err != nil {
			slog.Warn("tutor cache lookup failed", "error", err)
		} else if ok {
			return Answer{Text: text, Cached: true}, nil
		}
	}

	resp, err := t.ai.Complete(ctx, ai.CompletionRequest{
		Model: t.model,
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: SystemPrompt},
			{Role: ai.RoleUser, Content: Prompt(question, level)},
		},
	})
	if err != nil {
		slog.Error("tutor request failed", "level", levelID, "error", err)
		return Answer{Text: FallbackAnswer, Fallback: true}, nil
	}

	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return Answer{Text: EmptyAnswer, Fallback: true}, nil
	}

	if t.cache != nil {
		if err := t.cache.Set(ctx, key, text); err != nil {
			slog.Warn("tutor cache store failed", "error", err)
		}
	}
	return Answer{Text: text}, nil
}
