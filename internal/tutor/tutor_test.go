package tutor_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/p-n-ai/pai-deck/internal/ai"
	"github.com/p-n-ai/pai-deck/internal/tutor"
)

func TestAsk(t *testing.T) {
	mock := ai.NewMockProvider("  Profit keeps the firm alive.  ")
	tu := tutor.New(mock, tutor.WithModel("gemini-2.5-flash"))

	got, err := tu.Ask(context.Background(), "Why is profit the base?", "economic")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	want := tutor.Answer{Text: "Profit keeps the firm alive."}
	if got != want {
		t.Errorf("Ask() = %+v, want %+v", got, want)
	}

	req := mock.LastRequest()
	if req == nil {
		t.Fatal("no request sent")
	}
	if req.Model != "gemini-2.5-flash" {
		t.Errorf("Model = %q", req.Model)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != ai.RoleSystem || req.Messages[0].Content != tutor.SystemPrompt {
		t.Errorf("system message = %+v", req.Messages)
	}
	wantUser := `User Question: "Why is profit the base?". The user is specifically asking about the Economic level.`
	if req.Messages[1].Content != wantUser {
		t.Errorf("user message = %q, want %q", req.Messages[1].Content, wantUser)
	}
}

func TestPrompt_NoLevel(t *testing.T) {
	got := tutor.Prompt("Is following the law enough?", nil)
	if got != `User Question: "Is following the law enough?".` {
		t.Errorf("Prompt() = %q", got)
	}
}

func TestAsk_Errors(t *testing.T) {
	tests := []struct {
		name     string
		question string
		level    string
		wantErr  error
	}{
		{"empty", "", "", tutor.ErrEmptyQuestion},
		{"blank", " \t\n ", "ethical", tutor.ErrEmptyQuestion},
		{"too long", strings.Repeat("a", tutor.MaxQuestionLength+1), "", tutor.ErrQuestionTooLong},
		{"unknown level", "What?", "spiritual", tutor.ErrUnknownLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := ai.NewMockProvider("unused")
			_, err := tutor.New(mock).Ask(context.Background(), tt.question, tt.level)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Ask() error = %v, want %v", err, tt.wantErr)
			}
			if mock.Calls() != 0 {
				t.Error("rejected questions must not reach the AI")
			}
		})
	}
}

func TestAsk_Fallbacks(t *testing.T) {
	tests := []struct {
		name     string
		provider *ai.MockProvider
		want     string
	}{
		{"provider error", &ai.MockProvider{Err: errors.New("503")}, tutor.FallbackAnswer},
		{"empty completion", ai.NewMockProvider(""), tutor.EmptyAnswer},
		{"whitespace completion", ai.NewMockProvider("   "), tutor.EmptyAnswer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := tutor.NewMemoryCache()
			got, err := tutor.New(tt.provider, tutor.WithCache(cache)).Ask(context.Background(), "Who decides?", "")
			if err != nil {
				t.Fatalf("Ask() error = %v, want nil", err)
			}
			if got.Text != tt.want || !got.Fallback {
				t.Errorf("Ask() = %+v, want fallback %q", got, tt.want)
			}
			if _, ok, _ := cache.Get(context.Background(), tutor.CacheKey("Who decides?", "")); ok {
				t.Error("fallback answers must not be cached")
			}
		})
	}
}

func TestAsk_NoProviders(t *testing.T) {
	got, err := tutor.New(ai.NewRouter()).Ask(context.Background(), "Hello?", "")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if got.Text != tutor.FallbackAnswer {
		t.Errorf("Ask() = %+v, want fallback", got)
	}
}

func TestAsk_Cache(t *testing.T) {
	mock := ai.NewMockProvider("Because law is codified ethics.")
	tu := tutor.New(mock, tutor.WithCache(tutor.NewMemoryCache()))
	ctx := context.Background()

	first, err := tu.Ask(ctx, "Is following the law enough?", "legal")
	if err != nil {
		t.Fatal(err)
	}
	if first.Cached {
		t.Error("first answer should not be cached")
	}

	second, err := tu.Ask(ctx, "  IS following   the law ENOUGH? ", "legal")
	if err != nil {
		t.Fatal(err)
	}
	if !second.Cached || second.Text != first.Text {
		t.Errorf("second Ask() = %+v, want cached copy of first", second)
	}
	if mock.Calls() != 1 {
		t.Errorf("AI calls = %d, want 1", mock.Calls())
	}

	if _, err := tu.Ask(ctx, "Is following the law enough?", "ethical"); err != nil {
		t.Fatal(err)
	}
	if mock.Calls() != 2 {
		t.Errorf("a different level should miss the cache, AI calls = %d", mock.Calls())
	}
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("cache down")
}
func (failingCache) Set(context.Context, string, string) error { return errors.New("cache down") }

func TestAsk_CacheFailureIsIgnored(t *testing.T) {
	tu := tutor.New(ai.NewMockProvider("fine"), tutor.WithCache(failingCache{}))
	got, err := tu.Ask(context.Background(), "Q?", "")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if got.Text != "fine" {
		t.Errorf("Ask() = %+v", got)
	}
}
