package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-deck/internal/ai"
	"github.com/p-n-ai/pai-deck/internal/api"
	"github.com/p-n-ai/pai-deck/internal/deck"
	"github.com/p-n-ai/pai-deck/internal/platform/cache"
	"github.com/p-n-ai/pai-deck/internal/platform/config"
	"github.com/p-n-ai/pai-deck/internal/platform/database"
	"github.com/p-n-ai/pai-deck/internal/realtime"
	"github.com/p-n-ai/pai-deck/internal/session"
	"github.com/p-n-ai/pai-deck/internal/tutor"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.Log))

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	var checks []readinessCheck

	var db *database.DB
	if cfg.Deck.Source == config.DeckSourcePostgres {
		var err error
		db, err = database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return err
		}
		defer db.Close()
		checks = append(checks, readinessCheck{name: "database", check: db.HealthCheck})
	}

	d, err := loadDeck(ctx, cfg.Deck, db)
	if err != nil {
		return err
	}
	slog.Info("deck loaded",
		"deck_id", d.ID,
		"source", cfg.Deck.Source,
		"slides", d.Len(),
		"max_score", d.MaxPossibleScore(),
	)

	var c *cache.Cache
	if cfg.HasCache() {
		c, err = cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			return err
		}
		defer c.Close()
		checks = append(checks, readinessCheck{name: "cache", check: c.HealthCheck})
	}

	var (
		store    session.Store
		memStore *session.MemoryStore
	)
	if cfg.Session.Store == config.SessionStoreRedis {
		store = session.NewRedisStore(c.Client, cfg.Session.TTL)
	} else {
		memStore = session.NewMemoryStore(session.WithMemoryTTL(cfg.Session.TTL))
		store = memStore
	}

	hub := realtime.NewHub(realtime.WithOriginPatterns(cfg.Server.AllowedOrigins...))
	sessions := session.NewManager(d, store,
		session.WithPublisher(hub),
		session.WithCapabilities(hub.Capabilities),
	)

	var panels *tutor.Panels
	if cfg.Tutor.Enabled {
		panels = tutor.NewPanels(newTutor(cfg, c))
	}

	go runJanitor(ctx, janitorInterval, memStore, panels, sessions)

	mux := newMux(checks...)
	api.New(sessions, hub, panels).Register(mux)

	srv := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
		// No WriteTimeout: the events endpoint holds its connection open.
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr, "tutor", panels != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	return nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// loadDeck reads the deck from the configured source and applies the quiz
// workbook on top when one is configured. An empty postgres table is seeded
// with the embedded deck.
func loadDeck(ctx context.Context, cfg config.DeckConfig, db *database.DB) (*deck.Deck, error) {
	var (
		d   *deck.Deck
		err error
	)
	switch cfg.Source {
	case config.DeckSourceFile:
		d, err = deck.LoadFile(cfg.Path)
	case config.DeckSourcePostgres:
		d, err = loadPostgresDeck(ctx, db, cfg.Slug)
	default:
		d, err = deck.Default()
	}
	if err != nil {
		return nil, err
	}

	if cfg.QuizWorkbook == "" {
		return d, nil
	}
	f, err := os.Open(cfg.QuizWorkbook)
	if err != nil {
		return nil, fmt.Errorf("opening quiz workbook: %w", err)
	}
	defer f.Close()

	d, n, err := deck.ApplyQuizWorkbook(d, f)
	if err != nil {
		return nil, err
	}
	slog.Info("quiz workbook applied", "path", cfg.QuizWorkbook, "quizzes", n)
	return d, nil
}

func loadPostgresDeck(ctx context.Context, db *database.DB, slug string) (*deck.Deck, error) {
	if err := db.Migrate(ctx, deck.PostgresSchema); err != nil {
		return nil, err
	}
	src, err := deck.NewPostgresSource(db.Pool)
	if err != nil {
		return nil, err
	}

	d, err := src.Load(ctx, slug)
	if !errors.Is(err, deck.ErrDeckNotFound) {
		return d, err
	}

	d, err = deck.Default()
	if err != nil {
		return nil, err
	}
	if err := src.Save(ctx, slug, d); err != nil {
		return nil, fmt.Errorf("seeding deck: %w", err)
	}
	slog.Info("seeded deck table with embedded deck", "slug", slug)
	return d, nil
}

func newTutor(cfg *config.Config, c *cache.Cache) *tutor.Tutor {
	router := ai.NewRouter()
	if cfg.AI.Google.APIKey != "" {
		router.Register("google", ai.NewGoogleProvider(cfg.AI.Google.APIKey, ai.WithGoogleModel(cfg.AI.Google.Model)))
	}
	if !cfg.HasAIProvider() {
		slog.Warn("no AI provider configured; tutor will answer with the fallback message")
	}

	var answers tutor.AnswerCache = tutor.NewMemoryCache()
	if c != nil {
		answers = tutor.NewRedisCache(c, cfg.Tutor.CacheTTL)
	}
	return tutor.New(router, tutor.WithCache(answers), tutor.WithModel(cfg.AI.Google.Model))
}

const janitorInterval = time.Minute

// runJanitor periodically drops expired memory sessions and tutor panels
// whose session no longer exists. Either target may be nil.
func runJanitor(ctx context.Context, interval time.Duration, store *session.MemoryStore, panels *tutor.Panels, sessions *session.Manager) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep(ctx, store, panels, sessions)
		}
	}
}

func sweep(ctx context.Context, store *session.MemoryStore, panels *tutor.Panels, sessions *session.Manager) {
	if store != nil {
		if n := store.Sweep(); n > 0 {
			slog.Info("expired sessions removed", "count", n)
		}
	}
	if panels != nil {
		n := panels.Prune(func(id string) bool {
			_, err := sessions.Get(ctx, id)
			return !errors.Is(err, session.ErrNotFound)
		})
		if n > 0 {
			slog.Info("orphaned tutor panels removed", "count", n)
		}
	}
}

type readinessCheck struct {
	name  string
	check func(context.Context) error
}

// newMux creates the HTTP router with health check endpoints.
func newMux(checks ...readinessCheck) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", handleReadyz(checks))
	return mux
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func handleReadyz(checks []readinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		for _, c := range checks {
			if err := c.check(ctx); err != nil {
				slog.Warn("readiness check failed", "dependency", c.name, "error", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				fmt.Fprintf(w, `{"status":"unavailable","dependency":%q}`, c.name)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}
}
