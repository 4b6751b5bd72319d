package deck

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// ErrDeckNotFound is returned when no deck is stored under a slug.
var ErrDeckNotFound = errors.New("deck not found")

// PostgresSchema creates the table PostgresSource reads from.
const PostgresSchema = `CREATE TABLE IF NOT EXISTS decks (
	slug       TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	content    TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresSource stores authored decks as YAML documents keyed by slug.
type PostgresSource struct {
	pool *pgxpool.Pool
}

// NewPostgresSource creates a deck source on top of an open pool.
func NewPostgresSource(pool *pgxpool.Pool) (*PostgresSource, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresSource{pool: pool}, nil
}

// Load fetches and validates the deck stored under slug.
func (s *PostgresSource) Load(ctx context.Context, slug string) (*Deck, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var content string
	err := s.pool.QueryRow(ctx,
		`SELECT content FROM decks WHERE slug = $1`,
		slug,
	).Scan(&content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrDeckNotFound, slug)
		}
		return nil, fmt.Errorf("query deck: %w", err)
	}

	d, err := Parse([]byte(content))
	if err != nil {
		return nil, fmt.Errorf("stored deck %s: %w", slug, err)
	}
	return d, nil
}

// Save validates d and upserts it under slug.
func (s *PostgresSource) Save(ctx context.Context, slug string, d *Deck) error {
	if slug == "" {
		return fmt.Errorf("slug is required")
	}
	if err := d.Validate(); err != nil {
		return err
	}
	content, err := Marshal(d)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err = s.pool.Exec(ctx,
		`INSERT INTO decks (slug, title, content, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (slug) DO UPDATE
		 SET title = EXCLUDED.title, content = EXCLUDED.content, updated_at = NOW()`,
		slug,
		d.Title,
		string(content),
	)
	if err != nil {
		return fmt.Errorf("save deck: %w", err)
	}
	return nil
}
