package deck

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultDeck []byte

var schemaLoader = gojsonschema.NewStringLoader(deckSchema)

// Default returns the embedded lesson deck.
func Default() (*Deck, error) {
	d, err := Parse(defaultDeck)
	if err != nil {
		return nil, fmt.Errorf("loading embedded deck: %w", err)
	}
	return d, nil
}

// LoadFile reads and validates a deck from a YAML file.
func LoadFile(path string) (*Deck, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading deck file: %w", err)
	}
	d, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	slog.Info("deck loaded", "path", path, "deck_id", d.ID, "slides", d.Len())
	return d, nil
}

// Load reads a deck from r.
func Load(r io.Reader) (*Deck, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading deck: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML deck data, checks it against the deck schema and the
// cross-field invariants.
func Parse(data []byte) (*Deck, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse yaml: %v", ErrInvalidDeck, err)
	}
	if err := checkSchema(doc); err != nil {
		return nil, err
	}

	var d Deck
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidDeck, err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Marshal encodes the deck as YAML in the same shape Parse accepts.
func Marshal(d *Deck) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("encode deck: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode deck: %w", err)
	}
	return buf.Bytes(), nil
}

func checkSchema(doc any) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: schema check: %v", ErrInvalidDeck, err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalidDeck, strings.Join(msgs, "; "))
}
