package searchindex

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.uber.org/multierr"
)

// Format selects the serialization produced by Encode
type Format int

const (
	// FormatJSON is the bare {"docs":[...]} object
	FormatJSON Format = iota
	// FormatJS is the assignment Documenter writes to search_index.js
	FormatJS
)

// Variable is the global Documenter's search widget reads the index from
const Variable = "documenterSearchIndex"

// ParseFormat maps "json" and "js" to a Format
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return FormatJSON, nil
	case "js", "javascript":
		return FormatJS, nil
	default:
		return FormatJSON, fmt.Errorf("unknown output format %q (supported: json, js)", name)
	}
}

func (f Format) String() string {
	if f == FormatJS {
		return "js"
	}
	return "json"
}

// Parse decodes a search index from its JSON form or from the
// search_index.js assignment. Shape violations are returned as *ShapeError.
func Parse(data []byte) (*Index, error) {
	raw, err := unwrap(data)
	if err != nil {
		return nil, err
	}

	problems, err := validateJSON(raw)
	if err != nil {
		return nil, err
	}
	if HasErrors(problems) {
		return nil, &ShapeError{Problems: problems}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var idx Index
	if err := dec.Decode(&idx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	if idx.Docs == nil {
		idx.Docs = []Fragment{}
	}
	return &idx, nil
}

// Encode writes idx in the requested format. HTML characters are kept
// literal, as Documenter does.
func Encode(w io.Writer, idx *Index, format Format) error {
	docs := idx.Docs
	if docs == nil {
		docs = []Fragment{}
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	switch format {
	case FormatJS:
		if _, err := fmt.Fprintf(w, "var %s = {\"docs\":\n", Variable); err != nil {
			return err
		}
		// Encoder terminates the array with a newline
		if err := enc.Encode(docs); err != nil {
			return fmt.Errorf("failed to encode fragments: %w", err)
		}
		_, err := io.WriteString(w, "}\n")
		return err
	default:
		if err := enc.Encode(Index{Docs: docs}); err != nil {
			return fmt.Errorf("failed to encode index: %w", err)
		}
		return nil
	}
}

// Marshal is Encode into a byte slice
func Marshal(idx *Index, format Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, idx, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Check runs semantic checks that the schema cannot express on its own and
// returns all failures combined.
func (idx *Index) Check() error {
	var err error
	if len(idx.Docs) == 0 {
		err = multierr.Append(err, ErrEmpty)
	}
	for i, f := range idx.Docs {
		if !f.Category.Valid() {
			err = multierr.Append(err, fmt.Errorf("docs[%d]: %w %q", i, ErrBadCategory, f.Category))
		}
	}
	return err
}
