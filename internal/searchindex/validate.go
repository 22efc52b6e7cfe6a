package searchindex

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "https://github.com/docsearch/documenter-mcp/search_index.schema.json"

var (
	utf8BOM = []byte("\xef\xbb\xbf")

	// Documenter writes `var documenterSearchIndex = {"docs": ...}`
	jsAssignment = regexp.MustCompile(`^\s*(?:var|let|const)\s+[A-Za-z_$][\w$]*\s*=\s*`)

	compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			return nil, fmt.Errorf("failed to parse embedded schema: %w", err)
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, doc); err != nil {
			return nil, fmt.Errorf("failed to add embedded schema: %w", err)
		}
		return compiler.Compile(schemaURL)
	})

	printer = message.NewPrinter(language.English)
)

// ShapeError lists every schema violation found in an input
type ShapeError struct {
	Problems []Problem
}

func (e *ShapeError) Error() string {
	if len(e.Problems) == 0 {
		return ErrShape.Error()
	}
	first := e.Problems[0]
	if len(e.Problems) == 1 {
		return fmt.Sprintf("%s: at %s: %s", ErrShape, first.Path, first.Message)
	}
	return fmt.Sprintf("%s: at %s: %s (and %d more)", ErrShape, first.Path, first.Message, len(e.Problems)-1)
}

func (e *ShapeError) Unwrap() error {
	return ErrShape
}

// unwrap strips a BOM and the JS assignment around the JSON object
func unwrap(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if loc := jsAssignment.FindIndex(data); loc != nil {
		data = bytes.TrimSpace(data[loc[1]:])
		data = bytes.TrimSuffix(data, []byte(";"))
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrSyntax)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrSyntax)
	}
	return data, nil
}

// Validate checks raw index bytes (JSON or Documenter JS) against the index
// schema and returns every problem found. The error is non-nil only when the
// input cannot be read as JSON at all.
func Validate(data []byte) ([]Problem, error) {
	raw, err := unwrap(data)
	if err != nil {
		return nil, err
	}
	return validateJSON(raw)
}

func validateJSON(raw []byte) ([]Problem, error) {
	schema, err := compileSchema()
	if err != nil {
		return nil, err
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}

	problems, err := duplicateKeys(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	if !utf8.Valid(raw) {
		problems = append(problems, Problem{
			Path:     "/",
			Message:  "invalid UTF-8 sequences are replaced with U+FFFD",
			Severity: SeverityWarning,
		})
	}

	if err := schema.Validate(inst); err != nil {
		var ve *jsonschema.ValidationError
		if !errors.As(err, &ve) {
			return nil, fmt.Errorf("schema validation failed: %w", err)
		}
		problems = collectProblems(ve, problems)
	}

	// An empty docs array is well formed but means the site had no pages
	if obj, ok := inst.(map[string]any); ok {
		if docs, ok := obj["docs"].([]any); ok && len(docs) == 0 {
			problems = append(problems, Problem{
				Path:     "/docs",
				Message:  "index has no fragments",
				Severity: SeverityWarning,
			})
		}
	}

	return problems, nil
}

// duplicateKeys reports every object key that appears more than once.
// Decoders silently keep the last value of a repeated key.
func duplicateKeys(raw []byte) ([]Problem, error) {
	problems := []Problem{}
	dec := json.NewDecoder(bytes.NewReader(raw))

	var walk func(location []string) error
	walk = func(location []string) error {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		delim, ok := tok.(json.Delim)
		if !ok {
			return nil
		}
		switch delim {
		case '{':
			seen := make(map[string]struct{})
			for dec.More() {
				tok, err := dec.Token()
				if err != nil {
					return err
				}
				key, _ := tok.(string)
				if _, dup := seen[key]; dup {
					problems = append(problems, Problem{
						Path:     pointer(location),
						Message:  fmt.Sprintf("duplicate key %q", key),
						Severity: SeverityError,
					})
				}
				seen[key] = struct{}{}
				if err := walk(append(location, key)); err != nil {
					return err
				}
			}
		case '[':
			for i := 0; dec.More(); i++ {
				if err := walk(append(location, strconv.Itoa(i))); err != nil {
					return err
				}
			}
		}
		// closing delimiter
		_, err = dec.Token()
		return err
	}

	if err := walk(nil); err != nil {
		return nil, err
	}
	return problems, nil
}

// collectProblems flattens the validation tree, keeping only leaf causes
func collectProblems(ve *jsonschema.ValidationError, out []Problem) []Problem {
	if len(ve.Causes) == 0 {
		return append(out, Problem{
			Path:     pointer(ve.InstanceLocation),
			Message:  ve.ErrorKind.LocalizedString(printer),
			Severity: SeverityError,
		})
	}
	for _, cause := range ve.Causes {
		out = collectProblems(cause, out)
	}
	return out
}

func pointer(location []string) string {
	if len(location) == 0 {
		return "/"
	}
	escaped := make([]string, len(location))
	for i, tok := range location {
		tok = strings.ReplaceAll(tok, "~", "~0")
		escaped[i] = strings.ReplaceAll(tok, "/", "~1")
	}
	return "/" + strings.Join(escaped, "/")
}

// HasErrors reports whether any problem is an error (warnings do not count)
func HasErrors(problems []Problem) bool {
	for _, p := range problems {
		if p.Severity == SeverityError {
			return true
		}
	}
	return false
}
