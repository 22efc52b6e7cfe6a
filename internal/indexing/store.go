package indexing

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// VersionFile is the name of the schema version marker kept next to an
// index directory
const VersionFile = ".index_version"

// WriteIndex creates a new on-disk index at path holding chunks. Anything
// already at path is removed first.
func WriteIndex(path string, chunks []DocChunk, log *zap.Logger) (err error) {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove old index: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	index, err := bleve.New(path, NewMapping())
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer func() {
		if cerr := index.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("failed to close index: %w", cerr))
		}
		if err != nil {
			os.RemoveAll(path)
		}
	}()

	return IndexChunks(index, chunks, log)
}

// ReadVersion returns the schema version recorded in dir, 0 when absent
func ReadVersion(dir string) int {
	data, err := os.ReadFile(filepath.Join(dir, VersionFile))
	if err != nil {
		return 0
	}
	version, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return version
}

// WriteVersion records IndexSchemaVersion in dir
func WriteVersion(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, VersionFile), []byte(strconv.Itoa(IndexSchemaVersion)), 0644)
}
