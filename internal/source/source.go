// Package source retrieves raw search index bytes from local files or
// published Documenter sites.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/sync/errgroup"
)

const (
	// IndexFile is the file Documenter writes at the root of a built site
	IndexFile = "search_index.js"

	// MaxBytes caps a single downloaded or decompressed index
	MaxBytes = 64 << 20

	defaultTimeout = 30 * time.Second
)

// ErrTooLarge is returned when a payload exceeds MaxBytes
var ErrTooLarge = errors.New("search index exceeds size limit")

var gzipMagic = []byte{0x1f, 0x8b}

// Client fetches search indexes. The zero value uses a client with a 30s timeout.
type Client struct {
	HTTP *http.Client
}

var defaultClient = &Client{}

// Fetch reads an index with the default client
func Fetch(ctx context.Context, ref string) ([]byte, error) {
	return defaultClient.Fetch(ctx, ref)
}

// FetchAll reads every ref with the default client
func FetchAll(ctx context.Context, refs []string, limit int) ([][]byte, error) {
	return defaultClient.FetchAll(ctx, refs, limit)
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: defaultTimeout}
}

// Fetch reads an index from a local path, a file:// URL or an http(s) URL.
// A site URL without a .js/.json/.gz suffix gets search_index.js appended.
func (c *Client) Fetch(ctx context.Context, ref string) ([]byte, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, errors.New("empty source reference")
	}

	u, err := url.Parse(ref)
	if err == nil {
		switch u.Scheme {
		case "http", "https":
			return c.fetchHTTP(ctx, ResolveIndexURL(u))
		case "file":
			return readFile(u.Path)
		}
	}
	return readFile(ref)
}

// FetchAll fetches refs concurrently with at most limit in flight. Results
// keep the order of refs; the first failure cancels the remaining fetches.
func (c *Client) FetchAll(ctx context.Context, refs []string, limit int) ([][]byte, error) {
	results := make([][]byte, len(refs))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, ref := range refs {
		g.Go(func() error {
			data, err := c.Fetch(ctx, ref)
			if err != nil {
				return fmt.Errorf("failed to fetch %s: %w", ref, err)
			}
			results[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ResolveIndexURL points a site URL at its search_index.js
func ResolveIndexURL(u *url.URL) string {
	resolved := *u
	switch strings.ToLower(path.Ext(resolved.Path)) {
	case ".js", ".json", ".gz":
		return resolved.String()
	}
	if !strings.HasSuffix(resolved.Path, "/") {
		resolved.Path += "/"
	}
	resolved.Path += IndexFile
	return resolved.String()
}

func (c *Client) fetchHTTP(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	data, err := readLimited(resp.Body)
	if err != nil {
		return nil, err
	}
	return decompress(data)
}

func readFile(name string) ([]byte, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open index file: %w", err)
	}
	defer f.Close()

	data, err := readLimited(f)
	if err != nil {
		return nil, err
	}
	return decompress(data)
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}
	if len(data) > MaxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

// decompress inflates gzip payloads and passes anything else through
func decompress(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, gzipMagic) {
		return data, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer zr.Close()
	return readLimited(zr)
}
