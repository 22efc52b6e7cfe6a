package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/docsearch/documenter-mcp/internal/config"
	"github.com/docsearch/documenter-mcp/internal/indexing"
)

const alphaIndex = `{"docs":[
{"location":"guide/","page":"Alpha Guide","title":"Alpha Guide","text":"Widgets are configured with knobs and dials.","category":"page"},
{"location":"guide/#Knobs","page":"Alpha Guide","title":"Knobs","text":"","category":"section"},
{"location":"api/","page":"Alpha API","title":"Alpha API","text":"The API exposes widget constructors.","category":"page"}
]}`

const betaIndex = `var documenterSearchIndex = {"docs":
[{"location":"","page":"Beta Reference","title":"Beta Reference","text":"Gadgets also have knobs.","category":"page"}]
}
`

func testConfig(sources ...config.Source) *config.Config {
	return &config.Config{
		Version:          1,
		CacheTTL:         config.Duration(time.Hour),
		MaxResults:       10,
		FetchConcurrency: 2,
		Sources:          sources,
		Logging:          config.LoggingConfig{Level: "debug"},
	}
}

func newTestDocSearch(t *testing.T, dataDir string, cfg *config.Config, opts ...Option) *DocSearch {
	t.Helper()
	d := NewDocSearch(cfg, dataDir, zaptest.NewLogger(t), opts...)
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return d
}

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write source: %v", err)
	}
	return path
}

func TestInitializeBundled(t *testing.T) {
	dataDir := t.TempDir()
	d := newTestDocSearch(t, dataDir, testConfig())

	if err := d.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	sites := d.Sites()
	if len(sites) != 1 || sites[0].Name != bundledSite {
		t.Fatalf("Sites() = %+v, want bundled site only", sites)
	}
	if n := len(sites[0].Index.Docs); n != 59 {
		t.Errorf("Bundled index has %d fragments, want 59", n)
	}

	count, err := (*d.holder.current.Load()).DocCount()
	if err != nil {
		t.Fatalf("DocCount() error = %v", err)
	}
	if count != 59 {
		t.Errorf("DocCount() = %d, want 59", count)
	}

	if v := indexing.ReadVersion(filepath.Join(dataDir, searchDir)); v != indexing.IndexSchemaVersion {
		t.Errorf("Index version = %d, want %d", v, indexing.IndexSchemaVersion)
	}
	if lines := d.readManifest(); len(lines) != 1 || !strings.HasPrefix(lines[0], bundledSite+" ") {
		t.Errorf("Index site manifest = %v", lines)
	}
	if _, ok := d.lastUpdate(); ok {
		t.Error("Bundled index must not write cache metadata")
	}
	if _, err := os.Stat(filepath.Join(dataDir, lockFile)); err != nil {
		t.Errorf("Lock file should exist while initialized: %v", err)
	}

	// Second call is a no-op
	if err := d.Initialize(context.Background()); err != nil {
		t.Errorf("Second Initialize() error = %v", err)
	}
}

func newObservedDocSearch(t *testing.T, dataDir string, cfg *config.Config) (*DocSearch, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	d := NewDocSearch(cfg, dataDir, zap.New(core))
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	if err := d.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return d, logs
}

func initializeObserved(t *testing.T, dataDir string, cfg *config.Config) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	d := NewDocSearch(cfg, dataDir, zap.New(core))
	if err := d.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return logs
}

func initializedFrom(logs *observer.ObservedLogs) string {
	for _, entry := range logs.FilterMessage("Documentation search initialized").All() {
		if from, ok := entry.ContextMap()["from"].(string); ok {
			return from
		}
	}
	return ""
}

func TestInitializeReusesLocalIndex(t *testing.T) {
	dataDir := t.TempDir()

	if from := initializedFrom(initializeObserved(t, dataDir, testConfig())); from != "new index" {
		t.Errorf("First start initialized from %q, want new index", from)
	}
	if from := initializedFrom(initializeObserved(t, dataDir, testConfig())); from != "local index" {
		t.Errorf("Second start initialized from %q, want local index", from)
	}
	if _, err := os.Stat(filepath.Join(dataDir, lockFile)); !os.IsNotExist(err) {
		t.Error("Lock file should be removed after Close")
	}
}

func TestInitializeRebuildsOnSchemaMismatch(t *testing.T) {
	dataDir := t.TempDir()
	initializeObserved(t, dataDir, testConfig())

	versionPath := filepath.Join(dataDir, searchDir, indexing.VersionFile)
	if err := os.WriteFile(versionPath, []byte("0"), 0644); err != nil {
		t.Fatal(err)
	}

	logs := initializeObserved(t, dataDir, testConfig())
	if from := initializedFrom(logs); from != "new index" {
		t.Errorf("Initialized from %q after version mismatch, want new index", from)
	}
	if logs.FilterMessage("Index schema version mismatch, invalidating old index").Len() != 1 {
		t.Error("Expected schema mismatch to be logged")
	}
}

func TestInitializeRebuildsOnSiteChange(t *testing.T) {
	dataDir := t.TempDir()
	srcDir := t.TempDir()
	initializeObserved(t, dataDir, testConfig())

	cfg := testConfig(config.Source{Name: "alpha", URL: writeSource(t, srcDir, "alpha.json", alphaIndex)})
	logs := initializeObserved(t, dataDir, cfg)
	if from := initializedFrom(logs); from != "new index" {
		t.Errorf("Initialized from %q after site change, want new index", from)
	}
}

func TestInitializeRebuildsOnCacheChange(t *testing.T) {
	dataDir := t.TempDir()
	srcDir := t.TempDir()
	cfg := testConfig(config.Source{Name: "alpha", URL: writeSource(t, srcDir, "alpha.json", alphaIndex)})
	initializeObserved(t, dataDir, cfg)

	// cached content no longer matches what the index was built from
	cache := NewDocSearch(cfg, dataDir, zap.NewNop()).sourceCache("alpha")
	if err := os.WriteFile(cache, []byte(betaIndex), 0644); err != nil {
		t.Fatal(err)
	}

	d, logs := newObservedDocSearch(t, dataDir, cfg)
	if from := initializedFrom(logs); from != "new index" {
		t.Errorf("Initialized from %q after cache change, want new index", from)
	}
	if logs.FilterMessage("Indexed sites differ from cached sites, invalidating old index").Len() != 1 {
		t.Error("Expected manifest mismatch to be logged")
	}

	ctx := context.Background()
	_, found, err := d.SearchDocumentation(ctx, nil, SearchDocumentationInput{Query: "gadgets"})
	if err != nil {
		t.Fatalf("SearchDocumentation() error = %v", err)
	}
	if len(found.Results) == 0 || found.Results[0].Chunk.Page != "Beta Reference" {
		t.Errorf("Search results = %+v, want Beta Reference", found.Results)
	}
	if _, _, err := d.GetPage(ctx, nil, GetPageInput{Page: "Beta Reference"}); err != nil {
		t.Errorf("GetPage() error = %v", err)
	}
}

func TestInitializeRebuildsOnBaseURLChange(t *testing.T) {
	dataDir := t.TempDir()
	path := writeSource(t, t.TempDir(), "alpha.json", alphaIndex)
	initializeObserved(t, dataDir, testConfig(config.Source{Name: "alpha", URL: path, BaseURL: "https://old.example.org/"}))

	d, logs := newObservedDocSearch(t, dataDir, testConfig(config.Source{Name: "alpha", URL: path, BaseURL: "https://new.example.org/"}))
	if from := initializedFrom(logs); from != "new index" {
		t.Errorf("Initialized from %q after base URL change, want new index", from)
	}
	_, found, err := d.SearchDocumentation(context.Background(), nil, SearchDocumentationInput{Query: "widgets"})
	if err != nil {
		t.Fatalf("SearchDocumentation() error = %v", err)
	}
	for _, r := range found.Results {
		if !strings.HasPrefix(r.Chunk.URL, "https://new.example.org/") {
			t.Errorf("Result URL %q uses the old base URL", r.Chunk.URL)
		}
	}
}

func TestInitializeFromSources(t *testing.T) {
	dataDir := t.TempDir()
	srcDir := t.TempDir()
	cfg := testConfig(
		config.Source{Name: "alpha", URL: writeSource(t, srcDir, "alpha.json", alphaIndex), BaseURL: "https://alpha.example.org/dev/"},
		config.Source{Name: "beta", URL: writeSource(t, srcDir, "search_index.js", betaIndex)},
	)
	d := newTestDocSearch(t, dataDir, cfg)

	if err := d.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	sites := d.Sites()
	if len(sites) != 2 || sites[0].Name != "alpha" || sites[1].Name != "beta" {
		t.Fatalf("Sites() = %+v", sites)
	}
	if sites[0].BaseURL != "https://alpha.example.org/dev/" {
		t.Errorf("BaseURL = %q", sites[0].BaseURL)
	}

	for _, name := range []string{"alpha", "beta"} {
		if _, err := os.Stat(d.sourceCache(name)); err != nil {
			t.Errorf("Source %s was not cached: %v", name, err)
		}
	}
	if _, ok := d.lastUpdate(); !ok {
		t.Error("Cache metadata was not written")
	}
	if d.needsRefresh() {
		t.Error("Freshly fetched sources should not need refresh")
	}

	count, _ := (*d.holder.current.Load()).DocCount()
	if count != 4 {
		t.Errorf("DocCount() = %d, want 4", count)
	}
}

func TestInitializeUsesCacheWhenSourceGone(t *testing.T) {
	dataDir := t.TempDir()
	srcDir := t.TempDir()
	path := writeSource(t, srcDir, "alpha.json", alphaIndex)
	cfg := testConfig(config.Source{Name: "alpha", URL: path})

	initializeObserved(t, dataDir, cfg)
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	d := newTestDocSearch(t, dataDir, cfg)
	if err := d.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if sites := d.Sites(); len(sites) != 1 || sites[0].Name != "alpha" {
		t.Errorf("Sites() = %+v, want cached alpha", sites)
	}
}

func TestInitializeFallsBackToBundled(t *testing.T) {
	cfg := testConfig(config.Source{Name: "missing", URL: filepath.Join(t.TempDir(), "nope.js")})
	d := newTestDocSearch(t, t.TempDir(), cfg)

	if err := d.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if sites := d.Sites(); len(sites) != 1 || sites[0].Name != bundledSite {
		t.Errorf("Sites() = %+v, want bundled fallback", sites)
	}
}

func TestInitializeWithoutBundle(t *testing.T) {
	d := newTestDocSearch(t, t.TempDir(), testConfig(), WithDataProvider(NewMockDataProvider()))

	err := d.Initialize(context.Background())
	if !errors.Is(err, ErrNoIndex) {
		t.Fatalf("Initialize() error = %v, want ErrNoIndex", err)
	}
	if d.Sites() != nil {
		t.Error("No sites should be loaded")
	}
}

func TestInitializeCustomBundle(t *testing.T) {
	mock := NewMockDataProvider()
	mock.AddFile(bundledIndexFile, []byte(betaIndex))
	d := newTestDocSearch(t, t.TempDir(), testConfig(), WithDataProvider(mock))

	if err := d.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if sites := d.Sites(); len(sites[0].Index.Docs) != 1 {
		t.Errorf("Expected the mock bundle, got %d fragments", len(sites[0].Index.Docs))
	}
}

func TestRefresh(t *testing.T) {
	srcDir := t.TempDir()
	path := writeSource(t, srcDir, "alpha.json", alphaIndex)
	d := newTestDocSearch(t, t.TempDir(), testConfig(config.Source{Name: "alpha", URL: path}))
	ctx := context.Background()

	if err := d.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	first := d.holder.current.Load()

	updated, err := d.Refresh(ctx, false)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if updated {
		t.Error("Refresh() of a fresh cache should do nothing")
	}

	writeSource(t, srcDir, "alpha.json", betaIndex)
	updated, err = d.Refresh(ctx, true)
	if err != nil {
		t.Fatalf("Refresh(force) error = %v", err)
	}
	if !updated {
		t.Error("Refresh(force) should rebuild")
	}

	if docs := d.Sites()[0].Index.Docs; len(docs) != 1 || docs[0].Page != "Beta Reference" {
		t.Errorf("Sites were not replaced: %+v", docs)
	}
	if d.holder.current.Load() == first {
		t.Error("Index pointer was not swapped")
	}

	// Old index is closed in the background once searches drain
	d.closers.Wait()
	if _, err := (*first).DocCount(); err == nil {
		t.Error("Replaced index should be closed")
	}
}

func TestRefreshFailureKeepsIndex(t *testing.T) {
	srcDir := t.TempDir()
	path := writeSource(t, srcDir, "alpha.json", alphaIndex)
	d := newTestDocSearch(t, t.TempDir(), testConfig(config.Source{Name: "alpha", URL: path}))
	ctx := context.Background()

	if err := d.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	current := d.holder.current.Load()

	writeSource(t, srcDir, "alpha.json", `{"docs":[{"location":"x"}]}`)
	if _, err := d.Refresh(ctx, true); err == nil {
		t.Fatal("Refresh() should fail on a malformed source")
	}
	if d.holder.current.Load() != current {
		t.Error("Failed refresh must keep the current index")
	}
	if len(d.Sites()[0].Index.Docs) != 3 {
		t.Error("Failed refresh must keep the current sites")
	}
}

func TestRebuildFailureKeepsCache(t *testing.T) {
	dataDir := t.TempDir()
	srcDir := t.TempDir()
	path := writeSource(t, srcDir, "alpha.json", alphaIndex)
	cfg := testConfig(config.Source{Name: "alpha", URL: path})
	ctx := context.Background()

	d := NewDocSearch(cfg, dataDir, zaptest.NewLogger(t))
	if err := d.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	meta := filepath.Join(dataDir, cacheMetaFile)
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(meta, old, old); err != nil {
		t.Fatal(err)
	}
	cached, err := os.ReadFile(d.sourceCache("alpha"))
	if err != nil {
		t.Fatal(err)
	}

	// fetch succeeds, indexing does not
	writeSource(t, srcDir, "alpha.json", betaIndex)
	d.writeIndex = func(string, []indexing.DocChunk, *zap.Logger) error {
		return errors.New("disk full")
	}
	if _, err := d.Refresh(ctx, true); err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("Refresh() error = %v, want indexing failure", err)
	}

	if after, _ := os.ReadFile(d.sourceCache("alpha")); string(after) != string(cached) {
		t.Error("Failed rebuild must not replace the cached source")
	}
	if !d.needsRefresh() {
		t.Error("Failed rebuild must leave the cache stale")
	}
	if docs := d.Sites()[0].Index.Docs; len(docs) != 3 {
		t.Errorf("Failed rebuild replaced sites: %+v", docs)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// index and cache still agree after a restart
	os.Remove(path)
	restarted, logs := newObservedDocSearch(t, dataDir, cfg)
	if from := initializedFrom(logs); from != "local index" {
		t.Errorf("Restart initialized from %q, want local index", from)
	}
	_, found, err := restarted.SearchDocumentation(ctx, nil, SearchDocumentationInput{Query: "knobs"})
	if err != nil {
		t.Fatalf("SearchDocumentation() error = %v", err)
	}
	for _, r := range found.Results {
		if !strings.HasPrefix(r.Chunk.Page, "Alpha") {
			t.Errorf("Search returned %q from a page not in the cache", r.Chunk.Page)
		}
	}
	if len(found.Results) == 0 {
		t.Error("Search found nothing after restart")
	}
	if _, _, err := restarted.GetPage(ctx, nil, GetPageInput{Page: "Alpha Guide"}); err != nil {
		t.Errorf("GetPage() error = %v", err)
	}
}

func TestNeedsRefresh(t *testing.T) {
	srcDir := t.TempDir()
	path := writeSource(t, srcDir, "alpha.json", alphaIndex)

	t.Run("bundled never stale", func(t *testing.T) {
		d := NewDocSearch(testConfig(), t.TempDir(), zap.NewNop())
		if d.needsRefresh() {
			t.Error("Bundled index should never need refresh")
		}
	})

	t.Run("missing metadata", func(t *testing.T) {
		d := NewDocSearch(testConfig(config.Source{Name: "alpha", URL: path}), t.TempDir(), zap.NewNop())
		if !d.needsRefresh() {
			t.Error("Sources never fetched should need refresh")
		}
	})

	t.Run("expired", func(t *testing.T) {
		dataDir := t.TempDir()
		d := NewDocSearch(testConfig(config.Source{Name: "alpha", URL: path}), dataDir, zap.NewNop())
		meta := filepath.Join(dataDir, cacheMetaFile)
		os.MkdirAll(filepath.Dir(meta), 0755)
		if err := os.WriteFile(meta, []byte("last_update: old\n"), 0644); err != nil {
			t.Fatal(err)
		}
		old := time.Now().Add(-2 * time.Hour)
		if err := os.Chtimes(meta, old, old); err != nil {
			t.Fatal(err)
		}
		if !d.needsRefresh() {
			t.Error("Metadata older than TTL should need refresh")
		}

		d.cacheTTL = 0
		if d.needsRefresh() {
			t.Error("Zero TTL should disable expiry")
		}
	})
}

func TestCloseWithoutInitialize(t *testing.T) {
	d := NewDocSearch(testConfig(), t.TempDir(), zaptest.NewLogger(t))
	if err := d.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestUseAfterClose(t *testing.T) {
	dataDir := t.TempDir()
	d := NewDocSearch(testConfig(), dataDir, zaptest.NewLogger(t))
	ctx := context.Background()

	if err := d.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, _, err := d.SearchDocumentation(ctx, nil, SearchDocumentationInput{Query: "plots"}); !errors.Is(err, ErrNoIndex) {
		t.Errorf("SearchDocumentation() after Close error = %v, want ErrNoIndex", err)
	}
	if _, _, err := d.ListPages(ctx, nil, ListPagesInput{}); !errors.Is(err, ErrNoIndex) {
		t.Errorf("ListPages() after Close error = %v, want ErrNoIndex", err)
	}
	if err := d.Initialize(ctx); !errors.Is(err, ErrNoIndex) {
		t.Errorf("Initialize() after Close error = %v, want ErrNoIndex", err)
	}
	if _, err := d.Refresh(ctx, true); !errors.Is(err, ErrNoIndex) {
		t.Errorf("Refresh() after Close error = %v, want ErrNoIndex", err)
	}
	if d.holder.current.Load() != nil {
		t.Error("No index should be open after Close")
	}
	if _, err := os.Stat(filepath.Join(dataDir, lockFile)); !os.IsNotExist(err) {
		t.Error("Lock must not be taken again after Close")
	}
	if err := d.Close(); err != nil {
		t.Errorf("Second Close() error = %v", err)
	}
}

func TestCloseReportsIndexError(t *testing.T) {
	d := NewDocSearch(testConfig(), t.TempDir(), zaptest.NewLogger(t))
	mock := newMockIndex(1)
	mock.closeError = fmt.Errorf("disk on fire")
	idx := Index(mock)
	d.holder.current.Store(&idx)

	err := d.Close()
	if err == nil || !strings.Contains(err.Error(), "disk on fire") {
		t.Errorf("Close() error = %v, want close failure", err)
	}
	if !mock.IsClosed() {
		t.Error("Index should be closed")
	}
}

// --- Concurrency of the index holder, with mocks only ---

func TestIndexHolderConcurrentReads(t *testing.T) {
	mockIdx := newMockIndex(1)
	idx := Index(mockIdx)

	holder := &indexHolder{}
	holder.current.Store(&idx)

	const numReaders = 50
	errChan := make(chan error, numReaders)
	var readers sync.WaitGroup

	for i := 0; i < numReaders; i++ {
		readers.Add(1)
		go func(id int) {
			defer readers.Done()

			holder.wg.Add(1)
			defer holder.wg.Done()

			indexPtr := holder.current.Load()
			if indexPtr == nil {
				errChan <- fmt.Errorf("goroutine %d: got nil index", id)
				return
			}
			count, err := (*indexPtr).DocCount()
			if err != nil {
				errChan <- fmt.Errorf("goroutine %d: DocCount failed: %v", id, err)
				return
			}
			if count != 100 {
				errChan <- fmt.Errorf("goroutine %d: expected 100, got %d", id, count)
			}
		}(i)
	}

	readers.Wait()
	close(errChan)
	for err := range errChan {
		t.Error(err)
	}
	holder.wg.Wait()
}

func TestIndexHolderAtomicSwap(t *testing.T) {
	idx1 := Index(newMockIndex(1))
	idx2 := Index(newMockIndex(2))

	holder := &indexHolder{}
	holder.current.Store(&idx1)

	ptr1 := holder.current.Load()
	if ptr1 == nil || *ptr1 != idx1 {
		t.Fatal("Expected idx1")
	}

	oldPtr := holder.current.Swap(&idx2)
	if oldPtr == nil || *oldPtr != idx1 {
		t.Error("Old pointer should be idx1")
	}

	ptr2 := holder.current.Load()
	if ptr2 == nil || *ptr2 != idx2 {
		t.Error("Expected idx2")
	}
}

func TestRetireWaitsForSearches(t *testing.T) {
	d := NewDocSearch(testConfig(), t.TempDir(), zaptest.NewLogger(t))
	old := newMockIndex(1)
	oldIdx := Index(old)

	// A search is in flight on the old index
	d.holder.wg.Add(1)
	d.retire(&oldIdx)

	time.Sleep(20 * time.Millisecond)
	if old.IsClosed() {
		t.Fatal("Old index closed while a search was in flight")
	}

	d.holder.wg.Done()
	d.closers.Wait()
	if !old.IsClosed() {
		t.Error("Old index should be closed after searches drain")
	}

	// Nil is ignored
	d.retire(nil)
	d.closers.Wait()
}

func TestConcurrentSearchDuringRefresh(t *testing.T) {
	srcDir := t.TempDir()
	path := writeSource(t, srcDir, "alpha.json", alphaIndex)
	d := newTestDocSearch(t, t.TempDir(), testConfig(config.Source{Name: "alpha", URL: path}))
	ctx := context.Background()

	if err := d.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	var wg sync.WaitGroup
	errChan := make(chan error, 40)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := d.SearchDocumentation(ctx, nil, SearchDocumentationInput{Query: "knobs"}); err != nil {
				errChan <- err
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := d.Refresh(ctx, true); err != nil {
			errChan <- err
		}
	}()

	wg.Wait()
	close(errChan)
	for err := range errChan {
		t.Error(err)
	}
}
