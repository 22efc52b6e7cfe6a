package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/docsearch/documenter-mcp/internal/config"
	"github.com/docsearch/documenter-mcp/internal/indexing"
	"github.com/docsearch/documenter-mcp/internal/searchindex"
	"github.com/docsearch/documenter-mcp/internal/source"
)

const (
	sourcesDir    = "sources"
	cacheMetaFile = "sources/cache.meta"
	searchDir     = "search"
	indexDir      = "search/index"
	lockFile      = "search/index.lock"
	sitesFile     = "search/.index_sites"

	maxResultsCap = 20
)

var (
	// ErrNoIndex is returned when the search index cannot be brought up
	ErrNoIndex = errors.New("documentation index not available")
	// ErrNotFound is returned for a page that no site has
	ErrNotFound = errors.New("page not found")
	// ErrUnknownSite is returned for a site filter naming no loaded site
	ErrUnknownSite = errors.New("unknown site")
)

// Site is one loaded Documenter search index
type Site struct {
	Name    string
	BaseURL string
	Index   *searchindex.Index
}

// indexHolder manages concurrent access to the bleve index
type indexHolder struct {
	// current holds the active index, searches read it without locking
	current atomic.Pointer[Index]

	// refreshMu serializes initialization and refresh, never taken by searches
	refreshMu sync.Mutex

	// wg tracks in-flight searches so a replaced index is closed only after them
	wg sync.WaitGroup
}

// DocSearch serves documentation searches over one or more Documenter sites
type DocSearch struct {
	dataDir          string
	sources          []config.Source
	cacheTTL         time.Duration
	maxResults       int
	fetchConcurrency int
	provider         DataProvider
	log              *zap.Logger

	holder indexHolder
	sites  atomic.Pointer[[]Site]
	lock   *fileLock
	closed atomic.Bool

	// closers tracks background closes of replaced indexes
	closers sync.WaitGroup

	writeIndex func(path string, chunks []indexing.DocChunk, log *zap.Logger) error
}

// Option customizes a DocSearch
type Option func(*DocSearch)

// WithDataProvider replaces the source of the bundled search index
func WithDataProvider(p DataProvider) Option {
	return func(d *DocSearch) {
		d.provider = p
	}
}

// NewDocSearch prepares documentation search over the sources of cfg keeping
// its state under dataDir. Nothing is loaded until Initialize.
func NewDocSearch(cfg *config.Config, dataDir string, log *zap.Logger, opts ...Option) *DocSearch {
	log = log.Named("search")
	d := &DocSearch{
		dataDir:          dataDir,
		sources:          cfg.Sources,
		cacheTTL:         cfg.CacheTTL.Std(),
		maxResults:       cfg.MaxResults,
		fetchConcurrency: cfg.FetchConcurrency,
		provider:         NewEmbeddedDataProvider(),
		log:              log,
		lock:             newFileLock(filepath.Join(dataDir, lockFile), log),
		writeIndex:       indexing.WriteIndex,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *DocSearch) path(name string) string {
	return filepath.Join(d.dataDir, name)
}

// Sites returns the currently loaded sites, nil before Initialize
func (d *DocSearch) Sites() []Site {
	if p := d.sites.Load(); p != nil {
		return *p
	}
	return nil
}

// Initialize brings up the search index. A local index is reused when its
// schema version and site manifest match the cached sources; otherwise it is
// rebuilt from freshly fetched sources, or from the bundled index when no
// source is configured or reachable.
func (d *DocSearch) Initialize(ctx context.Context) error {
	d.holder.refreshMu.Lock()
	defer d.holder.refreshMu.Unlock()

	if d.closed.Load() {
		return ErrNoIndex
	}
	if d.holder.current.Load() != nil {
		return nil
	}

	start := time.Now()
	d.log.Debug("Initializing documentation search", zap.String("data_dir", d.dataDir))

	for _, dir := range []string{searchDir, sourcesDir} {
		if err := os.MkdirAll(d.path(dir), 0755); err != nil {
			return fmt.Errorf("failed to create %s directory: %w", dir, err)
		}
	}

	lockStart := time.Now()
	if err := d.lock.acquire(); err != nil {
		return fmt.Errorf("failed to acquire index lock: %w", err)
	}
	d.log.Debug("Lock acquired", zap.Duration("elapsed", time.Since(lockStart).Round(time.Millisecond)))

	sites, err := d.cachedSites()
	fetched := false
	if err == nil {
		if index, ok := d.openLocal(sites); ok {
			d.holder.current.Store(&index)
			d.sites.Store(&sites)
			count, _ := index.DocCount()
			d.log.Info("Documentation search initialized",
				zap.Uint64("docs", count),
				zap.Int("sites", len(sites)),
				zap.String("from", "local index"),
				zap.Duration("elapsed", time.Since(start).Round(time.Millisecond)))
			if d.needsRefresh() {
				d.log.Info("Cached documentation is stale, consider refresh_documentation_index",
					zap.Duration("ttl", d.cacheTTL))
			}
			return nil
		}
	} else {
		d.log.Debug("No usable cached sources", zap.Error(err))
		if sites, err = d.fetchSites(ctx); err == nil {
			fetched = len(d.sources) > 0
		} else {
			d.log.Warn("Unable to fetch documentation sources, serving bundled index", zap.Error(err))
			if sites, err = d.bundledSites(); err != nil {
				return err
			}
		}
	}

	if err := d.rebuild(sites, fetched); err != nil {
		return err
	}
	d.log.Info("Documentation search initialized",
		zap.Int("sites", len(sites)),
		zap.String("from", "new index"),
		zap.Duration("elapsed", time.Since(start).Round(time.Millisecond)))
	return nil
}

// openLocal opens the on-disk index when it was built by this schema version
// from exactly the content of these sites. An unusable index is removed.
func (d *DocSearch) openLocal(sites []Site) (Index, bool) {
	indexPath := d.path(indexDir)
	if _, err := os.Stat(indexPath); err != nil {
		return nil, false
	}

	if version := indexing.ReadVersion(d.path(searchDir)); version != indexing.IndexSchemaVersion {
		d.log.Info("Index schema version mismatch, invalidating old index",
			zap.Int("have", version), zap.Int("want", indexing.IndexSchemaVersion))
		d.removeLocal()
		return nil, false
	}

	want, err := siteManifest(sites)
	if err != nil {
		d.log.Warn("Unable to fingerprint cached sites", zap.Error(err))
		d.removeLocal()
		return nil, false
	}
	if built := d.readManifest(); !slices.Equal(built, want) {
		d.log.Info("Indexed sites differ from cached sites, invalidating old index",
			zap.Strings("have", built), zap.Strings("want", want))
		d.removeLocal()
		return nil, false
	}

	openStart := time.Now()
	index, err := openIndex(indexPath)
	if err != nil {
		d.log.Warn("Local index corrupted, removing",
			zap.Duration("elapsed", time.Since(openStart).Round(time.Millisecond)), zap.Error(err))
		d.removeLocal()
		return nil, false
	}
	return index, true
}

func (d *DocSearch) removeLocal() {
	os.RemoveAll(d.path(indexDir))
	os.Remove(filepath.Join(d.path(searchDir), indexing.VersionFile))
	os.Remove(d.path(sitesFile))
}

func siteNames(sites []Site) []string {
	names := make([]string, 0, len(sites))
	for _, s := range sites {
		names = append(names, s.Name)
	}
	return names
}

// siteManifest describes what an index was built from: one "name hash" line
// per site, the hash taken over its base URL and the canonical form of its
// search index
func siteManifest(sites []Site) ([]string, error) {
	lines := make([]string, 0, len(sites))
	for _, s := range sites {
		data, err := searchindex.Marshal(s.Index, searchindex.FormatJS)
		if err != nil {
			return nil, fmt.Errorf("site %s: %w", s.Name, err)
		}
		h := xxhash.New()
		h.WriteString(s.BaseURL + "\n")
		h.Write(data)
		lines = append(lines, fmt.Sprintf("%s %016x", s.Name, h.Sum64()))
	}
	return lines, nil
}

func (d *DocSearch) readManifest() []string {
	data, err := os.ReadFile(d.path(sitesFile))
	if err != nil {
		return nil
	}
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// writeFileAtomic replaces name with data through a temporary file in the
// same directory
func writeFileAtomic(name string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(name), "."+filepath.Base(name)+".*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	_, err = f.Write(data)
	err = multierr.Append(err, f.Close())
	if err == nil {
		err = os.Rename(tmp, name)
	}
	if err != nil {
		os.Remove(tmp)
	}
	return err
}

func (d *DocSearch) sourceCache(name string) string {
	return filepath.Join(d.path(sourcesDir), name+".js")
}

// cachedSites loads the sites the index should hold without touching the
// network: cached copies of configured sources, or the bundled index when
// none is configured
func (d *DocSearch) cachedSites() ([]Site, error) {
	if len(d.sources) == 0 {
		return d.bundledSites()
	}

	sites := make([]Site, 0, len(d.sources))
	for _, src := range d.sources {
		data, err := os.ReadFile(d.sourceCache(src.Name))
		if err != nil {
			return nil, fmt.Errorf("no cached copy of %s: %w", src.Name, err)
		}
		idx, err := searchindex.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("cached copy of %s: %w", src.Name, err)
		}
		sites = append(sites, Site{Name: src.Name, BaseURL: src.BaseURL, Index: idx})
	}
	return sites, nil
}

// bundledSites returns the single site compiled into the binary
func (d *DocSearch) bundledSites() ([]Site, error) {
	data, err := d.provider.ReadFile(bundledIndexFile)
	if err != nil {
		return nil, fmt.Errorf("%w: bundled index missing: %w", ErrNoIndex, err)
	}
	idx, err := searchindex.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: bundled index: %w", ErrNoIndex, err)
	}
	return []Site{{Name: bundledSite, BaseURL: bundledBaseURL, Index: idx}}, nil
}

// fetchSites downloads and parses every configured source. Nothing is
// written until the sites are indexed.
func (d *DocSearch) fetchSites(ctx context.Context) ([]Site, error) {
	if len(d.sources) == 0 {
		return d.bundledSites()
	}

	refs := make([]string, 0, len(d.sources))
	for _, src := range d.sources {
		refs = append(refs, src.URL)
	}

	fetchStart := time.Now()
	payloads, err := source.FetchAll(ctx, refs, d.fetchConcurrency)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	d.log.Debug("Sources fetched", zap.Int("count", len(payloads)),
		zap.Duration("elapsed", time.Since(fetchStart).Round(time.Millisecond)))

	sites := make([]Site, 0, len(d.sources))
	for i, src := range d.sources {
		idx, err := searchindex.Parse(payloads[i])
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.Name, err)
		}
		if err := idx.Check(); err != nil {
			d.log.Warn("Source failed semantic checks", zap.String("site", src.Name), zap.Error(err))
		}
		sites = append(sites, Site{Name: src.Name, BaseURL: src.BaseURL, Index: idx})
	}
	return sites, nil
}

// persistSources caches each fetched site and stamps the cache time, the
// stamp last so an interrupted write leaves the cache stale
func (d *DocSearch) persistSources(sites []Site) error {
	for _, site := range sites {
		data, err := searchindex.Marshal(site.Index, searchindex.FormatJS)
		if err != nil {
			return err
		}
		if err := writeFileAtomic(d.sourceCache(site.Name), data); err != nil {
			return fmt.Errorf("failed to cache %s: %w", site.Name, err)
		}
	}
	meta := fmt.Sprintf("last_update: %s\n", time.Now().Format(time.RFC3339))
	if err := writeFileAtomic(d.path(cacheMetaFile), []byte(meta)); err != nil {
		return fmt.Errorf("failed to write cache metadata: %w", err)
	}
	return nil
}

// lastUpdate returns the time sources were last fetched
func (d *DocSearch) lastUpdate() (time.Time, bool) {
	info, err := os.Stat(d.path(cacheMetaFile))
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

// needsRefresh reports whether cached sources are older than cache_ttl. The
// bundled index never goes stale and a zero TTL disables expiry.
func (d *DocSearch) needsRefresh() bool {
	if len(d.sources) == 0 {
		return false
	}
	updated, ok := d.lastUpdate()
	if !ok {
		return true
	}
	return d.cacheTTL > 0 && time.Since(updated) > d.cacheTTL
}

// rebuild indexes sites into a temporary directory, moves it into place and
// swaps it in. The replaced index is closed once in-flight searches finish.
// Fetched sites are cached only after the swap; a manifest of the indexed
// content lets the next start detect an index and cache that disagree.
func (d *DocSearch) rebuild(sites []Site, fetched bool) error {
	start := time.Now()

	manifest, err := siteManifest(sites)
	if err != nil {
		return err
	}

	var chunks []indexing.DocChunk
	for _, site := range sites {
		siteChunks := indexing.BuildChunks(site.Name, site.BaseURL, site.Index)
		d.log.Debug("Site chunked", zap.String("site", site.Name), zap.Int("chunks", len(siteChunks)),
			zap.Int("avg_tokens", indexing.AverageTokens(siteChunks)),
			zap.Int("oversized", indexing.CountOversized(siteChunks)))
		chunks = append(chunks, siteChunks...)
	}

	indexPath := d.path(indexDir)
	tempPath := indexPath + ".tmp"

	indexStart := time.Now()
	if err := d.writeIndex(tempPath, chunks, d.log); err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	d.log.Debug("Temp index written", zap.Int("chunks", len(chunks)),
		zap.Duration("elapsed", time.Since(indexStart).Round(time.Millisecond)))

	// an index without a manifest is never reused
	if err := os.Remove(d.path(sitesFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		os.RemoveAll(tempPath)
		return fmt.Errorf("failed to remove index site manifest: %w", err)
	}
	if err := os.RemoveAll(indexPath); err != nil {
		os.RemoveAll(tempPath)
		return fmt.Errorf("failed to remove old index: %w", err)
	}
	if err := os.Rename(tempPath, indexPath); err != nil {
		os.RemoveAll(tempPath)
		return fmt.Errorf("failed to rename temp index: %w", err)
	}

	index, err := openIndex(indexPath)
	if err != nil {
		return fmt.Errorf("failed to open new index: %w", err)
	}

	old := d.holder.current.Swap(&index)
	d.sites.Store(&sites)
	d.retire(old)

	if err := indexing.WriteVersion(d.path(searchDir)); err != nil {
		d.log.Warn("Failed to write index version", zap.Error(err))
	}
	if err := writeFileAtomic(d.path(sitesFile), []byte(strings.Join(manifest, "\n")+"\n")); err != nil {
		d.log.Warn("Failed to write index site manifest", zap.Error(err))
	}
	if fetched {
		if err := d.persistSources(sites); err != nil {
			d.log.Warn("Failed to cache fetched sources", zap.Error(err))
		}
	}

	d.log.Info("Index swapped in", zap.Int("chunks", len(chunks)),
		zap.Duration("elapsed", time.Since(start).Round(time.Millisecond)))
	return nil
}

// retire closes a replaced index in the background after in-flight searches
func (d *DocSearch) retire(old *Index) {
	if old == nil {
		return
	}
	d.closers.Add(1)
	go func() {
		defer d.closers.Done()
		waitStart := time.Now()
		d.holder.wg.Wait()
		if err := (*old).Close(); err != nil {
			d.log.Warn("Error closing old index", zap.Error(err))
			return
		}
		d.log.Debug("Old index closed", zap.Duration("waited", time.Since(waitStart).Round(time.Millisecond)))
	}()
}

// Refresh fetches all sources again and rebuilds the index when the cache is
// stale or force is set. It reports whether a rebuild happened.
func (d *DocSearch) Refresh(ctx context.Context, force bool) (bool, error) {
	if !force && !d.needsRefresh() {
		d.log.Debug("Documentation cache is fresh, skipping refresh")
		return false, nil
	}

	d.holder.refreshMu.Lock()
	defer d.holder.refreshMu.Unlock()

	if d.closed.Load() {
		return false, ErrNoIndex
	}

	// Another caller may have refreshed while we waited
	if !force && !d.needsRefresh() {
		d.log.Debug("Documentation was refreshed concurrently, skipping")
		return false, nil
	}

	start := time.Now()
	d.log.Info("Starting documentation refresh", zap.Bool("force", force))

	if err := d.lock.acquire(); err != nil {
		return false, fmt.Errorf("failed to acquire lock for refresh: %w", err)
	}

	sites, err := d.fetchSites(ctx)
	if err != nil {
		return false, err
	}
	if err := d.rebuild(sites, len(d.sources) > 0); err != nil {
		return false, err
	}

	d.log.Info("Documentation refresh completed", zap.Duration("elapsed", time.Since(start).Round(time.Millisecond)))
	return true, nil
}

// acquire returns the current index, initializing on first use. Callers must
// call d.holder.wg.Done when finished with it.
func (d *DocSearch) acquire(ctx context.Context) (Index, error) {
	d.holder.wg.Add(1)
	if d.closed.Load() {
		d.holder.wg.Done()
		return nil, ErrNoIndex
	}
	if p := d.holder.current.Load(); p != nil {
		return *p, nil
	}

	d.log.Info("Doc index not initialized, initializing now")
	if err := d.Initialize(ctx); err != nil {
		d.holder.wg.Done()
		return nil, fmt.Errorf("failed to initialize documentation index: %w", err)
	}
	if p := d.holder.current.Load(); p != nil {
		return *p, nil
	}
	d.holder.wg.Done()
	return nil, ErrNoIndex
}

// findSites returns the loaded sites matching name, all of them when empty
func (d *DocSearch) findSites(name string) ([]Site, error) {
	sites := d.Sites()
	if name == "" {
		return sites, nil
	}
	for _, s := range sites {
		if s.Name == name {
			return []Site{s}, nil
		}
	}
	return nil, fmt.Errorf("%w: %q (have %s)", ErrUnknownSite, name, strings.Join(siteNames(sites), ", "))
}

// Close closes the index after in-flight searches and releases the lock.
// Later calls find no index.
func (d *DocSearch) Close() error {
	var err error

	d.closed.Store(true)
	// wait out an initialization or refresh in progress
	d.holder.refreshMu.Lock()
	p := d.holder.current.Swap(nil)
	d.holder.refreshMu.Unlock()

	if p != nil {
		d.log.Debug("Waiting for in-flight searches before closing")
		d.holder.wg.Wait()
		if cerr := (*p).Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("failed to close doc index: %w", cerr))
		}
	}
	d.closers.Wait()

	// Always attempt to release the lock, even if close failed
	if lerr := d.lock.release(); lerr != nil {
		err = multierr.Append(err, fmt.Errorf("failed to release index lock: %w", lerr))
	}
	if err == nil {
		d.log.Debug("Documentation search closed")
	}
	return err
}
