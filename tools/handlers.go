package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/docsearch/documenter-mcp/internal/indexing"
	"github.com/docsearch/documenter-mcp/internal/searchindex"
)

// SearchResult represents a search result with score
type SearchResult struct {
	Chunk indexing.DocChunk `json:"chunk"`
	Score float64           `json:"score"`
}

// SearchDocumentationInput defines input for search_documentation tool
type SearchDocumentationInput struct {
	Query      string `json:"query" jsonschema:"Search query for documentation"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"Maximum number of results (optional, defaults to 10, at most 20)"`
	Category   string `json:"category,omitempty" jsonschema:"Only return fragments of this category: page or section (optional)"`
	Site       string `json:"site,omitempty" jsonschema:"Only search this documentation site (optional)"`
}

// SearchDocumentationOutput defines output for search_documentation tool
type SearchDocumentationOutput struct {
	Results    []SearchResult `json:"results"`
	Query      string         `json:"query"`
	TotalHits  int            `json:"total_hits"`
	SourceURLs []string       `json:"source_urls"`
}

// ListPagesInput defines input for list_pages tool
type ListPagesInput struct {
	Site   string `json:"site,omitempty" jsonschema:"Only list pages of this documentation site (optional)"`
	Sorted bool   `json:"sorted,omitempty" jsonschema:"Order pages by name instead of navigation order (optional)"`
}

// PageSummary describes one page without its content
type PageSummary struct {
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Location  string `json:"location"`
	URL       string `json:"url,omitempty"`
	Fragments int    `json:"fragments"`
	Sections  int    `json:"sections"`
}

// SitePages lists the pages of one site
type SitePages struct {
	Site    string        `json:"site"`
	BaseURL string        `json:"base_url,omitempty"`
	Pages   []PageSummary `json:"pages"`
}

// ListPagesOutput defines output for list_pages tool
type ListPagesOutput struct {
	Sites      []SitePages `json:"sites"`
	TotalPages int         `json:"total_pages"`
}

// GetPageInput defines input for get_page tool
type GetPageInput struct {
	Page string `json:"page" jsonschema:"Page title or slug, e.g. Saving Plots or saving-plots"`
	Site string `json:"site,omitempty" jsonschema:"Documentation site to look in (optional, defaults to all)"`
}

// PageFragment is a fragment of a page with its resolved URL
type PageFragment struct {
	Location string `json:"location"`
	URL      string `json:"url,omitempty"`
	Title    string `json:"title"`
	Text     string `json:"text"`
	Category string `json:"category"`
}

// GetPageOutput defines output for get_page tool
type GetPageOutput struct {
	Site      string         `json:"site"`
	Page      string         `json:"page"`
	Slug      string         `json:"slug"`
	URL       string         `json:"url,omitempty"`
	Fragments []PageFragment `json:"fragments"`
}

// ValidateSearchIndexInput defines input for validate_search_index tool
type ValidateSearchIndexInput struct {
	Source string `json:"source" jsonschema:"Path or URL of a search_index.js, a Documenter site root URL, or the index content itself"`
}

// RefreshDocumentationIndexInput defines input for refresh_documentation_index tool
type RefreshDocumentationIndexInput struct {
	Force bool `json:"force,omitempty" jsonschema:"Force re-download and re-indexing (optional, defaults to false)"`
}

// RefreshDocumentationIndexOutput defines output for refresh_documentation_index tool
type RefreshDocumentationIndexOutput struct {
	Updated       bool      `json:"updated"`
	LastUpdate    time.Time `json:"last_update"`
	ChunksIndexed int       `json:"chunks_indexed"`
	Message       string    `json:"message"`
}

// SearchDocumentation runs a full-text search over all loaded sites
func (d *DocSearch) SearchDocumentation(ctx context.Context, req *mcp.CallToolRequest, input SearchDocumentationInput) (*mcp.CallToolResult, SearchDocumentationOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, SearchDocumentationOutput{}, fmt.Errorf("query must not be empty")
	}
	if input.Category != "" && !searchindex.Category(input.Category).Valid() {
		return nil, SearchDocumentationOutput{}, fmt.Errorf("%w: %q (want page or section)", searchindex.ErrBadCategory, input.Category)
	}

	index, err := d.acquire(ctx)
	if err != nil {
		return nil, SearchDocumentationOutput{}, err
	}
	defer d.holder.wg.Done()

	sites, err := d.findSites(input.Site)
	if err != nil {
		return nil, SearchDocumentationOutput{}, err
	}

	maxResults := input.MaxResults
	switch {
	case maxResults <= 0:
		maxResults = d.maxResults
	case maxResults > maxResultsCap:
		maxResults = maxResultsCap
	}

	search := bleve.NewSearchRequest(indexing.NewQuery(query, input.Category, input.Site))
	search.Size = maxResults
	search.Fields = []string{"*"}

	searchResults, err := index.Search(search)
	if err != nil {
		return nil, SearchDocumentationOutput{}, fmt.Errorf("search failed: %w", err)
	}

	results := make([]SearchResult, 0, len(searchResults.Hits))
	for _, hit := range searchResults.Hits {
		results = append(results, SearchResult{
			Chunk: indexing.ChunkFromFields(hit.ID, hit.Fields),
			Score: hit.Score,
		})
	}

	sourceURLs := make([]string, 0, len(sites))
	for _, s := range sites {
		if s.BaseURL != "" {
			sourceURLs = append(sourceURLs, s.BaseURL)
		}
	}

	d.log.Debug("Search", zap.String("query", query), zap.Int("hits", len(results)), zap.Uint64("total", searchResults.Total))
	return nil, SearchDocumentationOutput{
		Results:    results,
		Query:      query,
		TotalHits:  int(searchResults.Total),
		SourceURLs: sourceURLs,
	}, nil
}

// ListPages lists the pages of every loaded site
func (d *DocSearch) ListPages(ctx context.Context, req *mcp.CallToolRequest, input ListPagesInput) (*mcp.CallToolResult, ListPagesOutput, error) {
	if _, err := d.acquire(ctx); err != nil {
		return nil, ListPagesOutput{}, err
	}
	defer d.holder.wg.Done()

	sites, err := d.findSites(input.Site)
	if err != nil {
		return nil, ListPagesOutput{}, err
	}

	output := ListPagesOutput{Sites: make([]SitePages, 0, len(sites))}
	for _, site := range sites {
		pages := site.Index.Pages()
		if input.Sorted {
			pages = site.Index.SortedPages()
		}
		sp := SitePages{Site: site.Name, BaseURL: site.BaseURL, Pages: make([]PageSummary, 0, len(pages))}
		for _, p := range pages {
			sp.Pages = append(sp.Pages, PageSummary{
				Name:      p.Name,
				Slug:      p.Slug,
				Location:  p.Location,
				URL:       pageURL(site, p),
				Fragments: len(p.Fragments),
				Sections:  p.Sections(),
			})
		}
		output.TotalPages += len(sp.Pages)
		output.Sites = append(output.Sites, sp)
	}
	return nil, output, nil
}

// GetPage returns every fragment of one page in document order
func (d *DocSearch) GetPage(ctx context.Context, req *mcp.CallToolRequest, input GetPageInput) (*mcp.CallToolResult, GetPageOutput, error) {
	name := strings.TrimSpace(input.Page)
	if name == "" {
		return nil, GetPageOutput{}, fmt.Errorf("page must not be empty")
	}

	if _, err := d.acquire(ctx); err != nil {
		return nil, GetPageOutput{}, err
	}
	defer d.holder.wg.Done()

	sites, err := d.findSites(input.Site)
	if err != nil {
		return nil, GetPageOutput{}, err
	}

	for _, site := range sites {
		page, ok := site.Index.Page(name)
		if !ok {
			continue
		}
		output := GetPageOutput{
			Site:      site.Name,
			Page:      page.Name,
			Slug:      page.Slug,
			URL:       pageURL(site, page),
			Fragments: make([]PageFragment, 0, len(page.Fragments)),
		}
		for _, f := range page.Fragments {
			pf := PageFragment{
				Location: f.Location,
				Title:    indexing.StripMarkdownLinks(f.Title),
				Text:     f.Text,
				Category: string(f.Category),
			}
			if site.BaseURL != "" {
				pf.URL = indexing.ResolveURL(site.BaseURL, f.Location)
			}
			output.Fragments = append(output.Fragments, pf)
		}
		return nil, output, nil
	}
	return nil, GetPageOutput{}, fmt.Errorf("%w: %q", ErrNotFound, name)
}

func pageURL(site Site, p searchindex.Page) string {
	if site.BaseURL == "" {
		return ""
	}
	return indexing.ResolveURL(site.BaseURL, p.Location)
}

// ValidateSearchIndex checks a search index given by path, URL or content
func (d *DocSearch) ValidateSearchIndex(ctx context.Context, req *mcp.CallToolRequest, input ValidateSearchIndexInput) (*mcp.CallToolResult, ValidationReport, error) {
	report, err := ValidateSource(ctx, input.Source)
	if err != nil {
		return nil, ValidationReport{}, err
	}
	d.log.Debug("Validated search index", zap.Bool("valid", report.Valid), zap.Int("problems", len(report.Problems)))
	return nil, report, nil
}

// RefreshDocumentationIndex re-fetches sources and rebuilds the index
func (d *DocSearch) RefreshDocumentationIndex(ctx context.Context, req *mcp.CallToolRequest, input RefreshDocumentationIndexInput) (*mcp.CallToolResult, RefreshDocumentationIndexOutput, error) {
	output := RefreshDocumentationIndexOutput{}

	if len(d.sources) == 0 && !input.Force {
		output.Message = "No documentation sources configured, serving the bundled index"
		return nil, output, nil
	}

	if !input.Force && !d.needsRefresh() {
		if updated, ok := d.lastUpdate(); ok {
			output.LastUpdate = updated
			output.Message = fmt.Sprintf("Cache is fresh (last updated: %s)", updated.Format(time.RFC3339))
			return nil, output, nil
		}
	}

	updated, err := d.Refresh(ctx, input.Force)
	if err != nil {
		return nil, output, fmt.Errorf("refresh failed: %w", err)
	}

	if p := d.holder.current.Load(); p != nil {
		count, _ := (*p).DocCount()
		output.ChunksIndexed = int(count)
	}

	output.Updated = updated
	output.LastUpdate = time.Now()
	if t, ok := d.lastUpdate(); ok {
		output.LastUpdate = t
	}
	if updated {
		output.Message = fmt.Sprintf("Documentation refreshed successfully, %d chunks indexed", output.ChunksIndexed)
	} else {
		output.Message = "Documentation was refreshed concurrently, nothing to do"
	}
	return nil, output, nil
}

// Register adds the documentation tools to server
func (d *DocSearch) Register(server *mcp.Server) {
	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "search_documentation",
			Description: "Search the indexed Documenter.jl documentation using full-text search. Section titles weigh more than page titles, which weigh more than body text. Returns the most relevant fragments with their URLs.",
		},
		d.SearchDocumentation,
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "list_pages",
			Description: "List the pages of each indexed documentation site with their fragment and section counts.",
		},
		d.ListPages,
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "get_page",
			Description: "Return every fragment of a documentation page, looked up by page title or slug.",
		},
		d.GetPage,
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "validate_search_index",
			Description: "Validate a Documenter.jl search_index.js (path, URL or content) and report every shape problem plus index statistics.",
		},
		d.ValidateSearchIndex,
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "refresh_documentation_index",
			Description: "Re-download and re-index the configured documentation sources (runs only when the cache is older than cache_ttl unless forced).",
		},
		d.RefreshDocumentationIndex,
	)
}
