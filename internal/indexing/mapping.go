package indexing

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
)

const (
	titleBoost = 3.0
	pageBoost  = 1.5
)

// NewMapping returns the bleve mapping for DocChunk documents. Identifiers
// are indexed verbatim so they can be used as exact filters.
func NewMapping() *mapping.IndexMappingImpl {
	keywordField := bleve.NewKeywordFieldMapping()

	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = en.AnalyzerName

	numericField := bleve.NewNumericFieldMapping()

	chunk := bleve.NewDocumentMapping()
	for _, name := range []string{"id", "site", "category", "location", "url"} {
		chunk.AddFieldMappingsAt(name, keywordField)
	}
	for _, name := range []string{"page", "title", "content", "breadcrumb", "keywords"} {
		chunk.AddFieldMappingsAt(name, textField)
	}
	for _, name := range []string{"position", "token_count"} {
		chunk.AddFieldMappingsAt(name, numericField)
	}

	im := bleve.NewIndexMapping()
	im.DefaultMapping = chunk
	im.DefaultAnalyzer = en.AnalyzerName
	return im
}

// NewQuery builds a search over title, page and content with titles
// weighted highest. Non-empty category and site restrict hits exactly.
func NewQuery(text, category, site string) query.Query {
	title := bleve.NewMatchQuery(text)
	title.SetField("title")
	title.SetBoost(titleBoost)

	page := bleve.NewMatchQuery(text)
	page.SetField("page")
	page.SetBoost(pageBoost)

	content := bleve.NewMatchQuery(text)
	content.SetField("content")

	var q query.Query = bleve.NewDisjunctionQuery(title, page, content)

	filters := []query.Query{q}
	if category != "" {
		term := bleve.NewTermQuery(category)
		term.SetField("category")
		filters = append(filters, term)
	}
	if site != "" {
		term := bleve.NewTermQuery(site)
		term.SetField("site")
		filters = append(filters, term)
	}
	if len(filters) > 1 {
		q = bleve.NewConjunctionQuery(filters...)
	}
	return q
}

// ChunkFromFields rebuilds a DocChunk from the stored fields of a search hit
func ChunkFromFields(id string, fields map[string]interface{}) DocChunk {
	chunk := DocChunk{ID: id}

	str := func(name string) string {
		s, _ := fields[name].(string)
		return s
	}
	chunk.Site = str("site")
	chunk.Location = str("location")
	chunk.URL = str("url")
	chunk.Page = str("page")
	chunk.Title = str("title")
	chunk.Category = str("category")
	chunk.Content = str("content")
	chunk.Breadcrumb = str("breadcrumb")

	// A single stored value comes back as a scalar, several as a slice
	switch kw := fields["keywords"].(type) {
	case string:
		chunk.Keywords = []string{kw}
	case []interface{}:
		chunk.Keywords = make([]string, 0, len(kw))
		for _, v := range kw {
			if s, ok := v.(string); ok {
				chunk.Keywords = append(chunk.Keywords, s)
			}
		}
	}

	if n, ok := fields["token_count"].(float64); ok {
		chunk.TokenCount = int(n)
	}
	if n, ok := fields["position"].(float64); ok {
		chunk.Position = int(n)
	}
	return chunk
}
