package tools

import "embed"

// The bundled search index is served whenever no source is configured or
// none can be fetched, so the server always has something to answer with.

const (
	bundledIndexFile = "data/search_index.js"
	bundledSite      = "plotlylight"
	bundledBaseURL   = "https://juliacomputing.github.io/PlotlyLight.jl/dev/"
)

//go:embed data/search_index.js
var embeddedFS embed.FS

// embeddedDataProvider implements DataProvider using embed.FS
type embeddedDataProvider struct {
	fs embed.FS
}

// NewEmbeddedDataProvider creates the DataProvider backed by files compiled
// into the binary.
func NewEmbeddedDataProvider() DataProvider {
	return &embeddedDataProvider{fs: embeddedFS}
}

func (p *embeddedDataProvider) ReadFile(name string) ([]byte, error) {
	return p.fs.ReadFile(name)
}
