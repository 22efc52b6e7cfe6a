package tools

import "github.com/blevesearch/bleve/v2"

// Index is the part of bleve.Index the search tools use, small enough to
// mock in tests
type Index interface {
	Search(req *bleve.SearchRequest) (*bleve.SearchResult, error)
	DocCount() (uint64, error)
	Close() error
}

// bleveIndexWrapper adapts bleve.Index to Index
type bleveIndexWrapper struct {
	index bleve.Index
}

// NewBleveIndexWrapper wraps a bleve.Index
func NewBleveIndexWrapper(index bleve.Index) Index {
	return &bleveIndexWrapper{index: index}
}

func (w *bleveIndexWrapper) Search(req *bleve.SearchRequest) (*bleve.SearchResult, error) {
	return w.index.Search(req)
}

func (w *bleveIndexWrapper) DocCount() (uint64, error) {
	return w.index.DocCount()
}

func (w *bleveIndexWrapper) Close() error {
	return w.index.Close()
}

// openIndex opens the on-disk index at path
func openIndex(path string) (Index, error) {
	index, err := bleve.Open(path)
	if err != nil {
		return nil, err
	}
	return NewBleveIndexWrapper(index), nil
}
