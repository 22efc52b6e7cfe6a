package tools

import (
	"fmt"
	"sync/atomic"

	"github.com/blevesearch/bleve/v2"
)

// mockIndex is a minimal in-memory Index for testing
type mockIndex struct {
	id          int
	docCount    uint64
	searchError error
	closeError  error
	searches    atomic.Int32
	lastSize    atomic.Int32
	closed      atomic.Bool
}

func newMockIndex(id int) *mockIndex {
	return &mockIndex{
		id:       id,
		docCount: 100,
	}
}

func (m *mockIndex) Search(req *bleve.SearchRequest) (*bleve.SearchResult, error) {
	if m.closed.Load() {
		return nil, fmt.Errorf("index closed")
	}
	m.searches.Add(1)
	m.lastSize.Store(int32(req.Size))
	if m.searchError != nil {
		return nil, m.searchError
	}
	return &bleve.SearchResult{
		Request: req,
		Total:   m.docCount,
	}, nil
}

func (m *mockIndex) DocCount() (uint64, error) {
	if m.closed.Load() {
		return 0, fmt.Errorf("index closed")
	}
	return m.docCount, nil
}

func (m *mockIndex) Close() error {
	if m.closed.Load() {
		return fmt.Errorf("already closed")
	}
	m.closed.Store(true)
	return m.closeError
}

func (m *mockIndex) IsClosed() bool {
	return m.closed.Load()
}
