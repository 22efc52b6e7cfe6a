package indexing

// Chunking strategy constants
const (
	// TargetChunkTokens is the optimal chunk size (~2000 chars)
	TargetChunkTokens = 500

	// MaxChunkTokens is the maximum before a fragment is subdivided (~3200 chars)
	MaxChunkTokens = 800

	// OverlapTokens is the overlap between consecutive subchunks (~400 chars)
	OverlapTokens = 100

	// CharsPerToken is the approximation for token estimation
	CharsPerToken = 4

	// BatchSize is the number of chunks submitted per bleve batch
	BatchSize = 100

	// IndexSchemaVersion increments when chunking logic or the mapping changes
	// v1: one chunk per fragment, keyword fields for site/category/location
	IndexSchemaVersion = 1
)
