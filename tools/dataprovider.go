package tools

// DataProvider gives access to files bundled with the server, so tests can
// substitute their own bundle.
//
// Implementations:
//   - embeddedDataProvider: files compiled into the binary
//   - MockDataProvider: in-memory map for tests
type DataProvider interface {
	// ReadFile reads the named file, e.g. "data/search_index.js".
	ReadFile(name string) ([]byte, error)
}
