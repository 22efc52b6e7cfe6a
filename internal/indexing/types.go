package indexing

// DocChunk is a searchable unit built from one search index fragment
type DocChunk struct {
	ID         string   `json:"id"`
	Site       string   `json:"site"`                  // Source name from configuration
	Location   string   `json:"location"`              // Documenter location: "saving/#Saving-Plots"
	URL        string   `json:"url,omitempty"`         // Base URL joined with location
	Page       string   `json:"page"`                  // Page the fragment belongs to
	Title      string   `json:"title"`                 // Section title, markdown links stripped
	Category   string   `json:"category"`              // "page" or "section"
	Content    string   `json:"content"`               // Fragment text (or a slice of it)
	Breadcrumb string   `json:"breadcrumb,omitempty"`  // "Site > Page > Title"
	Keywords   []string `json:"keywords,omitempty"`    // Key terms extracted from content
	TokenCount int      `json:"token_count,omitempty"` // Estimated token count for monitoring
	Position   int      `json:"position"`              // Fragment ordinal in the source index
}
