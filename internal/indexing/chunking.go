package indexing

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	"go.uber.org/zap"

	"github.com/docsearch/documenter-mcp/internal/searchindex"
)

// ForceSplitText splits text by character count at word boundaries, never
// cutting through a UTF-8 sequence
func ForceSplitText(text string, maxChars, overlapChars int) []string {
	if maxChars <= 0 {
		return []string{text}
	}

	var parts []string
	for len(text) > 0 {
		if len(text) <= maxChars {
			parts = append(parts, text)
			break
		}

		cut := maxChars
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		if cut == 0 {
			_, cut = utf8.DecodeRuneInString(text)
		}
		if cut >= len(text) {
			parts = append(parts, text)
			break
		}

		// Look back for space or newline
		for i := cut; i > cut-100 && i > 0; i-- {
			if text[i] == ' ' || text[i] == '\n' {
				cut = i
				break
			}
		}

		parts = append(parts, text[:cut])

		// Move forward with overlap
		next := cut - overlapChars
		if next <= 0 {
			next = cut
		}
		for next < cut && !utf8.RuneStart(text[next]) {
			next++
		}
		text = text[next:]
	}

	return parts
}

// overlapTail returns roughly the last n bytes of s, starting at a word
func overlapTail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	start := len(s) - n
	if i := strings.IndexAny(s[start:], " \n"); i >= 0 && i < n/2 {
		start += i + 1
	}
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return s[start:]
}

// SubdivideChunk splits a chunk whose content exceeds MaxChunkTokens along
// paragraph breaks, prefixing each subchunk with the tail of the previous one.
// Every returned chunk has its metadata enriched.
func SubdivideChunk(chunk DocChunk) []DocChunk {
	if EstimateTokens(chunk.Content) <= MaxChunkTokens {
		EnrichMetadata(&chunk)
		return []DocChunk{chunk}
	}

	maxChars := MaxChunkTokens * CharsPerToken
	targetChars := TargetChunkTokens * CharsPerToken
	overlapChars := OverlapTokens * CharsPerToken

	var parts []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			parts = append(parts, current.String())
			current.Reset()
		}
	}

	for _, para := range strings.Split(chunk.Content, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		// A single oversized paragraph is force-split on its own
		if len(para) > maxChars {
			flush()
			parts = append(parts, ForceSplitText(para, targetChars, 0)...)
			continue
		}

		if current.Len() > 0 && current.Len()+2+len(para) > targetChars {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()

	subchunks := make([]DocChunk, 0, len(parts))
	for i, part := range parts {
		sub := chunk
		sub.ID = fmt.Sprintf("%s_sub%d", chunk.ID, i)
		sub.Content = part
		if i > 0 {
			sub.Content = overlapTail(parts[i-1], overlapChars) + "\n\n" + part
		}
		EnrichMetadata(&sub)
		subchunks = append(subchunks, sub)
	}
	return subchunks
}

// ChunkID names the chunk built from the fragment at position
func ChunkID(site string, position int) string {
	if site == "" {
		return fmt.Sprintf("frag_%d", position)
	}
	return fmt.Sprintf("%s/%d", site, position)
}

// BuildChunks converts every fragment of idx into chunks, in source order.
// Sections with empty text still yield a chunk so their titles are searchable.
func BuildChunks(site, baseURL string, idx *searchindex.Index) []DocChunk {
	chunks := make([]DocChunk, 0, len(idx.Docs))
	for i, f := range idx.Docs {
		chunk := DocChunk{
			ID:       ChunkID(site, i),
			Site:     site,
			Location: f.Location,
			URL:      ResolveURL(baseURL, f.Location),
			Page:     f.Page,
			Title:    StripMarkdownLinks(f.Title),
			Category: string(f.Category),
			Content:  f.Text,
			Position: i,
		}
		chunks = append(chunks, SubdivideChunk(chunk)...)
	}
	return chunks
}

// IndexChunks writes chunks into index in batches of BatchSize
func IndexChunks(index bleve.Index, chunks []DocChunk, log *zap.Logger) error {
	batch := index.NewBatch()
	for i, chunk := range chunks {
		if err := batch.Index(chunk.ID, chunk); err != nil {
			return fmt.Errorf("failed to add chunk %s to batch: %w", chunk.ID, err)
		}

		if batch.Size() >= BatchSize {
			if err := index.Batch(batch); err != nil {
				return fmt.Errorf("failed to index batch: %w", err)
			}
			batch = index.NewBatch()
			log.Debug("Indexed chunks", zap.Int("done", i+1), zap.Int("total", len(chunks)))
		}
	}

	if batch.Size() > 0 {
		if err := index.Batch(batch); err != nil {
			return fmt.Errorf("failed to index final batch: %w", err)
		}
	}
	return nil
}

// AverageTokens calculates the average token count across chunks
func AverageTokens(chunks []DocChunk) int {
	if len(chunks) == 0 {
		return 0
	}
	total := 0
	for _, chunk := range chunks {
		total += chunk.TokenCount
	}
	return total / len(chunks)
}

// CountOversized counts chunks that exceed the maximum token limit
func CountOversized(chunks []DocChunk) int {
	count := 0
	for _, chunk := range chunks {
		if chunk.TokenCount > MaxChunkTokens {
			count++
		}
	}
	return count
}
