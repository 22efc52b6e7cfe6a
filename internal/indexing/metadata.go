package indexing

import (
	"regexp"
	"strings"
	"unicode"
)

var markdownLinkRegex = regexp.MustCompile(`\[([^\]]+)\]\([^\)]+\)`)

const maxKeywords = 10

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "as": true, "by": true, "is": true,
	"it": true, "be": true, "with": true, "from": true, "that": true,
	"this": true, "are": true, "you": true, "can": true, "via": true,
}

// StripMarkdownLinks removes markdown link syntax, keeping only the text
// Example: "[Text](url)" -> "Text"
func StripMarkdownLinks(text string) string {
	return markdownLinkRegex.ReplaceAllString(text, "$1")
}

// EstimateTokens estimates the token count for a text string
func EstimateTokens(text string) int {
	return len(text) / CharsPerToken
}

// ExtractKeywords extracts key terms from title and the start of content, in
// order of first appearance
func ExtractKeywords(title, content string) []string {
	words := strings.Fields(strings.ToLower(title))

	contentPreview := content
	if len(content) > 200 {
		contentPreview = content[:200]
	}
	words = append(words, strings.Fields(strings.ToLower(contentPreview))...)

	seen := make(map[string]bool)
	keywords := make([]string, 0, maxKeywords)
	for _, word := range words {
		word = strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len(word) <= 2 || stopWords[word] || seen[word] {
			continue
		}
		seen[word] = true
		keywords = append(keywords, word)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}

// ResolveURL joins a site base URL and a fragment location the way the
// Documenter search widget does
func ResolveURL(baseURL, location string) string {
	if baseURL == "" {
		return location
	}
	return strings.TrimSuffix(baseURL, "/") + "/" + location
}

// EnrichMetadata adds breadcrumb, keywords and token count to a chunk
func EnrichMetadata(chunk *DocChunk) {
	var breadcrumb []string
	for _, part := range []string{chunk.Site, chunk.Page, chunk.Title} {
		if part == "" {
			continue
		}
		if n := len(breadcrumb); n > 0 && breadcrumb[n-1] == part {
			continue
		}
		breadcrumb = append(breadcrumb, part)
	}
	chunk.Breadcrumb = strings.Join(breadcrumb, " > ")

	chunk.Keywords = ExtractKeywords(chunk.Title, chunk.Content)
	chunk.TokenCount = EstimateTokens(chunk.Content)
}
