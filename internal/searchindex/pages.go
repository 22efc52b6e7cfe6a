package searchindex

import (
	"sort"
	"strings"

	"github.com/gosimple/slug"
	"github.com/maruel/natural"
)

// BaseLocation drops the #anchor from a fragment location
func BaseLocation(location string) string {
	base, _, _ := strings.Cut(location, "#")
	return base
}

// Pages groups fragments by page name in order of first appearance
func (idx *Index) Pages() []Page {
	var pages []Page
	pos := make(map[string]int)

	for _, f := range idx.Docs {
		i, ok := pos[f.Page]
		if !ok {
			i = len(pages)
			pos[f.Page] = i
			pages = append(pages, Page{
				Name:     f.Page,
				Slug:     slug.Make(f.Page),
				Location: BaseLocation(f.Location),
			})
		}
		pages[i].Fragments = append(pages[i].Fragments, f)
	}
	return pages
}

// SortedPages returns Pages ordered naturally by name ("Part 2" before "Part 10")
func (idx *Index) SortedPages() []Page {
	pages := idx.Pages()
	sort.SliceStable(pages, func(i, j int) bool {
		return natural.Less(pages[i].Name, pages[j].Name)
	})
	return pages
}

// Page finds a page by exact name, then by slug
func (idx *Index) Page(name string) (Page, bool) {
	pages := idx.Pages()
	for _, p := range pages {
		if p.Name == name {
			return p, true
		}
	}
	want := slug.Make(name)
	if want == "" {
		return Page{}, false
	}
	for _, p := range pages {
		if p.Slug == want {
			return p, true
		}
	}
	return Page{}, false
}

// Stats counts fragments by kind
func (idx *Index) Stats() Stats {
	s := Stats{Fragments: len(idx.Docs)}
	seenPages := make(map[string]struct{})
	seenLocations := make(map[string]struct{})

	for _, f := range idx.Docs {
		switch f.Category {
		case CategoryPage:
			s.PageFragments++
		case CategorySection:
			s.SectionFragments++
		}
		if f.Title == "" {
			s.EmptyTitles++
		}
		if f.Text == "" {
			s.EmptyTexts++
		}
		if _, ok := seenLocations[f.Location]; ok {
			s.DuplicateLocations++
		} else {
			seenLocations[f.Location] = struct{}{}
		}
		seenPages[f.Page] = struct{}{}
	}
	s.Pages = len(seenPages)
	return s
}
