package search

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/armon/go-radix"
	"github.com/spf13/afero"
)

// Index file names, relative to the output directory.
const (
	Dir       = "pagefind"
	EntryFile = "pagefind-entry.json"
	IndexFile = "pagefind-index.json"
)

// FormatVersion is written into the entry file.
const FormatVersion = 1

// Page is one indexed document.
type Page struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Excerpt     string `json:"excerpt"`
	Fingerprint string `json:"fingerprint,omitempty"`
	WordCount   int    `json:"wordCount"`
}

// Entry is the content of pagefind-entry.json.
type Entry struct {
	Version int    `json:"version"`
	Pages   []Page `json:"pages"`
}

// Posting records how often a term occurs in a page.
type Posting struct {
	Page  int `json:"p"`
	Count int `json:"c"`
}

// Postings is the content of pagefind-index.json: term to postings.
type Postings map[string][]Posting

// Builder accumulates documents into an index.
type Builder struct {
	pages    []Page
	postings Postings
}

// NewBuilder returns an empty index builder.
func NewBuilder() *Builder {
	return &Builder{postings: make(Postings)}
}

// Add indexes one page. text is the page's indexable plain text.
func (b *Builder) Add(p Page, text string) {
	terms := Tokenize(text)
	p.WordCount = len(terms)
	id := len(b.pages)
	b.pages = append(b.pages, p)

	counts := make(map[string]int)
	for _, t := range terms {
		counts[t]++
	}
	for term, n := range counts {
		b.postings[term] = append(b.postings[term], Posting{Page: id, Count: n})
	}
}

// Len returns the number of indexed pages.
func (b *Builder) Len() int { return len(b.pages) }

// Files renders the entry and index files.
func (b *Builder) Files() (entry []byte, index []byte, err error) {
	entry, err = json.Marshal(Entry{Version: FormatVersion, Pages: b.pages})
	if err != nil {
		return nil, nil, err
	}
	index, err = json.Marshal(b.postings)
	if err != nil {
		return nil, nil, err
	}
	return entry, index, nil
}

// Index answers queries over a loaded index.
type Index struct {
	pages []Page
	tree  *radix.Tree
}

// Load reads the index written below outDir.
func Load(fs afero.Fs, outDir string) (*Index, error) {
	entryData, err := afero.ReadFile(fs, filepath.Join(outDir, Dir, EntryFile))
	if err != nil {
		return nil, fmt.Errorf("read search entry: %w", err)
	}
	indexData, err := afero.ReadFile(fs, filepath.Join(outDir, Dir, IndexFile))
	if err != nil {
		return nil, fmt.Errorf("read search index: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(entryData, &entry); err != nil {
		return nil, fmt.Errorf("decode search entry: %w", err)
	}
	if entry.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported search index version %d", entry.Version)
	}
	var postings Postings
	if err := json.Unmarshal(indexData, &postings); err != nil {
		return nil, fmt.Errorf("decode search index: %w", err)
	}
	return NewIndex(entry.Pages, postings), nil
}

// NewIndex builds a queryable index from decoded files.
func NewIndex(pages []Page, postings Postings) *Index {
	tree := radix.New()
	for term, p := range postings {
		tree.Insert(term, p)
	}
	return &Index{pages: pages, tree: tree}
}

// Result is a ranked match.
type Result struct {
	Page
	Score float64
}

// Search returns pages matching every query term. The last term also
// matches as a prefix, so "stat" finds "static". Pages are ranked by summed
// term frequency; exact matches weigh double.
func (ix *Index) Search(query string) []Result {
	terms := Tokenize(query)
	if len(terms) == 0 {
		return nil
	}

	var scores map[int]float64
	for i, term := range terms {
		prefix := i == len(terms)-1
		termScores := ix.match(term, prefix)
		if scores == nil {
			scores = termScores
			continue
		}
		for page, s := range scores {
			if ts, ok := termScores[page]; ok {
				scores[page] = s + ts
			} else {
				delete(scores, page)
			}
		}
	}

	results := make([]Result, 0, len(scores))
	for page, score := range scores {
		if page < 0 || page >= len(ix.pages) {
			continue
		}
		results = append(results, Result{Page: ix.pages[page], Score: score})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].URL < results[j].URL
	})
	return results
}

func (ix *Index) match(term string, prefix bool) map[int]float64 {
	scores := make(map[int]float64)
	add := func(v any, weight float64) {
		for _, p := range v.([]Posting) {
			scores[p.Page] += float64(p.Count) * weight
		}
	}
	if v, ok := ix.tree.Get(term); ok {
		add(v, 2)
	}
	if prefix {
		ix.tree.WalkPrefix(term, func(key string, v any) bool {
			if key != term {
				add(v, 1)
			}
			return false
		})
	}
	return scores
}
