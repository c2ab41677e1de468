// Package search implements ranked fuzzy search over catalog item views.
//
// An Index is built from one snapshot and never changes. Items are matched
// on three weighted fields: name, search aliases, and note. Matching is case
// and width insensitive, treats hiragana and katakana as equal, and tolerates
// a bounded number of edits against any substring of a field, so partial and
// slightly misspelled queries still hit.
package search

import (
	"cmp"
	"math"
	"slices"

	"github.com/mesh-intelligence/bunbetsu/pkg/types"
)

type field int

const (
	fieldName field = iota
	fieldAliases
	fieldNote
	numFields
)

// Weights sets the relative importance of each matched field.
type Weights struct {
	Name    float64
	Aliases float64
	Note    float64
}

// Options tunes matching.
type Options struct {
	Weights Weights
	// Threshold is the tolerated fraction of edits relative to the query
	// length, between 0 (exact substring only) and 1.
	Threshold float64
	// ExactBonus is added to a field's score when the whole field equals
	// the query.
	ExactBonus float64
}

// DefaultOptions returns the standard weights and threshold.
func DefaultOptions() Options {
	return Options{
		Weights:    Weights{Name: 1.0, Aliases: 0.6, Note: 0.3},
		Threshold:  0.4,
		ExactBonus: 0.5,
	}
}

// Match is a ranked search result.
type Match struct {
	Item  types.ItemView
	Score float64
}

// Index is an immutable search index over a snapshot of item views.
type Index struct {
	items  []types.ItemView
	fields [][numFields][]rune
	opts   Options
}

// BuildIndex indexes items with DefaultOptions. The input slice is copied
// and never modified.
func BuildIndex(items []types.ItemView) *Index {
	return BuildIndexWithOptions(items, DefaultOptions())
}

// BuildIndexWithOptions indexes items with the given options.
func BuildIndexWithOptions(items []types.ItemView, opts Options) *Index {
	ix := &Index{
		items:  slices.Clone(items),
		fields: make([][numFields][]rune, len(items)),
		opts:   opts,
	}
	for i, it := range ix.items {
		ix.fields[i][fieldName] = appendNormalized(nil, it.Name)
		ix.fields[i][fieldAliases] = appendNormalized(nil, it.SearchAliases)
		ix.fields[i][fieldNote] = appendNormalized(nil, it.Note)
	}
	return ix
}

// Len returns the number of indexed items.
func (ix *Index) Len() int {
	return len(ix.items)
}

// Search returns the items matching query, best first. A blank query
// returns every item in snapshot order.
func (ix *Index) Search(query string) []types.ItemView {
	if isBlank(query) {
		return slices.Clone(ix.items)
	}
	matches := ix.SearchScored(query)
	out := make([]types.ItemView, len(matches))
	for i, m := range matches {
		out[i] = m.Item
	}
	return out
}

// SearchScored is Search with scores. Ties are broken by ascending item ID.
func (ix *Index) SearchScored(query string) []Match {
	if isBlank(query) {
		out := make([]Match, len(ix.items))
		for i, it := range ix.items {
			out[i] = Match{Item: it, Score: 0}
		}
		return out
	}

	pattern := appendNormalized(nil, query)
	limit := int(math.Floor(float64(len(pattern)) * ix.opts.Threshold))
	weights := [numFields]float64{ix.opts.Weights.Name, ix.opts.Weights.Aliases, ix.opts.Weights.Note}

	var matches []Match
	for i := range ix.items {
		score := 0.0
		for f := range numFields {
			text := ix.fields[i][f]
			if len(text) == 0 || weights[f] == 0 {
				continue
			}
			d := substringDistance(pattern, text, limit)
			if d > limit {
				continue
			}
			s := 1 - float64(d)/float64(len(pattern))
			if d == 0 && slices.Equal(pattern, text) {
				s += ix.opts.ExactBonus
			}
			score += weights[f] * s
		}
		if score > 0 {
			matches = append(matches, Match{Item: ix.items[i], Score: score})
		}
	}

	slices.SortFunc(matches, func(a, b Match) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Item.ID, b.Item.ID)
	})
	return matches
}
