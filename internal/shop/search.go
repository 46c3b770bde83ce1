package shop

import (
	"slices"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/five82/manavault/internal/market"
)

// Filter narrows the catalog. Empty fields match everything.
type Filter struct {
	Query  string
	Rarity market.Rarity
	Color  string
	Type   string
	Set    string
}

// Active reports whether any field is set.
func (f Filter) Active() bool {
	return strings.TrimSpace(f.Query) != "" || f.Rarity != "" || f.Color != "" || f.Type != "" || f.Set != ""
}

func (f Filter) matches(c market.Card) bool {
	return (f.Rarity == "" || c.Rarity == f.Rarity) &&
		(f.Color == "" || c.Color == f.Color) &&
		(f.Type == "" || c.Type == f.Type) &&
		(f.Set == "" || c.Set == f.Set)
}

// cardNames implements fuzzy.Source over card names.
type cardNames []market.Card

func (c cardNames) Len() int            { return len(c) }
func (c cardNames) String(i int) string { return strings.ToLower(c[i].Name) }

// Search returns the catalog cards matching f. With a query the result is
// ordered by match quality, otherwise catalog order is kept.
func Search(cards []market.Card, f Filter) []market.Card {
	var candidates cardNames
	for _, c := range cards {
		if f.matches(c) {
			candidates = append(candidates, c)
		}
	}

	query := strings.ToLower(strings.TrimSpace(f.Query))
	if query == "" {
		return candidates
	}

	matches := fuzzy.FindFrom(query, candidates)
	out := make([]market.Card, 0, len(matches))
	for _, m := range matches {
		out = append(out, candidates[m.Index])
	}
	return out
}

// Facets lists the distinct colors and types present in cards, sorted.
func Facets(cards []market.Card) (colors, types []string) {
	seenColor := map[string]bool{}
	seenType := map[string]bool{}
	for _, c := range cards {
		if c.Color != "" && !seenColor[c.Color] {
			seenColor[c.Color] = true
			colors = append(colors, c.Color)
		}
		if c.Type != "" && !seenType[c.Type] {
			seenType[c.Type] = true
			types = append(types, c.Type)
		}
	}
	slices.Sort(colors)
	slices.Sort(types)
	return colors, types
}
