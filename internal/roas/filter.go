package roas

import "roas/internal/domain"

// Selection is one facet choice. All selects every value, including values
// not seen yet; otherwise only Values match, and an empty Values matches
// nothing.
type Selection struct {
	All    bool
	Values []string
}

// AllValues is the default, no-op selection.
func AllValues() Selection { return Selection{All: true} }

// Only selects exactly the given values.
func Only(values ...string) Selection {
	return Selection{Values: append([]string{}, values...)}
}

// Contains reports whether v is selected.
func (s Selection) Contains(v string) bool {
	if s.All {
		return true
	}
	for _, x := range s.Values {
		if x == v {
			return true
		}
	}
	return false
}

// Facets narrows the roster by platform and category.
type Facets struct {
	Platforms  Selection
	Categories Selection
}

// AllFacets selects every platform and category.
func AllFacets() Facets {
	return Facets{Platforms: AllValues(), Categories: AllValues()}
}

// FilterInfluencers returns the influencers whose platform AND category are
// both selected, in roster order. The input is not modified.
func FilterInfluencers(roster []domain.Influencer, f Facets) []domain.Influencer {
	out := make([]domain.Influencer, 0, len(roster))
	for _, inf := range roster {
		if f.Platforms.Contains(inf.Platform) && f.Categories.Contains(inf.Category) {
			out = append(out, inf)
		}
	}
	return out
}

// ObservedFacets returns the distinct platforms and categories in the roster
// in first-seen order. These are the values a UI offers and pre-selects.
func ObservedFacets(roster []domain.Influencer) (platforms, categories []string) {
	seenP := map[string]bool{}
	seenC := map[string]bool{}
	for _, inf := range roster {
		if !seenP[inf.Platform] {
			seenP[inf.Platform] = true
			platforms = append(platforms, inf.Platform)
		}
		if !seenC[inf.Category] {
			seenC[inf.Category] = true
			categories = append(categories, inf.Category)
		}
	}
	return platforms, categories
}
