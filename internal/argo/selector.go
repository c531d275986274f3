// SPDX-License-Identifier: AGPL-3.0-only
package argo

import (
	"regexp"
	"strings"
)

// ToolCategory is a named bucket of tools triggered by query keywords.
type ToolCategory struct {
	Name     string
	Keywords []string
	Tools    []string
}

// CategoryClassifier decides which tool categories a user query is about. It
// is an injectable strategy so the keyword matcher can later be swapped for
// something smarter without touching the orchestration loop.
type CategoryClassifier interface {
	Classify(query string) map[string]bool
}

// KeywordClassifier matches category trigger keywords against the query with
// word boundaries, so "atp" does not fire inside unrelated words.
type KeywordClassifier struct {
	patterns map[string][]*regexp.Regexp
}

// NewKeywordClassifier compiles the trigger keywords of each category.
func NewKeywordClassifier(categories []ToolCategory) *KeywordClassifier {
	patterns := make(map[string][]*regexp.Regexp, len(categories))
	for _, cat := range categories {
		for _, kw := range cat.Keywords {
			re := regexp.MustCompile(`\b` + regexp.QuoteMeta(strings.ToLower(kw)) + `\b`)
			patterns[cat.Name] = append(patterns[cat.Name], re)
		}
	}
	return &KeywordClassifier{patterns: patterns}
}

// Classify returns the set of category names whose keywords appear in the
// query.
func (k *KeywordClassifier) Classify(query string) map[string]bool {
	lowered := strings.ToLower(query)
	detected := map[string]bool{}
	for name, res := range k.patterns {
		for _, re := range res {
			if re.MatchString(lowered) {
				detected[name] = true
				break
			}
		}
	}
	return detected
}

// defaultCategories is the static category table in priority order: the most
// action-oriented categories first, generic lookup last. The database
// category is always treated as detected since lookups recur across nearly
// every workflow.
func defaultCategories() []ToolCategory {
	return []ToolCategory{
		{
			Name:     "analysis",
			Keywords: []string{"fba", "flux", "gapfill", "gapfilling", "growth", "grow", "atp", "biomass", "objective", "simulate", "analysis"},
			Tools:    []string{"gapfill_model", "run_fba"},
		},
		{
			Name:     "model",
			Keywords: []string{"model", "models", "reconstruct", "reconstruction", "draft", "genome", "annotation"},
			Tools:    []string{"build_model", "get_model_info", "list_models", "delete_model"},
		},
		{
			Name:     "media",
			Keywords: []string{"media", "medium", "minimal", "nutrient", "aerobic", "anaerobic"},
			Tools:    []string{"build_media", "get_media", "list_media", "delete_media"},
		},
		{
			Name:     "database",
			Keywords: []string{"compound", "compounds", "reaction", "reactions", "cpd", "rxn", "lookup", "name", "formula", "search"},
			Tools:    []string{"get_compound_info", "get_reaction_info", "get_compound_name", "get_reaction_name"},
		},
	}
}

// coreTools are always seeded into every selection; basic lookups are useful
// regardless of what the query asks for.
var coreTools = []string{"get_compound_name", "get_reaction_name"}

// searchBackfillTools fill any budget left after the detected categories.
var searchBackfillTools = []string{"search_compounds", "search_reactions"}

// defaultCategoryName is always marked detected.
const defaultCategoryName = "database"

// ToolSelector keeps the tool-schema payload sent per request under the
// gateway's size ceiling by picking a small, relevant, deterministic subset
// of tool names for each user turn.
type ToolSelector struct {
	maxTools   int
	categories []ToolCategory
	classifier CategoryClassifier
}

// NewToolSelector creates a selector with the default category table. A nil
// classifier gets the keyword matcher over those categories.
func NewToolSelector(maxTools int, classifier CategoryClassifier) *ToolSelector {
	if maxTools < 1 {
		maxTools = 6
	}
	categories := defaultCategories()
	if classifier == nil {
		classifier = NewKeywordClassifier(categories)
	}
	return &ToolSelector{
		maxTools:   maxTools,
		categories: categories,
		classifier: classifier,
	}
}

// Select returns at most maxTools tool names relevant to the query,
// restricted to the available set. The output is deterministic for identical
// inputs: the core seed first, then detected categories in priority order,
// then the search backfill.
func (s *ToolSelector) Select(query string, available map[string]bool) []string {
	selection := make([]string, 0, s.maxTools)
	seen := map[string]bool{}

	add := func(name string) bool {
		if len(selection) >= s.maxTools {
			return false
		}
		if seen[name] || !available[name] {
			return true
		}
		seen[name] = true
		selection = append(selection, name)
		return true
	}

	// 1. Always seed the always-useful core subset.
	for _, name := range coreTools {
		if !add(name) {
			return selection
		}
	}

	// 2-3. Detect categories; the default lookup category always counts.
	detected := s.classifier.Classify(query)
	detected[defaultCategoryName] = true

	// 4. Walk detected categories in priority order until the budget fills.
	for _, cat := range s.categories {
		if !detected[cat.Name] {
			continue
		}
		for _, name := range cat.Tools {
			if !add(name) {
				return selection
			}
		}
	}

	// 5. Backfill with search tools if still under budget.
	for _, name := range searchBackfillTools {
		if !add(name) {
			return selection
		}
	}

	return selection
}

// MaxTools returns the selection bound.
func (s *ToolSelector) MaxTools() int {
	return s.maxTools
}
