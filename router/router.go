// Package router implements QueryRouter: a deterministic heuristic that
// picks which retrieval Strategy (graph, path, or vector) answers a
// question, unless the caller pins one explicitly.
package router

import (
	"strings"
	"unicode"

	"github.com/o-boukoutaya/graphrag/model"
)

var compareWords = []string{
	"compare", "différence", "avantages", "inconvénients", "impact",
	"panorama", "synthèse", "overview",
}

var graphyWords = []string{"relation", "lié", "entre", "cause", "conséquence"}

var factStarters = []string{"qui", "quoi", "quand", "où", "combien", "lequel", "laquelle"}

// Route picks a retrieval mode for question. An explicit mode other than
// QueryModeAuto always wins over the heuristic.
func Route(question string, mode model.QueryMode) model.QueryMode {
	if mode != model.QueryModeAuto {
		return mode
	}
	return route(strings.ToLower(question))
}

func route(q string) model.QueryMode {
	long := wordCount(q) >= 14
	cmp := containsAny(q, compareWords)
	graphy := containsAny(q, graphyWords)
	fact := startsWithAny(q, factStarters)
	nums := containsDigit(q)

	switch {
	case cmp || (long && !fact):
		return model.QueryModeGraph
	case graphy || (fact && (nums || strings.Contains(q, "entre"))):
		return model.QueryModePath
	default:
		return model.QueryModeVector
	}
}

func wordCount(q string) int {
	return len(strings.Fields(q))
}

func containsAny(q string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(q, n) {
			return true
		}
	}
	return false
}

func startsWithAny(q string, needles []string) bool {
	trimmed := strings.TrimSpace(q)
	for _, n := range needles {
		if strings.HasPrefix(trimmed, n) {
			return true
		}
	}
	return false
}

func containsDigit(q string) bool {
	for _, r := range q {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
