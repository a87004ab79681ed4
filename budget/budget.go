// Package budget approximates token counts and fits text to a model's
// context window. It is deliberately built on the standard library only:
// the approximation formula itself (not a real tokenizer) is the single
// source of truth for "fits the context", so swapping in a real BPE
// tokenizer would make Fit and CountTokens disagree on the same text and
// break the idempotence law Fit(Fit(t, n), n) == Fit(t, n).
package budget

import (
	"log/slog"
	"strings"
	"sync"
)

// Family names a provider's tokenization family for ratio lookup.
type Family string

const (
	FamilyGPT    Family = "gpt"
	FamilyGemini Family = "gemini"
	FamilyOther  Family = "default"
)

// Ratio maps a provider family to the tokens-per-word multiplier used by
// CountTokens. Values are the ones named explicitly: gpt 1.33, gemini
// 2.0, default 1.3 for anything unrecognized.
var Ratio = map[Family]float64{
	FamilyGPT:    1.33,
	FamilyGemini: 2.0,
	FamilyOther:  1.3,
}

var warnOnce sync.Map

// RatioFor returns the configured ratio for family, logging a one-time
// warning per unrecognized family name the first time it's seen.
func RatioFor(family Family, log *slog.Logger) float64 {
	if r, ok := Ratio[family]; ok {
		return r
	}
	if _, loaded := warnOnce.LoadOrStore(family, struct{}{}); !loaded && log != nil {
		log.Warn("token ratio is an approximation; verify against the live provider",
			"family", family)
	}
	return Ratio[FamilyOther]
}

// CountTokens approximates the token count of text for the given family:
// words(text) * ratio + 1.
func CountTokens(text string, family Family, log *slog.Logger) int {
	n := len(strings.Fields(text))
	return int(float64(n)*RatioFor(family, log)) + 1
}

// Fit truncates text to fit within maxTokens for the given family. It
// prefers sentence boundaries: it accumulates whole sentences until the
// next one would exceed the budget, and only falls back to a character
// truncation when even the first sentence doesn't fit.
func Fit(text string, maxTokens int, family Family, log *slog.Logger) string {
	if CountTokens(text, family, log) <= maxTokens {
		return text
	}

	sentences := splitSentences(text)
	var kept strings.Builder
	for _, s := range sentences {
		candidate := kept.String() + s
		if CountTokens(candidate, family, log) > maxTokens {
			break
		}
		kept.WriteString(s)
	}

	if kept.Len() > 0 {
		return strings.TrimSpace(kept.String())
	}

	maxChars := int(float64(maxTokens) * 4 * 0.9)
	if maxChars >= len(text) {
		return text
	}
	return strings.TrimSpace(text[:maxChars])
}

// splitSentences splits on '.', '!' and '?', keeping the terminator and
// any trailing whitespace attached to the preceding sentence so
// concatenation reproduces the original spacing.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i, r := range text {
		switch r {
		case '.', '!', '?':
			end := i + 1
			for end < len(text) && (text[end] == ' ' || text[end] == '\n' || text[end] == '\t') {
				end++
			}
			out = append(out, text[start:end])
			start = end
		}
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}
