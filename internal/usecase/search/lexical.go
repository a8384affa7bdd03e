package search

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
)

// tokenize splits text into lowercase letter/digit runs of at least minLen runes,
// deduplicated in first-seen order.
func tokenize(text string, minLen int) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(fields))
	var tokens []string
	for _, f := range fields {
		if utf8.RuneCountInString(f) < minLen {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		tokens = append(tokens, f)
	}
	return tokens
}

// signalsFor measures how much of the query appears literally in content.
func signalsFor(content, phrase string, tokens []string) result.Signals {
	lower := strings.ToLower(content)
	s := result.Signals{}
	for _, t := range tokens {
		if strings.Contains(lower, t) {
			s.MatchCount++
			s.MatchedTerms = append(s.MatchedTerms, t)
		}
	}
	s.HasAllTerms = len(tokens) > 0 && s.MatchCount == len(tokens)
	if phrase != "" && strings.Contains(lower, phrase) {
		s.PhraseBoost = 1
	}
	return s
}

// rerank orders candidates lexically first when any candidate matched a token.
// Otherwise the vector order is kept. Returns whether the lexical order was applied.
func rerank(results []result.Result) bool {
	lexical := false
	for i := range results {
		if results[i].MatchCount() > 0 {
			lexical = true
			break
		}
	}
	if !lexical {
		return false
	}
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i].Signals(), results[j].Signals()
		if a.HasAllTerms != b.HasAllTerms {
			return a.HasAllTerms
		}
		if a.MatchCount != b.MatchCount {
			return a.MatchCount > b.MatchCount
		}
		if a.PhraseBoost != b.PhraseBoost {
			return a.PhraseBoost > b.PhraseBoost
		}
		return results[i].Score() > results[j].Score()
	})
	return true
}

// excerpt returns at most limit runes of content, centered near the first
// matched term when there is one. Cuts are marked with an ellipsis.
func excerpt(content string, terms []string, limit int) string {
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}

	start := 0
	if len(terms) > 0 {
		lower := []rune(strings.ToLower(content))
		if at := indexRunes(lower, []rune(terms[0])); at >= 0 {
			start = max(0, at-limit/4)
		}
	}
	end := min(len(runes), start+limit)
	start = max(0, end-limit)

	// Prefer word boundaries inside the window.
	if start > 0 {
		if i := indexSpace(runes[start:end]); i >= 0 && i < limit/4 {
			start += i + 1
		}
	}
	if end < len(runes) {
		if i := lastSpace(runes[start:end]); i > (end-start)*3/4 {
			end = start + i
		}
	}

	out := strings.TrimSpace(string(runes[start:end]))
	if start > 0 {
		out = "…" + out
	}
	if end < len(runes) {
		out += "…"
	}
	return out
}

func indexRunes(s, sub []rune) int {
	if len(sub) == 0 {
		return 0
	}
	for i := 0; i+len(sub) <= len(s); i++ {
		match := true
		for j := range sub {
			if s[i+j] != sub[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func indexSpace(rs []rune) int {
	for i, r := range rs {
		if unicode.IsSpace(r) {
			return i
		}
	}
	return -1
}

func lastSpace(rs []rune) int {
	for i := len(rs) - 1; i >= 0; i-- {
		if unicode.IsSpace(rs[i]) {
			return i
		}
	}
	return -1
}
