// Package relevance implements the Relevance Scorer: weighted whole-word
// lemma matching against a Land's dictionary, language-gated to zero when
// the Expression's declared language is outside the Land's configured set.
package relevance

import (
	"strings"

	"github.com/landcrawl/landcrawl/internal/lemma"
)

const (
	titleWeight = 10
	bodyWeight  = 1
)

// Scorer computes relevance scores by stemming the title/body into token
// streams and counting whole-token occurrences of each dictionary lemma.
// Matching happens on token boundaries rather than via \b regex anchors,
// which are ASCII-only in Go's regexp and silently miss lemmas ending in
// accented French characters.
type Scorer struct {
	stemmer *lemma.Stemmer
}

// New builds a Scorer around stemmer.
func New(stemmer *lemma.Stemmer) *Scorer {
	return &Scorer{stemmer: stemmer}
}

// Score returns the weighted lemma-occurrence count of title and body
// against dict. It never panics or returns an error: a malformed lemma
// simply contributes 0.
func (s *Scorer) Score(title, body string, dict lemma.Dictionary) int {
	titleTokens := strings.Fields(s.stemmer.StemText(title))
	bodyTokens := strings.Fields(s.stemmer.StemText(body))

	total := 0

	for _, l := range dict.Lemmas {
		seq := strings.Fields(l)
		if len(seq) == 0 {
			continue
		}

		total += titleWeight * countOccurrences(titleTokens, seq)
		total += bodyWeight * countOccurrences(bodyTokens, seq)
	}

	return total
}

// ScoreGated applies the language gate: if lang is non-empty and not among
// allowedLangs, relevance is forced to zero regardless of lemma matches.
func (s *Scorer) ScoreGated(title, body, lang string, allowedLangs []string, dict lemma.Dictionary) int {
	if lang != "" && len(allowedLangs) > 0 && !contains(allowedLangs, lang) {
		return 0
	}

	return s.Score(title, body, dict)
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}

	return false
}

// countOccurrences counts non-overlapping occurrences of the token
// sequence seq within tokens.
func countOccurrences(tokens, seq []string) int {
	count := 0

	for i := 0; i+len(seq) <= len(tokens); {
		if matchesAt(tokens, seq, i) {
			count++
			i += len(seq)

			continue
		}

		i++
	}

	return count
}

func matchesAt(tokens, seq []string, at int) bool {
	for j, s := range seq {
		if tokens[at+j] != s {
			return false
		}
	}

	return true
}
