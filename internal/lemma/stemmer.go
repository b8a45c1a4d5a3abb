// Package lemma implements French Snowball stemming and per-Land
// dictionary lemma derivation.
//
// The stemmer handle is constructed once per process (internal/lemma.New)
// and is immutable thereafter.
package lemma

import (
	"strings"

	"github.com/blevesearch/snowballstem"
	"github.com/blevesearch/snowballstem/french"
	"golang.org/x/text/unicode/norm"
)

// Stemmer reduces lowercased tokens to their French Snowball stem. It holds
// no mutable state and is safe for concurrent use.
type Stemmer struct{}

// New constructs the process-wide Stemmer handle.
func New() *Stemmer {
	return &Stemmer{}
}

// Stem reduces a single lowercased token to its stem. The token is first
// normalized to NFC so that accented French characters typed or rendered
// with combining marks (e.g. "e" + U+0301) match the precomposed form the
// Snowball algorithm expects.
func (s *Stemmer) Stem(token string) string {
	token = strings.ToLower(strings.TrimSpace(norm.NFC.String(token)))
	if token == "" {
		return ""
	}

	env := snowballstem.NewEnv(token)
	french.Stem(env)

	return env.Current()
}

// StemTerm lemmatizes a (possibly multi-word) dictionary term: it is
// lowercased, whitespace-split, each token stemmed, and the stems rejoined
// with single spaces.
func (s *Stemmer) StemTerm(term string) string {
	fields := strings.Fields(strings.ToLower(term))

	stems := make([]string, 0, len(fields))
	for _, f := range fields {
		if st := s.Stem(f); st != "" {
			stems = append(stems, st)
		}
	}

	return strings.Join(stems, " ")
}

// StemText lemmatizes free text token by token, returning the stemmed
// tokens rejoined with single spaces, preserving order. Used to normalize
// an Expression's title/readable text before whole-word lemma matching.
func (s *Stemmer) StemText(text string) string {
	fields := strings.Fields(text)

	stems := make([]string, 0, len(fields))
	for _, f := range fields {
		token := stripNonWord(strings.ToLower(f))
		if token == "" {
			continue
		}

		if st := s.Stem(token); st != "" {
			stems = append(stems, st)
		}
	}

	return strings.Join(stems, " ")
}

// stripNonWord trims leading/trailing punctuation from a token so
// "chats," stems the same as "chats".
func stripNonWord(s string) string {
	isWord := func(r rune) bool {
		return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '\'' || r >= 0x80
	}

	start := 0
	for start < len(s) && !isWord(rune(s[start])) {
		start++
	}

	end := len(s)
	for end > start && !isWord(rune(s[end-1])) {
		end--
	}

	return s[start:end]
}
