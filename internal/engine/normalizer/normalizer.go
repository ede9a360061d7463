// Package normalizer turns free review text into stopword-free tokens.
package normalizer

import (
	"bufio"
	_ "embed"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/crimson-sun/helpful/internal/model"
)

//go:embed stopwords_en.txt
var stopwordsEN string

var (
	defaultOnce sync.Once
	defaultNorm *Normalizer
)

// Normalizer lowercases text, strips punctuation, splits words and drops
// stopwords. It holds no mutable state after construction.
type Normalizer struct {
	stopwords map[string]struct{}
}

// Default returns the process-wide English normalizer. The stopword list is
// parsed on first use.
func Default() *Normalizer {
	defaultOnce.Do(func() {
		defaultNorm = New(ParseStopwords(stopwordsEN))
	})
	return defaultNorm
}

// New creates a Normalizer that removes the given stopwords.
func New(stopwords []string) *Normalizer {
	set := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		set[w] = struct{}{}
	}
	return &Normalizer{stopwords: set}
}

// ParseStopwords reads one word per line, ignoring blanks and # comments.
func ParseStopwords(s string) []string {
	var out []string
	sc := bufio.NewScanner(strings.NewReader(s))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

// IsStopword reports whether w is removed by n.
func (n *Normalizer) IsStopword(w string) bool {
	_, ok := n.stopwords[w]
	return ok
}

// Tokens normalizes text into its ordered token sequence.
func (n *Normalizer) Tokens(text string) []string {
	clean := Fold(text)
	var out []string
	for _, word := range strings.FieldsFunc(clean, unicode.IsSpace) {
		for _, tok := range splitWord(word) {
			if !n.IsStopword(tok) {
				out = append(out, tok)
			}
		}
	}
	return out
}

// Normalize returns the tokens of text joined by single spaces.
func (n *Normalizer) Normalize(text string) string {
	return strings.Join(n.Tokens(text), " ")
}

// Corpus fills the Tokens field of every record from its Text.
func (n *Normalizer) Corpus(records []model.Record) {
	for i := range records {
		records[i].Tokens = n.Tokens(records[i].Text)
	}
}

// Fold lowercases text, composes it to NFC and removes punctuation.
func Fold(text string) string {
	// cases.Caser keeps state between calls, so each call builds its own chain.
	t := transform.Chain(
		norm.NFC,
		cases.Lower(language.English),
		runes.Remove(runes.Predicate(isPunct)),
	)
	out, _, err := transform.String(t, text)
	if err != nil {
		return strings.ToLower(text)
	}
	return out
}

func isPunct(r rune) bool {
	if r < 0x80 && strings.ContainsRune(asciiPunct, r) {
		return true
	}
	return unicode.IsPunct(r)
}

const asciiPunct = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
