package normalizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/helpful/internal/model"
)

func TestDefaultStopwords(t *testing.T) {
	n := Default()
	assert.Len(t, n.stopwords, 179)
	assert.True(t, n.IsStopword("the"))
	assert.True(t, n.IsStopword("wouldn't"))
	assert.False(t, n.IsStopword("battery"))
	assert.Same(t, n, Default())
}

func TestTokens(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"plain", "Great battery life", []string{"great", "battery", "life"}},
		{"punctuation", "Works great!!! Highly recommended...", []string{"works", "great", "highly", "recommended"}},
		{"apostrophe joins", "Don't buy it", []string{"dont", "buy"}},
		{"unicode punct", "\u201cExcellent\u201d \u2014 really", []string{"excellent", "really"}},
		{"compound", "I wanna return it", []string{"wan", "na", "return"}},
		{"cannot", "cannot recommend", []string{"recommend"}},
		{"whitespace", "  tabs\tand\nnewlines ", []string{"tabs", "newlines"}},
		{"digits", "lasted 2 years", []string{"lasted", "2", "years"}},
		{"symbols", "price: $20+tax", []string{"price", "20tax"}},
		{"empty", "", nil},
	}
	n := Default()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Tokens(tt.in))
		})
	}
}

func TestOnlyStopwordsAndPunctuation(t *testing.T) {
	assert.Empty(t, Default().Tokens("The, and, of!"))
}

func TestIdempotent(t *testing.T) {
	n := Default()
	inputs := []string{
		"This product is AMAZING, I'd buy it again!",
		"Gonna say: it's the BEST thing since sliced bread...",
		"Ünïcödé Straße résumé",
		"cannot, gotta, lemme, gimme",
		"",
	}
	for _, in := range inputs {
		once := n.Normalize(in)
		assert.Equal(t, once, n.Normalize(once), "input %q", in)
	}
}

func TestCustomStopwords(t *testing.T) {
	n := New(ParseStopwords("# comment\nfoo\n\n bar \n"))
	assert.Equal(t, []string{"the", "baz"}, n.Tokens("foo the bar baz"))
}

func TestCorpus(t *testing.T) {
	records := []model.Record{{Text: "Fast shipping."}, {Text: "The, and, of!"}}
	Default().Corpus(records)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"fast", "shipping"}, records[0].Tokens)
	assert.Empty(t, records[1].Tokens)
}

func TestFold(t *testing.T) {
	assert.Equal(t, "hello world", Fold("Hello, World!"))
	assert.False(t, strings.ContainsAny(Fold(`a"b'c(d)e`), `"'()`))
}
