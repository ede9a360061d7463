// Package tfidf computes inverse document frequencies over a corpus and maps
// documents onto a fixed term vocabulary weighted by them.
package tfidf

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"gonum.org/v1/gonum/floats"

	"github.com/crimson-sun/helpful/internal/model"
)

// Analyze lowercases text and returns its runs of two or more word
// characters (letters, digits, underscore) in order.
func Analyze(text string) []string {
	text = strings.ToLower(text)
	var tokens []string
	start := -1
	runes := 0
	flush := func(end int) {
		if start >= 0 && runes >= 2 {
			tokens = append(tokens, text[start:end])
		}
		start, runes = -1, 0
	}
	for i, r := range text {
		if isWord(r) {
			if start < 0 {
				start = i
			}
			runes++
			continue
		}
		flush(i)
	}
	flush(len(text))
	return tokens
}

func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

// IDF is a read-only table of smoothed inverse document frequencies.
type IDF struct {
	terms   []string // sorted
	weights map[string]float64
	docs    int
}

// Fit computes idf(t) = ln((1+n)/(1+df(t))) + 1 for every term in docs.
func Fit(docs [][]string) (*IDF, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("tfidf: fit: %w", model.ErrEmptyCorpus)
	}
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{}, len(doc))
		for _, t := range doc {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			df[t]++
		}
	}
	if len(df) == 0 {
		return nil, fmt.Errorf("tfidf: fit: no terms in %d documents: %w", len(docs), model.ErrEmptyCorpus)
	}

	n := float64(len(docs))
	idf := &IDF{
		terms:   make([]string, 0, len(df)),
		weights: make(map[string]float64, len(df)),
		docs:    len(docs),
	}
	for t, c := range df {
		idf.terms = append(idf.terms, t)
		idf.weights[t] = math.Log((1+n)/(1+float64(c))) + 1
	}
	sort.Strings(idf.terms)
	return idf, nil
}

// FitTexts analyzes each text with Analyze and fits the result.
func FitTexts(texts []string) (*IDF, error) {
	docs := make([][]string, len(texts))
	for i, t := range texts {
		docs[i] = Analyze(t)
	}
	return Fit(docs)
}

// Weight returns the idf of term and whether the term was seen.
func (f *IDF) Weight(term string) (float64, bool) {
	w, ok := f.weights[term]
	return w, ok
}

// Terms returns the vocabulary in sorted order.
func (f *IDF) Terms() []string { return append([]string(nil), f.terms...) }

// Len returns the vocabulary size.
func (f *IDF) Len() int { return len(f.terms) }

// Docs returns the number of documents the table was fitted on.
func (f *IDF) Docs() int { return f.docs }

// Top returns the n terms with the highest idf. Equal weights keep sorted
// term order, so the result is deterministic.
func (f *IDF) Top(n int) []string {
	terms := f.Terms()
	sort.SliceStable(terms, func(i, j int) bool {
		return f.weights[terms[i]] > f.weights[terms[j]]
	})
	if n >= 0 && n < len(terms) {
		terms = terms[:n]
	}
	return terms
}

// Vectorizer maps token lists onto a fixed vocabulary as tf x idf.
type Vectorizer struct {
	vocab []string
	index map[string]int
	idf   []float64
	l2    bool
}

// NewVectorizer creates a Vectorizer over vocab, in the given order. Terms
// unknown to idf get weight 1.
func NewVectorizer(vocab []string, idf *IDF, l2 bool) *Vectorizer {
	v := &Vectorizer{
		vocab: append([]string(nil), vocab...),
		index: make(map[string]int, len(vocab)),
		idf:   make([]float64, len(vocab)),
		l2:    l2,
	}
	for i, t := range vocab {
		v.index[t] = i
		v.idf[i] = 1
		if w, ok := idf.Weight(t); ok {
			v.idf[i] = w
		}
	}
	return v
}

// Dim returns the output vector length.
func (v *Vectorizer) Dim() int { return len(v.vocab) }

// Vocabulary returns the column order of Transform.
func (v *Vectorizer) Vocabulary() []string { return append([]string(nil), v.vocab...) }

// Transform returns the dense weighted term vector of tokens.
func (v *Vectorizer) Transform(tokens []string) []float64 {
	out := make([]float64, len(v.vocab))
	for _, t := range tokens {
		if i, ok := v.index[t]; ok {
			out[i]++
		}
	}
	floats.Mul(out, v.idf)
	if v.l2 {
		if n := floats.Norm(out, 2); n > 0 {
			floats.Scale(1/n, out)
		}
	}
	return out
}
