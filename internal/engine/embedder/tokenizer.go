package embedder

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// DefaultMaxSeqLen is the longest input, special tokens included, that a
// BERT-style encoder accepts.
const DefaultMaxSeqLen = 512

// maxWordRunes bounds the word length WordPiece will try to decompose.
const maxWordRunes = 100

// batch is a padded block of token IDs ready for inference. Slices are flat,
// [size * seqLen].
type batch struct {
	inputIDs      []int64
	attentionMask []int64
	tokenTypeIDs  []int64
	size          int64
	seqLen        int64
}

// tokenizer is an uncased BERT WordPiece tokenizer.
type tokenizer struct {
	vocab  *vocab
	maxLen int
}

func newTokenizer(vocabPath string, maxLen int) (*tokenizer, error) {
	v, err := loadVocab(vocabPath)
	if err != nil {
		return nil, err
	}
	if maxLen < 2 {
		maxLen = DefaultMaxSeqLen
	}
	return &tokenizer{vocab: v, maxLen: maxLen}, nil
}

// encode returns [CLS] pieces... [SEP] for text, truncating the pieces so the
// whole sequence fits in maxLen.
func (t *tokenizer) encode(text string) []int64 {
	pieces := t.pieces(text)
	if limit := t.maxLen - 2; len(pieces) > limit {
		pieces = pieces[:limit]
	}
	ids := make([]int64, 0, len(pieces)+2)
	ids = append(ids, t.vocab.cls)
	for _, p := range pieces {
		ids = append(ids, t.vocab.id(p))
	}
	return append(ids, t.vocab.sep)
}

// encodeBatch encodes texts and pads them to the longest sequence.
func (t *tokenizer) encodeBatch(texts []string) batch {
	if len(texts) == 0 {
		return batch{}
	}
	seqs := make([][]int64, len(texts))
	longest := 0
	for i, text := range texts {
		seqs[i] = t.encode(text)
		longest = max(longest, len(seqs[i]))
	}

	b := batch{
		size:   int64(len(texts)),
		seqLen: int64(longest),
	}
	total := len(texts) * longest
	b.inputIDs = make([]int64, total)
	b.attentionMask = make([]int64, total)
	b.tokenTypeIDs = make([]int64, total)
	for i, seq := range seqs {
		row := i * longest
		for j, id := range seq {
			b.inputIDs[row+j] = id
			b.attentionMask[row+j] = 1
		}
		for j := len(seq); j < longest; j++ {
			b.inputIDs[row+j] = t.vocab.pad
		}
	}
	return b
}

// pieces runs basic tokenization followed by WordPiece.
func (t *tokenizer) pieces(text string) []string {
	var out []string
	for _, word := range basicTokens(text) {
		out = append(out, t.wordpiece(word)...)
	}
	return out
}

// wordpiece splits word greedily into the longest known prefixes, marking
// continuations with "##". Undecomposable words become [UNK].
func (t *tokenizer) wordpiece(word string) []string {
	runes := []rune(word)
	if len(runes) > maxWordRunes {
		return []string{tokUnk}
	}
	var out []string
	for start := 0; start < len(runes); {
		end := len(runes)
		var piece string
		for ; end > start; end-- {
			cand := string(runes[start:end])
			if start > 0 {
				cand = "##" + cand
			}
			if t.vocab.has(cand) {
				piece = cand
				break
			}
		}
		if piece == "" {
			return []string{tokUnk}
		}
		out = append(out, piece)
		start = end
	}
	return out
}

// basicTokens cleans, lowercases and strips accents from text, then splits it
// on whitespace, punctuation and CJK ideographs.
func basicTokens(text string) []string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range norm.NFD.String(strings.ToLower(text)) {
		switch {
		case r == 0 || r == unicode.ReplacementChar || (unicode.IsControl(r) && !unicode.IsSpace(r)):
		case unicode.Is(unicode.Mn, r):
		case isSpace(r):
			b.WriteByte(' ')
		case isPunct(r) || unicode.Is(cjk, r):
			b.WriteByte(' ')
			b.WriteRune(r)
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Fields(b.String())
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || unicode.Is(unicode.Zs, r)
}

// isPunct treats every non-alphanumeric printable ASCII rune as punctuation,
// as BERT does, in addition to the Unicode P categories.
func isPunct(r rune) bool {
	if r > ' ' && r < 0x7f && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
		return true
	}
	return unicode.IsPunct(r)
}

// cjk covers the CJK Unified Ideograph blocks BERT isolates as single tokens.
var cjk = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x3400, Hi: 0x4DBF, Stride: 1},
		{Lo: 0x4E00, Hi: 0x9FFF, Stride: 1},
		{Lo: 0xF900, Hi: 0xFAFF, Stride: 1},
	},
	R32: []unicode.Range32{
		{Lo: 0x20000, Hi: 0x2A6DF, Stride: 1},
		{Lo: 0x2A700, Hi: 0x2CEAF, Stride: 1},
		{Lo: 0x2F800, Hi: 0x2FA1F, Stride: 1},
	},
}
