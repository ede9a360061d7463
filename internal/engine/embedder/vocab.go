package embedder

import (
	"bufio"
	"fmt"
	"os"
)

// Special WordPiece tokens.
const (
	tokPad = "[PAD]"
	tokUnk = "[UNK]"
	tokCLS = "[CLS]"
	tokSEP = "[SEP]"
)

// vocab is a WordPiece vocabulary. A token's ID is its 0-based line number.
type vocab struct {
	ids    map[string]int64
	tokens []string

	pad, unk, cls, sep int64
}

// loadVocab reads a vocab.txt file, one token per line.
func loadVocab(path string) (*vocab, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vocab: %w", err)
	}
	defer f.Close()

	var tokens []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		tokens = append(tokens, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("vocab: read %s: %w", path, err)
	}
	return newVocab(tokens)
}

func newVocab(tokens []string) (*vocab, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("vocab: no tokens")
	}
	v := &vocab{ids: make(map[string]int64, len(tokens)), tokens: tokens}
	for i, tok := range tokens {
		if _, dup := v.ids[tok]; !dup {
			v.ids[tok] = int64(i)
		}
	}
	for name, dst := range map[string]*int64{tokPad: &v.pad, tokUnk: &v.unk, tokCLS: &v.cls, tokSEP: &v.sep} {
		id, ok := v.ids[name]
		if !ok {
			return nil, fmt.Errorf("vocab: missing special token %s", name)
		}
		*dst = id
	}
	return v, nil
}

func (v *vocab) id(token string) int64 {
	if id, ok := v.ids[token]; ok {
		return id
	}
	return v.unk
}

func (v *vocab) has(token string) bool {
	_, ok := v.ids[token]
	return ok
}

func (v *vocab) size() int { return len(v.tokens) }
