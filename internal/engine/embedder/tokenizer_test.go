package embedder

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// IDs follow line order.
var testTokens = []string{
	"[PAD]",   // 0
	"[UNK]",   // 1
	"[CLS]",   // 2
	"[SEP]",   // 3
	"great",   // 4
	"phone",   // 5
	"bat",     // 6
	"##tery",  // 7
	"!",       // 8
	",",       // 9
	"cafe",    // 10
	"a",       // 11
	"10",      // 12
	"世",       // 13
	"_",       // 14
	"##s",     // 15
}

func writeVocab(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vocab.txt")
	if err := os.WriteFile(path, []byte(strings.Join(testTokens, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testTokenizer(t *testing.T, maxLen int) *tokenizer {
	t.Helper()
	tok, err := newTokenizer(writeVocab(t), maxLen)
	if err != nil {
		t.Fatalf("failed to create tokenizer: %v", err)
	}
	return tok
}

func TestVocabLoad(t *testing.T) {
	v, err := loadVocab(writeVocab(t))
	if err != nil {
		t.Fatalf("failed to load vocab: %v", err)
	}
	if v.size() != len(testTokens) {
		t.Errorf("expected %d tokens, got %d", len(testTokens), v.size())
	}
	if v.pad != 0 || v.unk != 1 || v.cls != 2 || v.sep != 3 {
		t.Errorf("special ids = %d %d %d %d, want 0 1 2 3", v.pad, v.unk, v.cls, v.sep)
	}
	if v.id("nope") != v.unk {
		t.Errorf("unknown token should map to [UNK]")
	}
}

func TestVocabMissingSpecial(t *testing.T) {
	if _, err := newVocab([]string{"[PAD]", "[UNK]", "[CLS]"}); err == nil {
		t.Fatal("expected error for vocab without [SEP]")
	}
	if _, err := loadVocab(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

var encodeTests = []struct {
	name string
	text string
	ids  []int64
}{
	{"simple", "Great phone", []int64{2, 4, 5, 3}},
	{"empty string", "", []int64{2, 3}},
	{"wordpiece", "battery", []int64{2, 6, 7, 3}},
	{"punctuation split", "great,phone!", []int64{2, 4, 9, 5, 8, 3}},
	{"accents stripped", "Café", []int64{2, 10, 3}},
	{"unknown word", "terrible", []int64{2, 1, 3}},
	{"partial wordpiece is unknown", "batx", []int64{2, 1, 3}},
	{"cjk isolated", "世世", []int64{2, 13, 13, 3}},
	{"underscore is punctuation", "a_a", []int64{2, 11, 14, 11, 3}},
	{"control chars dropped", "great\x00\tphone", []int64{2, 4, 5, 3}},
}

func TestEncode(t *testing.T) {
	tok := testTokenizer(t, DefaultMaxSeqLen)
	for _, tc := range encodeTests {
		t.Run(tc.name, func(t *testing.T) {
			got := tok.encode(tc.text)
			if !reflect.DeepEqual(got, tc.ids) {
				t.Errorf("input_ids mismatch\n  want: %v\n  got:  %v", tc.ids, got)
			}
		})
	}
}

func TestEncodeTruncation(t *testing.T) {
	tok := testTokenizer(t, 8)
	ids := tok.encode(strings.Repeat("a ", 50))
	if len(ids) != 8 {
		t.Fatalf("expected 8 ids, got %d", len(ids))
	}
	if ids[0] != 2 || ids[7] != 3 {
		t.Errorf("expected [CLS] ... [SEP], got %v", ids)
	}
}

func TestEncodeBatch(t *testing.T) {
	tok := testTokenizer(t, DefaultMaxSeqLen)
	b := tok.encodeBatch([]string{"great phone", "a"})

	if b.size != 2 || b.seqLen != 4 {
		t.Fatalf("expected 2x4 batch, got %dx%d", b.size, b.seqLen)
	}
	wantIDs := []int64{2, 4, 5, 3, 2, 11, 3, 0}
	wantMask := []int64{1, 1, 1, 1, 1, 1, 1, 0}
	if !reflect.DeepEqual(b.inputIDs, wantIDs) {
		t.Errorf("input_ids = %v, want %v", b.inputIDs, wantIDs)
	}
	if !reflect.DeepEqual(b.attentionMask, wantMask) {
		t.Errorf("attention_mask = %v, want %v", b.attentionMask, wantMask)
	}
	for i, v := range b.tokenTypeIDs {
		if v != 0 {
			t.Errorf("token_type_ids[%d] = %d, want 0", i, v)
		}
	}
}

func TestEncodeBatchEmpty(t *testing.T) {
	tok := testTokenizer(t, DefaultMaxSeqLen)
	if b := tok.encodeBatch(nil); b.size != 0 {
		t.Errorf("expected empty batch, got size %d", b.size)
	}
}
