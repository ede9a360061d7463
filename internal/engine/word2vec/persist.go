package word2vec

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/golang/snappy"

	"github.com/crimson-sun/helpful/internal/model"
)

// Tables are stored in the safetensors layout: an 8-byte little-endian header
// length, a JSON header describing one F32 tensor "embeddings" of shape
// [words, dim], then the raw tensor bytes. The vocabulary travels in the
// header metadata, one word per line.
const (
	tensorName    = "embeddings"
	formatName    = "word2vec"
	snappySuffix  = ".sz"
	headerAlign   = 8
	maxHeaderSize = 100 << 20
)

type tensorInfo struct {
	Dtype       string `json:"dtype"`
	Shape       []int  `json:"shape"`
	DataOffsets [2]int `json:"data_offsets"`
}

// Save writes t to path. Paths ending in ".sz" are snappy-compressed.
func (t *Table) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("word2vec: save: %v: %w", err, model.ErrIO)
	}
	var w io.Writer = f
	var sw *snappy.Writer
	if strings.HasSuffix(path, snappySuffix) {
		sw = snappy.NewBufferedWriter(f)
		w = sw
	}
	bw := bufio.NewWriter(w)
	if err := t.Write(bw); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("word2vec: save: %v: %w", err, model.ErrIO)
	}
	if sw != nil {
		if err := sw.Close(); err != nil {
			f.Close()
			return fmt.Errorf("word2vec: save: %v: %w", err, model.ErrIO)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("word2vec: save: %v: %w", err, model.ErrIO)
	}
	return nil
}

// Load reads a table written by Save.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("word2vec: load: %v: %w", err, model.ErrIO)
	}
	defer f.Close()

	var r io.Reader = bufio.NewReader(f)
	if strings.HasSuffix(path, snappySuffix) {
		r = snappy.NewReader(r)
	}
	return Read(r)
}

// Write encodes t to w.
func (t *Table) Write(w io.Writer) error {
	size := len(t.words) * t.dim * 4
	header := map[string]any{
		"__metadata__": map[string]string{
			"format": formatName,
			"dim":    strconv.Itoa(t.dim),
			"words":  strings.Join(t.words, "\n"),
		},
		tensorName: tensorInfo{
			Dtype:       "F32",
			Shape:       []int{len(t.words), t.dim},
			DataOffsets: [2]int{0, size},
		},
	}
	hdr, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("word2vec: encode header: %w", err)
	}
	if pad := len(hdr) % headerAlign; pad != 0 {
		hdr = append(hdr, bytes.Repeat([]byte(" "), headerAlign-pad)...)
	}

	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(hdr)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("word2vec: write: %v: %w", err, model.ErrIO)
	}
	if _, err := w.Write(hdr); err != nil {
		return fmt.Errorf("word2vec: write: %v: %w", err, model.ErrIO)
	}
	buf := make([]byte, 4*t.dim)
	for i := range t.words {
		for j, x := range t.row(i) {
			binary.LittleEndian.PutUint32(buf[j*4:], math.Float32bits(float32(x)))
		}
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("word2vec: write: %v: %w", err, model.ErrIO)
		}
	}
	return nil
}

// Read decodes a table from r.
func Read(r io.Reader) (*Table, error) {
	var lenBuf [8]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("word2vec: read header length: %v: %w", err, model.ErrIO)
	}
	headerLen := binary.LittleEndian.Uint64(lenBuf[:])
	if headerLen > maxHeaderSize {
		return nil, fmt.Errorf("word2vec: header length %d too large: %w", headerLen, model.ErrParse)
	}
	hdr := make([]byte, headerLen)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, fmt.Errorf("word2vec: read header: %v: %w", err, model.ErrIO)
	}

	var header map[string]json.RawMessage
	if err := json.Unmarshal(hdr, &header); err != nil {
		return nil, fmt.Errorf("word2vec: parse header: %v: %w", err, model.ErrParse)
	}
	var meta map[string]string
	if err := json.Unmarshal(header["__metadata__"], &meta); err != nil {
		return nil, fmt.Errorf("word2vec: parse metadata: %v: %w", err, model.ErrParse)
	}
	if meta["format"] != formatName {
		return nil, fmt.Errorf("word2vec: unexpected format %q: %w", meta["format"], model.ErrParse)
	}
	raw, ok := header[tensorName]
	if !ok {
		return nil, fmt.Errorf("word2vec: tensor %q not found: %w", tensorName, model.ErrParse)
	}
	var info tensorInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("word2vec: parse tensor metadata: %v: %w", err, model.ErrParse)
	}
	if info.Dtype != "F32" || len(info.Shape) != 2 {
		return nil, fmt.Errorf("word2vec: expected 2D F32 tensor, got %s %v: %w", info.Dtype, info.Shape, model.ErrParse)
	}

	n, dim := info.Shape[0], info.Shape[1]
	if n < 0 || dim <= 0 || (n > 0 && dim > math.MaxInt32/n) || info.DataOffsets[0] < 0 {
		return nil, fmt.Errorf("word2vec: invalid shape %v at offset %d: %w", info.Shape, info.DataOffsets[0], model.ErrParse)
	}
	var words []string
	if n > 0 {
		words = strings.Split(meta["words"], "\n")
	}
	if len(words) != n {
		return nil, fmt.Errorf("word2vec: %d words for %d vectors: %w", len(words), n, model.ErrParse)
	}
	if info.DataOffsets[1]-info.DataOffsets[0] != n*dim*4 {
		return nil, fmt.Errorf("word2vec: data size doesn't match shape %v: %w", info.Shape, model.ErrParse)
	}
	if info.DataOffsets[0] > 0 {
		if _, err := io.CopyN(io.Discard, r, int64(info.DataOffsets[0])); err != nil {
			return nil, fmt.Errorf("word2vec: read tensor: %v: %w", err, model.ErrIO)
		}
	}

	data := make([]byte, n*dim*4)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("word2vec: read tensor: %v: %w", err, model.ErrIO)
	}
	vectors := make([]float64, n*dim)
	for i := range vectors {
		vectors[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:])))
	}
	return newTable(words, vectors, dim), nil
}
