package representation

import (
	"fmt"

	"github.com/crimson-sun/helpful/internal/engine/embedder"
	"github.com/crimson-sun/helpful/internal/engine/tfidf"
	"github.com/crimson-sun/helpful/internal/engine/word2vec"
	"github.com/crimson-sun/helpful/internal/model"
)

// Resources are the read-only tables shared by builders. Each is built once
// per run and never modified afterwards.
type Resources struct {
	Embeddings *word2vec.Table
	IDF        *tfidf.IDF
	Encoder    embedder.Encoder
}

// Prepare fits every table the strategies of specs need from records, once:
// the IDF table over raw texts and the word2vec table over normalized
// tokens. The word2vec settings come from the first embedding spec. enc is
// passed through for the contextual strategy.
func Prepare(records []model.Record, enc embedder.Encoder, specs ...Spec) (Resources, error) {
	if len(records) == 0 {
		name := "representation"
		if len(specs) > 0 {
			name = specs[0].Strategy.String()
		}
		return Resources{}, emptyCorpus(name)
	}
	res := Resources{Encoder: enc}
	var err error
	for _, spec := range specs {
		if spec.Strategy.UsesIDF() && res.IDF == nil {
			if res.IDF, err = tfidf.FitTexts(model.Texts(records)); err != nil {
				return res, fmt.Errorf("representation: %w", err)
			}
		}
		if spec.Strategy.UsesEmbeddings() && res.Embeddings == nil {
			sentences := make([][]string, len(records))
			for i, r := range records {
				sentences[i] = r.Tokens
			}
			if res.Embeddings, err = word2vec.Train(sentences, spec.Word2Vec); err != nil {
				return res, fmt.Errorf("representation: %w", err)
			}
		}
	}
	return res, nil
}

// NewBuilder returns the builder for spec backed by res.
func NewBuilder(spec Spec, res Resources) (Builder, error) {
	switch spec.Strategy {
	case TermVector:
		return TermVectorBuilder{TopN: spec.TopN, Normalize: spec.Normalize, IDF: res.IDF}, nil
	case EmbeddingSum, EmbeddingMean, IDFWeightedEmbedding:
		if res.Embeddings == nil {
			return nil, fmt.Errorf("representation: %s needs an embedding table", spec.Strategy)
		}
		mode := map[Strategy]Aggregation{EmbeddingSum: Sum, EmbeddingMean: Mean, IDFWeightedEmbedding: IDFMean}[spec.Strategy]
		if mode == IDFMean && res.IDF == nil {
			return nil, fmt.Errorf("representation: %s needs an idf table", spec.Strategy)
		}
		return EmbeddingBuilder{Table: res.Embeddings, Mode: mode, IDF: res.IDF}, nil
	case Contextual:
		if res.Encoder == nil {
			return nil, fmt.Errorf("representation: %s needs an encoder", spec.Strategy)
		}
		return ContextualBuilder{Encoder: res.Encoder, BatchSize: spec.BatchSize}, nil
	}
	return nil, fmt.Errorf("representation: unsupported strategy %s", spec.Strategy)
}
