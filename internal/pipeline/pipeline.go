package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/crimson-sun/helpful/internal/cleaner"
	"github.com/crimson-sun/helpful/internal/config"
	"github.com/crimson-sun/helpful/internal/dataset"
	"github.com/crimson-sun/helpful/internal/engine"
	"github.com/crimson-sun/helpful/internal/engine/embedder"
	"github.com/crimson-sun/helpful/internal/engine/normalizer"
	"github.com/crimson-sun/helpful/internal/engine/representation"
	"github.com/crimson-sun/helpful/internal/loader"
	"github.com/crimson-sun/helpful/internal/model"
	"github.com/crimson-sun/helpful/internal/output"
)

// Pipeline connects the loader, cleaner, normalizer and engine to an output.
type Pipeline struct {
	cfg     config.Config
	grids   config.Grids
	encoder embedder.Encoder
	output  output.Output
}

// New creates a Pipeline. enc may be nil unless a contextual strategy is
// configured; grids may be nil in plain mode.
func New(cfg config.Config, grids config.Grids, enc embedder.Encoder, out output.Output) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		grids:   grids,
		encoder: enc,
		output:  out,
	}
}

// Run loads and cleans the input once, fits the shared tables every
// configured strategy needs, then runs one experiment per strategy and
// writes a report for each. The first failure aborts the run.
func (p *Pipeline) Run(ctx context.Context) error {
	start := time.Now()
	records, stats, err := p.prepare()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	res, saved, err := p.resources(records)
	if err != nil {
		return err
	}

	for _, strategy := range p.cfg.Representation.Strategies {
		if err := ctx.Err(); err != nil {
			return err
		}
		rep, err := p.experiment(strategy, records, res)
		if err != nil {
			return fmt.Errorf("pipeline %s: %w", strategy, err)
		}
		rep.Votes = &stats
		if strategy.UsesEmbeddings() {
			rep.Embeddings = saved
		}
		if err := p.output.Write(ctx, rep); err != nil {
			return fmt.Errorf("pipeline output: %w", err)
		}
	}
	slog.Info("pipeline finished",
		"strategies", len(p.cfg.Representation.Strategies),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// resources fits the IDF and word2vec tables once for all strategies and
// saves the word2vec table when a path is configured.
func (p *Pipeline) resources(records []model.Record) (representation.Resources, string, error) {
	specs := make([]representation.Spec, 0, len(p.cfg.Representation.Strategies))
	for _, s := range p.cfg.Representation.Strategies {
		specs = append(specs, p.cfg.Representation.Spec(s))
	}
	res, err := representation.Prepare(records, p.encoder, specs...)
	if err != nil {
		return res, "", fmt.Errorf("pipeline prepare: %w", err)
	}

	path := p.cfg.Representation.SavePath
	if path == "" || res.Embeddings == nil {
		return res, "", nil
	}
	if err := res.Embeddings.Save(path); err != nil {
		return res, "", fmt.Errorf("pipeline: %w", err)
	}
	slog.Info("word vectors saved", "path", path, "words", humanize.Comma(int64(res.Embeddings.Len())))
	return res, path, nil
}

// prepare runs the load → clean → describe → normalize stages.
func (p *Pipeline) prepare() ([]model.Record, cleaner.VoteStats, error) {
	var stats cleaner.VoteStats
	table, err := loader.Load(p.cfg.Data.Input)
	if err != nil {
		return nil, stats, fmt.Errorf("pipeline load: %w", err)
	}
	records, err := cleaner.Clean(table, p.cfg.Clean)
	if err != nil {
		return nil, stats, fmt.Errorf("pipeline clean: %w", err)
	}
	if len(records) == 0 {
		return nil, stats, fmt.Errorf("pipeline clean: no usable records in %s: %w", p.cfg.Data.Input, model.ErrEmptyCorpus)
	}

	if stats, err = cleaner.Describe(records, p.cfg.Clean.Threshold); err != nil {
		return nil, stats, fmt.Errorf("pipeline describe: %w", err)
	}
	slog.Info("votes described",
		"records", humanize.Comma(int64(stats.Count)),
		"positives", humanize.Comma(int64(stats.Positives)),
		"mean", stats.Mean,
		"median", stats.Median,
		"threshold_rank", stats.ThresholdRank,
	)

	normalizer.Default().Corpus(records)
	return records, stats, nil
}

func (p *Pipeline) experiment(strategy representation.Strategy, records []model.Record, res representation.Resources) (output.Report, error) {
	ec, err := p.cfg.Engine(strategy, p.grids)
	if err != nil {
		return output.Report{}, err
	}
	if strategy == representation.Contextual {
		records, err = dataset.StratifiedSample(records, p.cfg.Data.SamplePositive, p.cfg.Data.SampleNegative, ec.Seed)
		if err != nil {
			return output.Report{}, err
		}
		slog.Info("contextual subsample drawn", "rows", len(records))
	}

	out, err := engine.New(ec, res).Run(records)
	if err != nil {
		return output.Report{}, err
	}
	return output.Report{
		Source:  p.cfg.Data.Input,
		Records: len(records),
		Outcome: out,
	}, nil
}

// Close shuts down the output and the encoder.
func (p *Pipeline) Close() error {
	err := p.output.Close()
	if p.encoder != nil {
		if cerr := p.encoder.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
