package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexflint/go-arg"

	"github.com/crimson-sun/helpful/internal/config"
	"github.com/crimson-sun/helpful/internal/engine/embedder"
	"github.com/crimson-sun/helpful/internal/logging"
	"github.com/crimson-sun/helpful/internal/output"
	"github.com/crimson-sun/helpful/internal/output/csvtable"
	"github.com/crimson-sun/helpful/internal/output/file"
	"github.com/crimson-sun/helpful/internal/output/multi"
	"github.com/crimson-sun/helpful/internal/output/stdout"
	"github.com/crimson-sun/helpful/internal/output/summary"
	"github.com/crimson-sun/helpful/internal/pipeline"
)

func main() {
	var args config.Args
	parser := arg.MustParse(&args)
	cfg, err := config.Load(args)
	if err != nil {
		parser.Fail(err.Error())
	}

	logging.Init(cfg.Log.Format, logging.ParseLevel(cfg.Log.Level))

	grids, err := config.LoadGrids(cfg.Model.GridPath)
	if err != nil {
		log.Fatalf("failed to load grids: %v", err)
	}

	// The transformer is only loaded when a contextual strategy runs.
	var enc embedder.Encoder
	if cfg.Representation.NeedsEncoder() {
		rc := cfg.Representation
		onnx, err := embedder.New(rc.ModelPath, rc.VocabPath,
			embedder.WithLayers(rc.Layers),
			embedder.WithPooling(rc.Pooling),
			embedder.WithMaxSeqLen(rc.MaxSeqLen),
			embedder.WithCacheSize(rc.CacheSize),
			embedder.WithLibraryPath(rc.LibraryPath),
			embedder.WithThreads(rc.Threads),
		)
		if err != nil {
			log.Fatalf("failed to create encoder: %v", err)
		}
		enc = onnx
	}

	out, err := buildOutput(cfg.Output)
	if err != nil {
		log.Fatalf("failed to create output: %v", err)
	}

	p := pipeline.New(cfg, grids, enc, out)

	// Set up graceful shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "\nreceived %v, stopping after the current experiment...\n", sig)
		cancel()
	}()

	slog.Info("helpful: starting",
		"input", cfg.Data.Input,
		"family", cfg.Model.Family.String(),
		"mode", cfg.Model.Mode.String(),
	)
	runErr := p.Run(ctx)
	if err := p.Close(); err != nil {
		slog.Error("close failed", "error", err)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Fatalf("pipeline error: %v", runErr)
	}
}

func buildOutput(oc config.OutputConfig) (output.Output, error) {
	m := multi.New()
	switch oc.Format {
	case "stdout":
		m.Add(stdout.New(oc.Verbosity, oc.Pretty))
	case "file":
		var opts []file.Option
		if oc.Truncate {
			opts = append(opts, file.WithTruncate())
		}
		f, err := file.New(oc.Path, oc.Verbosity, opts...)
		if err != nil {
			return nil, err
		}
		m.Add(f)
	}
	if oc.CVTablePath != "" {
		c, err := csvtable.New(oc.CVTablePath)
		if err != nil {
			m.Close()
			return nil, err
		}
		m.Add(c)
	}
	if oc.Summary {
		m.Add(summary.New(os.Stderr))
	}
	return m, nil
}
