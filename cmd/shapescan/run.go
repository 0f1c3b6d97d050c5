package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ajitpratap0/shapescan/pkg/compression"
	"github.com/ajitpratap0/shapescan/pkg/config"
	"github.com/ajitpratap0/shapescan/pkg/export"
	"github.com/ajitpratap0/shapescan/pkg/logger"
	"github.com/ajitpratap0/shapescan/pkg/metrics"
	"github.com/ajitpratap0/shapescan/pkg/observability"
	"github.com/ajitpratap0/shapescan/pkg/schema"
	"github.com/ajitpratap0/shapescan/pkg/source/jsonfile"
	"github.com/ajitpratap0/shapescan/pkg/source/mongodb"
)

const shutdownTimeout = 5 * time.Second

// runInfer builds the schema of the configured database and exports it
func runInfer(ctx context.Context, cfg *config.Config) error {
	log, err := initLogging(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Inference.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Inference.Timeout)
		defer cancel()
	}
	ctx = runContext(ctx, cfg)
	log = logger.FromContext(ctx, log)

	if cfg.Observability.EnableTracing {
		tracing := observability.DefaultTracingConfig()
		tracing.ServiceVersion = version
		shutdown, err := observability.InitTracing(ctx, tracing)
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				log.Warn("failed to flush spans", zap.Error(err))
			}
		}()
	}

	src, closeSource, err := openSource(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSource()

	collector := metrics.NewCollector("shapescan")
	builder := schema.NewBuilder(schema.Options{
		SampleSize:  cfg.Inference.SampleSize,
		ReadTimeout: cfg.Inference.ReadTimeout,
		Workers:     cfg.Inference.Workers,
		Logger:      log,
		Metrics:     collector,
	})

	log.Info("starting schema inference",
		zap.String("source", cfg.Source.Type),
		zap.Strings("collections", cfg.Source.Collections),
		zap.Int("sample_size", cfg.Inference.SampleSize),
		zap.Int("workers", cfg.Inference.Workers))

	result, err := builder.Build(ctx, src, cfg.Source.Collections)
	if err != nil {
		return err
	}

	exporter, err := newExporter(cfg, log)
	if err != nil {
		return err
	}
	if _, err := exporter.Export(ctx, result.Schema, cfg.Output.Destination); err != nil {
		return err
	}

	collector.MarkCompleted()
	if err := collector.Push(ctx, cfg.Observability.PushGateway, cfg.Observability.Job); err != nil {
		log.Warn("failed to push metrics", zap.Error(err))
	}

	if len(result.Failures) > 0 {
		log.Warn("some collections were skipped", zap.Int("failed", len(result.Failures)))
		if cfg.Inference.Strict {
			return fmt.Errorf("%d of %d collections failed: %w",
				len(result.Failures), len(result.Failures)+result.Schema.Len(), result.Err())
		}
	}
	return nil
}

// runCollections prints the collections a run would scan, one per line
func runCollections(ctx context.Context, cfg *config.Config, out io.Writer) error {
	log, err := initLogging(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx = runContext(ctx, cfg)
	src, closeSource, err := openSource(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSource()

	names := cfg.Source.Collections
	if len(names) == 0 {
		if names, err = src.ListCollections(ctx); err != nil {
			return err
		}
	}
	for _, name := range names {
		fmt.Fprintln(out, name)
	}
	return nil
}

func initLogging(cfg *config.Config) (*zap.Logger, error) {
	if err := logger.Init(logger.Config{
		Level:       cfg.Logging.Level,
		Encoding:    cfg.Logging.Encoding,
		Development: cfg.Logging.Development,
		File:        cfg.Logging.File,
		MaxSizeMB:   cfg.Logging.MaxSizeMB,
		MaxBackups:  cfg.Logging.MaxBackups,
		MaxAgeDays:  cfg.Logging.MaxAgeDays,
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.Get(), nil
}

func runContext(ctx context.Context, cfg *config.Config) context.Context {
	ctx = context.WithValue(ctx, logger.RunIDKey, uuid.NewString())
	if cfg.Source.Type == config.SourceMongoDB {
		ctx = context.WithValue(ctx, logger.DatabaseKey, cfg.Source.Database)
	}
	return ctx
}

// openSource returns the configured document source and a function releasing it
func openSource(ctx context.Context, cfg *config.Config, log *zap.Logger) (schema.DocumentSource, func(), error) {
	switch cfg.Source.Type {
	case config.SourceJSONFile:
		src, err := jsonfile.Open(cfg.Source.Path, log)
		if err != nil {
			return nil, nil, err
		}
		return src, func() {}, nil
	default:
		sampling, err := mongodb.ParseSampling(cfg.Inference.Sampling)
		if err != nil {
			return nil, nil, err
		}
		src, err := mongodb.Connect(ctx, mongodb.Config{
			URI:            cfg.Source.URI,
			Database:       cfg.Source.Database,
			ConnectTimeout: cfg.Source.ConnectTimeout,
			IncludeSystem:  cfg.Source.IncludeSystem,
			Sampling:       sampling,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		return src, func() {
			cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			if err := src.Close(cctx); err != nil {
				log.Warn("failed to disconnect", zap.Error(err))
			}
		}, nil
	}
}

func newExporter(cfg *config.Config, log *zap.Logger) (*export.Exporter, error) {
	format, err := export.ParseFormat(cfg.Output.Format)
	if err != nil {
		return nil, err
	}
	opts := export.Options{
		Format: format,
		Indent: cfg.Output.Indent,
		Sink: export.SinkOptions{
			S3Region:           cfg.Output.S3Region,
			S3Endpoint:         cfg.Output.S3Endpoint,
			GCSCredentialsFile: cfg.Output.GCSCredentialsFile,
		},
		Logger: log,
	}
	// An unset compression is derived from the destination extension.
	if cfg.Output.Compression != "" {
		if opts.Compression, err = compression.ParseAlgorithm(cfg.Output.Compression); err != nil {
			return nil, err
		}
	}
	return export.New(opts), nil
}
