// Package export serializes an inferred database schema and writes it to a
// destination.
//
// The artifact is JSON or YAML, optionally compressed, and stored on the
// local filesystem, standard output, Amazon S3 or Google Cloud Storage:
//
//	exp := export.New(export.Options{Format: export.JSON, Indent: 4})
//	n, err := exp.Export(ctx, result.Schema, "s3://schemas/librechat.json.zst")
package export

import (
	"context"
	"strconv"
	"time"

	"github.com/ajitpratap0/shapescan/pkg/compression"
	"github.com/ajitpratap0/shapescan/pkg/errors"
	"github.com/ajitpratap0/shapescan/pkg/schema"
	"go.uber.org/zap"
)

// Options configures an Exporter.
type Options struct {
	// Format is the serialization; empty guesses it from the destination
	Format Format
	// Compression is the algorithm; empty derives it from the destination
	// extension
	Compression compression.Algorithm
	Level       compression.Level
	// Indent is the JSON indentation width
	Indent int
	Sink   SinkOptions
	Logger *zap.Logger
}

// Exporter writes schema artifacts.
type Exporter struct {
	opts   Options
	logger *zap.Logger
}

// New creates an exporter
func New(opts Options) *Exporter {
	if opts.Level == 0 {
		opts.Level = compression.Default
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{opts: opts, logger: logger}
}

// Export encodes db and writes it to destination, returning the number of
// bytes stored.
func (e *Exporter) Export(ctx context.Context, db *schema.DatabaseSchema, destination string) (int, error) {
	sink, err := NewSink(destination, e.opts.Sink)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeConfig, "invalid output destination").
			WithDetail(errors.DetailDestination, destination)
	}
	return e.ExportTo(ctx, db, sink)
}

// ExportTo encodes db and writes it to sink.
func (e *Exporter) ExportTo(ctx context.Context, db *schema.DatabaseSchema, sink Sink) (int, error) {
	destination := sink.String()

	format := e.opts.Format
	if format == "" {
		format = FormatFromPath(destination)
	}
	alg := e.opts.Compression
	if alg == "" {
		alg = compression.FromExtension(destination)
	}

	data, err := Encode(db, format, e.opts.Indent)
	if err != nil {
		return 0, errors.Wrap(err, errors.TypeOf(err), "failed to encode schema").
			WithDetail(errors.DetailDestination, destination)
	}
	plain := len(data)

	data, err = compression.Compress(data, alg, e.opts.Level)
	if err != nil {
		return 0, errors.Wrapf(err, errors.ErrorTypeSerialization, "failed to compress schema with %s", alg).
			WithDetail(errors.DetailDestination, destination)
	}

	obj := Object{
		Data:        data,
		ContentType: format.ContentType(),
		Metadata: map[string]string{
			"collections": strconv.Itoa(db.Len()),
			"format":      string(format),
			"compression": string(alg),
			"created":     time.Now().UTC().Format(time.RFC3339),
		},
	}
	if alg == compression.Gzip {
		obj.ContentEncoding = "gzip"
	}

	if err := sink.Write(ctx, obj); err != nil {
		return 0, errors.Wrapf(err, errors.ErrorTypeSerialization, "failed to write schema to %s", destination).
			WithDetail(errors.DetailDestination, destination)
	}

	e.logger.Info("schema exported",
		zap.String("destination", destination),
		zap.String("format", string(format)),
		zap.String("compression", string(alg)),
		zap.Int("collections", db.Len()),
		zap.Int("bytes", len(data)),
		zap.Int("uncompressed_bytes", plain))
	return len(data), nil
}
