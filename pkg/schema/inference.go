package schema

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/ajitpratap0/shapescan/pkg/errors"
	"github.com/ajitpratap0/shapescan/pkg/logger"
	"github.com/ajitpratap0/shapescan/pkg/shape"
	"go.uber.org/zap"
)

const (
	// DefaultSampleSize is the number of documents read per collection
	DefaultSampleSize = 100
	// DefaultReadTimeout bounds each read against the source
	DefaultReadTimeout = 30 * time.Second
)

// Stats describes one collection inference.
type Stats struct {
	// Documents is the number of documents folded into the shape
	Documents int
	// UnionFields counts the positions of the shape holding a union
	UnionFields int
	Duration    time.Duration
}

// Inferrer derives the schema of a single collection. It is safe for
// concurrent use; every call owns its accumulator.
type Inferrer struct {
	sampleSize  int
	readTimeout time.Duration
	logger      *zap.Logger
}

// NewInferrer creates an inferrer. Zero options fall back to the defaults.
func NewInferrer(opts Options) *Inferrer {
	opts = opts.withDefaults()
	return &Inferrer{
		sampleSize:  opts.SampleSize,
		readTimeout: opts.ReadTimeout,
		logger:      opts.Logger,
	}
}

// Infer samples up to the configured number of documents of collection, in
// source order, and returns their merged and flattened shape. A collection
// without documents yields Empty. Errors only come from the source and carry
// the collection name.
func (i *Inferrer) Infer(ctx context.Context, src DocumentSource, collection string) (*shape.Shape, Stats, error) {
	start := time.Now()
	var stats Stats

	ctx = context.WithValue(ctx, logger.CollectionKey, collection)
	log := logger.FromContext(ctx, i.logger)

	openCtx, cancel := i.readContext(ctx)
	cursor, err := src.Sample(openCtx, collection, i.sampleSize)
	cancel()
	if err != nil {
		return nil, stats, sourceError(ctx, err, collection, "failed to open sample")
	}
	defer func() {
		if cerr := cursor.Close(context.WithoutCancel(ctx)); cerr != nil {
			log.Warn("failed to close cursor", zap.Error(cerr))
		}
	}()

	acc := shape.Empty()
	for stats.Documents < i.sampleSize {
		readCtx, cancel := i.readContext(ctx)
		ok := cursor.Next(readCtx)
		cancel()
		if !ok {
			if err := cursor.Err(); err != nil {
				return nil, stats, sourceError(ctx, err, collection, "failed to read sample")
			}
			break
		}

		doc, err := cursor.Decode()
		if err != nil {
			return nil, stats, errors.Wrapf(err, errors.ErrorTypeDecode,
				"failed to decode document %d of %s", stats.Documents, collection).
				WithDetail(errors.DetailCollection, collection)
		}
		acc = shape.Merge(acc, shape.ProbeDocument(doc))
		stats.Documents++
	}

	result := shape.Flatten(acc)
	stats.UnionFields = CountUnions(result)
	stats.Duration = time.Since(start)

	log.Debug("collection inferred",
		zap.Int("documents", stats.Documents),
		zap.Int("union_fields", stats.UnionFields),
		zap.Duration("duration", stats.Duration))
	return result, stats, nil
}

func (i *Inferrer) readContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if i.readTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, i.readTimeout)
}

// sourceError classifies a source failure. An expired read deadline becomes a
// timeout; errors already typed by the source keep their type.
func sourceError(ctx context.Context, err error, collection, msg string) error {
	errType := errors.ErrorTypeSourceUnavailable
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		errType = errors.ErrorTypeTimeout
	case errors.TypeOf(err) != "":
		errType = errors.TypeOf(err)
	case ctx.Err() != nil:
		errType = errors.ErrorTypeTimeout
	}
	return errors.Wrapf(err, errType, "%s of %s", msg, collection).
		WithDetail(errors.DetailCollection, collection)
}

// CountUnions returns the number of union nodes in s.
func CountUnions(s *shape.Shape) int {
	switch s.Kind() {
	case shape.KindObject:
		n := 0
		for _, f := range s.Fields() {
			n += CountUnions(f.Shape)
		}
		return n
	case shape.KindList:
		return CountUnions(s.Elem())
	case shape.KindUnion:
		n := 1
		for _, a := range s.Alternatives() {
			n += CountUnions(a)
		}
		return n
	default:
		return 0
	}
}
