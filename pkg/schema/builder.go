package schema

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/ajitpratap0/shapescan/pkg/errors"
	"github.com/ajitpratap0/shapescan/pkg/logger"
	"github.com/ajitpratap0/shapescan/pkg/metrics"
	"github.com/ajitpratap0/shapescan/pkg/observability"
	"github.com/ajitpratap0/shapescan/pkg/shape"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Options configures an Inferrer or a Builder.
type Options struct {
	// SampleSize is the maximum number of documents read per collection
	SampleSize int
	// ReadTimeout bounds every read against the source; negative disables it
	ReadTimeout time.Duration
	// Workers is the number of collections inferred concurrently
	Workers int
	// Logger defaults to the global logger
	Logger *zap.Logger
	// Metrics is optional
	Metrics *metrics.Collector
}

func (o Options) withDefaults() Options {
	if o.SampleSize <= 0 {
		o.SampleSize = DefaultSampleSize
	}
	if o.ReadTimeout == 0 {
		o.ReadTimeout = DefaultReadTimeout
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.Logger == nil {
		o.Logger = logger.Get()
	}
	return o
}

// Failure records a collection that could not be inferred.
type Failure struct {
	Collection string
	Err        error
}

func (f Failure) Error() string {
	return fmt.Sprintf("collection %s: %v", f.Collection, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Result is the outcome of a database build.
type Result struct {
	// Schema holds every collection that was inferred, in input order
	Schema *DatabaseSchema
	// Failures holds the skipped collections, in input order
	Failures []Failure
	// Stats holds the statistics of every inferred collection
	Stats map[string]Stats
}

// Err joins the collection failures, or returns nil when there are none.
func (r *Result) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return stderrors.Join(errs...)
}

// Builder assembles the schema of a whole database.
type Builder struct {
	inferrer *Inferrer
	workers  int
	logger   *zap.Logger
	metrics  *metrics.Collector
}

// NewBuilder creates a builder. Zero options fall back to the defaults.
func NewBuilder(opts Options) *Builder {
	opts = opts.withDefaults()
	return &Builder{
		inferrer: NewInferrer(opts),
		workers:  opts.Workers,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}
}

// Build infers every collection and returns the database schema. When
// collections is empty the source is asked for its collection list, and a
// failure to list is returned as an error. Failures of single collections are
// isolated into Result.Failures. The output order is the input order
// whatever the number of workers.
func (b *Builder) Build(ctx context.Context, src DocumentSource, collections []string) (result *Result, err error) {
	ctx, span := observability.StartSpan(ctx, "schema.build")
	defer func() { span.Finish(err) }()
	log := logger.FromContext(ctx, b.logger)

	if len(collections) == 0 {
		collections, err = src.ListCollections(ctx)
		if err != nil {
			return nil, sourceError(ctx, err, "database", "failed to list collections")
		}
	}
	collections = uniqueNames(collections)
	span.SetAttribute("collections", len(collections))
	span.SetAttribute("workers", b.workers)

	shapes := make([]*shape.Shape, len(collections))
	stats := make([]Stats, len(collections))
	errs := make([]error, len(collections))

	var g errgroup.Group
	g.SetLimit(b.workers)
	for i, name := range collections {
		i, name := i, name
		g.Go(func() error {
			shapes[i], stats[i], errs[i] = b.inferOne(ctx, src, name)
			return nil
		})
	}
	_ = g.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, errors.Wrap(ctxErr, errors.ErrorTypeTimeout, "schema build interrupted")
	}

	result = &Result{
		Schema: NewDatabaseSchema(),
		Stats:  make(map[string]Stats, len(collections)),
	}
	for i, name := range collections {
		if errs[i] != nil {
			result.Failures = append(result.Failures, Failure{Collection: name, Err: errs[i]})
			continue
		}
		result.Schema.Set(name, shapes[i])
		result.Stats[name] = stats[i]
	}

	log.Info("database schema built",
		zap.Int("collections", result.Schema.Len()),
		zap.Int("failed", len(result.Failures)))
	return result, nil
}

func (b *Builder) inferOne(ctx context.Context, src DocumentSource, collection string) (*shape.Shape, Stats, error) {
	ctx, span := observability.StartSpan(ctx, "schema.infer")
	span.SetAttribute("collection", collection)
	timer := metrics.NewTimer(collection)

	s, stats, err := b.inferrer.Infer(ctx, src, collection)
	span.SetAttribute("documents", stats.Documents)
	span.Finish(err)

	if b.metrics != nil {
		b.metrics.ObserveCollection(collection, stats.Documents, timer.Stop(), err)
		if err == nil {
			b.metrics.SetUnionFields(collection, stats.UnionFields)
		}
	}
	if err != nil {
		logger.FromContext(ctx, b.logger).Warn("skipping collection",
			zap.String("collection", collection),
			zap.String("error_type", string(errors.TypeOf(err))),
			zap.Error(err))
	}
	return s, stats, err
}

// uniqueNames drops repeated names, keeping the first occurrence.
func uniqueNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
