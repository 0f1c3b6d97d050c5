// Package mongodb implements a schema.DocumentSource backed by a live MongoDB
// database.
//
// The source is strictly read-only: it lists collection names and opens
// bounded cursors, either over the first documents in natural order or over a
// server side random sample.
package mongodb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ajitpratap0/shapescan/pkg/errors"
	"github.com/ajitpratap0/shapescan/pkg/schema"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Sampling selects which documents a cursor returns.
type Sampling string

const (
	// SamplingFirst returns the first documents in natural order
	SamplingFirst Sampling = "first"
	// SamplingRandom returns a random sample using the $sample stage
	SamplingRandom Sampling = "random"
)

// ParseSampling resolves a sampling mode name. The empty string means
// SamplingFirst.
func ParseSampling(name string) (Sampling, error) {
	switch s := Sampling(strings.ToLower(strings.TrimSpace(name))); s {
	case "":
		return SamplingFirst, nil
	case SamplingFirst, SamplingRandom:
		return s, nil
	default:
		return "", errors.Newf(errors.ErrorTypeConfig, "unsupported sampling mode: %s", name)
	}
}

// Config contains the connection settings of the source.
type Config struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	// IncludeSystem keeps system.* collections in ListCollections
	IncludeSystem bool
	Sampling      Sampling
	// BatchSize caps the documents fetched per round trip; zero lets the
	// sample size decide
	BatchSize int32
}

// Source reads documents from one MongoDB database.
type Source struct {
	client   *mongo.Client
	database *mongo.Database
	config   Config
	logger   *zap.Logger
}

var _ schema.DocumentSource = (*Source)(nil)

// Connect creates a client, verifies the server is reachable and returns a
// source for config.Database. The caller owns the source and must Close it.
func Connect(ctx context.Context, config Config, logger *zap.Logger) (*Source, error) {
	if config.Database == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "database name is required")
	}
	if config.Sampling == "" {
		config.Sampling = SamplingFirst
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOpts := options.Client().
		ApplyURI(config.URI).
		SetAppName("shapescan").
		SetConnectTimeout(config.ConnectTimeout).
		SetServerSelectionTimeout(config.ConnectTimeout)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSourceUnavailable, "failed to connect to MongoDB").
			WithDetail(errors.DetailDatabase, config.Database)
	}

	pingCtx, cancel := context.WithTimeout(ctx, config.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx)) // Best effort disconnect
		return nil, errors.Wrap(err, classify(err), "failed to ping MongoDB").
			WithDetail(errors.DetailDatabase, config.Database)
	}

	logger.Info("connected to MongoDB",
		zap.String("database", config.Database),
		zap.String("sampling", string(config.Sampling)))

	return &Source{
		client:   client,
		database: client.Database(config.Database),
		config:   config,
		logger:   logger,
	}, nil
}

// Database returns the name of the database the source reads
func (s *Source) Database() string {
	return s.config.Database
}

// ListCollections returns the collection names of the database, sorted by
// the server. system.* collections are skipped unless configured otherwise.
func (s *Source) ListCollections(ctx context.Context) ([]string, error) {
	names, err := s.database.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, errors.Wrap(err, classify(err), "failed to list collections").
			WithDetail(errors.DetailDatabase, s.config.Database)
	}
	if !s.config.IncludeSystem {
		names = withoutSystem(names)
	}
	return names, nil
}

// Sample opens a cursor over at most limit documents of collection.
func (s *Source) Sample(ctx context.Context, collection string, limit int) (schema.DocumentCursor, error) {
	if limit <= 0 {
		return nil, errors.Newf(errors.ErrorTypeConfig, "sample limit must be positive, got %d", limit)
	}
	coll := s.database.Collection(collection)

	var (
		cur *mongo.Cursor
		err error
	)
	switch s.config.Sampling {
	case SamplingRandom:
		cur, err = coll.Aggregate(ctx, samplePipeline(limit),
			options.Aggregate().SetBatchSize(s.batchSize(limit)))
	default:
		cur, err = coll.Find(ctx, bson.D{}, options.Find().
			SetLimit(int64(limit)).
			SetBatchSize(s.batchSize(limit)))
	}
	if err != nil {
		return nil, errors.Wrapf(err, classify(err), "failed to query %s", collection).
			WithDetail(errors.DetailCollection, collection)
	}
	return &cursor{cur: cur, collection: collection}, nil
}

// Close disconnects the client
func (s *Source) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	return nil
}

func (s *Source) batchSize(limit int) int32 {
	if s.config.BatchSize > 0 && int(s.config.BatchSize) < limit {
		return s.config.BatchSize
	}
	return int32(limit)
}

func samplePipeline(limit int) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$sample", Value: bson.D{{Key: "size", Value: limit}}}},
	}
}

func withoutSystem(names []string) []string {
	out := names[:0]
	for _, n := range names {
		if !strings.HasPrefix(n, "system.") {
			out = append(out, n)
		}
	}
	return out
}

func classify(err error) errors.ErrorType {
	if mongo.IsTimeout(err) {
		return errors.ErrorTypeTimeout
	}
	return errors.ErrorTypeSourceUnavailable
}

// cursor adapts a mongo.Cursor to schema.DocumentCursor
type cursor struct {
	cur        *mongo.Cursor
	collection string
}

func (c *cursor) Next(ctx context.Context) bool {
	return c.cur.Next(ctx)
}

func (c *cursor) Decode() (bson.D, error) {
	var doc bson.D
	if err := c.cur.Decode(&doc); err != nil {
		return nil, errors.Wrapf(err, errors.ErrorTypeDecode, "failed to decode document of %s", c.collection).
			WithDetail(errors.DetailCollection, c.collection)
	}
	return doc, nil
}

func (c *cursor) Err() error {
	if err := c.cur.Err(); err != nil {
		return errors.Wrapf(err, classify(err), "cursor over %s failed", c.collection).
			WithDetail(errors.DetailCollection, c.collection)
	}
	return nil
}

func (c *cursor) Close(ctx context.Context) error {
	return c.cur.Close(ctx)
}
