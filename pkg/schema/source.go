// Package schema infers the structural schema of MongoDB collections and
// databases from sampled documents.
//
// An Inferrer reads a bounded sample of one collection through a
// DocumentSource and folds every document into a single shape. A Builder runs
// the Inferrer over many collections and assembles a DatabaseSchema, keeping
// going when an individual collection fails.
//
// # Basic Usage
//
//	builder := schema.NewBuilder(schema.Options{SampleSize: 100, Workers: 4})
//	result, err := builder.Build(ctx, src, nil)
//	if err != nil {
//	    return err // the collection list could not be obtained
//	}
//	for _, f := range result.Failures {
//	    log.Printf("skipped %s: %v", f.Collection, f.Err)
//	}
//	data, err := result.Schema.MarshalJSON()
package schema

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
)

// DocumentSource is the read-only view of a database the inference runs
// against.
type DocumentSource interface {
	// ListCollections returns the collection names of the database
	ListCollections(ctx context.Context) ([]string, error)
	// Sample opens a cursor over at most limit documents of collection
	Sample(ctx context.Context, collection string, limit int) (DocumentCursor, error)
}

// DocumentCursor iterates over sampled documents.
type DocumentCursor interface {
	// Next advances to the next document, returning false when the cursor is
	// exhausted or failed; Err tells the two apart
	Next(ctx context.Context) bool
	// Decode returns the current document
	Decode() (bson.D, error)
	// Err returns the error that stopped iteration, if any
	Err() error
	// Close releases the cursor
	Close(ctx context.Context) error
}
