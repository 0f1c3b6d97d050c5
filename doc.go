// Package shapescan infers structural schemas for the collections of a
// MongoDB database.
//
// # Overview
//
// MongoDB collections carry no schema. Shapescan samples a bounded number of
// documents from every collection, derives the shape of each document and
// merges the shapes into one description per collection. Fields that were
// seen with several incompatible types become unions; fields that were
// always null or always empty arrays stay empty.
//
// The result is written as a single artifact mapping collection names to
// schemas:
//
//	{
//	    "users": {
//	        "_id": "ObjectId",
//	        "name": "string",
//	        "age": ["float", "int"]
//	    },
//	    "sessions": {}
//	}
//
// # Quick Start
//
//	import (
//	    "github.com/ajitpratap0/shapescan/pkg/schema"
//	    "github.com/ajitpratap0/shapescan/pkg/source/mongodb"
//	    "github.com/ajitpratap0/shapescan/pkg/export"
//	)
//
//	src, err := mongodb.Connect(ctx, mongodb.Config{
//	    URI:      "mongodb://localhost:27017/",
//	    Database: "LibreChat",
//	}, logger)
//	if err != nil {
//	    return err
//	}
//	defer src.Close(ctx)
//
//	result, err := schema.NewBuilder(schema.Options{SampleSize: 100}).Build(ctx, src, nil)
//	if err != nil {
//	    return err
//	}
//	_, err = export.New(export.Options{Indent: 4}).Export(ctx, result.Schema, "mongo_schema.json")
//
// # Package Structure
//
//	pkg/shape         - Shape algebra: probe, merge and flatten
//	pkg/schema        - Collection inference and database assembly
//	pkg/source        - Document sources (MongoDB, JSON dumps)
//	pkg/export        - Artifact encoding and destinations (file, stdout, S3, GCS)
//	pkg/compression   - Compression codecs for artifacts and dumps
//	pkg/config        - Configuration loading
//	pkg/errors        - Structured error handling
//	pkg/logger        - Structured logging
//	pkg/metrics       - Prometheus run metrics
//	pkg/observability - OpenTelemetry tracing
//
// # Command Line
//
//	shapescan infer --uri mongodb://localhost:27017/ --database LibreChat
//	shapescan infer --source-type jsonfile --path ./dump -o s3://schemas/librechat.json.zst
//	shapescan collections --database LibreChat
//	shapescan config init shapescan.yaml
//
// Configuration files use the ${VAR_NAME} syntax for environment variables,
// and every key can be overridden with a SHAPESCAN_<SECTION>_<KEY> variable.
package shapescan
