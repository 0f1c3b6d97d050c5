// Package jsonfile implements a schema.DocumentSource over a directory of
// collection dumps, such as the output of mongoexport.
//
// Every file named <collection>.json, <collection>.jsonl or
// <collection>.ndjson is one collection. Files may carry a compression suffix
// (.gz, .zst, .lz4, .sz, .s2). A file holds either a JSON array of documents
// or a stream of concatenated documents. Documents are read as MongoDB
// Extended JSON, so {"$oid": "..."} becomes an ObjectId and {"$date": ...} a
// datetime.
package jsonfile

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ajitpratap0/shapescan/pkg/compression"
	"github.com/ajitpratap0/shapescan/pkg/errors"
	"github.com/ajitpratap0/shapescan/pkg/schema"
	gojson "github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var documentExtensions = map[string]bool{
	".json":   true,
	".jsonl":  true,
	".ndjson": true,
}

type dumpFile struct {
	path string
	alg  compression.Algorithm
}

// Source reads collection dumps from a directory.
type Source struct {
	dir    string
	names  []string
	files  map[string]dumpFile
	logger *zap.Logger
}

var _ schema.DocumentSource = (*Source)(nil)

// Open scans dir for collection dumps. Files that are not dumps are ignored;
// two dumps of the same collection are an error.
func Open(dir string, logger *zap.Logger) (*Source, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrorTypeSourceUnavailable, "failed to read dump directory %s", dir)
	}

	s := &Source{
		dir:    dir,
		files:  make(map[string]dumpFile),
		logger: logger,
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		collection, alg, ok := parseFileName(entry.Name())
		if !ok {
			logger.Debug("ignoring file", zap.String("file", entry.Name()))
			continue
		}
		if previous, dup := s.files[collection]; dup {
			return nil, errors.Newf(errors.ErrorTypeConfig,
				"collection %s has two dumps: %s and %s",
				collection, filepath.Base(previous.path), entry.Name()).
				WithDetail(errors.DetailCollection, collection)
		}
		s.files[collection] = dumpFile{path: filepath.Join(dir, entry.Name()), alg: alg}
		s.names = append(s.names, collection)
	}
	sort.Strings(s.names)

	logger.Info("opened dump directory",
		zap.String("path", dir),
		zap.Int("collections", len(s.names)))
	return s, nil
}

// parseFileName splits users.jsonl.gz into users and gzip.
func parseFileName(name string) (string, compression.Algorithm, bool) {
	alg := compression.FromExtension(name)
	base := alg.TrimExtension(name)
	ext := strings.ToLower(filepath.Ext(base))
	if !documentExtensions[ext] {
		return "", compression.None, false
	}
	collection := strings.TrimSuffix(base, filepath.Ext(base))
	if collection == "" {
		return "", compression.None, false
	}
	return collection, alg, true
}

// ListCollections returns the collection names, sorted
func (s *Source) ListCollections(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]string(nil), s.names...), nil
}

// Sample opens a cursor over the first limit documents of a collection dump.
func (s *Source) Sample(ctx context.Context, collection string, limit int) (schema.DocumentCursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, ok := s.files[collection]
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeNotFound, "no dump for collection %s", collection).
			WithDetail(errors.DetailCollection, collection)
	}

	file, err := os.Open(f.path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrorTypeSourceUnavailable, "failed to open %s", f.path).
			WithDetail(errors.DetailCollection, collection)
	}
	r, err := compression.NewReader(file, f.alg)
	if err != nil {
		_ = file.Close()
		return nil, errors.Wrapf(err, errors.ErrorTypeDecode, "failed to decompress %s", f.path).
			WithDetail(errors.DetailCollection, collection)
	}

	c := &cursor{
		collection: collection,
		limit:      limit,
		file:       file,
		body:       r,
	}
	if err := c.start(); err != nil {
		_ = c.Close(ctx)
		return nil, err
	}
	return c, nil
}

// cursor streams raw documents out of one dump file
type cursor struct {
	collection string
	limit      int
	read       int
	array      bool
	file       *os.File
	body       io.ReadCloser
	dec        *gojson.Decoder
	current    gojson.RawMessage
	err        error
	done       bool
}

// start detects whether the dump is a JSON array or a document stream.
func (c *cursor) start() error {
	br := bufio.NewReaderSize(c.body, 64*1024)
	if bom, _ := br.Peek(len(utf8BOM)); bytes.Equal(bom, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	for {
		b, err := br.ReadByte()
		if err == io.EOF {
			c.done = true
			return nil
		}
		if err != nil {
			return c.decodeError(err, "failed to read dump")
		}
		if b == ' ' || b == '\t' || b == '\n' || b == '\r' {
			continue
		}
		if err := br.UnreadByte(); err != nil {
			return c.decodeError(err, "failed to read dump")
		}
		c.array = b == '['
		break
	}

	c.dec = gojson.NewDecoder(br)
	if c.array {
		token, err := c.dec.Token()
		if err != nil {
			return c.decodeError(err, "failed to read JSON array start")
		}
		if delim, ok := token.(gojson.Delim); !ok || delim != '[' {
			return c.decodeError(fmt.Errorf("expected JSON array, got %v", token), "malformed dump")
		}
	}
	return nil
}

func (c *cursor) Next(ctx context.Context) bool {
	if c.done || c.err != nil {
		return false
	}
	if err := ctx.Err(); err != nil {
		c.err = err
		return false
	}
	if c.limit > 0 && c.read >= c.limit {
		c.done = true
		return false
	}
	if c.array && !c.dec.More() {
		c.done = true
		return false
	}

	var raw gojson.RawMessage
	if err := c.dec.Decode(&raw); err != nil {
		if err == io.EOF && !c.array {
			c.done = true
			return false
		}
		c.err = c.decodeError(err, "malformed document")
		return false
	}
	c.current = raw
	c.read++
	return true
}

func (c *cursor) Decode() (bson.D, error) {
	var doc bson.D
	if err := bson.UnmarshalExtJSON(c.current, false, &doc); err != nil {
		return nil, c.decodeError(err, "invalid extended JSON document")
	}
	return doc, nil
}

func (c *cursor) Err() error {
	return c.err
}

func (c *cursor) Close(context.Context) error {
	c.done = true
	bodyErr := c.body.Close()
	if err := c.file.Close(); err != nil {
		return err
	}
	return bodyErr
}

func (c *cursor) decodeError(err error, msg string) error {
	return errors.Wrapf(err, errors.ErrorTypeDecode, "%s at document %d of %s", msg, c.read+1, c.collection).
		WithDetail(errors.DetailCollection, c.collection)
}
