package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ajitpratap0/shapescan/pkg/compression"
	"github.com/ajitpratap0/shapescan/pkg/errors"
	"github.com/ajitpratap0/shapescan/pkg/schema"
	"github.com/ajitpratap0/shapescan/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const usersDump = `
[
  {"_id": {"$oid": "5f1d7a3e9c1b2a0001a1b2c3"}, "name": "ada", "joined": {"$date": "2024-01-01T00:00:00Z"}},
  {"_id": {"$oid": "5f1d7a3e9c1b2a0001a1b2c4"}, "name": "alan", "logins": {"$numberLong": "42"}}
]`

const convosDump = `{"title": "hello", "messages": [{"text": "hi", "score": 0.5}]}
{"title": null, "messages": []}
{"title": "again", "tags": ["a"]}
`

func lookup(doc bson.D, key string) interface{} {
	for _, e := range doc {
		if e.Key == key {
			return e.Value
		}
	}
	return nil
}

func writeFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0600))
}

func compressed(t *testing.T, data string, alg compression.Algorithm) []byte {
	t.Helper()
	out, err := compression.Compress([]byte(data), alg, compression.Default)
	require.NoError(t, err)
	return out
}

func newDumpDir(t *testing.T) string {
	dir := t.TempDir()
	writeFile(t, dir, "users.json", []byte("\xEF\xBB\xBF"+usersDump))
	writeFile(t, dir, "convos.jsonl.gz", compressed(t, convosDump, compression.Gzip))
	writeFile(t, dir, "messages.ndjson.zst", compressed(t, `{"n": 1}{"n": 1.5}{"n": null}`, compression.Zstd))
	writeFile(t, dir, "empty.json", []byte("  \n"))
	writeFile(t, dir, "README.md", []byte("not a dump"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.json"), 0700))
	return dir
}

func TestParseFileName(t *testing.T) {
	tests := []struct {
		name       string
		collection string
		alg        compression.Algorithm
		ok         bool
	}{
		{"users.json", "users", compression.None, true},
		{"users.JSONL", "users", compression.None, true},
		{"convos.ndjson.gz", "convos", compression.Gzip, true},
		{"a.b.json.lz4", "a.b", compression.LZ4, true},
		{"data.json.sz", "data", compression.Snappy, true},
		{"notes.txt", "", compression.None, false},
		{"archive.gz", "", compression.None, false},
		{".json", "", compression.None, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collection, alg, ok := parseFileName(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.collection, collection)
			assert.Equal(t, tt.alg, alg)
		})
	}
}

func TestOpenAndList(t *testing.T) {
	src, err := Open(newDumpDir(t), testutil.TestLogger(t))
	require.NoError(t, err)

	names, err := src.ListCollections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"convos", "empty", "messages", "users"}, names)
}

func TestOpenErrors(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"), nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSourceUnavailable))

	dir := t.TempDir()
	writeFile(t, dir, "users.json", []byte("[]"))
	writeFile(t, dir, "users.jsonl.gz", compressed(t, "{}", compression.Gzip))
	_, err = Open(dir, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	assert.Equal(t, "users", errors.CollectionOf(err))
}

func TestSampleExtendedJSON(t *testing.T) {
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	src, err := Open(newDumpDir(t), testutil.TestLogger(t))
	require.NoError(t, err)

	cur, err := src.Sample(ctx, "users", 10)
	require.NoError(t, err)
	defer cur.Close(ctx)

	require.True(t, cur.Next(ctx))
	doc, err := cur.Decode()
	require.NoError(t, err)

	assert.IsType(t, primitive.ObjectID{}, lookup(doc, "_id"))
	assert.IsType(t, primitive.DateTime(0), lookup(doc, "joined"))
	assert.Equal(t, "_id", doc[0].Key)

	require.True(t, cur.Next(ctx))
	doc, err = cur.Decode()
	require.NoError(t, err)
	assert.Equal(t, int64(42), lookup(doc, "logins"))

	assert.False(t, cur.Next(ctx))
	assert.NoError(t, cur.Err())
}

func TestSampleLimit(t *testing.T) {
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	src, err := Open(newDumpDir(t), testutil.TestLogger(t))
	require.NoError(t, err)

	cur, err := src.Sample(ctx, "convos", 2)
	require.NoError(t, err)
	defer cur.Close(ctx)

	n := 0
	for cur.Next(ctx) {
		n++
	}
	require.NoError(t, cur.Err())
	assert.Equal(t, 2, n)
}

func TestSampleErrors(t *testing.T) {
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	dir := t.TempDir()
	writeFile(t, dir, "truncated.json", []byte(`[{"a": 1}, {"a": `))
	writeFile(t, dir, "scalars.jsonl", []byte("{\"a\": 1}\n42\n"))
	writeFile(t, dir, "corrupt.json.gz", []byte("definitely not gzip"))

	src, err := Open(dir, testutil.TestLogger(t))
	require.NoError(t, err)

	_, err = src.Sample(ctx, "unknown", 10)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))

	_, err = src.Sample(ctx, "corrupt", 10)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeDecode))

	cur, err := src.Sample(ctx, "truncated", 10)
	require.NoError(t, err)
	require.True(t, cur.Next(ctx))
	assert.False(t, cur.Next(ctx))
	require.Error(t, cur.Err())
	assert.True(t, errors.IsType(cur.Err(), errors.ErrorTypeDecode))
	assert.Contains(t, cur.Err().Error(), "document 2 of truncated")
	require.NoError(t, cur.Close(ctx))

	cur, err = src.Sample(ctx, "scalars", 10)
	require.NoError(t, err)
	require.True(t, cur.Next(ctx))
	_, err = cur.Decode()
	require.NoError(t, err)
	require.True(t, cur.Next(ctx))
	_, err = cur.Decode()
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeDecode))
	assert.Equal(t, "scalars", errors.CollectionOf(err))
	require.NoError(t, cur.Close(ctx))
}

func TestSampleHonoursContext(t *testing.T) {
	src, err := Open(newDumpDir(t), testutil.TestLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cur, err := src.Sample(ctx, "convos", 10)
	require.NoError(t, err)
	defer cur.Close(ctx)

	cancel()
	assert.False(t, cur.Next(ctx))
	assert.ErrorIs(t, cur.Err(), context.Canceled)
}

func TestBuildFromDump(t *testing.T) {
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	src, err := Open(newDumpDir(t), testutil.TestLogger(t))
	require.NoError(t, err)

	result, err := schema.NewBuilder(schema.Options{Logger: testutil.TestLogger(t)}).Build(ctx, src, nil)
	require.NoError(t, err)
	require.NoError(t, result.Err())

	data, err := result.Schema.MarshalJSON()
	require.NoError(t, err)
	want := `{` +
		`"convos":{"title":"string","messages":[{"text":"string","score":"float"}],"tags":["string"]},` +
		`"empty":{},` +
		`"messages":{"n":["float","int"]},` +
		`"users":{"_id":"ObjectId","name":"string","joined":"datetime","logins":"int"}` +
		`}`
	assert.Equal(t, want, string(data))
	assert.False(t, strings.Contains(string(data), "$oid"))
}
