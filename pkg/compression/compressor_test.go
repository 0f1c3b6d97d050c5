package compression

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	payload := []byte(strings.Repeat(`{"users":{"_id":"ObjectId","name":"string"}}`, 200))

	for _, alg := range Algorithms() {
		for _, level := range []Level{Fastest, Default, Better, Best} {
			t.Run(string(alg), func(t *testing.T) {
				compressed, err := Compress(payload, alg, level)
				require.NoError(t, err)
				if alg != None {
					assert.Less(t, len(compressed), len(payload))
				}

				restored, err := Decompress(compressed, alg)
				require.NoError(t, err)
				assert.Equal(t, payload, restored)
			})
		}
	}
}

func TestStreaming(t *testing.T) {
	payload := []byte(strings.Repeat("abc", 1000))

	for _, alg := range Algorithms() {
		t.Run(string(alg), func(t *testing.T) {
			var buf bytes.Buffer
			w, err := NewWriter(&buf, alg, Default)
			require.NoError(t, err)
			_, err = w.Write(payload)
			require.NoError(t, err)
			require.NoError(t, w.Close())

			r, err := NewReader(&buf, alg)
			require.NoError(t, err)
			defer r.Close()
			got, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, payload, got)
		})
	}
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		in      string
		want    Algorithm
		wantErr bool
	}{
		{"", None, false},
		{"none", None, false},
		{"GZIP", Gzip, false},
		{"gz", Gzip, false},
		{"zst", Zstd, false},
		{" lz4 ", LZ4, false},
		{"snappy", Snappy, false},
		{"s2", S2, false},
		{"brotli", None, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAlgorithm(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unsupported compression algorithm")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtensions(t *testing.T) {
	assert.Equal(t, Gzip, FromExtension("schema.json.gz"))
	assert.Equal(t, Zstd, FromExtension("dump/users.jsonl.ZST"))
	assert.Equal(t, LZ4, FromExtension("a.lz4"))
	assert.Equal(t, Snappy, FromExtension("a.sz"))
	assert.Equal(t, S2, FromExtension("a.s2"))
	assert.Equal(t, None, FromExtension("schema.json"))

	assert.Equal(t, "users.jsonl", Zstd.TrimExtension("users.jsonl.zst"))
	assert.Equal(t, "users.jsonl", None.TrimExtension("users.jsonl"))
	assert.Equal(t, "", None.Extension())
	assert.Equal(t, ".gz", Gzip.Extension())
}

func TestUnsupported(t *testing.T) {
	_, err := NewWriter(io.Discard, Algorithm("brotli"), Default)
	assert.Error(t, err)
	_, err = NewReader(strings.NewReader(""), Algorithm("brotli"))
	assert.Error(t, err)
}
