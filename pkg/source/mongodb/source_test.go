package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/ajitpratap0/shapescan/pkg/errors"
	"github.com/ajitpratap0/shapescan/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestParseSampling(t *testing.T) {
	tests := []struct {
		in      string
		want    Sampling
		wantErr bool
	}{
		{"", SamplingFirst, false},
		{"first", SamplingFirst, false},
		{" RANDOM ", SamplingRandom, false},
		{"last", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSampling(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWithoutSystem(t *testing.T) {
	names := []string{"users", "system.views", "convos", "system.profile", "systemic"}
	assert.Equal(t, []string{"users", "convos", "systemic"}, withoutSystem(names))
}

func TestSamplePipeline(t *testing.T) {
	pipeline := samplePipeline(25)
	require.Len(t, pipeline, 1)
	assert.Equal(t, bson.D{{Key: "$sample", Value: bson.D{{Key: "size", Value: 25}}}}, pipeline[0])
}

func TestBatchSize(t *testing.T) {
	s := &Source{}
	assert.Equal(t, int32(100), s.batchSize(100))

	s.config.BatchSize = 10
	assert.Equal(t, int32(10), s.batchSize(100))
	assert.Equal(t, int32(5), s.batchSize(5))
}

func TestConnectErrors(t *testing.T) {
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	_, err := Connect(ctx, Config{URI: "mongodb://localhost:27017/"}, testutil.TestLogger(t))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = Connect(ctx, Config{URI: "not-a-uri", Database: "db"}, testutil.TestLogger(t))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSourceUnavailable))

	start := time.Now()
	_, err = Connect(ctx, Config{
		URI:            "mongodb://127.0.0.1:1/",
		Database:       "db",
		ConnectTimeout: 200 * time.Millisecond,
	}, testutil.TestLogger(t))
	require.Error(t, err)
	assert.True(t, errors.IsRetryable(err))
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestSampleRejectsNonPositiveLimit(t *testing.T) {
	_, err := (&Source{}).Sample(context.Background(), "users", 0)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}
