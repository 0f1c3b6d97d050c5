package mongodb

import (
	"testing"
	"time"

	"github.com/ajitpratap0/shapescan/pkg/schema"
	"github.com/ajitpratap0/shapescan/pkg/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SourceSuite runs against the server named by SHAPESCAN_TEST_MONGODB_URI in
// a throwaway database.
type SourceSuite struct {
	testutil.IntegrationTestSuite
	uri      string
	database string
	client   *mongo.Client
}

func TestSourceSuite(t *testing.T) {
	uri := testutil.MongoURI(t)
	suite.Run(t, &SourceSuite{uri: uri})
}

func (s *SourceSuite) SetupSuite() {
	s.IntegrationTestSuite.SetupSuite()
	s.database = "shapescan_test_" + uuid.NewString()[:8]

	client, err := mongo.Connect(s.Context(), options.Client().ApplyURI(s.uri))
	s.Require().NoError(err)
	s.client = client

	db := client.Database(s.database)
	_, err = db.Collection("users").InsertMany(s.Context(), []interface{}{
		bson.D{{Key: "name", Value: "ada"}, {Key: "age", Value: 36}},
		bson.D{{Key: "name", Value: "alan"}, {Key: "age", Value: 41.5}},
		bson.D{{Key: "name", Value: "grace"}, {Key: "age", Value: nil}},
	})
	s.Require().NoError(err)
	s.Require().NoError(db.CreateCollection(s.Context(), "empty"))
}

func (s *SourceSuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Database(s.database).Drop(s.Context())
		_ = s.client.Disconnect(s.Context())
	}
	s.IntegrationTestSuite.TearDownSuite()
}

func (s *SourceSuite) connect(sampling Sampling) *Source {
	src, err := Connect(s.Context(), Config{
		URI:            s.uri,
		Database:       s.database,
		ConnectTimeout: 5 * time.Second,
		Sampling:       sampling,
	}, testutil.TestLogger(s.T()))
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = src.Close(s.Context()) })
	return src
}

func (s *SourceSuite) TestListCollections() {
	names, err := s.connect(SamplingFirst).ListCollections(s.Context())
	s.Require().NoError(err)
	s.ElementsMatch([]string{"users", "empty"}, names)
}

func (s *SourceSuite) TestBuild() {
	for _, sampling := range []Sampling{SamplingFirst, SamplingRandom} {
		src := s.connect(sampling)
		result, err := schema.NewBuilder(schema.Options{Logger: testutil.TestLogger(s.T())}).
			Build(s.Context(), src, []string{"users", "empty"})
		s.Require().NoError(err)
		s.Require().NoError(result.Err())

		data, err := result.Schema.MarshalJSON()
		s.Require().NoError(err)
		s.JSONEq(`{"users":{"_id":"ObjectId","name":"string","age":["float","int"]},"empty":{}}`, string(data))
	}
}

func (s *SourceSuite) TestSampleLimit() {
	src := s.connect(SamplingFirst)
	cur, err := src.Sample(s.Context(), "users", 2)
	s.Require().NoError(err)
	defer cur.Close(s.Context())

	n := 0
	for cur.Next(s.Context()) {
		_, err := cur.Decode()
		s.Require().NoError(err)
		n++
	}
	s.NoError(cur.Err())
	s.Equal(2, n)
}
