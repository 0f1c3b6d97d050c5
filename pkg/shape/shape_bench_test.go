package shape

import (
	"fmt"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Generate test data resembling chat application documents
func generateDocuments(count int) []bson.D {
	docs := make([]bson.D, count)
	for i := 0; i < count; i++ {
		doc := bson.D{
			{Key: "_id", Value: primitive.NewObjectID()},
			{Key: "title", Value: fmt.Sprintf("conversation %d", i)},
			{Key: "createdAt", Value: primitive.NewDateTimeFromTime(time.Unix(int64(i), 0))},
			{Key: "messages", Value: bson.A{
				bson.D{{Key: "text", Value: "hello"}, {Key: "tokens", Value: int32(i)}},
			}},
		}
		switch i % 3 {
		case 0:
			doc = append(doc, bson.E{Key: "score", Value: int64(i)})
		case 1:
			doc = append(doc, bson.E{Key: "score", Value: float64(i) / 2})
		default:
			doc = append(doc, bson.E{Key: "tags", Value: bson.A{"a", "b"}})
		}
		docs[i] = doc
	}
	return docs
}

func BenchmarkProbeDocument(b *testing.B) {
	docs := generateDocuments(100)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ProbeDocument(docs[i%len(docs)])
	}
}

func BenchmarkFold(b *testing.B) {
	for _, n := range []int{10, 100, 1000} {
		docs := generateDocuments(n)
		b.Run(fmt.Sprintf("docs_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				acc := Empty()
				for _, d := range docs {
					acc = Merge(acc, ProbeDocument(d))
				}
				_ = Flatten(acc)
			}
		})
	}
}

func BenchmarkKey(b *testing.B) {
	acc := Empty()
	for _, d := range generateDocuments(100) {
		acc = Merge(acc, ProbeDocument(d))
	}
	s := Flatten(acc)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Key()
	}
}
