package shape

import (
	"encoding/json"
	"reflect"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProbeDocument returns the Object shape of one document.
func ProbeDocument(doc bson.D) *Shape {
	return probeD(doc)
}

// Probe converts one concrete value into a Shape. Only the first element of
// an array is inspected. Null and undefined values are Empty. Values of an
// unrecognized kind degrade to a scalar named after their Go type.
func Probe(value interface{}) *Shape {
	switch v := value.(type) {
	case nil, primitive.Null, primitive.Undefined:
		return Empty()

	// documents
	case bson.D:
		return probeD(v)
	case bson.M:
		return probeMap(v)
	case map[string]interface{}:
		return probeMap(v)
	case bson.Raw:
		var doc bson.D
		if err := bson.Unmarshal(v, &doc); err != nil {
			return Scalar(typeName(v))
		}
		return probeD(doc)

	// arrays
	case bson.A:
		return probeSlice(v)
	case []interface{}:
		return probeSlice(v)

	// domain references
	case primitive.ObjectID:
		return Scalar(TagObjectID)
	case primitive.DateTime, time.Time:
		return Scalar(TagDatetime)
	case primitive.Timestamp:
		return Scalar(TagTimestamp)
	case primitive.Decimal128:
		return Scalar(TagDecimal)
	case primitive.Binary, []byte:
		return Scalar(TagBinary)
	case primitive.Regex:
		return Scalar(TagRegex)
	case primitive.JavaScript, primitive.CodeWithScope:
		return Scalar(TagJavaScript)
	case primitive.Symbol:
		return Scalar(TagSymbol)
	case primitive.DBPointer:
		return Scalar(TagDBPointer)
	case primitive.MinKey:
		return Scalar(TagMinKey)
	case primitive.MaxKey:
		return Scalar(TagMaxKey)

	// primitives
	case bool:
		return Scalar(TagBool)
	case string:
		return Scalar(TagString)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return Scalar(TagInt)
	case float32, float64:
		return Scalar(TagFloat)
	case json.Number:
		if _, err := v.Int64(); err == nil {
			return Scalar(TagInt)
		}
		return Scalar(TagFloat)
	}
	return probeReflect(value)
}

func probeD(doc bson.D) *Shape {
	fields := make([]Field, 0, len(doc))
	for _, e := range doc {
		fields = append(fields, Field{Name: e.Key, Shape: Probe(e.Value)})
	}
	return Object(fields...)
}

func probeMap(m map[string]interface{}) *Shape {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fields := make([]Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, Field{Name: k, Shape: Probe(m[k])})
	}
	return Object(fields...)
}

func probeSlice(s []interface{}) *Shape {
	if len(s) == 0 {
		return Empty()
	}
	return List(Probe(s[0]))
}

// probeReflect handles typed Go containers and named primitive types that the
// type switch cannot enumerate.
func probeReflect(value interface{}) *Shape {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return Empty()
		}
		return Probe(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return Scalar(TagBinary)
		}
		if rv.Len() == 0 {
			return Empty()
		}
		return List(Probe(rv.Index(0).Interface()))
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		fields := make([]Field, 0, len(keys))
		for _, k := range keys {
			fields = append(fields, Field{Name: k.String(), Shape: Probe(rv.MapIndex(k).Interface())})
		}
		return Object(fields...)
	case reflect.Bool:
		return Scalar(TagBool)
	case reflect.String:
		return Scalar(TagString)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Scalar(TagInt)
	case reflect.Float32, reflect.Float64:
		return Scalar(TagFloat)
	}
	return Scalar(typeName(value))
}

func typeName(value interface{}) string {
	return reflect.TypeOf(value).String()
}
