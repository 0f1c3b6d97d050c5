// Package shape implements the structural type algebra used to infer schemas
// for schemaless documents.
//
// A Shape describes the values observed at one field position. Shapes are
// produced by Probe from concrete values, combined with Merge when the same
// field is seen in several documents, and normalized with Flatten once all
// documents have been folded in.
//
// # Basic Usage
//
//	acc := shape.Empty()
//	for _, doc := range docs {
//	    acc = shape.Merge(acc, shape.ProbeDocument(doc))
//	}
//	schema := shape.Flatten(acc)
//
// Shapes are immutable once built. A nil *Shape is treated as an absent value
// and behaves exactly like Empty.
package shape

import (
	"sort"
	"strings"
)

// Kind identifies the variant of a Shape.
type Kind uint8

const (
	// KindEmpty is the shape of an empty array, a null or an absent value
	KindEmpty Kind = iota
	// KindScalar is a primitive type tag such as int or ObjectId
	KindScalar
	// KindObject is an embedded document
	KindObject
	// KindList is an array, described by the shape of its first element
	KindList
	// KindUnion is a set of two or more irreconcilable shapes
	KindUnion
)

// String returns the lowercase name of the kind
func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindScalar:
		return "scalar"
	case KindObject:
		return "object"
	case KindList:
		return "list"
	case KindUnion:
		return "union"
	default:
		return "unknown"
	}
}

// Scalar type tags produced by Probe.
const (
	TagInt        = "int"
	TagFloat      = "float"
	TagString     = "string"
	TagBool       = "bool"
	TagObjectID   = "ObjectId"
	TagDatetime   = "datetime"
	TagTimestamp  = "timestamp"
	TagDecimal    = "decimal"
	TagBinary     = "binary"
	TagRegex      = "regex"
	TagJavaScript = "javascript"
	TagSymbol     = "symbol"
	TagDBPointer  = "dbPointer"
	TagMinKey     = "minKey"
	TagMaxKey     = "maxKey"
)

// Field is a named member of an Object shape.
type Field struct {
	Name  string
	Shape *Shape
}

// Shape is the inferred structural description of a field's observed values.
type Shape struct {
	kind   Kind
	name   string
	fields []Field
	elem   *Shape
	alts   []*Shape
}

var empty = &Shape{kind: KindEmpty}

// Empty returns the absorbing shape.
func Empty() *Shape {
	return empty
}

// Scalar returns a primitive shape with the given type tag.
func Scalar(name string) *Shape {
	return &Shape{kind: KindScalar, name: name}
}

// Object returns a document shape with the given fields, in order.
// Later duplicates of a field name replace earlier ones.
func Object(fields ...Field) *Shape {
	out := make([]Field, 0, len(fields))
	index := make(map[string]int, len(fields))
	for _, f := range fields {
		if i, ok := index[f.Name]; ok {
			out[i].Shape = f.Shape
			continue
		}
		index[f.Name] = len(out)
		out = append(out, f)
	}
	return &Shape{kind: KindObject, fields: out}
}

// List returns an array shape whose elements look like elem.
func List(elem *Shape) *Shape {
	return &Shape{kind: KindList, elem: orEmpty(elem)}
}

// Union returns an unnormalized union of the given alternatives. Use Flatten
// to collapse nested unions, duplicates and single-member sets.
func Union(alts ...*Shape) *Shape {
	out := make([]*Shape, len(alts))
	for i, a := range alts {
		out[i] = orEmpty(a)
	}
	return &Shape{kind: KindUnion, alts: out}
}

// Kind returns the variant of s. A nil shape is KindEmpty.
func (s *Shape) Kind() Kind {
	if s == nil {
		return KindEmpty
	}
	return s.kind
}

// IsEmpty reports whether s carries no type information.
func (s *Shape) IsEmpty() bool {
	return s.Kind() == KindEmpty
}

// Name returns the type tag of a scalar shape.
func (s *Shape) Name() string {
	if s.Kind() != KindScalar {
		return ""
	}
	return s.name
}

// Fields returns the fields of an object shape. The slice must not be modified.
func (s *Shape) Fields() []Field {
	if s.Kind() != KindObject {
		return nil
	}
	return s.fields
}

// Field looks up a field of an object shape by name.
func (s *Shape) Field(name string) (*Shape, bool) {
	for _, f := range s.Fields() {
		if f.Name == name {
			return f.Shape, true
		}
	}
	return nil, false
}

// Elem returns the element shape of a list shape.
func (s *Shape) Elem() *Shape {
	if s.Kind() != KindList {
		return nil
	}
	return s.elem
}

// Alternatives returns the members of a union shape. The slice must not be modified.
func (s *Shape) Alternatives() []*Shape {
	if s.Kind() != KindUnion {
		return nil
	}
	return s.alts
}

// Key returns the canonical string form of s. Two shapes are structurally
// equal exactly when their keys are equal: object fields and union members
// are sorted, so ordering never affects the key.
func (s *Shape) Key() string {
	var b strings.Builder
	s.writeKey(&b)
	return b.String()
}

// String implements fmt.Stringer using the canonical key.
func (s *Shape) String() string {
	return s.Key()
}

func (s *Shape) writeKey(b *strings.Builder) {
	switch s.Kind() {
	case KindEmpty:
		b.WriteString("[]")
	case KindScalar:
		b.WriteString(s.name)
	case KindList:
		b.WriteByte('[')
		s.elem.writeKey(b)
		b.WriteByte(']')
	case KindObject:
		names := make([]string, len(s.fields))
		byName := make(map[string]*Shape, len(s.fields))
		for i, f := range s.fields {
			names[i] = f.Name
			byName[f.Name] = f.Shape
		}
		sort.Strings(names)
		b.WriteByte('{')
		for i, name := range names {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(quoteKey(name))
			b.WriteByte(':')
			byName[name].writeKey(b)
		}
		b.WriteByte('}')
	case KindUnion:
		keys := make([]string, len(s.alts))
		for i, a := range s.alts {
			keys[i] = a.Key()
		}
		sort.Strings(keys)
		b.WriteByte('(')
		b.WriteString(strings.Join(keys, "|"))
		b.WriteByte(')')
	}
}

// quoteKey escapes the characters that delimit a canonical key so that field
// names cannot collide with structure.
func quoteKey(name string) string {
	if !strings.ContainsAny(name, `"\{}[](),:|`) {
		return name
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(name) + `"`
}

// Equal reports whether a and b describe the same structure.
func Equal(a, b *Shape) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	switch a.Kind() {
	case KindEmpty:
		return true
	case KindScalar:
		return a.name == b.name
	case KindList:
		return Equal(a.elem, b.elem)
	default:
		return a.Key() == b.Key()
	}
}

func orEmpty(s *Shape) *Shape {
	if s == nil {
		return empty
	}
	return s
}
