package schema

import (
	"bytes"

	"github.com/ajitpratap0/shapescan/pkg/shape"
	gojson "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// DatabaseSchema maps collection names to their inferred shape, keeping
// insertion order.
type DatabaseSchema struct {
	names  []string
	shapes map[string]*shape.Shape
}

// NewDatabaseSchema returns an empty schema
func NewDatabaseSchema() *DatabaseSchema {
	return &DatabaseSchema{shapes: make(map[string]*shape.Shape)}
}

// Set stores the shape of a collection. A known collection keeps its
// position.
func (d *DatabaseSchema) Set(collection string, s *shape.Shape) {
	if _, ok := d.shapes[collection]; !ok {
		d.names = append(d.names, collection)
	}
	d.shapes[collection] = s
}

// Get returns the shape of a collection
func (d *DatabaseSchema) Get(collection string) (*shape.Shape, bool) {
	s, ok := d.shapes[collection]
	return s, ok
}

// Collections returns the collection names in insertion order
func (d *DatabaseSchema) Collections() []string {
	return append([]string(nil), d.names...)
}

// Len returns the number of collections
func (d *DatabaseSchema) Len() int {
	return len(d.names)
}

// MarshalJSON encodes the schema as an object keyed by collection name. A
// collection without documents is written as an empty object.
func (d *DatabaseSchema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range d.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := gojson.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		s := d.shapes[name]
		if s.IsEmpty() {
			buf.WriteString("{}")
			continue
		}
		value, err := s.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML encodes the schema with the same layout as MarshalJSON.
func (d *DatabaseSchema) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, name := range d.names {
		s := d.shapes[name]
		value := s.YAMLNode()
		if s.IsEmpty() {
			value = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Style: yaml.FlowStyle}
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name},
			value,
		)
	}
	if len(node.Content) == 0 {
		node.Style = yaml.FlowStyle
	}
	return node, nil
}
