package shape

import (
	"bytes"

	gojson "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// MarshalJSON encodes s in the artifact form: a scalar is its tag string, an
// object is a mapping in field order, a list is a one-element array, a union is
// an array of its alternatives and Empty is an empty array.
func (s *Shape) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := s.appendJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Shape) appendJSON(buf *bytes.Buffer) error {
	switch s.Kind() {
	case KindEmpty:
		buf.WriteString("[]")
	case KindScalar:
		return appendString(buf, s.name)
	case KindList:
		buf.WriteByte('[')
		if err := s.elem.appendJSON(buf); err != nil {
			return err
		}
		buf.WriteByte(']')
	case KindUnion:
		buf.WriteByte('[')
		for i, a := range s.alts {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := a.appendJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, f := range s.fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := appendString(buf, f.Name); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := f.Shape.appendJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}

func appendString(buf *bytes.Buffer, v string) error {
	b, err := gojson.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

// MarshalYAML encodes s with the same layout as MarshalJSON.
func (s *Shape) MarshalYAML() (interface{}, error) {
	return s.YAMLNode(), nil
}

// YAMLNode returns s as an ordered YAML node tree.
func (s *Shape) YAMLNode() *yaml.Node {
	switch s.Kind() {
	case KindScalar:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s.name}
	case KindList:
		return sequenceNode(s.elem)
	case KindUnion:
		return sequenceNode(s.alts...)
	case KindObject:
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, f := range s.fields {
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.Name},
				f.Shape.YAMLNode(),
			)
		}
		if len(node.Content) == 0 {
			node.Style = yaml.FlowStyle
		}
		return node
	default:
		return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle}
	}
}

// sequenceNode uses flow style when every member is a scalar, which keeps
// unions of tags on one line.
func sequenceNode(members ...*Shape) *yaml.Node {
	node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle}
	for _, m := range members {
		if m.Kind() != KindScalar {
			node.Style = 0
		}
		node.Content = append(node.Content, m.YAMLNode())
	}
	return node
}
