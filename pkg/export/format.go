package export

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/ajitpratap0/shapescan/pkg/compression"
	"github.com/ajitpratap0/shapescan/pkg/errors"
	"github.com/ajitpratap0/shapescan/pkg/schema"
	gojson "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Format is the serialization of the schema artifact.
type Format string

const (
	// JSON writes an indented JSON object
	JSON Format = "json"
	// YAML writes a block style YAML mapping
	YAML Format = "yaml"
)

// ParseFormat resolves a format name. The empty string means JSON.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case "", JSON:
		return JSON, nil
	case YAML, "yml":
		return YAML, nil
	default:
		return "", errors.Newf(errors.ErrorTypeConfig, "unsupported output format: %s", name)
	}
}

// FormatFromPath guesses the format from the extension of path, ignoring a
// compression suffix. Anything but .yaml or .yml is JSON.
func FormatFromPath(path string) Format {
	path = compression.FromExtension(path).TrimExtension(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	default:
		return JSON
	}
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	if f == YAML {
		return "application/yaml"
	}
	return "application/json"
}

// Encode serializes db. JSON output is indented with indent spaces, or
// compact when indent is zero. The artifact always ends with a newline.
func Encode(db *schema.DatabaseSchema, format Format, indent int) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case JSON, "":
		raw, err := db.MarshalJSON()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeSerialization, "failed to encode schema as JSON")
		}
		if indent > 0 {
			if err := gojson.Indent(&buf, raw, "", strings.Repeat(" ", indent)); err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeSerialization, "failed to indent JSON")
			}
		} else {
			buf.Write(raw)
		}
		buf.WriteByte('\n')
	case YAML:
		enc := yaml.NewEncoder(&buf)
		if indent >= 2 {
			enc.SetIndent(indent)
		}
		if err := enc.Encode(db); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeSerialization, "failed to encode schema as YAML")
		}
		if err := enc.Close(); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeSerialization, "failed to encode schema as YAML")
		}
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported output format: %s", format)
	}
	return buf.Bytes(), nil
}
