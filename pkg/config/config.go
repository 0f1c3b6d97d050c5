package config

import (
	"fmt"
	"time"

	"github.com/ajitpratap0/shapescan/pkg/compression"
)

// Source types
const (
	SourceMongoDB  = "mongodb"
	SourceJSONFile = "jsonfile"
)

// Sampling modes
const (
	// SamplingFirst reads the first documents in natural order
	SamplingFirst = "first"
	// SamplingRandom draws a random sample on the server
	SamplingRandom = "random"
)

// Output formats
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Config is the configuration of a schema inference run. It is organized into
// logical sections that map one to one onto the YAML file layout.
type Config struct {
	// Source selects and configures the document source
	Source SourceConfig `yaml:"source" mapstructure:"source"`

	// Inference controls sampling and concurrency
	Inference InferenceConfig `yaml:"inference" mapstructure:"inference"`

	// Output controls how the schema artifact is written
	Output OutputConfig `yaml:"output" mapstructure:"output"`

	// Logging controls log verbosity and encoding
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// Observability enables tracing and metrics push
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
}

// SourceConfig describes where documents are read from.
type SourceConfig struct {
	// Type is mongodb or jsonfile
	Type string `yaml:"type" mapstructure:"type"`
	// URI is the MongoDB connection string
	URI string `yaml:"uri" mapstructure:"uri"`
	// Database is the MongoDB database to scan
	Database string `yaml:"database" mapstructure:"database"`
	// Path is the dump directory for the jsonfile source
	Path string `yaml:"path" mapstructure:"path"`
	// Collections restricts the scan; empty means every collection
	Collections []string `yaml:"collections" mapstructure:"collections"`
	// IncludeSystem keeps system.* collections when listing
	IncludeSystem bool `yaml:"include_system" mapstructure:"include_system"`
	// ConnectTimeout bounds connection establishment
	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout"`
}

// InferenceConfig controls sampling.
type InferenceConfig struct {
	// SampleSize is the maximum number of documents read per collection
	SampleSize int `yaml:"sample_size" mapstructure:"sample_size"`
	// Sampling is first or random
	Sampling string `yaml:"sampling" mapstructure:"sampling"`
	// Workers is the number of collections inferred concurrently
	Workers int `yaml:"workers" mapstructure:"workers"`
	// ReadTimeout bounds every individual read against the source
	ReadTimeout time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	// Timeout bounds the whole run
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// Strict turns any collection failure into a failed run
	Strict bool `yaml:"strict" mapstructure:"strict"`
}

// OutputConfig describes the schema artifact.
type OutputConfig struct {
	// Destination is a local path, "-" for stdout, s3://bucket/key or gs://bucket/object
	Destination string `yaml:"destination" mapstructure:"destination"`
	// Format is json or yaml
	Format string `yaml:"format" mapstructure:"format"`
	// Compression is an algorithm name; empty derives it from the destination extension
	Compression string `yaml:"compression" mapstructure:"compression"`
	// Indent is the number of spaces used to indent JSON output
	Indent int `yaml:"indent" mapstructure:"indent"`
	// S3Region overrides the region of the AWS default configuration
	S3Region string `yaml:"s3_region" mapstructure:"s3_region"`
	// S3Endpoint targets an S3 compatible store such as MinIO
	S3Endpoint string `yaml:"s3_endpoint" mapstructure:"s3_endpoint"`
	// GCSCredentialsFile is a service account key; empty uses application default credentials
	GCSCredentialsFile string `yaml:"gcs_credentials_file" mapstructure:"gcs_credentials_file"`
}

// LoggingConfig controls the global zap logger.
type LoggingConfig struct {
	Level       string `yaml:"level" mapstructure:"level"`
	Encoding    string `yaml:"encoding" mapstructure:"encoding"`
	Development bool   `yaml:"development" mapstructure:"development"`
	// File also writes logs to a size rotated file
	File       string `yaml:"file" mapstructure:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" mapstructure:"max_age_days"`
}

// ObservabilityConfig enables tracing and metrics.
type ObservabilityConfig struct {
	// EnableTracing exports spans to stderr
	EnableTracing bool `yaml:"enable_tracing" mapstructure:"enable_tracing"`
	// PushGateway is the Prometheus Pushgateway URL; empty disables the push
	PushGateway string `yaml:"push_gateway" mapstructure:"push_gateway"`
	// Job is the Pushgateway job name
	Job string `yaml:"job" mapstructure:"job"`
}

// Default returns a configuration for a local LibreChat deployment: a MongoDB
// host named mongodb, the LibreChat database, 100 documents per collection
// and mongo_schema.json as output.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Type:           SourceMongoDB,
			URI:            "mongodb://mongodb:27017/",
			Database:       "LibreChat",
			ConnectTimeout: 10 * time.Second,
		},
		Inference: InferenceConfig{
			SampleSize:  100,
			Sampling:    SamplingFirst,
			Workers:     1,
			ReadTimeout: 30 * time.Second,
			Timeout:     30 * time.Minute,
		},
		Output: OutputConfig{
			Destination: "mongo_schema.json",
			Format:      FormatJSON,
			Indent:      4,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Encoding:   "json",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Observability: ObservabilityConfig{
			Job: "shapescan",
		},
	}
}

// Validate validates the configuration for correctness.
// It checks required fields and ensures values are within acceptable ranges.
func (c *Config) Validate() error {
	switch c.Source.Type {
	case SourceMongoDB:
		if c.Source.URI == "" {
			return fmt.Errorf("source.uri is required for the mongodb source")
		}
		if c.Source.Database == "" {
			return fmt.Errorf("source.database is required for the mongodb source")
		}
	case SourceJSONFile:
		if c.Source.Path == "" {
			return fmt.Errorf("source.path is required for the jsonfile source")
		}
	default:
		return fmt.Errorf("unsupported source.type: %q", c.Source.Type)
	}

	if c.Inference.SampleSize <= 0 {
		return fmt.Errorf("inference.sample_size must be positive")
	}
	if c.Inference.Workers <= 0 {
		return fmt.Errorf("inference.workers must be positive")
	}
	if c.Inference.ReadTimeout < 0 || c.Inference.Timeout < 0 {
		return fmt.Errorf("inference timeouts cannot be negative")
	}
	switch c.Inference.Sampling {
	case SamplingFirst, SamplingRandom:
	default:
		return fmt.Errorf("unsupported inference.sampling: %q", c.Inference.Sampling)
	}

	if c.Output.Destination == "" {
		return fmt.Errorf("output.destination is required")
	}
	switch c.Output.Format {
	case FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("unsupported output.format: %q", c.Output.Format)
	}
	if _, err := compression.ParseAlgorithm(c.Output.Compression); err != nil {
		return fmt.Errorf("output.compression: %w", err)
	}
	if c.Output.Indent < 0 {
		return fmt.Errorf("output.indent cannot be negative")
	}
	return nil
}
