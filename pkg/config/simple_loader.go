package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. SHAPESCAN_SOURCE_DATABASE.
const EnvPrefix = "SHAPESCAN"

// FlagKeys maps command line flag names to configuration keys. Flags that are
// not present in the flag set handed to Load are ignored.
var FlagKeys = map[string]string{
	"source-type":     "source.type",
	"uri":             "source.uri",
	"database":        "source.database",
	"path":            "source.path",
	"collections":     "source.collections",
	"include-system":  "source.include_system",
	"connect-timeout": "source.connect_timeout",
	"sample-size":     "inference.sample_size",
	"sampling":        "inference.sampling",
	"workers":         "inference.workers",
	"read-timeout":    "inference.read_timeout",
	"timeout":         "inference.timeout",
	"strict":          "inference.strict",
	"output":          "output.destination",
	"format":          "output.format",
	"compression":     "output.compression",
	"indent":          "output.indent",
	"log-level":       "logging.level",
	"log-encoding":    "logging.encoding",
	"log-file":        "logging.file",
	"trace":           "observability.enable_tracing",
	"pushgateway":     "observability.push_gateway",
}

// Load builds a configuration from defaults, an optional YAML file, the
// environment and flags, then validates it. An empty filePath skips the file.
func Load(filePath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("source.uri", EnvPrefix+"_SOURCE_URI", "MONGODB_URI"); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	if filePath != "" {
		data, err := os.ReadFile(filePath) //nolint:gosec // G304: path comes from the operator
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		v.SetConfigType("yaml")
		if err := v.ReadConfig(strings.NewReader(substituteEnvVars(string(data)))); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Save saves a configuration to a YAML file
func Save(filePath string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil { //nolint:gosec
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("source.type", d.Source.Type)
	v.SetDefault("source.uri", d.Source.URI)
	v.SetDefault("source.database", d.Source.Database)
	v.SetDefault("source.path", d.Source.Path)
	v.SetDefault("source.collections", d.Source.Collections)
	v.SetDefault("source.include_system", d.Source.IncludeSystem)
	v.SetDefault("source.connect_timeout", d.Source.ConnectTimeout)

	v.SetDefault("inference.sample_size", d.Inference.SampleSize)
	v.SetDefault("inference.sampling", d.Inference.Sampling)
	v.SetDefault("inference.workers", d.Inference.Workers)
	v.SetDefault("inference.read_timeout", d.Inference.ReadTimeout)
	v.SetDefault("inference.timeout", d.Inference.Timeout)
	v.SetDefault("inference.strict", d.Inference.Strict)

	v.SetDefault("output.destination", d.Output.Destination)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.compression", d.Output.Compression)
	v.SetDefault("output.indent", d.Output.Indent)
	v.SetDefault("output.s3_region", d.Output.S3Region)
	v.SetDefault("output.s3_endpoint", d.Output.S3Endpoint)
	v.SetDefault("output.gcs_credentials_file", d.Output.GCSCredentialsFile)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.encoding", d.Logging.Encoding)
	v.SetDefault("logging.development", d.Logging.Development)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", d.Logging.MaxAgeDays)

	v.SetDefault("observability.enable_tracing", d.Observability.EnableTracing)
	v.SetDefault("observability.push_gateway", d.Observability.PushGateway)
	v.SetDefault("observability.job", d.Observability.Job)
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values
func substituteEnvVars(content string) string {
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		varName := content[start+2 : end]
		envValue := os.Getenv(varName)
		content = content[:start] + envValue + content[end+1:]
	}
	return content
}
