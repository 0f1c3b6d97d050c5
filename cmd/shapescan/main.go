package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ajitpratap0/shapescan/pkg/config"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:   "shapescan",
		Short: "Shapescan - schema inference for MongoDB collections",
		Long: `Shapescan samples the documents of every collection in a MongoDB database,
infers a structural schema for each collection and writes the result as a single
JSON or YAML artifact.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to a YAML configuration file (optional)")

	// Version command
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Shapescan v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	inferCmd := &cobra.Command{
		Use:   "infer",
		Short: "Infer the schema of a database",
		Long: `Infer the schema of every collection of a database and write it to the output.

Example:
  shapescan infer --uri mongodb://localhost:27017/ --database LibreChat --output mongo_schema.json
  shapescan infer --source-type jsonfile --path ./dump --output s3://schemas/librechat.json.zst`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runInfer(cmd.Context(), cfg)
		},
	}
	addSourceFlags(inferCmd.Flags())
	addInferenceFlags(inferCmd.Flags())
	addOutputFlags(inferCmd.Flags())
	addLoggingFlags(inferCmd.Flags())
	root.AddCommand(inferCmd)

	collectionsCmd := &cobra.Command{
		Use:   "collections",
		Short: "List the collections that infer would scan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runCollections(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}
	addSourceFlags(collectionsCmd.Flags())
	addLoggingFlags(collectionsCmd.Flags())
	root.AddCommand(collectionsCmd)

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "Write a configuration file with the default settings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "shapescan.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.Save(path, config.Default()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	})
	root.AddCommand(configCmd)

	return root
}

// Flag defaults only document the defaults; config.Load applies the real ones.

func addSourceFlags(fs *pflag.FlagSet) {
	d := config.Default().Source
	fs.String("source-type", d.Type, "Document source (mongodb, jsonfile)")
	fs.String("uri", d.URI, "MongoDB connection string; MONGODB_URI is used when unset")
	fs.String("database", d.Database, "MongoDB database to scan")
	fs.String("path", "", "Directory of collection dumps for the jsonfile source")
	fs.StringSlice("collections", nil, "Collections to scan (default: every collection)")
	fs.Bool("include-system", false, "Include system.* collections")
	fs.Duration("connect-timeout", d.ConnectTimeout, "Connection timeout")
}

func addInferenceFlags(fs *pflag.FlagSet) {
	d := config.Default().Inference
	fs.Int("sample-size", d.SampleSize, "Maximum number of documents sampled per collection")
	fs.String("sampling", d.Sampling, "Sampling mode (first, random)")
	fs.Int("workers", d.Workers, "Number of collections inferred concurrently")
	fs.Duration("read-timeout", d.ReadTimeout, "Deadline of every read against the source")
	fs.Duration("timeout", d.Timeout, "Timeout of the whole run")
	fs.Bool("strict", false, "Fail the run when any collection fails")
}

func addOutputFlags(fs *pflag.FlagSet) {
	d := config.Default().Output
	fs.StringP("output", "o", d.Destination, "Output path, - for stdout, s3://bucket/key or gs://bucket/object")
	fs.String("format", d.Format, "Output format (json, yaml)")
	fs.String("compression", "", "Compression (none, gzip, zstd, lz4, snappy, s2); default derives it from the output extension")
	fs.Int("indent", d.Indent, "JSON indentation width, 0 for compact output")
	fs.Bool("trace", false, "Export trace spans to stderr")
	fs.String("pushgateway", "", "Prometheus Pushgateway URL for run metrics")
}

func addLoggingFlags(fs *pflag.FlagSet) {
	d := config.Default().Logging
	fs.String("log-level", d.Level, "Log level (debug, info, warn, error)")
	fs.String("log-encoding", d.Encoding, "Log encoding (json, console)")
	fs.String("log-file", "", "Also write JSON logs to this file, rotated by size")
}
