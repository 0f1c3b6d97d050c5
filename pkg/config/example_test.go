package config_test

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ajitpratap0/shapescan/pkg/config"
)

// ExampleDefault shows the defaults a run starts from.
func ExampleDefault() {
	cfg := config.Default()

	fmt.Printf("Database: %s\n", cfg.Source.Database)
	fmt.Printf("Sample Size: %d\n", cfg.Inference.SampleSize)
	fmt.Printf("Read Timeout: %s\n", cfg.Inference.ReadTimeout)
	fmt.Printf("Destination: %s\n", cfg.Output.Destination)

	// Output:
	// Database: LibreChat
	// Sample Size: 100
	// Read Timeout: 30s
	// Destination: mongo_schema.json
}

// ExampleConfig_Validate shows how to validate a configuration
// before using it.
func ExampleConfig_Validate() {
	cfg := config.Default()
	cfg.Source.Type = config.SourceJSONFile

	if err := cfg.Validate(); err != nil {
		fmt.Println(err)
	}

	cfg.Source.Path = "./dump"
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	fmt.Println("Configuration is valid!")

	// Output:
	// source.path is required for the jsonfile source
	// Configuration is valid!
}

// ExampleLoad demonstrates loading configuration from a YAML file
// with environment variable substitution.
func ExampleLoad() {
	dir, err := os.MkdirTemp("", "shapescan-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	os.Setenv("EXAMPLE_DB", "analytics")
	defer os.Unsetenv("EXAMPLE_DB")

	path := filepath.Join(dir, "shapescan.yaml")
	content := "source:\n  database: ${EXAMPLE_DB}\ninference:\n  sample_size: 10\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		log.Fatal(err)
	}

	cfg, err := config.Load(path, nil)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(cfg.Source.Database, cfg.Inference.SampleSize)

	// Output:
	// analytics 10
}
