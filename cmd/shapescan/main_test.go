package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/shapescan/pkg/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeDump(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0600))
	}
	return dir
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Shapescan v"+version)
}

func TestInferFromDump(t *testing.T) {
	dump := writeDump(t, map[string]string{
		"users.jsonl":    `{"_id":{"$oid":"64b7f0c2a1b2c3d4e5f60718"},"age":36}` + "\n" + `{"_id":{"$oid":"64b7f0c2a1b2c3d4e5f60719"},"age":41.5}`,
		"sessions.json":  `[]`,
		"messages.jsonl": `{"text":"hi","tags":["a"]}`,
	})
	output := filepath.Join(t.TempDir(), "mongo_schema.json")

	_, err := execute(t, "infer",
		"--source-type", "jsonfile",
		"--path", dump,
		"--output", output,
		"--indent", "0",
		"--workers", "2",
		"--log-level", "error")
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t,
		`{"messages":{"text":"string","tags":["string"]},"sessions":{},"users":{"_id":"ObjectId","age":["float","int"]}}`+"\n",
		string(data))
}

func TestInferStrict(t *testing.T) {
	dump := writeDump(t, map[string]string{
		"users.jsonl":  `{"name":"ada"}`,
		"broken.jsonl": `{"name":`,
	})
	output := filepath.Join(t.TempDir(), "schema.yaml")
	args := []string{"infer",
		"--source-type", "jsonfile",
		"--path", dump,
		"--output", output,
		"--format", "yaml",
		"--log-level", "error"}

	_, err := execute(t, args...)
	require.NoError(t, err, "failed collections are skipped by default")
	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "users:\n    name: string\n", string(data))

	_, err = execute(t, append(args, "--strict")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 collections failed")
	assert.Contains(t, err.Error(), "broken")
}

func TestInferInvalidConfiguration(t *testing.T) {
	_, err := execute(t, "infer", "--source-type", "jsonfile", "--log-level", "error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source.path is required")

	_, err = execute(t, "infer", "--source-type", "jsonfile", "--path", t.TempDir(), "--compression", "brotli")
	require.Error(t, err)
}

func TestCollections(t *testing.T) {
	dump := writeDump(t, map[string]string{
		"users.json":       `[]`,
		"convos.jsonl.gz":  "",
		"notes.txt":        "ignored",
		"agents.ndjson":    "",
		"sessions.json.gz": "",
	})

	out, err := execute(t, "collections", "--source-type", "jsonfile", "--path", dump, "--log-level", "error")
	require.NoError(t, err)
	assert.Equal(t, "agents\nconvos\nsessions\nusers\n", out)

	out, err = execute(t, "collections", "--source-type", "jsonfile", "--path", dump,
		"--collections", "users,convos", "--log-level", "error")
	require.NoError(t, err)
	assert.Equal(t, "users\nconvos\n", out)
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shapescan.yaml")

	out, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Source.Database, cfg.Source.Database)
	assert.Equal(t, config.Default().Inference.SampleSize, cfg.Inference.SampleSize)

	_, err = execute(t, "--config", path, "infer", "--source-type", "jsonfile", "--path", t.TempDir(),
		"--output", filepath.Join(t.TempDir(), "out.json"), "--log-level", "error")
	require.NoError(t, err)
}
