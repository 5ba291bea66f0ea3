package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRegistry(t *testing.T, format string, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRegistryCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetArgs(args)
	return buf, cmd.Execute()
}

func TestRegistryAddAndList(t *testing.T) {
	file := filepath.Join(t.TempDir(), ".sa", "saps.txt")

	buf, err := runRegistry(t, "text", "add", "--file", file, "localhost:8080")
	require.NoError(t, err)
	assert.Equal(t, "registered localhost:8080\n", buf.String())

	buf, err = runRegistry(t, "text", "add", "--file", file, "localhost:8080")
	require.NoError(t, err)
	assert.Equal(t, "localhost:8080 already registered\n", buf.String())

	_, err = runRegistry(t, "text", "add", "--file", file, "localhost:8081")
	require.NoError(t, err)

	buf, err = runRegistry(t, "json", "list", "--file", file)
	require.NoError(t, err)

	var resp struct {
		Data struct {
			File      string   `json:"file"`
			Endpoints []string `json:"endpoints"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, file, resp.Data.File)
	assert.Equal(t, []string{"localhost:8080", "localhost:8081"}, resp.Data.Endpoints)

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "localhost:8080\n\nlocalhost:8081\n", string(data))
}

func TestRegistryListMissingFile(t *testing.T) {
	buf, err := runRegistry(t, "text", "list", "--file", filepath.Join(t.TempDir(), "none.txt"))
	require.NoError(t, err)
	assert.Equal(t, "no endpoints registered\n", buf.String())
}

func TestRegistryAddInvalid(t *testing.T) {
	buf, err := runRegistry(t, "text", "add", "--file", filepath.Join(t.TempDir(), "saps.txt"), "# comment")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), ErrCodeRegistry)
}

func TestRegistryFileFromEnv(t *testing.T) {
	file := filepath.Join(t.TempDir(), "env-saps.txt")
	opts := &RootOptions{Format: "text"}
	opts.Env.RegistryFile = file

	cmd := NewRegistryCommand(opts)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"add", "localhost:9000"})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000\n", string(data))
}
