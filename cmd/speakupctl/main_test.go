package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCatalogCheck_Embedded(t *testing.T) {
	out, err := run(t, "catalog", "check", "--file", "")
	require.NoError(t, err)
	assert.Contains(t, out, "catalog OK: 8 modes")
	assert.Contains(t, out, "challenge")
	assert.Contains(t, out, "expert")
}

func TestCatalogCheck_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_mode: missing\nmodes: {}\n"), 0o600))

	_, err := run(t, "catalog", "check", "--file", path)
	assert.Error(t, err)
}

func TestMigrateList(t *testing.T) {
	out, err := run(t, "migrate", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "000001_init.up.sql")
	assert.Contains(t, out, "000001_init.down.sql")
}

func TestMigrateDown_RejectsZeroSteps(t *testing.T) {
	_, err := run(t, "migrate", "down", "--steps", "0")
	assert.ErrorContains(t, err, "--steps")
}
