package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	yml := fmt.Sprintf(`
name: scribegate
logging:
  level: error
database:
  dsn: %s
storage:
  enabled: true
  provider: local
  base_path: %s
auth:
  api_keys:
    enabled: true
    bcrypt_cost: 4
dispatch:
  mode: inline
`, filepath.Join(dir, "gate.db"), filepath.Join(dir, "audio"))
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))
	return path
}

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"version"}, &out))
	assert.NotEmpty(t, strings.TrimSpace(out.String()))
}

func TestRun_UnknownCommand(t *testing.T) {
	path := writeConfig(t)
	var out bytes.Buffer
	err := run(context.Background(), []string{"-config", path, "frobnicate"}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "frobnicate")
}

func TestRun_MigrateAndCreateKey(t *testing.T) {
	path := writeConfig(t)
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, run(ctx, []string{"-config", path, "migrate", "up"}, &out))
	assert.Contains(t, out.String(), "schema version 3 (dirty=false)")

	out.Reset()
	require.NoError(t, run(ctx, []string{"-config", path, "apikey", "create", "-subject", "ops", "-scopes", "jobs:read, jobs:write"}, &out))
	assert.Contains(t, out.String(), "scopes:  jobs:read,jobs:write")
	assert.Contains(t, out.String(), "token:   ")

	out.Reset()
	require.NoError(t, run(ctx, []string{"-config", path, "migrate", "version"}, &out))
	assert.Contains(t, out.String(), "schema version 3")
}

func TestRun_ApiKeyRequiresSubject(t *testing.T) {
	path := writeConfig(t)
	err := run(context.Background(), []string{"-config", path, "apikey", "create"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-subject")
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b "))
}
