package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convoy-build/convoy/internal/cli"
	"github.com/convoy-build/convoy/internal/config"
)

func writeTempPlan(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRun_InvalidPlanSyntax(t *testing.T) {
	t.Parallel()

	invalidHCL := `
		group "base" {
			artifact "a" {
		// Missing closing brace here
	`
	path := writeTempPlan(t, invalidHCL)
	out := &bytes.Buffer{}

	err := run(out, []string{path})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
	assert.Equal(t, 2, exitCode(err), "configuration faults exit with code 2")
}

func TestRun_DependencyCycleExitsWithConfigCode(t *testing.T) {
	t.Parallel()

	path := writeTempPlan(t, `
group "a" {
  needs = ["b"]
  artifact "a1" {
    source_ref  = "./a"
    target_name = "registry.example.com/a"
  }
}

group "b" {
  needs = ["a"]
  artifact "b1" {
    source_ref  = "./b"
    target_name = "registry.example.com/b"
  }
}
`)
	out := &bytes.Buffer{}

	err := run(out, []string{path})

	require.Error(t, err)
	var cfgErr *config.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, 2, exitCode(err))
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}

	err := run(out, []string{"-h"})

	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}

	err := run(out, []string{"--this-is-not-a-valid-flag"})

	require.Error(t, err)
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")

	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
	assert.Equal(t, 2, exitCode(err))
}

func TestExitCode_RunFailure(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, exitCode(errors.New("execution failed")))
}
