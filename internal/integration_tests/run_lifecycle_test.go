package integration_tests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convoy-build/convoy/internal/app"
	"github.com/convoy-build/convoy/internal/result"
	"github.com/convoy-build/convoy/internal/runner"
	"github.com/convoy-build/convoy/internal/testutil"
)

const scriptedSettings = `
settings {
  builder = "scripted"
  checker = ""
}
`

func TestRun_HappyPathPlan(t *testing.T) {
	t.Parallel()

	mod := &testutil.Module{Builder: &testutil.ScriptedBuilder{}}
	res := RunPlanTest(t, map[string]string{
		"settings.hcl": scriptedSettings,
		"plan.hcl": `
group "base" {
  artifact "runtime" {
    source_ref  = "./images/runtime"
    target_name = "registry.example.com/runtime:v1"
  }
}

group "services" {
  needs = ["base"]
  artifact "api" {
    source_ref  = "./services/api"
    target_name = "registry.example.com/api:v1"
  }
  artifact "worker" {
    source_ref  = "./services/worker"
    target_name = "registry.example.com/worker:v1"
  }
}
`,
	}, mod)

	require.NoError(t, res.Err)
	require.NotNil(t, res.Summary)
	assert.Equal(t, 3, res.Summary.Counts.Artifacts)
	assert.Equal(t, 3, res.Summary.Counts.Succeeded)
	assert.Equal(t, 2, res.Summary.Counts.GroupsSucceeded)
	assert.False(t, res.Summary.Failed())
	assert.NotEmpty(t, res.Summary.RunID)

	// The dependent group must only start after its need completed.
	order := mod.Builder.Order()
	require.Len(t, order, 3)
	assert.Equal(t, "runtime", order[0])
}

func TestRun_FailureCascadeSkipsDependents(t *testing.T) {
	t.Parallel()

	mod := &testutil.Module{Builder: &testutil.ScriptedBuilder{
		Script: map[string][]runner.Outcome{
			"runtime": {runner.Permanent("unsupported base image")},
		},
	}}
	res := RunPlanTest(t, map[string]string{
		"settings.hcl": scriptedSettings,
		"plan.hcl": `
group "base" {
  rate_limit {
    retry_attempts = 0
  }
  artifact "runtime" {
    source_ref  = "./images/runtime"
    target_name = "registry.example.com/runtime:v1"
  }
}

group "services" {
  needs = ["base"]
  artifact "api" {
    source_ref  = "./services/api"
    target_name = "registry.example.com/api:v1"
  }
}
`,
	}, mod)

	require.ErrorIs(t, res.Err, app.ErrRunFailed)
	require.NotNil(t, res.Summary)
	assert.Equal(t, 1, res.Summary.Counts.Failed)
	assert.Equal(t, 1, res.Summary.Counts.Skipped)
	assert.Equal(t, 1, res.Summary.Counts.GroupsFailed)
	assert.Equal(t, 1, res.Summary.Counts.GroupsSkipped)
	assert.True(t, res.Summary.Failed())

	// The skipped group's builder never ran.
	assert.Equal(t, 0, mod.Builder.Calls("api"))

	require.NotEmpty(t, res.Summary.Failures)
	assert.Equal(t, "base", res.Summary.Failures[0].Group)
	assert.Contains(t, res.Summary.Failures[0].Reason, "unsupported base image")
}

func TestRun_OptionalArtifactFailureKeepsGroupGreen(t *testing.T) {
	t.Parallel()

	mod := &testutil.Module{Builder: &testutil.ScriptedBuilder{
		Script: map[string][]runner.Outcome{
			"docs": {runner.Transient("registry 503")},
		},
	}}
	res := RunPlanTest(t, map[string]string{
		"settings.hcl": scriptedSettings,
		"plan.hcl": `
group "site" {
  rate_limit {
    retry_attempts  = 1
    backoff_base_ms = 1
  }
  artifact "app" {
    source_ref  = "./site/app"
    target_name = "registry.example.com/site:v2"
  }
  artifact "docs" {
    source_ref  = "./site/docs"
    target_name = "registry.example.com/docs:v2"
    required    = false
  }
}
`,
	}, mod)

	require.NoError(t, res.Err, "optional artifact failure must not fail the run")
	require.NotNil(t, res.Summary)
	assert.Equal(t, 1, res.Summary.Counts.GroupsSucceeded)
	assert.Equal(t, 1, res.Summary.Counts.Failed)
	assert.Equal(t, 2, mod.Builder.Calls("docs"), "retries still ran before giving up")
}

func TestRun_ResultCompleteness(t *testing.T) {
	t.Parallel()

	mod := &testutil.Module{Builder: &testutil.ScriptedBuilder{
		Script: map[string][]runner.Outcome{
			"b1": {runner.Permanent("broken")},
		},
	}}
	res := RunPlanTest(t, map[string]string{
		"settings.hcl": scriptedSettings,
		"plan.hcl": `
group "a" {
  artifact "a1" {
    source_ref  = "./a"
    target_name = "registry.example.com/a:v1"
  }
}

group "b" {
  rate_limit {
    retry_attempts = 0
  }
  artifact "b1" {
    source_ref  = "./b"
    target_name = "registry.example.com/b:v1"
  }
}

group "c" {
  needs = ["b"]
  artifact "c1" {
    source_ref  = "./c"
    target_name = "registry.example.com/c:v1"
  }
}
`,
	}, mod)

	require.ErrorIs(t, res.Err, app.ErrRunFailed)
	require.NotNil(t, res.Summary)

	// Every artifact of every group appears exactly once in the summary.
	counts := res.Summary.Counts
	assert.Equal(t, counts.Artifacts, counts.Succeeded+counts.Failed+counts.Skipped)
	assert.Len(t, res.Summary.Groups, 3)

	statuses := make(map[string]result.GroupStatus)
	for _, g := range res.Summary.Groups {
		statuses[g.Name] = g.Status
	}
	assert.Equal(t, result.GroupSucceeded, statuses["a"])
	assert.Equal(t, result.GroupFailed, statuses["b"])
	assert.Equal(t, result.GroupSkipped, statuses["c"])
}
