package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPlan() *Plan {
	return &Plan{
		Settings: DefaultSettings(),
		Groups: []*Group{
			{
				Name:      "base",
				RateLimit: DefaultRateLimit(),
				Artifacts: []*Artifact{
					{ID: "runtime", SourceRef: "./runtime", TargetName: "registry.example.com/runtime", Required: true},
				},
			},
			{
				Name:      "services",
				Needs:     []string{"base"},
				RateLimit: DefaultRateLimit(),
				Artifacts: []*Artifact{
					{ID: "api", SourceRef: "./api", TargetName: "registry.example.com/api", Required: true},
				},
			},
		},
	}
}

func TestValidate_AcceptsWellFormedPlan(t *testing.T) {
	require.NoError(t, Validate(validPlan()))
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Plan)
		want   string
	}{
		{
			"no settings",
			func(p *Plan) { p.Settings = nil },
			"no settings",
		},
		{
			"no groups",
			func(p *Plan) { p.Groups = nil },
			"declares no groups",
		},
		{
			"duplicate group name",
			func(p *Plan) { p.Groups[1].Name = "base"; p.Groups[1].Needs = nil },
			"declared more than once",
		},
		{
			"zero max parallel",
			func(p *Plan) { p.Groups[0].RateLimit.MaxParallel = 0 },
			"max_parallel",
		},
		{
			"negative retries",
			func(p *Plan) { p.Groups[0].RateLimit.RetryAttempts = -1 },
			"retry_attempts",
		},
		{
			"negative delay",
			func(p *Plan) { p.Groups[0].RateLimit.Delay = -1 },
			"must not be negative",
		},
		{
			"empty artifact id",
			func(p *Plan) { p.Groups[0].Artifacts[0].ID = "" },
			"empty id",
		},
		{
			"zero concurrent groups",
			func(p *Plan) { p.Settings.MaxConcurrentGroups = 0 },
			"max_concurrent_groups",
		},
		{
			"zero operation timeout",
			func(p *Plan) { p.Settings.OperationTimeout = 0 },
			"must be positive",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := validPlan()
			tc.mutate(p)

			err := Validate(p)

			require.Error(t, err)
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestValidate_TypedErrors(t *testing.T) {
	t.Run("unknown need", func(t *testing.T) {
		p := validPlan()
		p.Groups[1].Needs = []string{"missing"}

		err := Validate(p)

		var needErr *MissingNeedError
		require.ErrorAs(t, err, &needErr)
		assert.Equal(t, "services", needErr.Group)
		assert.Equal(t, "missing", needErr.Need)
	})

	t.Run("self dependency", func(t *testing.T) {
		p := validPlan()
		p.Groups[0].Needs = []string{"base"}

		err := Validate(p)

		var cycleErr *CyclicDependencyError
		require.ErrorAs(t, err, &cycleErr)
		assert.Equal(t, []string{"base", "base"}, cycleErr.Cycle)
	})

	t.Run("duplicate artifact id", func(t *testing.T) {
		p := validPlan()
		p.Groups[0].Artifacts = append(p.Groups[0].Artifacts, &Artifact{
			ID: "runtime", SourceRef: "./copy", TargetName: "registry.example.com/copy",
		})

		err := Validate(p)

		var dupErr *DuplicateArtifactError
		require.ErrorAs(t, err, &dupErr)
		assert.Equal(t, "base", dupErr.Group)
		assert.Equal(t, "runtime", dupErr.ID)
	})
}

func TestPlanHelpers(t *testing.T) {
	p := validPlan()

	assert.Equal(t, 2, p.TotalArtifacts())
	require.NotNil(t, p.GroupByName("services"))
	assert.Nil(t, p.GroupByName("nope"))
}
