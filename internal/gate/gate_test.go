package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convoy-build/convoy/internal/config"
)

func TestParseSeverity(t *testing.T) {
	cases := map[string]Severity{
		"info":     SeverityInfo,
		"warning":  SeverityWarning,
		"warn":     SeverityWarning,
		"HIGH":     SeverityHigh,
		"Critical": SeverityCritical,
	}
	for in, want := range cases {
		got, err := ParseSeverity(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseSeverity("fatal")
	assert.ErrorContains(t, err, "unknown severity")
}

func TestSeverityOrdering(t *testing.T) {
	assert.True(t, SeverityInfo < SeverityWarning)
	assert.True(t, SeverityWarning < SeverityHigh)
	assert.True(t, SeverityHigh < SeverityCritical)
}

func TestEvaluate(t *testing.T) {
	a := &config.Artifact{ID: "api"}
	eng, err := NewEngine("high")
	require.NoError(t, err)

	t.Run("no verdicts pass", func(t *testing.T) {
		d := eng.Evaluate(a, nil)
		assert.Equal(t, Pass, d.Kind)
		assert.Empty(t, d.Reason)
	})

	t.Run("below threshold warns", func(t *testing.T) {
		d := eng.Evaluate(a, []Verdict{
			{Severity: SeverityInfo, Message: "unpinned base image"},
			{Severity: SeverityWarning, Message: "large layer"},
		})
		assert.Equal(t, Warn, d.Kind)
		assert.Contains(t, d.Reason, "large layer")
	})

	t.Run("at threshold blocks", func(t *testing.T) {
		d := eng.Evaluate(a, []Verdict{
			{Severity: SeverityHigh, Message: "mutable tag"},
		})
		assert.Equal(t, Block, d.Kind)
		assert.Contains(t, d.Reason, "mutable tag")
		assert.Contains(t, d.Reason, `"api"`)
	})

	t.Run("block cites the worst verdict", func(t *testing.T) {
		d := eng.Evaluate(a, []Verdict{
			{Severity: SeverityWarning, Message: "large layer"},
			{Severity: SeverityCritical, Message: "CVE-2026-0001 in openssl"},
		})
		assert.Equal(t, Block, d.Kind)
		assert.Contains(t, d.Reason, "CVE-2026-0001")
	})
}

func TestEvaluateCriticalThreshold(t *testing.T) {
	a := &config.Artifact{ID: "api"}
	eng, err := NewEngine("critical")
	require.NoError(t, err)

	d := eng.Evaluate(a, []Verdict{{Severity: SeverityHigh, Message: "mutable tag"}})
	assert.Equal(t, Warn, d.Kind)

	d = eng.Evaluate(a, []Verdict{{Severity: SeverityCritical, Message: "CVE"}})
	assert.Equal(t, Block, d.Kind)
}
