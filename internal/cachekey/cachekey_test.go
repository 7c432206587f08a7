package cachekey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convoy-build/convoy/internal/config"
)

func sampleArtifact() *config.Artifact {
	return &config.Artifact{
		ID:         "api",
		SourceRef:  "./services/api",
		TargetName: "registry.example.com/api:1.4.2",
		Platforms:  []string{"linux/arm64", "linux/amd64"},
		Inputs: map[string]string{
			"base_image": "alpine:3.20",
			"go_version": "1.24",
		},
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	a := sampleArtifact()
	ctxBytes := []byte("dockerfile contents")

	first := Compute(a, ctxBytes)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Compute(a, ctxBytes))
	}
}

func TestComputeIgnoresMapAndSliceOrder(t *testing.T) {
	a := sampleArtifact()
	b := sampleArtifact()
	b.Platforms = []string{"linux/amd64", "linux/arm64"}
	b.Inputs = map[string]string{
		"go_version": "1.24",
		"base_image": "alpine:3.20",
	}

	assert.Equal(t, Compute(a, nil), Compute(b, nil))
}

func TestComputeChangesWithInputs(t *testing.T) {
	a := sampleArtifact()
	base := Compute(a, nil)

	changed := sampleArtifact()
	changed.Inputs["go_version"] = "1.25"
	assert.NotEqual(t, base, Compute(changed, nil))

	assert.NotEqual(t, base, Compute(a, []byte("new context")))
}

func TestComputeFieldBoundaries(t *testing.T) {
	// Length-delimited encoding: shifting a byte across a field boundary must
	// change the key.
	a := &config.Artifact{ID: "x", SourceRef: "ab", TargetName: "c"}
	b := &config.Artifact{ID: "x", SourceRef: "a", TargetName: "bc"}
	assert.NotEqual(t, Compute(a, nil), Compute(b, nil))
}

func TestShouldSkip(t *testing.T) {
	a := sampleArtifact()
	key := Compute(a, nil)

	assert.False(t, ShouldSkip(key, nil))
	assert.False(t, ShouldSkip(key, map[Key]struct{}{}))
	assert.False(t, ShouldSkip(key, map[Key]struct{}{"other": {}}))

	known := map[Key]struct{}{key: {}}
	require.True(t, ShouldSkip(key, known))
}
