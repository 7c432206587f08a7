package integration_tests

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convoy-build/convoy/internal/app"
	"github.com/convoy-build/convoy/internal/testutil"
)

// freePort reserves an ephemeral port and releases it for the server to bind.
func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestRun_HealthcheckServesDuringRun(t *testing.T) {
	port := freePort(t)

	mod := &testutil.Module{Builder: &testutil.ScriptedBuilder{}}
	res := RunPlanTestWithConfig(context.Background(), t, map[string]string{
		"plan.hcl": scriptedSettings + `
group "base" {
  artifact "runtime" {
    source_ref  = "./images/runtime"
    target_name = "registry.example.com/runtime:v1"
  }
}
`,
	}, func(cfg *app.Config) {
		cfg.HealthcheckPort = port
	}, mod)

	require.NoError(t, res.Err)

	// The server is started before the run and keeps serving after it; give
	// the listener a moment to come up.
	var resp *http.Response
	require.Eventually(t, func() bool {
		r, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port))
		if err != nil {
			return false
		}
		resp = r
		return true
	}, 2*time.Second, 20*time.Millisecond, "health endpoint never came up")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	metricsResp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/metrics", port))
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	assert.Equal(t, http.StatusOK, metricsResp.StatusCode)
}
