package integration_tests

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/convoy-build/convoy/internal/app"
	"github.com/convoy-build/convoy/internal/hcl"
	"github.com/convoy-build/convoy/internal/registry"
	"github.com/convoy-build/convoy/internal/result"
	"github.com/convoy-build/convoy/internal/testutil"
)

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	LogOutput string
	Err       error
	App       *app.App
	Summary   *result.RunSummary
}

// RunPlanTest writes the given plan files to a temp directory, boots the full
// application against them and runs it to completion.
func RunPlanTest(t *testing.T, files map[string]string, modules ...registry.Module) *HarnessResult {
	t.Helper()
	return RunPlanTestWithConfig(context.Background(), t, files, nil, modules...)
}

// RunPlanTestWithConfig is RunPlanTest with a caller-supplied context and an
// optional mutation of the app config before startup.
func RunPlanTestWithConfig(ctx context.Context, t *testing.T, files map[string]string, mutate func(*app.Config), modules ...registry.Module) *HarnessResult {
	t.Helper()

	planDir := t.TempDir()
	for name, content := range files {
		filePath := filepath.Join(planDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0o755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0o644))
	}

	appConfig := &app.Config{
		PlanPath:  planDir,
		LogLevel:  "debug",
		LogFormat: "text",
	}
	if mutate != nil {
		mutate(appConfig)
	}

	logBuffer := &testutil.SafeBuffer{}

	testApp, err := app.NewApp(logBuffer, appConfig, hcl.NewLoader(), modules...)
	if err != nil {
		return &HarnessResult{LogOutput: logBuffer.String(), Err: err}
	}

	runErr := testApp.Run(ctx)
	return &HarnessResult{
		LogOutput: logBuffer.String(),
		Err:       runErr,
		App:       testApp,
		Summary:   testApp.Summary(),
	}
}
