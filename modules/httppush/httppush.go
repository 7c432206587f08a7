// Package httppush publishes artifact sources over HTTP PUT, the way a
// registry front door or pre-signed upload URL expects them.
package httppush

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/convoy-build/convoy/internal/config"
	"github.com/convoy-build/convoy/internal/ctxlog"
	"github.com/convoy-build/convoy/internal/registry"
	"github.com/convoy-build/convoy/internal/runner"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the builder with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterBuilder("httppush", &Builder{})
}

// sharedClient is reused across executions to keep TCP connections warm.
var sharedClient = &http.Client{}

// Builder pushes an artifact's source file to its target URL. Failure
// classification follows the response: throttling and server faults are
// transient, client faults are permanent.
type Builder struct {
	// Client overrides the shared HTTP client, mainly for tests.
	Client *http.Client
}

// Execute uploads the artifact's source_ref file via PUT. The push URL comes
// from the artifact's push_url input, falling back to https://<target_name>.
func (b *Builder) Execute(ctx context.Context, a *config.Artifact) runner.Outcome {
	logger := ctxlog.FromContext(ctx).With("artifact", a.ID)

	url := a.Inputs["push_url"]
	if url == "" {
		url = "https://" + a.TargetName
	}

	file, err := os.Open(a.SourceRef)
	if err != nil {
		return runner.Permanent(fmt.Sprintf("failed to open source file %q: %v", a.SourceRef, err))
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return runner.Permanent(fmt.Sprintf("failed to stat source file %q: %v", a.SourceRef, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, file)
	if err != nil {
		return runner.Permanent(fmt.Sprintf("failed to create push request: %v", err))
	}

	contentType := mime.TypeByExtension(filepath.Ext(a.SourceRef))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = stat.Size()

	logger.Info("Pushing artifact.", "url", url, "size", stat.Size(), "contentType", contentType)

	client := b.Client
	if client == nil {
		client = sharedClient
	}
	resp, err := client.Do(req)
	if err != nil {
		// Network faults and canceled contexts both land here; either way the
		// operation may succeed on retry.
		return runner.Transient(fmt.Sprintf("push request failed: %v", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		logger.Info("Artifact pushed.", "status", resp.Status)
		return runner.Success(a.TargetName)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return runner.Transient(fmt.Sprintf("push rejected with retryable status: %s", resp.Status))
	default:
		return runner.Permanent(fmt.Sprintf("push rejected with status: %s", resp.Status))
	}
}
