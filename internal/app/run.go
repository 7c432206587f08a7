package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/convoy-build/convoy/internal/cachekey"
	"github.com/convoy-build/convoy/internal/ctxlog"
	"github.com/convoy-build/convoy/internal/executor"
	"github.com/convoy-build/convoy/internal/result"
	"github.com/convoy-build/convoy/internal/scheduler"
)

// ErrRunFailed is returned by Run when the plan executed to completion but at
// least one group failed. It distinguishes a failed run (exit code 1) from a
// configuration fault (exit code 2).
var ErrRunFailed = errors.New("run finished with failures")

// Run executes the loaded plan to completion and writes the run summary.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.HealthcheckPort > 0 {
		a.startHealthcheckServer(a.config.HealthcheckPort)
	}

	known, err := a.loadSkipKeys()
	if err != nil {
		return fmt.Errorf("failed to read skip keys: %w", err)
	}

	agg := result.NewAggregator(a.plan)
	exec := &executor.Executor{
		Timeout:       a.plan.Settings.OperationTimeout,
		MaxBackoff:    a.plan.Settings.MaxBackoff,
		Gate:          a.gate,
		ContextSource: cachekey.FileSource,
		Known:         known,
		Metrics:       a.metrics,
	}
	sched := &scheduler.Scheduler{
		Plan:     a.plan,
		Graph:    a.graph,
		Executor: exec,
		Registry: a.registry,
		Agg:      agg,
		Metrics:  a.metrics,
	}

	a.logger.Info("🚀 Starting run.",
		"run_id", agg.RunID(),
		"groups", len(a.plan.Groups),
		"artifacts", a.plan.TotalArtifacts(),
		"max_concurrent_groups", a.plan.Settings.MaxConcurrentGroups,
	)

	runErr := sched.Run(ctx)

	summary, err := agg.Finalize()
	if err != nil {
		if runErr != nil {
			return fmt.Errorf("run aborted: %w", runErr)
		}
		return fmt.Errorf("failed to finalize run: %w", err)
	}
	a.summary = summary

	if err := a.writeSummary(summary); err != nil {
		return err
	}

	a.logger.Info("🏁 Run finished.",
		"run_id", summary.RunID,
		"duration", summary.Duration,
		"groups_succeeded", summary.Counts.GroupsSucceeded,
		"groups_failed", summary.Counts.GroupsFailed,
		"groups_skipped", summary.Counts.GroupsSkipped,
		"cache_hits", summary.Counts.CacheHits,
	)

	if runErr != nil {
		return fmt.Errorf("run aborted: %w", runErr)
	}
	if summary.Failed() {
		return ErrRunFailed
	}
	return nil
}

func (a *App) writeSummary(summary *result.RunSummary) error {
	if a.config.SummaryOut == "" {
		return summary.WriteJSON(a.outW)
	}

	f, err := os.Create(a.config.SummaryOut)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer f.Close()

	if err := summary.WriteJSON(f); err != nil {
		return fmt.Errorf("failed to write summary file: %w", err)
	}
	a.logger.Info("Run summary written.", "path", a.config.SummaryOut)
	return nil
}

// loadSkipKeys reads the skip-keys file: one cache key per line, blank lines
// and #-comments ignored.
func (a *App) loadSkipKeys() (map[cachekey.Key]struct{}, error) {
	if a.config.SkipKeysPath == "" {
		return nil, nil
	}

	f, err := os.Open(a.config.SkipKeysPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	known := make(map[cachekey.Key]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		known[cachekey.Key(line)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	a.logger.Debug("Skip keys loaded.", "count", len(known), "path", a.config.SkipKeysPath)
	return known, nil
}
