package application

import (
	"context"
	"errors"
	"fmt"
)

// Watch re-runs Check whenever the tables or specs trees change. The
// callback observes each run's outcome; gating errors from individual
// runs do not stop the loop.
func (s *Service) Watch(ctx context.Context, opts WatchOptions, watcher FileWatcher, callback WatchCallback) error {
	cfg, err := s.loadOrDetect(opts.ConfigPath)
	if err != nil {
		return err
	}
	if err := watcher.WatchDir(cfg.Tables); err != nil {
		return fmt.Errorf("failed to watch %s: %w", cfg.Tables, err)
	}
	if cfg.Specs != cfg.Tables {
		if err := watcher.WatchDir(cfg.Specs); err != nil {
			return fmt.Errorf("failed to watch %s: %w", cfg.Specs, err)
		}
	}

	checkOpts := CheckOptions{ConfigPath: opts.ConfigPath, Output: opts.Output}
	runNumber := 1
	runErr := s.Check(ctx, checkOpts)
	if stop(runErr) {
		return runErr
	}
	if callback != nil {
		callback(runNumber, runErr)
	}

	events := watcher.Events(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-events:
			if !ok {
				return nil
			}
			runNumber++
			runErr := s.Check(ctx, checkOpts)
			if stop(runErr) {
				return runErr
			}
			if callback != nil {
				callback(runNumber, runErr)
			}
		}
	}
}

// stop separates run outcomes, which the loop tolerates, from
// environment errors that make further runs pointless.
func stop(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrPolicyViolation) && !errors.Is(err, ErrCaseFailures)
}
