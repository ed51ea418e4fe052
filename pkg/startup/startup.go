// Package startup brings external dependencies up in registration order and
// tears them down in reverse. A failed attempt retries the remaining
// dependencies with fibonacci backoff.
package startup

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
)

// Dependency is one startable external resource. Start and Stop may be nil
// when the resource has nothing to do on that side.
type Dependency struct {
	Name  string
	Start func(ctx context.Context) error
	Stop  func(ctx context.Context) error
}

type Runner struct {
	deps        []Dependency
	started     []Dependency
	logger      ectologger.Logger
	maxAttempts int
}

func NewRunner(logger ectologger.Logger, maxAttempts int) *Runner {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Runner{
		logger:      logger,
		maxAttempts: maxAttempts,
	}
}

func (r *Runner) Add(dep Dependency) {
	r.deps = append(r.deps, dep)
}

// Start brings every dependency up in order. Dependencies that started on an
// earlier attempt are not started again.
func (r *Runner) Start(ctx context.Context) error {
	a, b := 1, 1
	var lastErr error

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		lastErr = r.startPending(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == r.maxAttempts {
			break
		}

		waitTime := time.Duration(a) * time.Second
		r.logger.WithError(lastErr).Warnf("Startup attempt %d failed, retrying in %s", attempt, waitTime)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
		}
		a, b = b, a+b
	}

	return fmt.Errorf("startup failed after %d attempts: %w", r.maxAttempts, lastErr)
}

func (r *Runner) startPending(ctx context.Context) error {
	for _, dep := range r.deps {
		if r.isStarted(dep.Name) {
			continue
		}

		r.logger.WithField("dependency", dep.Name).Infof("Starting dependency '%s'", dep.Name)
		if dep.Start != nil {
			if err := dep.Start(ctx); err != nil {
				return fmt.Errorf("failed to start %s: %w", dep.Name, err)
			}
		}
		r.started = append(r.started, dep)
	}
	return nil
}

func (r *Runner) isStarted(name string) bool {
	for _, dep := range r.started {
		if dep.Name == name {
			return true
		}
	}
	return false
}

// Stop tears the started dependencies down in reverse order. Stop errors are
// logged and do not halt the teardown.
func (r *Runner) Stop(ctx context.Context) {
	for i := len(r.started) - 1; i >= 0; i-- {
		dep := r.started[i]
		if dep.Stop == nil {
			continue
		}

		r.logger.WithField("dependency", dep.Name).Infof("Stopping dependency '%s'", dep.Name)
		if err := dep.Stop(ctx); err != nil {
			r.logger.WithError(err).WithField("dependency", dep.Name).Errorf("Failed to stop dependency '%s'", dep.Name)
		}
	}
	r.started = nil
}
