package startup

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/pkg/logging"
)

func TestRunnerStartsInOrderStopsInReverse(t *testing.T) {
	var order []string
	runner := NewRunner(logging.NewNop(), 1)

	for _, name := range []string{"database", "kafka", "graph"} {
		name := name
		runner.Add(Dependency{
			Name:  name,
			Start: func(ctx context.Context) error { order = append(order, "start:"+name); return nil },
			Stop:  func(ctx context.Context) error { order = append(order, "stop:"+name); return nil },
		})
	}

	require.NoError(t, runner.Start(context.Background()))
	runner.Stop(context.Background())

	assert.Equal(t, []string{
		"start:database", "start:kafka", "start:graph",
		"stop:graph", "stop:kafka", "stop:database",
	}, order)
}

func TestRunnerRetriesFailedStart(t *testing.T) {
	attempts := 0
	runner := NewRunner(logging.NewNop(), 3)
	runner.Add(Dependency{
		Name: "flaky",
		Start: func(ctx context.Context) error {
			attempts++
			if attempts < 2 {
				return errors.New("not yet")
			}
			return nil
		},
	})

	require.NoError(t, runner.Start(context.Background()))
	assert.Equal(t, 2, attempts)
}

func TestRunnerDoesNotRestartStartedDependencies(t *testing.T) {
	firstStarts := 0
	attempts := 0
	runner := NewRunner(logging.NewNop(), 2)
	runner.Add(Dependency{
		Name:  "stable",
		Start: func(ctx context.Context) error { firstStarts++; return nil },
	})
	runner.Add(Dependency{
		Name: "flaky",
		Start: func(ctx context.Context) error {
			attempts++
			if attempts < 2 {
				return errors.New("not yet")
			}
			return nil
		},
	})

	require.NoError(t, runner.Start(context.Background()))
	assert.Equal(t, 1, firstStarts)
	assert.Equal(t, 2, attempts)
}

func TestRunnerGivesUpAfterMaxAttempts(t *testing.T) {
	runner := NewRunner(logging.NewNop(), 2)
	runner.Add(Dependency{
		Name:  "dead",
		Start: func(ctx context.Context) error { return errors.New("never") },
	})

	err := runner.Start(context.Background())
	assert.Error(t, err)
}

func TestRunnerStopErrorsDoNotHaltTeardown(t *testing.T) {
	stopped := 0
	runner := NewRunner(logging.NewNop(), 1)
	runner.Add(Dependency{
		Name: "first",
		Stop: func(ctx context.Context) error { stopped++; return nil },
	})
	runner.Add(Dependency{
		Name: "second",
		Stop: func(ctx context.Context) error { stopped++; return errors.New("close failed") },
	})

	require.NoError(t, runner.Start(context.Background()))
	runner.Stop(context.Background())

	assert.Equal(t, 2, stopped)
}
