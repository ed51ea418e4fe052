package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateSerializesCalls(t *testing.T) {
	interval := 50 * time.Millisecond
	gate := NewGate(interval)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, gate.Wait(ctx))
	}
	elapsed := time.Since(start)

	// first call is immediate, the next two wait an interval each
	assert.GreaterOrEqual(t, elapsed, 2*interval)
}

func TestGatesAreIndependent(t *testing.T) {
	interval := 100 * time.Millisecond
	first := NewGate(interval)
	second := NewGate(interval)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, first.Wait(ctx))
	require.NoError(t, second.Wait(ctx))

	// a call on one gate never burns the other gate's token
	assert.Less(t, time.Since(start), interval)
}

func TestGateDisabled(t *testing.T) {
	gate := NewGate(0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 10; i++ {
		require.NoError(t, gate.Wait(ctx))
	}

	assert.Less(t, time.Since(start), 10*time.Millisecond)
	assert.Zero(t, gate.Interval())
}

func TestGateNil(t *testing.T) {
	var gate *Gate

	assert.NoError(t, gate.Wait(context.Background()))
	assert.Zero(t, gate.Interval())
}

func TestGateRespectsContextCancellation(t *testing.T) {
	gate := NewGate(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, gate.Wait(ctx))

	cancel()
	assert.Error(t, gate.Wait(ctx))
}

func TestGateInterval(t *testing.T) {
	gate := NewGate(time.Second)
	assert.Equal(t, time.Second, gate.Interval())
}
