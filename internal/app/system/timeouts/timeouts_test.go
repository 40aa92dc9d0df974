package timeouts_test

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/teamhub/internal/app/system/timeouts"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestConfigure_ZeroKeepsCurrent(t *testing.T) {
	t.Cleanup(timeouts.Reset)

	timeouts.Configure(timeouts.Config{Short: 7 * time.Second})
	assert.Equal(t, 7*time.Second, timeouts.Short())
	assert.Equal(t, timeouts.DefaultMedium, timeouts.Medium())

	timeouts.Reset()
	assert.Equal(t, timeouts.DefaultShort, timeouts.Short())
}

func TestWithTimeout_LogsOnDeadline(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	ctx, cancel := timeouts.WithTimeout(context.Background(), time.Millisecond, zap.New(core), "slow op")
	<-ctx.Done()
	cancel()

	entries := logs.FilterMessage("operation timed out").All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "slow op", entries[0].ContextMap()["operation"])
	}
}

func TestWithTimeout_QuietOnEarlyCancel(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	_, cancel := timeouts.WithTimeout(context.Background(), time.Minute, zap.New(core), "fast op")
	cancel()
	assert.Zero(t, logs.Len())
}

type ctxKey struct{}

func TestDetached_OutlivesParentDeadline(t *testing.T) {
	t.Cleanup(timeouts.Reset)
	timeouts.Configure(timeouts.Config{SideEffect: time.Minute})

	parent, cancel := context.WithTimeout(context.WithValue(context.Background(), ctxKey{}, "req-1"), time.Millisecond)
	<-parent.Done()
	cancel()

	ctx, scancel := timeouts.Detached(parent)
	defer scancel()

	assert.NoError(t, ctx.Err(), "expired request deadline does not end side effects")
	assert.Equal(t, "req-1", ctx.Value(ctxKey{}))
	deadline, ok := ctx.Deadline()
	if assert.True(t, ok) {
		assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
	}
}
