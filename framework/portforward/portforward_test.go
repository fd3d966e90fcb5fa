//go:build unix

package portforward

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obslab/otel-demo-k3d/framework/session"
)

// sleepStartFunc supervises a harmless long sleep instead of kubectl
func sleepStartFunc(_, _ string, _, _ int) *exec.Cmd {
	return exec.Command("sleep", "60")
}

// exitingStartFunc simulates a port-forward that dies right away
func exitingStartFunc(_, _ string, _, _ int) *exec.Cmd {
	return exec.Command("sh", "-c", "echo 'error: unable to forward' >&2; exit 1")
}

func newTestManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	base := []Option{WithStartFunc(sleepStartFunc), WithReadyTimeout(0)}
	return NewManager(t.TempDir(), append(base, opts...)...)
}

func TestStartAndStop(t *testing.T) {
	m := newTestManager(t)

	h, err := m.Start(context.Background(), "tracing", "svc/jaeger-query", 16686, 16686)
	require.NoError(t, err)
	require.Greater(t, h.PID(), 0)
	assert.True(t, h.Alive())

	require.NoError(t, h.Stop())

	// Termination is asynchronous; the supervisor observes the exit
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = h.Wait(ctx)
	assert.False(t, h.Alive())
}

func TestStop_DeadProcessIsNoop(t *testing.T) {
	m := newTestManager(t)

	h, err := m.Start(context.Background(), "tracing", "svc/jaeger-query", 16686, 16686)
	require.NoError(t, err)
	require.NoError(t, h.Stop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = h.Wait(ctx)

	// Second stop after the process is gone
	assert.NoError(t, h.Stop())
}

func TestStart_ChildExitsImmediately(t *testing.T) {
	m := NewManager(t.TempDir(),
		WithStartFunc(exitingStartFunc),
		WithReadyTimeout(3*time.Second))

	_, err := m.Start(context.Background(), "tracing", "svc/jaeger-query", 16686, 16686)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exited immediately")
	assert.Contains(t, err.Error(), "unable to forward", "log tail should be attached to the error")
}

func TestWaitPortReady_Succeeds(t *testing.T) {
	// Occupy a port so the readiness probe sees it listening
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = l.Close() }()
	port := l.Addr().(*net.TCPAddr).Port

	m := NewManager(t.TempDir(),
		WithStartFunc(sleepStartFunc),
		WithReadyTimeout(3*time.Second))

	h, err := m.Start(context.Background(), "demo", "svc/frontend-proxy", port, 8080)
	require.NoError(t, err)
	defer func() { _ = h.Stop() }()
}

func TestReattach(t *testing.T) {
	m := newTestManager(t)

	h, err := m.Start(context.Background(), "tracing", "svc/zipkin", 9411, 9411)
	require.NoError(t, err)

	// Round-trip through the session record, as a later invocation would
	re := Reattach(h.Job())
	assert.Equal(t, h.PID(), re.PID())
	assert.True(t, re.Alive())

	require.NoError(t, re.Stop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, re.Wait(ctx))
	assert.False(t, h.Alive())
}

func TestReattach_AbsentProcess(t *testing.T) {
	// A PID that cannot exist on Linux (beyond default pid_max)
	re := Reattach(session.ForwardJob{PID: 1 << 30, Target: "svc/gone"})
	assert.False(t, re.Alive())
	assert.NoError(t, re.Stop())
}

func TestRegistry_StopAll(t *testing.T) {
	m := newTestManager(t)
	reg := NewRegistry(nil)

	for i := 0; i < 3; i++ {
		h, err := m.Start(context.Background(), "demo", fmt.Sprintf("svc/s%d", i), 20000+i, 80)
		require.NoError(t, err)
		reg.Add(h)
	}
	handles := reg.Handles()
	require.Len(t, handles, 3)
	require.Len(t, reg.Jobs(), 3)

	require.NoError(t, reg.StopAll())
	assert.Empty(t, reg.Handles())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, h := range handles {
		_ = h.Wait(ctx)
		assert.False(t, h.Alive())
	}

	// Torn down twice: nothing left, still no error
	assert.NoError(t, reg.StopAll())
}

func TestHandle_Job(t *testing.T) {
	h := &Handle{
		Namespace:  "tracing",
		Target:     "svc/jaeger-query",
		LocalPort:  16686,
		RemotePort: 16686,
		pid:        99,
	}
	job := h.Job()
	assert.Equal(t, 99, job.PID)
	assert.Equal(t, "tracing", job.Namespace)
	assert.Equal(t, 16686, job.LocalPort)
}
