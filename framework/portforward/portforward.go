// Package portforward supervises background kubectl port-forward processes.
//
// Each forward is represented by a Handle the caller can stop, await, or
// query, and all handles for a run are collected in a Registry that is torn
// down as a unit during cleanup. Handles survive process boundaries through
// the session record: a later invocation reattaches to the recorded PIDs and
// stops them the same way.
package portforward

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/obslab/otel-demo-k3d/framework/session"
)

const (
	probeInterval = 200 * time.Millisecond
	dialTimeout   = 500 * time.Millisecond
	logTailBytes  = 2048
)

// StartFunc builds the (not yet started) port-forward command. Injectable so
// tests can supervise a harmless process instead of kubectl.
type StartFunc func(namespace, target string, localPort, remotePort int) *exec.Cmd

func defaultStartFunc(namespace, target string, localPort, remotePort int) *exec.Cmd {
	return exec.Command("kubectl",
		"-n", namespace,
		"port-forward",
		target,
		fmt.Sprintf("%d:%d", localPort, remotePort),
	)
}

// Handle is a supervised port-forward process
type Handle struct {
	Namespace  string
	Target     string
	LocalPort  int
	RemotePort int
	LogFile    string

	pid int

	// done is closed when the child exits. Nil for reattached handles,
	// which are not this process's children and cannot be waited on.
	done    chan struct{}
	waitErr error
}

// PID returns the process id of the forward
func (h *Handle) PID() int {
	return h.pid
}

// Alive reports whether the process still exists
func (h *Handle) Alive() bool {
	return processAlive(h.pid)
}

// Wait blocks until the child exits or the context is cancelled. Reattached
// handles poll for process disappearance instead, since only a parent can wait.
func (h *Handle) Wait(ctx context.Context) error {
	if h.done != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-h.done:
			return h.waitErr
		}
	}

	ticker := time.NewTicker(probeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !h.Alive() {
				return nil
			}
		}
	}
}

// Stop terminates the process. Stopping an already-dead process is a no-op.
func (h *Handle) Stop() error {
	if h.pid <= 0 || !h.Alive() {
		return nil
	}
	if err := terminate(h.pid); err != nil {
		return fmt.Errorf("failed to stop port-forward %s/%s (pid %d): %w", h.Namespace, h.Target, h.pid, err)
	}
	return nil
}

// Job converts the handle into its session record form
func (h *Handle) Job() session.ForwardJob {
	return session.ForwardJob{
		PID:        h.pid,
		Namespace:  h.Namespace,
		Target:     h.Target,
		LocalPort:  h.LocalPort,
		RemotePort: h.RemotePort,
		LogFile:    h.LogFile,
	}
}

// Reattach builds a Handle for a forward recorded in a previous run's session
func Reattach(job session.ForwardJob) *Handle {
	return &Handle{
		Namespace:  job.Namespace,
		Target:     job.Target,
		LocalPort:  job.LocalPort,
		RemotePort: job.RemotePort,
		LogFile:    job.LogFile,
		pid:        job.PID,
	}
}

// Manager starts supervised port-forwards
type Manager struct {
	logDir       string
	readyTimeout time.Duration
	logger       *slog.Logger
	start        StartFunc
}

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithReadyTimeout sets how long Start waits for the local port to accept
// connections. Zero disables the probe.
func WithReadyTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.readyTimeout = d
	}
}

// WithStartFunc replaces the kubectl command constructor (for tests)
func WithStartFunc(fn StartFunc) Option {
	return func(m *Manager) {
		m.start = fn
	}
}

// NewManager creates a Manager writing child logs under logDir
func NewManager(logDir string, opts ...Option) *Manager {
	m := &Manager{
		logDir:       logDir,
		readyTimeout: 15 * time.Second,
		logger:       slog.Default(),
		start:        defaultStartFunc,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start launches a port-forward in the background and returns its handle.
// The child is detached into its own session so it survives this process;
// supervision continues for as long as this process lives, and the session
// record carries the PID past it.
func (m *Manager) Start(ctx context.Context, namespace, target string, localPort, remotePort int) (*Handle, error) {
	if err := os.MkdirAll(m.logDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logFile := filepath.Join(m.logDir, fmt.Sprintf("pf-%s-%d.log", sanitize(namespace), localPort))
	lf, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = lf.Close() }()

	cmd := m.start(namespace, target, localPort, remotePort)
	cmd.Stdout = lf
	cmd.Stderr = lf
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to launch port-forward: %w", err)
	}

	h := &Handle{
		Namespace:  namespace,
		Target:     target,
		LocalPort:  localPort,
		RemotePort: remotePort,
		LogFile:    logFile,
		pid:        cmd.Process.Pid,
		done:       make(chan struct{}),
	}

	go func() {
		h.waitErr = cmd.Wait()
		close(h.done)
	}()

	m.logger.Debug("port-forward started",
		"namespace", namespace, "target", target,
		"local", localPort, "remote", remotePort, "pid", h.pid)

	if m.readyTimeout > 0 {
		if err := m.waitPortReady(ctx, h); err != nil {
			_ = h.Stop()
			return nil, err
		}
	}

	return h, nil
}

// waitPortReady probes the local port until it accepts a connection. A child
// that exits first fails immediately with its log tail attached.
func (m *Manager) waitPortReady(ctx context.Context, h *Handle) error {
	deadline := time.Now().Add(m.readyTimeout)
	addr := net.JoinHostPort("127.0.0.1", fmt.Sprintf("%d", h.LocalPort))

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-h.done:
			if tail := readLogTail(h.LogFile, logTailBytes); tail != "" {
				return fmt.Errorf("port-forward %s/%s exited immediately (pid %d): %s", h.Namespace, h.Target, h.pid, tail)
			}
			return fmt.Errorf("port-forward %s/%s exited immediately (pid %d)", h.Namespace, h.Target, h.pid)
		default:
		}

		conn, err := net.DialTimeout("tcp", addr, dialTimeout)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		time.Sleep(probeInterval)
	}

	return fmt.Errorf("port-forward on :%d not ready after %s", h.LocalPort, m.readyTimeout)
}

// Registry collects the handles of one run so cleanup can tear them down as a unit
type Registry struct {
	mu      sync.Mutex
	handles []*Handle
	logger  *slog.Logger
}

// NewRegistry creates an empty Registry
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Add registers a handle
func (r *Registry) Add(h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles = append(r.handles, h)
}

// Handles returns a copy of the registered handles
func (r *Registry) Handles() []*Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Handle, len(r.handles))
	copy(out, r.handles)
	return out
}

// Jobs returns the session record form of every registered handle
func (r *Registry) Jobs() []session.ForwardJob {
	handles := r.Handles()
	jobs := make([]session.ForwardJob, 0, len(handles))
	for _, h := range handles {
		jobs = append(jobs, h.Job())
	}
	return jobs
}

// StopAll terminates every registered forward concurrently and empties the
// registry. Dead processes are skipped without error, so a second call (or a
// teardown after a crashed run) succeeds.
func (r *Registry) StopAll() error {
	handles := r.Handles()

	var g errgroup.Group
	for _, h := range handles {
		g.Go(func() error {
			if err := h.Stop(); err != nil {
				return err
			}
			r.logger.Debug("port-forward stopped", "target", h.Target, "pid", h.PID())
			return nil
		})
	}
	err := g.Wait()

	r.mu.Lock()
	r.handles = nil
	r.mu.Unlock()
	return err
}

func sanitize(s string) string {
	replacer := strings.NewReplacer("/", "_", ":", "_", " ", "_")
	return replacer.Replace(s)
}

func readLogTail(path string, maxBytes int) string {
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return ""
	}
	if len(data) > maxBytes {
		data = data[len(data)-maxBytes:]
	}
	return strings.TrimSpace(string(data))
}
