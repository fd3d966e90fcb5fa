// Package toolexec wraps invocation of the external CLIs the framework
// sequences (k3d, kubectl, helm). Exit status is the only error channel these
// tools offer; a non-zero exit is immediately fatal and never retried.
package toolexec

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"
)

// outputTailBytes limits how much combined output is attached to an error
const outputTailBytes = 4096

// MissingToolsError reports required executables not found on PATH. It is
// raised before any mutation happens so the operator can install them and
// rerun.
type MissingToolsError struct {
	Tools []string
}

func (e *MissingToolsError) Error() string {
	return fmt.Sprintf("required tools not found on PATH: %s", strings.Join(e.Tools, ", "))
}

// CommandError reports a failed external command together with the tail of
// its combined output.
type CommandError struct {
	Name   string
	Args   []string
	Output string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Name, strings.Join(e.Args, " "), e.Err)
	if e.Output != "" {
		msg += "\n" + e.Output
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Runner executes external commands. The interface exists so higher layers
// can be tested without k3d or helm installed.
type Runner interface {
	// Run executes the command and returns its combined output.
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// CLIRunner is the production Runner backed by os/exec
type CLIRunner struct {
	logger  *slog.Logger
	timeout time.Duration
}

// Option configures a CLIRunner
type Option func(*CLIRunner)

// WithLogger sets a custom logger for the runner
func WithLogger(logger *slog.Logger) Option {
	return func(r *CLIRunner) {
		r.logger = logger
	}
}

// WithTimeout caps each invocation. Zero means no cap beyond the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(r *CLIRunner) {
		r.timeout = d
	}
}

// New creates a CLIRunner
func New(opts ...Option) *CLIRunner {
	r := &CLIRunner{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the command, logging it at debug level. On failure the tail of
// the combined output is attached to the returned CommandError.
func (r *CLIRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	r.logger.Debug("running command", "cmd", name, "args", strings.Join(args, " "))

	start := time.Now()
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return string(out), &CommandError{
			Name:   name,
			Args:   args,
			Output: tail(string(out), outputTailBytes),
			Err:    err,
		}
	}

	r.logger.Debug("command finished", "cmd", name, "duration", time.Since(start))
	return string(out), nil
}

// CheckPrerequisites verifies that every named tool resolves on PATH. All
// missing tools are collected into one MissingToolsError so the operator sees
// the full list at once.
func CheckPrerequisites(tools ...string) error {
	var missing []string
	for _, tool := range tools {
		if _, err := exec.LookPath(tool); err != nil {
			missing = append(missing, tool)
		}
	}

	if len(missing) > 0 {
		return &MissingToolsError{Tools: missing}
	}
	return nil
}

// tail keeps the last n bytes of s, advancing past any rune the byte cut
// landed inside of.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) > n {
		s = s[len(s)-n:]
		for len(s) > 0 && !utf8.RuneStart(s[0]) {
			s = s[1:]
		}
	}
	return s
}
