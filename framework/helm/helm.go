// Package helm drives the helm CLI for chart installs and uninstalls. Chart
// templating and release bookkeeping stay helm's problem; this wrapper only
// renders a values file and sequences the invocations.
package helm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"sigs.k8s.io/yaml"

	"github.com/obslab/otel-demo-k3d/framework/toolexec"
)

// Client wraps helm CLI invocations
type Client struct {
	runner toolexec.Runner
	logger *slog.Logger
}

// New creates a helm Client. A nil logger falls back to slog.Default().
func New(runner toolexec.Runner, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{runner: runner, logger: logger}
}

// Repo is a chart repository to register before installing
type Repo struct {
	Name string
	URL  string
}

// InstallOpts describes one chart install
type InstallOpts struct {
	Release   string
	Chart     string
	Namespace string
	// Version pins the chart version; empty installs the latest
	Version string
	// Values is rendered to a YAML file and passed via --values
	Values map[string]any
}

// EnsureRepo registers a chart repository and refreshes the index.
// `helm repo add` with an existing name and the same URL is a no-op, so this
// is safe to call on every run.
func (c *Client) EnsureRepo(ctx context.Context, repo Repo) error {
	if _, err := c.runner.Run(ctx, "helm", "repo", "add", repo.Name, repo.URL, "--force-update"); err != nil {
		return fmt.Errorf("failed to add helm repo %s: %w", repo.Name, err)
	}
	if _, err := c.runner.Run(ctx, "helm", "repo", "update", repo.Name); err != nil {
		return fmt.Errorf("failed to update helm repo %s: %w", repo.Name, err)
	}
	return nil
}

// Install runs `helm upgrade --install` for the chart. Readiness is gated by
// the caller against the Kubernetes API, not by --wait, so a slow rollout
// produces a readiness timeout naming the resource instead of an opaque helm
// error.
func (c *Client) Install(ctx context.Context, opts InstallOpts) error {
	args := []string{
		"upgrade", "--install", opts.Release, opts.Chart,
		"--namespace", opts.Namespace,
		"--create-namespace",
	}
	if opts.Version != "" {
		args = append(args, "--version", opts.Version)
	}

	if len(opts.Values) > 0 {
		valuesFile, cleanup, err := writeValuesFile(opts.Release, opts.Values)
		if err != nil {
			return err
		}
		defer cleanup()
		args = append(args, "--values", valuesFile)
	}

	c.logger.Info("installing helm chart", "release", opts.Release, "chart", opts.Chart, "namespace", opts.Namespace)

	if _, err := c.runner.Run(ctx, "helm", args...); err != nil {
		return fmt.Errorf("failed to install release %s: %w", opts.Release, err)
	}
	return nil
}

// Uninstall removes a release. An absent release is not an error: cleanup
// must be idempotent and tolerant of partial state.
func (c *Client) Uninstall(ctx context.Context, release, namespace string) error {
	c.logger.Info("uninstalling helm release", "release", release, "namespace", namespace)

	_, err := c.runner.Run(ctx, "helm", "uninstall", release,
		"--namespace", namespace,
		"--ignore-not-found",
	)
	if err != nil {
		return fmt.Errorf("failed to uninstall release %s: %w", release, err)
	}
	return nil
}

// writeValuesFile renders the values map to a temporary YAML file and returns
// its path together with a cleanup func.
func writeValuesFile(release string, values map[string]any) (string, func(), error) {
	data, err := yaml.Marshal(values)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal values for %s: %w", release, err)
	}

	dir, err := os.MkdirTemp("", "helm-values-"+release+"-")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create values directory: %w", err)
	}

	path := filepath.Join(dir, "values.yaml")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		_ = os.RemoveAll(dir)
		return "", nil, fmt.Errorf("failed to write values file: %w", err)
	}

	return path, func() { _ = os.RemoveAll(dir) }, nil
}
