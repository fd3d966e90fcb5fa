package framework

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Backend describes one observability backend the demo can export telemetry
// to: where it lives, how to deploy it, what it contributes to the collector
// pipelines, and which ports to forward for its UI.
type Backend struct {
	Name      string
	Namespace string
	Releases  []HelmRelease
	Forwards  []ForwardSpec
	Exporters BackendExporters

	deploy func(f *Framework, ctx context.Context) error
}

func backendTable() map[string]*Backend {
	return map[string]*Backend{
		"jaeger":     jaegerBackend(),
		"zipkin":     zipkinBackend(),
		"signoz":     signozBackend(),
		"prometheus": prometheusBackend(),
	}
}

// BackendNames returns the names of all known backends, sorted.
func BackendNames() []string {
	table := backendTable()
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupBackends resolves backend names to their descriptors. One or two
// distinct backends must be selected.
func LookupBackends(names []string) ([]*Backend, error) {
	if len(names) < 1 || len(names) > 2 {
		return nil, fmt.Errorf("%w, got %d", ErrBackendCount, len(names))
	}

	table := backendTable()
	seen := make(map[string]bool, len(names))
	backends := make([]*Backend, 0, len(names))
	for _, name := range names {
		b, ok := table[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownBackend, name, BackendNames())
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: %q selected twice", ErrUnknownBackend, name)
		}
		seen[name] = true
		backends = append(backends, b)
	}
	return backends, nil
}

// DeployBackends deploys the selected backends concurrently and waits for
// each to become ready. The first failure cancels the siblings. Namespaces
// and helm releases are tracked for cleanup before deployment starts, so a
// failed deploy still gets torn down.
func (f *Framework) DeployBackends(backends []*Backend) error {
	for _, b := range backends {
		f.TrackNamespace(b.Namespace)
		for _, r := range b.Releases {
			f.TrackRelease(r.Name, r.Namespace)
		}
	}

	g, ctx := errgroup.WithContext(f.ctx)
	for _, b := range backends {
		b := b
		g.Go(func() error {
			f.logger.Info("deploying backend", "backend", b.Name, "namespace", b.Namespace)
			if err := b.deploy(f, ctx); err != nil {
				return fmt.Errorf("backend %s: %w", b.Name, err)
			}
			f.logger.Info("backend ready", "backend", b.Name)
			return nil
		})
	}
	return g.Wait()
}

// backendContributions collects the collector pipeline contributions of the
// selected backends.
func backendContributions(backends []*Backend) []BackendExporters {
	contribs := make([]BackendExporters, 0, len(backends))
	for _, b := range backends {
		contribs = append(contribs, b.Exporters)
	}
	return contribs
}
