package framework

import (
	"errors"
	"sort"

	"github.com/obslab/otel-demo-k3d/framework/helm"
	"github.com/obslab/otel-demo-k3d/framework/portforward"
	"github.com/obslab/otel-demo-k3d/framework/session"
)

// Cleanup removes everything a run created, in dependency order:
// port-forwards, helm releases, namespaces, the cluster itself, and finally
// the session record. Every step tolerates the resource being already gone,
// so Cleanup can run twice in a row, or against a half-built environment,
// and still succeed.
//
// Failures are collected rather than aborting; one stuck namespace should
// not leave the cluster behind.
func (f *Framework) Cleanup() error {
	cluster := f.config.ClusterName
	f.logger.Info("starting cleanup", "cluster", cluster)

	var errs []error

	if err := f.forwards.StopAll(); err != nil {
		errs = append(errs, NewCleanupError("port-forwards", err))
	}

	sess, err := f.store.Load(cluster)
	if err != nil {
		if !errors.Is(err, session.ErrNoSession) {
			errs = append(errs, NewCleanupError("session record", err))
		}
		f.logger.Debug("no session record", "cluster", cluster)
	}
	f.stopRecordedForwards(sess)

	exists, err := f.ClusterExists()
	if err != nil {
		errs = append(errs, NewCleanupError("cluster lookup", err))
	}

	if exists {
		hc := helm.New(f.runner, f.logger)
		for _, r := range f.cleanupReleases(sess) {
			if err := hc.Uninstall(f.ctx, r.Name, r.Namespace); err != nil {
				f.logger.Warn("failed to uninstall release", "release", r.Name, "error", err)
				errs = append(errs, NewCleanupError("release "+r.Name, err))
			}
		}

		for _, ns := range f.cleanupNamespaces(sess) {
			if err := f.DeleteNamespace(f.ctx, ns); err != nil {
				f.logger.Warn("failed to delete namespace", "namespace", ns, "error", err)
				errs = append(errs, NewCleanupError("namespace "+ns, err))
			}
		}

		if err := f.DeleteCluster(); err != nil {
			errs = append(errs, NewCleanupError("cluster", err))
		}
	} else {
		f.logger.Warn("cluster not found, skipping in-cluster cleanup", "cluster", cluster)
	}

	if err := f.store.Delete(cluster); err != nil {
		errs = append(errs, NewCleanupError("session file", err))
	}
	if err := f.store.Release(); err != nil {
		errs = append(errs, NewCleanupError("session lock", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	f.logger.Info("cleanup completed", "cluster", cluster)
	return nil
}

// stopRecordedForwards terminates forward processes recorded by a previous
// run. A PID that is no longer alive is skipped silently.
func (f *Framework) stopRecordedForwards(sess *session.Session) {
	if sess == nil {
		return
	}
	for _, job := range sess.Forwards {
		h := portforward.Reattach(job)
		if !h.Alive() {
			continue
		}
		f.logger.Info("stopping recorded port-forward", "pid", job.PID, "target", job.Target)
		if err := h.Stop(); err != nil {
			f.logger.Warn("failed to stop port-forward", "pid", job.PID, "error", err)
		}
	}
}

// cleanupReleases merges releases tracked in this process with those implied
// by the session record, so a fresh process can still tear down an
// environment another run created.
func (f *Framework) cleanupReleases(sess *session.Session) []HelmRelease {
	releases := f.GetTrackedReleases()
	seen := make(map[HelmRelease]bool, len(releases))
	for _, r := range releases {
		seen[r] = true
	}

	add := func(r HelmRelease) {
		if !seen[r] {
			seen[r] = true
			releases = append(releases, r)
		}
	}

	if sess != nil {
		add(HelmRelease{Name: demoRelease, Namespace: sess.DemoNamespace})
		if backends, err := LookupBackends(sess.Backends); err == nil {
			for _, b := range backends {
				for _, r := range b.Releases {
					add(r)
				}
			}
		}
	}
	return releases
}

// cleanupNamespaces merges namespaces tracked in this process with those
// implied by the session record.
func (f *Framework) cleanupNamespaces(sess *session.Session) []string {
	namespaces := f.GetTrackedNamespaces()
	seen := make(map[string]bool, len(namespaces))
	for _, ns := range namespaces {
		seen[ns] = true
	}

	add := func(ns string) {
		if ns != "" && !seen[ns] {
			seen[ns] = true
			namespaces = append(namespaces, ns)
		}
	}

	if sess != nil {
		add(sess.DemoNamespace)
		if backends, err := LookupBackends(sess.Backends); err == nil {
			for _, b := range backends {
				add(b.Namespace)
			}
		}
	}

	sort.Strings(namespaces)
	return namespaces
}
