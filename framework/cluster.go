package framework

import (
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/labels"

	"github.com/obslab/otel-demo-k3d/framework/netutil"
	"github.com/obslab/otel-demo-k3d/framework/wait"
)

// CreateCluster picks a free host port for the ingress mapping, creates the
// k3d cluster with it, connects the Kubernetes clients, and waits for the
// cluster's own system workloads. Returns the chosen ingress port.
func (f *Framework) CreateCluster() (int, error) {
	name := f.config.ClusterName

	exists, err := f.ClusterExists()
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, fmt.Errorf("%w: %s", ErrClusterExists, name)
	}

	port, err := netutil.FindFreePort(f.config.PreferredPort, f.config.PortWindow)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate ingress port: %w", err)
	}

	f.logger.Info("creating k3d cluster", "cluster", name, "ingress_port", port)

	_, err = f.runner.Run(f.ctx, "k3d", "cluster", "create", name,
		"--port", fmt.Sprintf("%d:80@loadbalancer", port),
		"--wait",
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create cluster %s: %w", name, err)
	}

	if err := f.connect(); err != nil {
		return 0, err
	}

	// k3s runs coredns and traefik as deployments in kube-system; the
	// cluster is usable once both serve.
	for _, system := range []string{"coredns", "traefik"} {
		err := wait.ForDeploymentReady(f.ctx, f, "kube-system", system,
			f.config.PollInterval, f.config.DeployTimeout)
		if err != nil {
			return 0, err
		}
	}

	f.logger.Info("cluster ready", "cluster", name, "ingress_port", port)
	return port, nil
}

// ClusterExists reports whether the named k3d cluster is present
func (f *Framework) ClusterExists() (bool, error) {
	out, err := f.runner.Run(f.ctx, "k3d", "cluster", "list", "--no-headers")
	if err != nil {
		return false, fmt.Errorf("failed to list k3d clusters: %w", err)
	}
	return containsCluster(out, f.config.ClusterName), nil
}

// DeleteCluster removes the k3d cluster. A missing cluster is a warning, not
// an error: cleanup must tolerate absent state.
func (f *Framework) DeleteCluster() error {
	name := f.config.ClusterName

	exists, err := f.ClusterExists()
	if err != nil {
		return err
	}
	if !exists {
		f.logger.Warn("cluster not found, skipping delete", "cluster", name)
		return nil
	}

	f.logger.Info("deleting k3d cluster", "cluster", name)
	if _, err := f.runner.Run(f.ctx, "k3d", "cluster", "delete", name); err != nil {
		return fmt.Errorf("failed to delete cluster %s: %w", name, err)
	}
	return nil
}

// containsCluster scans `k3d cluster list --no-headers` output for a cluster
// name in the first column.
func containsCluster(out, name string) bool {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 && fields[0] == name {
			return true
		}
	}
	return false
}

// WaitSystemPodsReady blocks until every pod in kube-system is ready. Up
// runs it after cluster creation so backends never deploy onto a half-booted
// control plane.
func (f *Framework) WaitSystemPodsReady() error {
	return wait.ForPodsReady(f.ctx, f, "kube-system", labels.Everything(),
		f.config.PollInterval, f.config.DeployTimeout, 1)
}
