package framework

import (
	"context"

	"github.com/obslab/otel-demo-k3d/framework/helm"
	"github.com/obslab/otel-demo-k3d/framework/wait"
)

const (
	monitoringNamespace = "monitoring"
	monitoringRelease   = "kps"
	grafanaLocalPort    = 3000
	grafanaServicePort  = 80
)

func prometheusBackend() *Backend {
	return &Backend{
		Name:      "prometheus",
		Namespace: monitoringNamespace,
		Releases: []HelmRelease{
			{Name: monitoringRelease, Namespace: monitoringNamespace},
		},
		Forwards: []ForwardSpec{
			{Target: "svc/kps-grafana", LocalPort: grafanaLocalPort, RemotePort: grafanaServicePort},
		},
		Exporters: BackendExporters{
			Exporters: map[string]any{
				// Prometheus scrapes this endpoint from the collector pod.
				"prometheus": map[string]any{
					"endpoint": "0.0.0.0:8889",
				},
			},
			Metrics: []string{"prometheus"},
		},
		deploy: (*Framework).SetupMonitoring,
	}
}

// SetupMonitoring installs kube-prometheus-stack and waits for the operator
// CRDs to be established and Grafana to come up. Alertmanager is disabled;
// the demo has nothing to page about.
func (f *Framework) SetupMonitoring(ctx context.Context) error {
	hc := helm.New(f.runner, f.logger)

	err := hc.EnsureRepo(ctx, helm.Repo{
		Name: "prometheus-community",
		URL:  "https://prometheus-community.github.io/helm-charts",
	})
	if err != nil {
		return err
	}

	err = hc.Install(ctx, helm.InstallOpts{
		Release:   monitoringRelease,
		Chart:     "prometheus-community/kube-prometheus-stack",
		Namespace: monitoringNamespace,
		Values: map[string]any{
			"alertmanager": map[string]any{
				"enabled": false,
			},
			"grafana": map[string]any{
				"adminPassword": "demo",
			},
		},
	})
	if err != nil {
		return err
	}

	if err := f.connect(); err != nil {
		return err
	}
	f.TrackNamespace(monitoringNamespace)

	err = wait.ForCRDEstablished(ctx, f.apiext, "servicemonitors.monitoring.coreos.com", f.config.PollInterval, f.config.DeployTimeout)
	if err != nil {
		return err
	}

	for _, name := range []string{"kps-grafana", "kps-kube-prometheus-stack-operator"} {
		err := wait.ForDeploymentReady(ctx, f, monitoringNamespace, name, f.config.PollInterval, f.config.DeployTimeout)
		if err != nil {
			return err
		}
	}
	return nil
}
