package framework

import (
	"github.com/obslab/otel-demo-k3d/framework/helm"
	"github.com/obslab/otel-demo-k3d/framework/wait"
)

const demoRelease = "otel-demo"

// SetupDemo installs the OpenTelemetry Demo chart with the collector wired
// to the selected backends and waits for the ingress path to serve.
//
// The chart's bundled Jaeger, Grafana, Prometheus and OpenSearch are
// disabled; telemetry goes to the backends this tool deploys.
func (f *Framework) SetupDemo(backends []*Backend) error {
	namespace := f.config.DemoNamespace
	if err := f.EnsureNamespace(f.ctx, namespace); err != nil {
		return err
	}
	f.TrackRelease(demoRelease, namespace)

	hc := helm.New(f.runner, f.logger)

	err := hc.EnsureRepo(f.ctx, helm.Repo{
		Name: "open-telemetry",
		URL:  "https://open-telemetry.github.io/opentelemetry-helm-charts",
	})
	if err != nil {
		return err
	}

	collectorConfig := CollectorConfig(backendContributions(backends))

	err = hc.Install(f.ctx, helm.InstallOpts{
		Release:   demoRelease,
		Chart:     "open-telemetry/opentelemetry-demo",
		Namespace: namespace,
		Values:    demoValues(collectorConfig),
	})
	if err != nil {
		return err
	}

	for _, name := range []string{"frontend-proxy", "otel-collector"} {
		err := wait.ForDeploymentReady(f.ctx, f, namespace, name, f.config.PollInterval, f.config.DeployTimeout)
		if err != nil {
			return err
		}
	}
	return nil
}

// demoValues builds the chart values for the demo release. The frontend-proxy
// ingress is enabled with a catch-all path so the k3d loadbalancer port
// mapped to traefik actually reaches the demo UI.
func demoValues(collectorConfig map[string]any) map[string]any {
	return map[string]any{
		"jaeger": map[string]any{
			"enabled": false,
		},
		"grafana": map[string]any{
			"enabled": false,
		},
		"prometheus": map[string]any{
			"enabled": false,
		},
		"opensearch": map[string]any{
			"enabled": false,
		},
		"components": map[string]any{
			"frontend-proxy": map[string]any{
				"ingress": map[string]any{
					"enabled":          true,
					"ingressClassName": "traefik",
					"hosts": []any{
						map[string]any{
							"host": "",
							"paths": []any{
								map[string]any{
									"path":     "/",
									"pathType": "Prefix",
									"port":     8080,
								},
							},
						},
					},
				},
			},
		},
		"opentelemetry-collector": map[string]any{
			"config": collectorConfig,
		},
	}
}
