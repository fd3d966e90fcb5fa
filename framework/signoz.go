package framework

import (
	"context"
	"fmt"

	"github.com/obslab/otel-demo-k3d/framework/helm"
	"github.com/obslab/otel-demo-k3d/framework/wait"
)

const (
	signozNamespace = "signoz"
	signozRelease   = "signoz"
	signozUIPort    = 3301
	signozOTLPPort  = 4317
)

func signozBackend() *Backend {
	return &Backend{
		Name:      "signoz",
		Namespace: signozNamespace,
		Releases: []HelmRelease{
			{Name: signozRelease, Namespace: signozNamespace},
		},
		Forwards: []ForwardSpec{
			{Target: "svc/signoz-frontend", LocalPort: signozUIPort, RemotePort: signozUIPort},
		},
		Exporters: BackendExporters{
			Exporters: map[string]any{
				"otlp/signoz": map[string]any{
					"endpoint": fmt.Sprintf("%s:%d", serviceHost("signoz-otel-collector", signozNamespace), signozOTLPPort),
					"tls": map[string]any{
						"insecure": true,
					},
				},
			},
			Traces:  []string{"otlp/signoz"},
			Metrics: []string{"otlp/signoz"},
			Logs:    []string{"otlp/signoz"},
		},
		deploy: (*Framework).SetupSigNoz,
	}
}

// SetupSigNoz installs the SigNoz chart and waits for ClickHouse, the
// frontend and its collector to come up. ClickHouse runs with a single
// replica to keep the demo footprint small.
func (f *Framework) SetupSigNoz(ctx context.Context) error {
	hc := helm.New(f.runner, f.logger)

	err := hc.EnsureRepo(ctx, helm.Repo{
		Name: "signoz",
		URL:  "https://charts.signoz.io",
	})
	if err != nil {
		return err
	}

	err = hc.Install(ctx, helm.InstallOpts{
		Release:   signozRelease,
		Chart:     "signoz/signoz",
		Namespace: signozNamespace,
		Values: map[string]any{
			"clickhouse": map[string]any{
				"replicaCount": 1,
			},
			"frontend": map[string]any{
				"replicaCount": 1,
			},
		},
	})
	if err != nil {
		return err
	}

	if err := f.connect(); err != nil {
		return err
	}
	f.TrackNamespace(signozNamespace)

	err = wait.ForStatefulSetReady(ctx, f, signozNamespace, "signoz-clickhouse", f.config.PollInterval, f.config.DeployTimeout)
	if err != nil {
		return err
	}

	for _, name := range []string{"signoz-frontend", "signoz-otel-collector"} {
		err := wait.ForDeploymentReady(ctx, f, signozNamespace, name, f.config.PollInterval, f.config.DeployTimeout)
		if err != nil {
			return err
		}
	}
	return nil
}
