package framework

import (
	"testing"
)

func TestSetupDemoInstallsChart(t *testing.T) {
	runner := newFakeRunner()
	f := newTestFramework(t, runner,
		readyDeployment("otel-demo", "frontend-proxy"),
		readyDeployment("otel-demo", "otel-collector"),
	)

	backends, err := LookupBackends([]string{"jaeger"})
	if err != nil {
		t.Fatalf("LookupBackends failed: %v", err)
	}

	if err := f.SetupDemo(backends); err != nil {
		t.Fatalf("SetupDemo failed: %v", err)
	}

	if !runner.called("helm repo add open-telemetry") {
		t.Errorf("chart repo never added: %v", runner.calls)
	}
	if !runner.called("helm upgrade --install otel-demo") {
		t.Errorf("demo chart never installed: %v", runner.calls)
	}
}

func TestDemoValuesEnableFrontendIngress(t *testing.T) {
	values := demoValues(CollectorConfig(nil))

	components, ok := values["components"].(map[string]any)
	if !ok {
		t.Fatal("values carry no components section")
	}
	proxy, ok := components["frontend-proxy"].(map[string]any)
	if !ok {
		t.Fatal("values carry no frontend-proxy component")
	}
	ingress, ok := proxy["ingress"].(map[string]any)
	if !ok {
		t.Fatal("frontend-proxy has no ingress section")
	}
	if ingress["enabled"] != true {
		t.Error("frontend-proxy ingress not enabled, the loadbalancer port would serve nothing")
	}
	if ingress["ingressClassName"] != "traefik" {
		t.Errorf("ingressClassName = %v, want traefik", ingress["ingressClassName"])
	}

	hosts, ok := ingress["hosts"].([]any)
	if !ok || len(hosts) != 1 {
		t.Fatalf("ingress hosts = %v, want one catch-all host", ingress["hosts"])
	}
	paths := hosts[0].(map[string]any)["paths"].([]any)
	path := paths[0].(map[string]any)
	if path["path"] != "/" || path["pathType"] != "Prefix" {
		t.Errorf("ingress path = %v, want / Prefix", path)
	}
}

func TestDemoValuesDisableBundledBackends(t *testing.T) {
	values := demoValues(CollectorConfig(nil))

	for _, chart := range []string{"jaeger", "grafana", "prometheus", "opensearch"} {
		sub, ok := values[chart].(map[string]any)
		if !ok || sub["enabled"] != false {
			t.Errorf("bundled %s not disabled: %v", chart, values[chart])
		}
	}

	collector, ok := values["opentelemetry-collector"].(map[string]any)
	if !ok || collector["config"] == nil {
		t.Error("collector config override missing")
	}
}
