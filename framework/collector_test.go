package framework

import (
	"reflect"
	"strings"
	"testing"
)

func pipelineExporters(t *testing.T, cfg map[string]any, signal string) []string {
	t.Helper()
	service, ok := cfg["service"].(map[string]any)
	if !ok {
		t.Fatal("config has no service section")
	}
	pipelines, ok := service["pipelines"].(map[string]any)
	if !ok {
		t.Fatal("config has no pipelines section")
	}
	p, ok := pipelines[signal].(map[string]any)
	if !ok {
		t.Fatalf("config has no %s pipeline", signal)
	}
	exporters, ok := p["exporters"].([]string)
	if !ok {
		t.Fatalf("%s pipeline has no exporter list", signal)
	}
	return exporters
}

func TestCollectorConfigSingleBackend(t *testing.T) {
	jaeger := jaegerBackend()
	cfg := CollectorConfig([]BackendExporters{jaeger.Exporters})

	exporters := cfg["exporters"].(map[string]any)
	if _, ok := exporters["otlp/jaeger"]; !ok {
		t.Error("otlp/jaeger exporter missing")
	}
	if _, ok := exporters["debug"]; !ok {
		t.Error("debug exporter missing")
	}

	if got := pipelineExporters(t, cfg, "traces"); !reflect.DeepEqual(got, []string{"otlp/jaeger"}) {
		t.Errorf("traces exporters = %v", got)
	}
	// nothing consumes metrics or logs, so they fall back to debug
	if got := pipelineExporters(t, cfg, "metrics"); !reflect.DeepEqual(got, []string{"debug"}) {
		t.Errorf("metrics exporters = %v", got)
	}
	if got := pipelineExporters(t, cfg, "logs"); !reflect.DeepEqual(got, []string{"debug"}) {
		t.Errorf("logs exporters = %v", got)
	}
}

func TestCollectorConfigMergesBackends(t *testing.T) {
	cfg := CollectorConfig(backendContributions([]*Backend{
		jaegerBackend(),
		prometheusBackend(),
	}))

	exporters := cfg["exporters"].(map[string]any)
	for _, name := range []string{"otlp/jaeger", "prometheus", "debug"} {
		if _, ok := exporters[name]; !ok {
			t.Errorf("exporter %s missing", name)
		}
	}

	if got := pipelineExporters(t, cfg, "traces"); !reflect.DeepEqual(got, []string{"otlp/jaeger"}) {
		t.Errorf("traces exporters = %v", got)
	}
	if got := pipelineExporters(t, cfg, "metrics"); !reflect.DeepEqual(got, []string{"prometheus"}) {
		t.Errorf("metrics exporters = %v", got)
	}
}

func TestCollectorConfigSigNozCoversAllSignals(t *testing.T) {
	cfg := CollectorConfig([]BackendExporters{signozBackend().Exporters})

	for _, signal := range []string{"traces", "metrics", "logs"} {
		if got := pipelineExporters(t, cfg, signal); !reflect.DeepEqual(got, []string{"otlp/signoz"}) {
			t.Errorf("%s exporters = %v", signal, got)
		}
	}
}

func TestRenderCollectorConfig(t *testing.T) {
	cfg := CollectorConfig([]BackendExporters{zipkinBackend().Exporters})

	out, err := RenderCollectorConfig(cfg)
	if err != nil {
		t.Fatalf("RenderCollectorConfig failed: %v", err)
	}
	if !strings.Contains(out, "zipkin.zipkin.svc.cluster.local") {
		t.Errorf("rendered config missing zipkin endpoint:\n%s", out)
	}
}

func TestServiceHost(t *testing.T) {
	got := serviceHost("jaeger", "jaeger")
	if got != "jaeger.jaeger.svc.cluster.local" {
		t.Errorf("serviceHost = %q", got)
	}
}
