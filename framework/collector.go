package framework

import (
	"fmt"
	"sort"

	"sigs.k8s.io/yaml"
)

// BackendExporters is a backend's contribution to the demo collector's
// pipeline configuration: the exporter definitions plus the pipelines each
// exporter joins.
type BackendExporters struct {
	Exporters map[string]any
	Traces    []string
	Metrics   []string
	Logs      []string
}

// CollectorConfig merges the contributions of the enabled backends into the
// collector configuration override for the demo chart. The result is a plain
// string-keyed tree substituted into the chart values; it is not validated
// against the collector's own schema.
//
// Pipelines no backend consumes fall back to the debug exporter so the
// collector config stays valid.
func CollectorConfig(contribs []BackendExporters) map[string]any {
	exporters := map[string]any{
		"debug": map[string]any{},
	}
	var traces, metrics, logs []string

	for _, c := range contribs {
		for name, cfg := range c.Exporters {
			exporters[name] = cfg
		}
		traces = append(traces, c.Traces...)
		metrics = append(metrics, c.Metrics...)
		logs = append(logs, c.Logs...)
	}

	return map[string]any{
		"exporters": exporters,
		"service": map[string]any{
			"pipelines": map[string]any{
				"traces":  pipeline(traces),
				"metrics": pipeline(metrics),
				"logs":    pipeline(logs),
			},
		},
	}
}

// RenderCollectorConfig serializes the collector configuration to YAML. Log
// collection dumps it alongside the pod logs.
func RenderCollectorConfig(cfg map[string]any) (string, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to render collector config: %w", err)
	}
	return string(data), nil
}

func pipeline(exporters []string) map[string]any {
	if len(exporters) == 0 {
		exporters = []string{"debug"}
	}
	sort.Strings(exporters)
	return map[string]any{
		"exporters": exporters,
	}
}

// serviceHost is the in-cluster DNS name of a service; the namespace is the
// only substituted variable.
func serviceHost(service, namespace string) string {
	return fmt.Sprintf("%s.%s.svc.cluster.local", service, namespace)
}
