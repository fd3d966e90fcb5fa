package framework

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/yaml"
)

// LogCollectionConfig configures log collection behavior
type LogCollectionConfig struct {
	// OutputDir is the directory to write logs to
	OutputDir string
	// IncludePrevious includes logs from previous container instances
	IncludePrevious bool
	// TailLines limits the number of lines to return (0 = all)
	TailLines int64
}

// PodSummary is the per-pod status digest written alongside the logs.
type PodSummary struct {
	Name     string `json:"name"`
	Phase    string `json:"phase"`
	Ready    bool   `json:"ready"`
	Restarts int32  `json:"restarts"`
	Node     string `json:"node,omitempty"`
}

// LogCollectionResult holds the outcome of one collection run.
type LogCollectionResult struct {
	OutputDir  string
	Timestamp  time.Time
	Namespaces []string
	Files      int
}

// CollectLogs dumps container logs and a pod status summary for every
// namespace this tool manages, for post-mortem inspection after a failed
// run. Pods that refuse to yield logs are noted and skipped.
func (f *Framework) CollectLogs(cfg *LogCollectionConfig) (*LogCollectionResult, error) {
	if cfg == nil {
		cfg = &LogCollectionConfig{}
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "logs"
	}

	if err := f.connect(); err != nil {
		return nil, err
	}

	sess, err := f.store.Load(f.config.ClusterName)
	if err != nil {
		sess = nil
	}
	namespaces := f.cleanupNamespaces(sess)
	if len(namespaces) == 0 {
		namespaces = []string{f.config.DemoNamespace}
	}

	result := &LogCollectionResult{
		OutputDir:  cfg.OutputDir,
		Timestamp:  time.Now(),
		Namespaces: namespaces,
	}

	for _, ns := range namespaces {
		n, err := f.collectNamespaceLogs(ns, cfg)
		if err != nil {
			f.logger.Warn("failed to collect namespace logs", "namespace", ns, "error", err)
			continue
		}
		result.Files += n
	}

	if sess != nil {
		if err := f.writeCollectorConfig(cfg.OutputDir, sess.Backends); err != nil {
			f.logger.Warn("failed to write collector config", "error", err)
		} else {
			result.Files++
		}
	}

	f.logger.Info("logs collected",
		"output_dir", cfg.OutputDir,
		"namespaces", len(namespaces),
		"files", result.Files)
	return result, nil
}

// writeCollectorConfig reconstructs the collector configuration the demo was
// installed with from the recorded backend selection and dumps it next to the
// logs, so a post-mortem can see where telemetry was routed.
func (f *Framework) writeCollectorConfig(outputDir string, backendNames []string) error {
	backends, err := LookupBackends(backendNames)
	if err != nil {
		return err
	}
	rendered, err := RenderCollectorConfig(CollectorConfig(backendContributions(backends)))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return os.WriteFile(filepath.Join(outputDir, "collector-config.yaml"), []byte(rendered), 0o644)
}

func (f *Framework) collectNamespaceLogs(namespace string, cfg *LogCollectionConfig) (int, error) {
	dir := filepath.Join(cfg.OutputDir, namespace)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create log directory: %w", err)
	}

	pods, err := f.client.CoreV1().Pods(namespace).List(f.ctx, metav1.ListOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to list pods: %w", err)
	}

	files := 0
	summaries := make([]PodSummary, 0, len(pods.Items))
	for _, pod := range pods.Items {
		summaries = append(summaries, summarizePod(&pod))

		for _, container := range pod.Spec.Containers {
			data, err := f.podLogs(namespace, pod.Name, container.Name, cfg)
			if err != nil {
				f.logger.Warn("failed to get container logs",
					"pod", pod.Name, "container", container.Name, "error", err)
				continue
			}
			name := fmt.Sprintf("%s_%s.log", pod.Name, container.Name)
			if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
				return files, fmt.Errorf("failed to write log file: %w", err)
			}
			files++
		}
	}

	summary, err := yaml.Marshal(summaries)
	if err != nil {
		return files, fmt.Errorf("failed to marshal pod summary: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "pods.yaml"), summary, 0o644); err != nil {
		return files, fmt.Errorf("failed to write pod summary: %w", err)
	}
	files++

	return files, nil
}

func (f *Framework) podLogs(namespace, pod, container string, cfg *LogCollectionConfig) ([]byte, error) {
	opts := &corev1.PodLogOptions{
		Container: container,
		Previous:  cfg.IncludePrevious,
	}
	if cfg.TailLines > 0 {
		opts.TailLines = &cfg.TailLines
	}
	return f.client.CoreV1().Pods(namespace).GetLogs(pod, opts).Do(f.ctx).Raw()
}

func summarizePod(pod *corev1.Pod) PodSummary {
	s := PodSummary{
		Name:  pod.Name,
		Phase: string(pod.Status.Phase),
		Node:  pod.Spec.NodeName,
	}
	for _, cond := range pod.Status.Conditions {
		if cond.Type == corev1.PodReady && cond.Status == corev1.ConditionTrue {
			s.Ready = true
		}
	}
	for _, cs := range pod.Status.ContainerStatuses {
		s.Restarts += cs.RestartCount
	}
	return s
}
