package framework

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/obslab/otel-demo-k3d/framework/config"
)

// fakeRunner scripts external CLI calls. A call matches the longest
// configured prefix of its full command line, with errors winning ties;
// unmatched calls succeed with empty output.
type fakeRunner struct {
	mu      sync.Mutex
	calls   []string
	outputs map[string]string
	errs    map[string]error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		outputs: make(map[string]string),
		errs:    make(map[string]error),
	}
}

func (r *fakeRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	call := strings.Join(append([]string{name}, args...), " ")
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()

	err, errLen := longestPrefix(r.errs, call)
	out, outLen := longestPrefix(r.outputs, call)
	if errLen >= 0 && errLen >= outLen {
		return "", err
	}
	if outLen >= 0 {
		return out, nil
	}
	return "", nil
}

// longestPrefix returns the value whose key is the longest prefix of call,
// with the key length, or -1 when nothing matches.
func longestPrefix[V any](m map[string]V, call string) (V, int) {
	var best V
	bestLen := -1
	for prefix, v := range m {
		if strings.HasPrefix(call, prefix) && len(prefix) > bestLen {
			best, bestLen = v, len(prefix)
		}
	}
	return best, bestLen
}

func (r *fakeRunner) called(prefix string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, call := range r.calls {
		if strings.HasPrefix(call, prefix) {
			return true
		}
	}
	return false
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestFramework(t *testing.T, runner *fakeRunner, objs ...runtime.Object) *Framework {
	t.Helper()

	cfg := testConfig(t)
	opts := []Option{
		WithConfig(cfg),
		WithLogger(testLogger()),
		WithClient(fake.NewClientset(objs...)),
	}
	if runner != nil {
		opts = append(opts, WithRunner(runner))
	}

	f, err := New(context.Background(), opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return f
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.ClusterName = "demo-test"
	cfg.SessionDir = t.TempDir()
	cfg.DeployTimeout = 2 * time.Second
	cfg.PollInterval = 20 * time.Millisecond
	cfg.NamespaceTimeout = 2 * time.Second
	cfg.NamespacePollInterval = 20 * time.Millisecond
	return cfg
}

func readyDeployment(namespace, name string) *appsv1.Deployment {
	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Namespace: namespace,
			Name:      name,
		},
		Status: appsv1.DeploymentStatus{
			Replicas:      1,
			ReadyReplicas: 1,
		},
	}
}

func readyPod(namespace, name string) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Namespace: namespace,
			Name:      name,
		},
		Status: corev1.PodStatus{
			Phase: corev1.PodRunning,
			Conditions: []corev1.PodCondition{
				{Type: corev1.PodReady, Status: corev1.ConditionTrue},
			},
		},
	}
}

func TestFakeRunnerMatchesLongestPrefix(t *testing.T) {
	r := newFakeRunner()
	r.outputs["k3d cluster"] = "short"
	r.outputs["k3d cluster list"] = "long"
	r.errs["helm upgrade --install broken"] = context.DeadlineExceeded

	out, err := r.Run(context.Background(), "k3d", "cluster", "list", "--no-headers")
	if err != nil || out != "long" {
		t.Errorf("Run = (%q, %v), want the longest prefix output", out, err)
	}

	out, err = r.Run(context.Background(), "k3d", "cluster", "create", "demo")
	if err != nil || out != "short" {
		t.Errorf("Run = (%q, %v), want the shorter prefix output", out, err)
	}

	if _, err := r.Run(context.Background(), "helm", "upgrade", "--install", "broken", "chart"); err == nil {
		t.Error("configured error not returned")
	}
}

func TestTrackNamespaceDeduplicates(t *testing.T) {
	f := newTestFramework(t, newFakeRunner())

	f.TrackNamespace("jaeger")
	f.TrackNamespace("jaeger")
	f.TrackNamespace("zipkin")

	got := f.GetTrackedNamespaces()
	if len(got) != 2 {
		t.Fatalf("got %d tracked namespaces, want 2: %v", len(got), got)
	}
}

func TestTrackReleaseDeduplicates(t *testing.T) {
	f := newTestFramework(t, newFakeRunner())

	f.TrackRelease("otel-demo", "otel-demo")
	f.TrackRelease("otel-demo", "otel-demo")
	f.TrackRelease("kps", "monitoring")

	got := f.GetTrackedReleases()
	if len(got) != 2 {
		t.Fatalf("got %d tracked releases, want 2: %v", len(got), got)
	}
}

func TestGetManagedLabels(t *testing.T) {
	f := newTestFramework(t, newFakeRunner())

	labels := f.GetManagedLabels()
	if labels[LabelManagedBy] != LabelManagedByValue {
		t.Errorf("label %s = %q, want %q", LabelManagedBy, labels[LabelManagedBy], LabelManagedByValue)
	}
	if labels[LabelInstance] != "demo-test" {
		t.Errorf("label %s = %q, want demo-test", LabelInstance, labels[LabelInstance])
	}
}
