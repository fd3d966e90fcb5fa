package wait

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/fake"
)

type fakeClients struct {
	client kubernetes.Interface
}

func (f *fakeClients) Client() kubernetes.Interface { return f.client }
func (f *fakeClients) Logger() *slog.Logger         { return slog.Default() }

func readyDeployment(namespace, name string, replicas int32) *appsv1.Deployment {
	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Namespace: namespace, Name: name},
		Status: appsv1.DeploymentStatus{
			Replicas:      replicas,
			ReadyReplicas: replicas,
		},
	}
}

func readyPod(namespace, name string, lbls map[string]string) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Namespace: namespace, Name: name, Labels: lbls},
		Status: corev1.PodStatus{
			Phase: corev1.PodRunning,
			Conditions: []corev1.PodCondition{
				{Type: corev1.PodReady, Status: corev1.ConditionTrue},
			},
		},
	}
}

func TestForDeploymentReady_AlreadyReady(t *testing.T) {
	c := &fakeClients{client: fake.NewClientset(readyDeployment("demo", "frontend", 1))}

	err := ForDeploymentReady(context.Background(), c, "demo", "frontend", 10*time.Millisecond, time.Second)
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestForDeploymentReady_BecomesReady(t *testing.T) {
	client := fake.NewClientset(&appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Namespace: "demo", Name: "frontend"},
		Status:     appsv1.DeploymentStatus{Replicas: 1, ReadyReplicas: 0},
	})
	c := &fakeClients{client: client}

	go func() {
		time.Sleep(50 * time.Millisecond)
		_, _ = client.AppsV1().Deployments("demo").UpdateStatus(
			context.Background(), readyDeployment("demo", "frontend", 1), metav1.UpdateOptions{})
	}()

	start := time.Now()
	err := ForDeploymentReady(context.Background(), c, "demo", "frontend", 10*time.Millisecond, 5*time.Second)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	// Returns shortly after the status flips, not at the timeout
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("waited too long for readiness: %v", elapsed)
	}
}

func TestForDeploymentReady_Timeout(t *testing.T) {
	c := &fakeClients{client: fake.NewClientset()}

	timeout := 100 * time.Millisecond
	interval := 20 * time.Millisecond

	start := time.Now()
	err := ForDeploymentReady(context.Background(), c, "demo", "missing", interval, timeout)
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected TimeoutError, got %T: %v", err, err)
	}
	if te.Timeout != timeout {
		t.Errorf("expected timeout %v in error, got %v", timeout, te.Timeout)
	}
	// Bounded: timeout plus at most one poll interval (with scheduling slack)
	if elapsed > timeout+interval+500*time.Millisecond {
		t.Errorf("wait blocked past timeout+interval: %v", elapsed)
	}
}

func TestForDeploymentReady_ContextCancel(t *testing.T) {
	c := &fakeClients{client: fake.NewClientset()}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	err := ForDeploymentReady(ctx, c, "demo", "missing", 10*time.Millisecond, 10*time.Second)
	if err == nil {
		t.Fatal("expected error after cancellation, got nil")
	}
	if IsTimeout(err) {
		t.Errorf("cancellation should not report a readiness timeout: %v", err)
	}
}

func TestForStatefulSetReady(t *testing.T) {
	sts := &appsv1.StatefulSet{
		ObjectMeta: metav1.ObjectMeta{Namespace: "signoz", Name: "clickhouse"},
		Status:     appsv1.StatefulSetStatus{ReadyReplicas: 1},
	}
	c := &fakeClients{client: fake.NewClientset(sts)}

	err := ForStatefulSetReady(context.Background(), c, "signoz", "clickhouse", 10*time.Millisecond, time.Second)
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestForStatefulSetReady_PartialReplicas(t *testing.T) {
	replicas := int32(3)
	sts := &appsv1.StatefulSet{
		ObjectMeta: metav1.ObjectMeta{Namespace: "signoz", Name: "clickhouse"},
		Spec:       appsv1.StatefulSetSpec{Replicas: &replicas},
		Status:     appsv1.StatefulSetStatus{ReadyReplicas: 1},
	}
	c := &fakeClients{client: fake.NewClientset(sts)}

	err := ForStatefulSetReady(context.Background(), c, "signoz", "clickhouse", 10*time.Millisecond, 100*time.Millisecond)
	if !IsTimeout(err) {
		t.Errorf("expected timeout error, got %v", err)
	}
}

func TestForPodsReady(t *testing.T) {
	lbls := map[string]string{"app.kubernetes.io/name": "jaeger"}
	c := &fakeClients{client: fake.NewClientset(readyPod("tracing", "jaeger-0", lbls))}

	selector := labels.SelectorFromSet(lbls)
	err := ForPodsReady(context.Background(), c, "tracing", selector, 10*time.Millisecond, time.Second, 1)
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestForPodsReady_NotEnoughReady(t *testing.T) {
	lbls := map[string]string{"app.kubernetes.io/name": "jaeger"}
	pod := readyPod("tracing", "jaeger-0", lbls)
	pod.Status.Conditions[0].Status = corev1.ConditionFalse
	c := &fakeClients{client: fake.NewClientset(pod)}

	selector := labels.SelectorFromSet(lbls)
	err := ForPodsReady(context.Background(), c, "tracing", selector, 10*time.Millisecond, 100*time.Millisecond, 1)
	if !IsTimeout(err) {
		t.Errorf("expected timeout error, got %v", err)
	}
}

func TestForNamespaceDeleted(t *testing.T) {
	client := fake.NewClientset(&corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: "tracing"}})
	c := &fakeClients{client: client}

	go func() {
		time.Sleep(40 * time.Millisecond)
		_ = client.CoreV1().Namespaces().Delete(context.Background(), "tracing", metav1.DeleteOptions{})
	}()

	err := ForNamespaceDeleted(context.Background(), c, "tracing", 10*time.Millisecond, 2*time.Second)
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestIsPodReady(t *testing.T) {
	pod := readyPod("demo", "p", nil)
	if !IsPodReady(pod) {
		t.Error("expected running pod with Ready=True to be ready")
	}

	pod.Status.Phase = corev1.PodPending
	if IsPodReady(pod) {
		t.Error("pending pod should not be ready")
	}

	pod.Status.Phase = corev1.PodRunning
	pod.Status.Conditions[0].Status = corev1.ConditionFalse
	if IsPodReady(pod) {
		t.Error("pod with Ready=False should not be ready")
	}
}

func TestTimeoutError_Message(t *testing.T) {
	te := &TimeoutError{Target: "deployment demo/frontend", Timeout: 2 * time.Minute}
	expected := "timeout after 2m0s waiting for deployment demo/frontend"
	if te.Error() != expected {
		t.Errorf("expected %q, got %q", expected, te.Error())
	}
}
