// Package wait implements fixed-interval readiness polling against the
// Kubernetes API. There is no backoff and no jitter: the queries are cheap
// and idempotent, and the deployments being watched take minutes to settle,
// so a constant poll interval is sufficient.
package wait

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	apiextensionsclient "k8s.io/apiextensions-apiserver/pkg/client/clientset/clientset"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	utilwait "k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/kubernetes"
)

// TimeoutError reports that a readiness target did not become ready in time.
// The external resources already created are left in place for inspection;
// callers treat this as fatal.
type TimeoutError struct {
	Target  string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout after %v waiting for %s", e.Timeout, e.Target)
}

// IsTimeout returns true if the error chain contains a readiness timeout
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// Clients provides access to the Kubernetes client needed for wait operations
type Clients interface {
	Client() kubernetes.Interface
	Logger() *slog.Logger
}

// poll runs condition at a fixed interval until it reports done, the timeout
// elapses, or the context is cancelled. The target name is used in the
// timeout error only.
func poll(ctx context.Context, target string, interval, timeout time.Duration, condition func(context.Context) (bool, error)) error {
	err := utilwait.PollUntilContextTimeout(ctx, interval, timeout, true, condition)
	if err == nil {
		return nil
	}
	if utilwait.Interrupted(err) && ctx.Err() == nil {
		return &TimeoutError{Target: target, Timeout: timeout}
	}
	return fmt.Errorf("waiting for %s: %w", target, err)
}

// ForDeploymentReady waits for a deployment to have all replicas ready.
// A deployment that does not exist yet keeps being polled; any other API
// error keeps being polled too, since the resource may still be settling.
func ForDeploymentReady(ctx context.Context, c Clients, namespace, name string, interval, timeout time.Duration) error {
	target := fmt.Sprintf("deployment %s/%s", namespace, name)
	return poll(ctx, target, interval, timeout, func(pollCtx context.Context) (bool, error) {
		deployment, err := c.Client().AppsV1().Deployments(namespace).Get(pollCtx, name, metav1.GetOptions{})
		if err != nil {
			if !apierrors.IsNotFound(err) {
				c.Logger().Debug("deployment poll failed", "deployment", name, "error", err)
			}
			return false, nil
		}
		return isDeploymentReady(deployment), nil
	})
}

// ForStatefulSetReady waits for a statefulset to have all replicas ready
func ForStatefulSetReady(ctx context.Context, c Clients, namespace, name string, interval, timeout time.Duration) error {
	target := fmt.Sprintf("statefulset %s/%s", namespace, name)
	return poll(ctx, target, interval, timeout, func(pollCtx context.Context) (bool, error) {
		sts, err := c.Client().AppsV1().StatefulSets(namespace).Get(pollCtx, name, metav1.GetOptions{})
		if err != nil {
			return false, nil
		}
		desired := int32(1)
		if sts.Spec.Replicas != nil {
			desired = *sts.Spec.Replicas
		}
		return desired > 0 && sts.Status.ReadyReplicas == desired, nil
	})
}

// ForPodsReady waits until at least minReady pods matching the selector are ready.
// A failure to list pods is fatal: the namespace is expected to exist by the
// time this is called.
func ForPodsReady(ctx context.Context, c Clients, namespace string, selector labels.Selector, interval, timeout time.Duration, minReady int) error {
	target := fmt.Sprintf("pods %s in %s", selector.String(), namespace)
	return poll(ctx, target, interval, timeout, func(pollCtx context.Context) (bool, error) {
		pods, err := c.Client().CoreV1().Pods(namespace).List(pollCtx, metav1.ListOptions{
			LabelSelector: selector.String(),
		})
		if err != nil {
			return false, fmt.Errorf("failed to list pods: %w", err)
		}

		readyCount := 0
		for _, pod := range pods.Items {
			if IsPodReady(&pod) {
				readyCount++
			}
		}

		return readyCount >= minReady && len(pods.Items) > 0, nil
	})
}

// ForNamespaceDeleted waits for a namespace to be fully removed
func ForNamespaceDeleted(ctx context.Context, c Clients, namespace string, interval, timeout time.Duration) error {
	target := fmt.Sprintf("namespace %s deletion", namespace)
	return poll(ctx, target, interval, timeout, func(pollCtx context.Context) (bool, error) {
		_, err := c.Client().CoreV1().Namespaces().Get(pollCtx, namespace, metav1.GetOptions{})
		if apierrors.IsNotFound(err) {
			return true, nil
		}
		return false, nil
	})
}

// ForCRDEstablished waits for a CustomResourceDefinition to reach the
// Established condition. Used after chart installs that ship CRDs
// (kube-prometheus-stack) before any dependent step runs.
func ForCRDEstablished(ctx context.Context, client apiextensionsclient.Interface, name string, interval, timeout time.Duration) error {
	target := fmt.Sprintf("CRD %s", name)
	return poll(ctx, target, interval, timeout, func(pollCtx context.Context) (bool, error) {
		crd, err := client.ApiextensionsV1().CustomResourceDefinitions().Get(pollCtx, name, metav1.GetOptions{})
		if err != nil {
			return false, nil
		}
		for _, cond := range crd.Status.Conditions {
			if cond.Type == apiextensionsv1.Established && cond.Status == apiextensionsv1.ConditionTrue {
				return true, nil
			}
		}
		return false, nil
	})
}

// IsPodReady checks if a pod is in Ready state
func IsPodReady(pod *corev1.Pod) bool {
	if pod.Status.Phase != corev1.PodRunning {
		return false
	}

	for _, condition := range pod.Status.Conditions {
		if condition.Type == corev1.PodReady {
			return condition.Status == corev1.ConditionTrue
		}
	}

	return false
}

func isDeploymentReady(deployment *appsv1.Deployment) bool {
	return deployment.Status.ReadyReplicas == deployment.Status.Replicas &&
		deployment.Status.ReadyReplicas > 0
}
