package framework

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/obslab/otel-demo-k3d/framework/wait"
)

// EnsureNamespace creates the namespace with the managed labels if it doesn't
// exist, and tracks it for cleanup.
func (f *Framework) EnsureNamespace(ctx context.Context, name string) error {
	if err := f.connect(); err != nil {
		return err
	}

	ns := &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{
			Name:   name,
			Labels: f.GetManagedLabels(),
		},
	}

	_, err := f.client.CoreV1().Namespaces().Create(ctx, ns, metav1.CreateOptions{})
	if err != nil {
		if !apierrors.IsAlreadyExists(err) {
			return NewResourceError("namespace", "", name, fmt.Errorf("failed to create: %w", err))
		}
		f.logger.Debug("namespace already exists", "namespace", name)
	}

	f.TrackNamespace(name)
	return nil
}

// DeleteNamespace deletes the namespace and waits for it to be gone. A
// namespace that doesn't exist is not an error.
func (f *Framework) DeleteNamespace(ctx context.Context, name string) error {
	if err := f.connect(); err != nil {
		return err
	}

	err := f.client.CoreV1().Namespaces().Delete(ctx, name, metav1.DeleteOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			f.logger.Debug("namespace already gone", "namespace", name)
			return nil
		}
		return NewResourceError("namespace", "", name, fmt.Errorf("failed to delete: %w", err))
	}

	return wait.ForNamespaceDeleted(ctx, f, name, f.config.NamespacePollInterval, f.config.NamespaceTimeout)
}
