package framework

import (
	"context"
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"

	"github.com/obslab/otel-demo-k3d/framework/wait"
)

const (
	zipkinNamespace = "zipkin"
	zipkinImage     = "openzipkin/zipkin:3"
	zipkinPort      = 9411
)

func zipkinBackend() *Backend {
	return &Backend{
		Name:      "zipkin",
		Namespace: zipkinNamespace,
		Forwards: []ForwardSpec{
			{Target: "svc/zipkin", LocalPort: zipkinPort, RemotePort: zipkinPort},
		},
		Exporters: BackendExporters{
			Exporters: map[string]any{
				"zipkin": map[string]any{
					"endpoint": fmt.Sprintf("http://%s:%d/api/v2/spans", serviceHost("zipkin", zipkinNamespace), zipkinPort),
				},
			},
			Traces: []string{"zipkin"},
		},
		deploy: (*Framework).SetupZipkin,
	}
}

// SetupZipkin deploys a single in-memory Zipkin instance and waits for it to
// be ready.
func (f *Framework) SetupZipkin(ctx context.Context) error {
	if err := f.EnsureNamespace(ctx, zipkinNamespace); err != nil {
		return err
	}

	selector := map[string]string{
		"app.kubernetes.io/name": "zipkin",
	}

	deployment := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "zipkin",
			Namespace: zipkinNamespace,
			Labels:    f.GetManagedLabels(),
		},
		Spec: appsv1.DeploymentSpec{
			Selector: &metav1.LabelSelector{
				MatchLabels: selector,
			},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: selector,
				},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{
						{
							Name:  "zipkin",
							Image: zipkinImage,
							Env: []corev1.EnvVar{
								{
									Name:  "STORAGE_TYPE",
									Value: "mem",
								},
							},
							Ports: []corev1.ContainerPort{
								{Name: "http", ContainerPort: zipkinPort},
							},
						},
					},
				},
			},
		},
	}

	_, err := f.client.AppsV1().Deployments(zipkinNamespace).Create(ctx, deployment, metav1.CreateOptions{})
	if err != nil && !apierrors.IsAlreadyExists(err) {
		return NewResourceError("deployment", zipkinNamespace, "zipkin", fmt.Errorf("failed to create: %w", err))
	}

	service := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "zipkin",
			Namespace: zipkinNamespace,
			Labels:    f.GetManagedLabels(),
		},
		Spec: corev1.ServiceSpec{
			Selector: selector,
			Ports: []corev1.ServicePort{
				{
					Name:       "http",
					Port:       zipkinPort,
					Protocol:   corev1.ProtocolTCP,
					TargetPort: intstr.FromInt32(zipkinPort),
				},
			},
			Type: corev1.ServiceTypeClusterIP,
		},
	}

	_, err = f.client.CoreV1().Services(zipkinNamespace).Create(ctx, service, metav1.CreateOptions{})
	if err != nil && !apierrors.IsAlreadyExists(err) {
		return NewResourceError("service", zipkinNamespace, "zipkin", fmt.Errorf("failed to create: %w", err))
	}

	return wait.ForDeploymentReady(ctx, f, zipkinNamespace, "zipkin", f.config.PollInterval, f.config.DeployTimeout)
}
