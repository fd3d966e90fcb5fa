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
	jaegerNamespace = "jaeger"
	jaegerImage     = "jaegertracing/all-in-one:1.57"
	jaegerUIPort    = 16686
	jaegerOTLPPort  = 4317
)

func jaegerBackend() *Backend {
	return &Backend{
		Name:      "jaeger",
		Namespace: jaegerNamespace,
		Forwards: []ForwardSpec{
			{Target: "svc/jaeger", LocalPort: jaegerUIPort, RemotePort: jaegerUIPort},
		},
		Exporters: BackendExporters{
			Exporters: map[string]any{
				"otlp/jaeger": map[string]any{
					"endpoint": fmt.Sprintf("%s:%d", serviceHost("jaeger", jaegerNamespace), jaegerOTLPPort),
					"tls": map[string]any{
						"insecure": true,
					},
				},
			},
			Traces: []string{"otlp/jaeger"},
		},
		deploy: (*Framework).SetupJaeger,
	}
}

// SetupJaeger deploys the Jaeger all-in-one instance with in-memory storage
// and waits for it to be ready.
func (f *Framework) SetupJaeger(ctx context.Context) error {
	if err := f.EnsureNamespace(ctx, jaegerNamespace); err != nil {
		return err
	}

	selector := map[string]string{
		"app.kubernetes.io/name": "jaeger",
	}

	deployment := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "jaeger",
			Namespace: jaegerNamespace,
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
							Name:  "jaeger",
							Image: jaegerImage,
							Env: []corev1.EnvVar{
								{
									Name:  "COLLECTOR_OTLP_ENABLED",
									Value: "true",
								},
							},
							Ports: []corev1.ContainerPort{
								{Name: "ui", ContainerPort: jaegerUIPort},
								{Name: "otlp-grpc", ContainerPort: jaegerOTLPPort},
							},
						},
					},
				},
			},
		},
	}

	_, err := f.client.AppsV1().Deployments(jaegerNamespace).Create(ctx, deployment, metav1.CreateOptions{})
	if err != nil && !apierrors.IsAlreadyExists(err) {
		return NewResourceError("deployment", jaegerNamespace, "jaeger", fmt.Errorf("failed to create: %w", err))
	}

	service := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "jaeger",
			Namespace: jaegerNamespace,
			Labels:    f.GetManagedLabels(),
		},
		Spec: corev1.ServiceSpec{
			Selector: selector,
			Ports: []corev1.ServicePort{
				{
					Name:       "ui",
					Port:       jaegerUIPort,
					Protocol:   corev1.ProtocolTCP,
					TargetPort: intstr.FromInt32(jaegerUIPort),
				},
				{
					Name:       "otlp-grpc",
					Port:       jaegerOTLPPort,
					Protocol:   corev1.ProtocolTCP,
					TargetPort: intstr.FromInt32(jaegerOTLPPort),
				},
			},
			Type: corev1.ServiceTypeClusterIP,
		},
	}

	_, err = f.client.CoreV1().Services(jaegerNamespace).Create(ctx, service, metav1.CreateOptions{})
	if err != nil && !apierrors.IsAlreadyExists(err) {
		return NewResourceError("service", jaegerNamespace, "jaeger", fmt.Errorf("failed to create: %w", err))
	}

	return wait.ForDeploymentReady(ctx, f, jaegerNamespace, "jaeger", f.config.PollInterval, f.config.DeployTimeout)
}
