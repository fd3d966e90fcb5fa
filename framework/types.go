package framework

const (
	// LabelManagedBy is the label key used to identify resources managed by the framework
	LabelManagedBy = "otel-demo-k3d.io/managed-by"
	// LabelInstance is the label key used to identify the cluster instance
	LabelInstance = "otel-demo-k3d.io/instance"
	// LabelManagedByValue is the value for the managed-by label
	LabelManagedByValue = "democtl"
)

// HelmRelease identifies an installed chart release for cleanup
type HelmRelease struct {
	Name      string
	Namespace string
}

// ForwardSpec describes a port-forward a backend wants once it is ready
type ForwardSpec struct {
	// Target is the kubectl port-forward target, e.g. "svc/jaeger-query"
	Target string
	// LocalPort is the host port; also the preferred port for allocation
	LocalPort int
	// RemotePort is the in-cluster service port
	RemotePort int
}
