package framework

import (
	"errors"
	"fmt"

	"github.com/obslab/otel-demo-k3d/framework/wait"
)

// Sentinel errors for framework operations
var (
	// ErrClusterConnection indicates failure to connect to the cluster
	ErrClusterConnection = errors.New("failed to connect to cluster")

	// ErrUnknownBackend indicates a backend name that is not registered
	ErrUnknownBackend = errors.New("unknown backend")

	// ErrBackendCount indicates an invalid number of selected backends
	ErrBackendCount = errors.New("select one or two backends")

	// ErrClusterExists indicates the k3d cluster is already present
	ErrClusterExists = errors.New("cluster already exists")
)

// ResourceError represents an error related to a specific resource
type ResourceError struct {
	Kind      string
	Namespace string
	Name      string
	Err       error
}

func (e *ResourceError) Error() string {
	if e.Namespace != "" {
		return fmt.Sprintf("%s %s/%s: %v", e.Kind, e.Namespace, e.Name, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Name, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// NewResourceError creates a new ResourceError
func NewResourceError(kind, namespace, name string, err error) *ResourceError {
	return &ResourceError{
		Kind:      kind,
		Namespace: namespace,
		Name:      name,
		Err:       err,
	}
}

// CleanupError represents errors during cleanup operations
type CleanupError struct {
	Phase string
	Errs  []error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("cleanup failed during %s phase: %v", e.Phase, errors.Join(e.Errs...))
}

func (e *CleanupError) Unwrap() error {
	return errors.Join(e.Errs...)
}

// NewCleanupError creates a new CleanupError
func NewCleanupError(phase string, errs ...error) *CleanupError {
	return &CleanupError{
		Phase: phase,
		Errs:  errs,
	}
}

// IsTimeout returns true if the error is a readiness timeout
func IsTimeout(err error) bool {
	return wait.IsTimeout(err)
}
