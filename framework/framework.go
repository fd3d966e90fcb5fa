package framework

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/obslab/otel-demo-k3d/framework/config"
	"github.com/obslab/otel-demo-k3d/framework/portforward"
	"github.com/obslab/otel-demo-k3d/framework/session"
	"github.com/obslab/otel-demo-k3d/framework/toolexec"

	apiextensionsclient "k8s.io/apiextensions-apiserver/pkg/client/clientset/clientset"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// Framework stands up and tears down the demo environment: the k3d cluster,
// the OpenTelemetry Demo install, the selected observability backends, and
// the supporting port-forwards.
type Framework struct {
	runner   toolexec.Runner
	logger   *slog.Logger
	config   *config.Config
	ctx      context.Context
	store    *session.Store
	forwards *portforward.Registry
	pfmgr    *portforward.Manager
	lookPath func(string) (string, error)

	// Kubernetes clients are established lazily: during `up` the cluster
	// does not exist until k3d has created it.
	clientMu  sync.Mutex
	client    kubernetes.Interface
	apiext    apiextensionsclient.Interface
	restCfg   *rest.Config
	connected bool

	// Resource tracking for cleanup
	mu               sync.Mutex
	trackedReleases  []HelmRelease
	trackedNamespaces []string
}

// Option is a function that configures the Framework
type Option func(*Framework)

// WithLogger sets a custom logger for the framework
func WithLogger(logger *slog.Logger) Option {
	return func(f *Framework) {
		f.logger = logger
	}
}

// WithConfig sets a custom configuration for the framework
func WithConfig(cfg *config.Config) Option {
	return func(f *Framework) {
		f.config = cfg
	}
}

// WithRunner replaces the external CLI runner (for tests)
func WithRunner(r toolexec.Runner) Option {
	return func(f *Framework) {
		f.runner = r
	}
}

// WithClient injects a pre-built Kubernetes client (for tests)
func WithClient(client kubernetes.Interface) Option {
	return func(f *Framework) {
		f.client = client
		f.connected = true
	}
}

// WithPortForwardManager replaces the port-forward manager (for tests)
func WithPortForwardManager(m *portforward.Manager) Option {
	return func(f *Framework) {
		f.pfmgr = m
	}
}

// New creates a new Framework instance. The context is used for all external
// operations and should be cancelled to stop anything in progress.
func New(ctx context.Context, opts ...Option) (*Framework, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	f := &Framework{
		logger:   slog.Default(),
		config:   config.FromEnv(),
		ctx:      ctx,
		lookPath: exec.LookPath,
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.runner == nil {
		f.runner = toolexec.New(
			toolexec.WithLogger(f.logger),
			toolexec.WithTimeout(f.config.CommandTimeout),
		)
	}

	store, err := session.NewStore(f.config.SessionDir)
	if err != nil {
		return nil, err
	}
	f.store = store

	if f.pfmgr == nil {
		f.pfmgr = portforward.NewManager(
			filepath.Join(store.Dir(), "logs"),
			portforward.WithLogger(f.logger),
			portforward.WithReadyTimeout(f.config.ForwardReadyTimeout),
		)
	}
	f.forwards = portforward.NewRegistry(f.logger)

	return f, nil
}

// connect builds the Kubernetes clients from the current kubeconfig. Called
// once the k3d cluster exists (k3d writes its kubeconfig entry on create).
func (f *Framework) connect() error {
	f.clientMu.Lock()
	defer f.clientMu.Unlock()

	if f.connected {
		return nil
	}

	restCfg, err := rest.InClusterConfig()
	if err != nil {
		restCfg, err = clientcmd.BuildConfigFromFlags("", clientcmd.RecommendedHomeFile)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrClusterConnection, err)
		}
	}

	client, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return fmt.Errorf("%w: failed to create kubernetes client: %v", ErrClusterConnection, err)
	}

	apiext, err := apiextensionsclient.NewForConfig(restCfg)
	if err != nil {
		return fmt.Errorf("%w: failed to create apiextensions client: %v", ErrClusterConnection, err)
	}

	f.restCfg = restCfg
	f.client = client
	f.apiext = apiext
	f.connected = true
	return nil
}

// Client returns the Kubernetes client
func (f *Framework) Client() kubernetes.Interface {
	return f.client
}

// APIExtensionsClient returns the apiextensions client used for CRD checks
func (f *Framework) APIExtensionsClient() apiextensionsclient.Interface {
	return f.apiext
}

// Config returns the framework configuration
func (f *Framework) Config() *config.Config {
	return f.config
}

// Context returns the context
func (f *Framework) Context() context.Context {
	return f.ctx
}

// Logger returns the logger
func (f *Framework) Logger() *slog.Logger {
	return f.logger
}

// Runner returns the external CLI runner
func (f *Framework) Runner() toolexec.Runner {
	return f.runner
}

// SessionStore returns the session store
func (f *Framework) SessionStore() *session.Store {
	return f.store
}

// Forwards returns the port-forward registry for this run
func (f *Framework) Forwards() *portforward.Registry {
	return f.forwards
}

// GetManagedLabels returns the labels applied to all resources created by the framework
func (f *Framework) GetManagedLabels() map[string]string {
	return map[string]string{
		LabelManagedBy: LabelManagedByValue,
		LabelInstance:  f.config.ClusterName,
	}
}

// TrackRelease adds a helm release to the cleanup list
func (f *Framework) TrackRelease(name, namespace string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	release := HelmRelease{Name: name, Namespace: namespace}
	for _, r := range f.trackedReleases {
		if r == release {
			return
		}
	}
	f.trackedReleases = append(f.trackedReleases, release)
}

// TrackNamespace adds a namespace to the cleanup list
func (f *Framework) TrackNamespace(namespace string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ns := range f.trackedNamespaces {
		if ns == namespace {
			return
		}
	}
	f.trackedNamespaces = append(f.trackedNamespaces, namespace)
}

// GetTrackedReleases returns a copy of the tracked helm releases
func (f *Framework) GetTrackedReleases() []HelmRelease {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]HelmRelease, len(f.trackedReleases))
	copy(result, f.trackedReleases)
	return result
}

// GetTrackedNamespaces returns a copy of the tracked namespaces
func (f *Framework) GetTrackedNamespaces() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]string, len(f.trackedNamespaces))
	copy(result, f.trackedNamespaces)
	return result
}
