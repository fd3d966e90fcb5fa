package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Default values used throughout the framework
const (
	// DefaultClusterName is the name of the k3d cluster
	DefaultClusterName = "otel-demo"

	// DefaultDemoNamespace is the namespace the OpenTelemetry Demo is installed into
	DefaultDemoNamespace = "otel-demo"

	// DefaultPreferredPort is the first host port tried for the ingress mapping
	DefaultPreferredPort = 8080

	// DefaultPortWindow is how far past the preferred port the allocator scans
	DefaultPortWindow = 100

	// DefaultDeployTimeout is the default timeout for a single deployment to become ready
	DefaultDeployTimeout = 5 * time.Minute

	// DefaultPollInterval is the fixed interval between readiness probes
	DefaultPollInterval = 5 * time.Second

	// DefaultNamespaceTimeout is the default timeout for namespace deletion
	DefaultNamespaceTimeout = 120 * time.Second

	// DefaultNamespacePollInterval is the default interval for polling namespace status
	DefaultNamespacePollInterval = 2 * time.Second

	// DefaultForwardReadyTimeout is how long to wait for a port-forward to accept connections
	DefaultForwardReadyTimeout = 15 * time.Second

	// DefaultCommandTimeout caps a single external CLI invocation (helm installs
	// can legitimately take minutes while images are pulled)
	DefaultCommandTimeout = 15 * time.Minute
)

// Environment variable names for configuration overrides
const (
	EnvClusterName         = "OTEL_DEMO_CLUSTER_NAME"
	EnvDemoNamespace       = "OTEL_DEMO_NAMESPACE"
	EnvPreferredPort       = "OTEL_DEMO_PREFERRED_PORT"
	EnvPortWindow          = "OTEL_DEMO_PORT_WINDOW"
	EnvDeployTimeout       = "OTEL_DEMO_DEPLOY_TIMEOUT"
	EnvPollInterval        = "OTEL_DEMO_POLL_INTERVAL"
	EnvForwardReadyTimeout = "OTEL_DEMO_FORWARD_READY_TIMEOUT"
	EnvCommandTimeout      = "OTEL_DEMO_COMMAND_TIMEOUT"
	EnvSessionDir          = "OTEL_DEMO_SESSION_DIR"
)

// Config holds framework configuration with optional overrides
type Config struct {
	// Cluster
	ClusterName   string
	DemoNamespace string

	// Port allocation
	PreferredPort int
	PortWindow    int

	// Timeouts
	DeployTimeout         time.Duration
	PollInterval          time.Duration
	NamespaceTimeout      time.Duration
	NamespacePollInterval time.Duration
	ForwardReadyTimeout   time.Duration
	CommandTimeout        time.Duration

	// SessionDir is where the session record and port-forward logs live.
	// Empty means the platform default (XDG_STATE_HOME or ~/.local/state).
	SessionDir string
}

// fileConfig mirrors the subset of Config settable from a TOML file
type fileConfig struct {
	ClusterName   string `toml:"cluster_name"`
	DemoNamespace string `toml:"namespace"`
	PreferredPort int    `toml:"preferred_port"`
	PortWindow    int    `toml:"port_window"`
	DeployTimeout string `toml:"deploy_timeout"`
	PollInterval  string `toml:"poll_interval"`
	SessionDir    string `toml:"session_dir"`
}

// Default returns a Config with all default values
func Default() *Config {
	return &Config{
		ClusterName:           DefaultClusterName,
		DemoNamespace:         DefaultDemoNamespace,
		PreferredPort:         DefaultPreferredPort,
		PortWindow:            DefaultPortWindow,
		DeployTimeout:         DefaultDeployTimeout,
		PollInterval:          DefaultPollInterval,
		NamespaceTimeout:      DefaultNamespaceTimeout,
		NamespacePollInterval: DefaultNamespacePollInterval,
		ForwardReadyTimeout:   DefaultForwardReadyTimeout,
		CommandTimeout:        DefaultCommandTimeout,
	}
}

// FromEnv returns a Config with values from environment variables, falling back to defaults
func FromEnv() *Config {
	cfg := Default()
	cfg.applyEnv()
	return cfg
}

// LoadFile returns a Config built from defaults, the given TOML file, and
// environment variables, in increasing order of precedence.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
	}

	if fc.ClusterName != "" {
		cfg.ClusterName = fc.ClusterName
	}
	if fc.DemoNamespace != "" {
		cfg.DemoNamespace = fc.DemoNamespace
	}
	if fc.PreferredPort > 0 {
		cfg.PreferredPort = fc.PreferredPort
	}
	if fc.PortWindow > 0 {
		cfg.PortWindow = fc.PortWindow
	}
	if fc.DeployTimeout != "" {
		d, err := time.ParseDuration(fc.DeployTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid deploy_timeout in %s: %w", path, err)
		}
		cfg.DeployTimeout = d
	}
	if fc.PollInterval != "" {
		d, err := time.ParseDuration(fc.PollInterval)
		if err != nil {
			return nil, fmt.Errorf("invalid poll_interval in %s: %w", path, err)
		}
		cfg.PollInterval = d
	}
	if fc.SessionDir != "" {
		cfg.SessionDir = fc.SessionDir
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv layers environment variable overrides onto the config
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvClusterName); v != "" {
		c.ClusterName = v
	}

	if v := os.Getenv(EnvDemoNamespace); v != "" {
		c.DemoNamespace = v
	}

	if v := os.Getenv(EnvPreferredPort); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 65535 {
			c.PreferredPort = n
		}
	}

	if v := os.Getenv(EnvPortWindow); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.PortWindow = n
		}
	}

	if v := os.Getenv(EnvDeployTimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.DeployTimeout = d
		}
	}

	if v := os.Getenv(EnvPollInterval); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.PollInterval = d
		}
	}

	if v := os.Getenv(EnvForwardReadyTimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.ForwardReadyTimeout = d
		}
	}

	if v := os.Getenv(EnvCommandTimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.CommandTimeout = d
		}
	}

	if v := os.Getenv(EnvSessionDir); v != "" {
		c.SessionDir = v
	}
}

// WithDeployTimeout returns a copy with updated deploy timeout
func (c *Config) WithDeployTimeout(d time.Duration) *Config {
	cp := *c
	cp.DeployTimeout = d
	return &cp
}

// WithPollInterval returns a copy with updated poll interval
func (c *Config) WithPollInterval(d time.Duration) *Config {
	cp := *c
	cp.PollInterval = d
	return &cp
}

// WithPreferredPort returns a copy with updated preferred ingress port
func (c *Config) WithPreferredPort(port int) *Config {
	cp := *c
	cp.PreferredPort = port
	return &cp
}

// WithClusterName returns a copy with updated cluster name
func (c *Config) WithClusterName(name string) *Config {
	cp := *c
	cp.ClusterName = name
	return &cp
}
