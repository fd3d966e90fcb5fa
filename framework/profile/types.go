package profile

// Profile represents a named environment configuration
type Profile struct {
	// Name is the unique identifier for this profile
	Name string `yaml:"name"`

	// Description provides human-readable details about the profile
	Description string `yaml:"description"`

	// Backends lists the observability backends to deploy (one or two)
	Backends []string `yaml:"backends"`

	// ClusterName overrides the default cluster name (optional)
	ClusterName string `yaml:"clusterName,omitempty"`

	// PreferredPort is the first ingress port to try (optional)
	PreferredPort int `yaml:"preferredPort,omitempty"`

	// DeployTimeout bounds each readiness wait, e.g. "5m" (optional)
	DeployTimeout string `yaml:"deployTimeout,omitempty"`

	// PollInterval is the readiness polling cadence, e.g. "5s" (optional)
	PollInterval string `yaml:"pollInterval,omitempty"`
}

// HasOverrides returns true if the profile changes anything beyond the
// backend selection
func (p *Profile) HasOverrides() bool {
	return p.ClusterName != "" || p.PreferredPort != 0 ||
		p.DeployTimeout != "" || p.PollInterval != ""
}
