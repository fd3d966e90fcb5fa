package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sigs.k8s.io/yaml"

	"github.com/obslab/otel-demo-k3d/framework/config"
)

// Load reads a profile from a YAML file
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file %s: %w", path, err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}

	if err := Validate(&profile); err != nil {
		return nil, fmt.Errorf("invalid profile %s: %w", path, err)
	}

	return &profile, nil
}

// LoadAll reads all YAML profiles from a directory
func LoadAll(dir string) ([]*Profile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles directory %s: %w", dir, err)
	}

	var profiles []*Profile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		profile, err := Load(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}

	return profiles, nil
}

// LoadByName loads one profile by name from a directory, trying the .yaml
// extension first, then .yml
func LoadByName(dir, name string) (*Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("profile name is empty")
	}

	path := filepath.Join(dir, name+".yaml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		path = filepath.Join(dir, name+".yml")
	}

	profile, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile %q: %w", name, err)
	}
	return profile, nil
}

// Validate checks that a profile has all required fields. Backend names are
// resolved against the runtime's registry by the caller; here only the shape
// is checked.
func Validate(p *Profile) error {
	if p.Name == "" {
		return fmt.Errorf("profile name is required")
	}

	if len(p.Backends) < 1 || len(p.Backends) > 2 {
		return fmt.Errorf("backends must list one or two entries, got %d", len(p.Backends))
	}
	seen := make(map[string]bool, len(p.Backends))
	for _, b := range p.Backends {
		if b == "" {
			return fmt.Errorf("backend name cannot be empty")
		}
		if seen[b] {
			return fmt.Errorf("backend %q listed twice", b)
		}
		seen[b] = true
	}

	if p.PreferredPort < 0 || p.PreferredPort > 65535 {
		return fmt.Errorf("preferredPort must be in 0..65535, got %d", p.PreferredPort)
	}
	if p.DeployTimeout != "" {
		if _, err := time.ParseDuration(p.DeployTimeout); err != nil {
			return fmt.Errorf("invalid deployTimeout: %w", err)
		}
	}
	if p.PollInterval != "" {
		if _, err := time.ParseDuration(p.PollInterval); err != nil {
			return fmt.Errorf("invalid pollInterval: %w", err)
		}
	}

	return nil
}

// Apply overlays the profile's overrides on a configuration and returns the
// result. The input configuration is not modified.
func (p *Profile) Apply(cfg *config.Config) (*config.Config, error) {
	out := cfg
	if p.ClusterName != "" {
		out = out.WithClusterName(p.ClusterName)
	}
	if p.PreferredPort != 0 {
		out = out.WithPreferredPort(p.PreferredPort)
	}
	if p.DeployTimeout != "" {
		d, err := time.ParseDuration(p.DeployTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid deployTimeout: %w", err)
		}
		out = out.WithDeployTimeout(d)
	}
	if p.PollInterval != "" {
		d, err := time.ParseDuration(p.PollInterval)
		if err != nil {
			return nil, fmt.Errorf("invalid pollInterval: %w", err)
		}
		out = out.WithPollInterval(d)
	}
	return out, nil
}

// ListProfileNames returns the names of all profiles in a directory
func ListProfileNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles directory %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".yaml") {
			names = append(names, strings.TrimSuffix(name, ".yaml"))
		} else if strings.HasSuffix(name, ".yml") {
			names = append(names, strings.TrimSuffix(name, ".yml"))
		}
	}

	return names, nil
}
