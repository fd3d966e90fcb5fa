package framework

import (
	"fmt"
	"strings"
)

// RequiredTools are the external CLIs the framework sequences. Docker is
// listed because k3d cannot create a cluster without a container runtime.
var RequiredTools = []string{"docker", "k3d", "kubectl", "helm"}

// PrerequisiteStatus represents the status of a single prerequisite
type PrerequisiteStatus struct {
	Name      string
	Installed bool
	Message   string
}

// PrerequisitesResult contains the results of all prerequisite checks
type PrerequisitesResult struct {
	Tools  []PrerequisiteStatus
	AllMet bool
}

// CheckPrerequisites verifies that every required CLI tool resolves on PATH.
// It runs before any mutation: a missing tool halts the sequence with the
// full list of what is absent.
func (f *Framework) CheckPrerequisites() *PrerequisitesResult {
	result := &PrerequisitesResult{AllMet: true}

	for _, tool := range RequiredTools {
		status := PrerequisiteStatus{Name: tool}
		if path, err := f.lookPath(tool); err == nil {
			status.Installed = true
			status.Message = path
		} else {
			status.Message = "not found on PATH"
			result.AllMet = false
		}
		result.Tools = append(result.Tools, status)
	}

	return result
}

// Missing returns the names of the tools that were not found
func (r *PrerequisitesResult) Missing() []string {
	var missing []string
	for _, tool := range r.Tools {
		if !tool.Installed {
			missing = append(missing, tool.Name)
		}
	}
	return missing
}

// String returns a human-readable summary of the prerequisites result
func (r *PrerequisitesResult) String() string {
	var b strings.Builder
	b.WriteString("Prerequisites Check:\n")
	for _, tool := range r.Tools {
		mark := "✓"
		if !tool.Installed {
			mark = "✗"
		}
		fmt.Fprintf(&b, "  %s %s: %s\n", mark, tool.Name, tool.Message)
	}
	fmt.Fprintf(&b, "  All prerequisites met: %v", r.AllMet)
	return b.String()
}
