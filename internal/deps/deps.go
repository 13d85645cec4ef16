// Package deps verifies the external tools the pipeline shells out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"subpipe/internal/config"
)

// Requirement defines an external binary the pipeline relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of one requirement.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// ForConfig lists the requirements implied by cfg.
func ForConfig(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.Tools.FFmpeg,
			Description: "audio decoding and extraction",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.Tools.FFprobe,
			Description: "media duration and stream probing",
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// MissingRequired returns the names of unavailable non-optional tools.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status.Name)
		}
	}
	return missing
}
