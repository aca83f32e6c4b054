package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"av1watch/internal/config"
)

// Requirement defines an external tool av1watch runs.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Path        string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the tools the configured pipeline invokes.
func Requirements(cfg *config.Config) []Requirement {
	if cfg == nil {
		return nil
	}
	reqs := []Requirement{
		{
			Name:        "av1an",
			Command:     cfg.Encoder.Binary,
			Description: "Runs the chunked encode",
		},
	}
	switch cfg.Probe.Backend {
	case config.ProbeBackendFFprobe:
		reqs = append(reqs, Requirement{
			Name:        "FFprobe",
			Command:     cfg.Probe.FFprobeBinary,
			Description: "Required for media inspection",
		})
	default:
		reqs = append(reqs, Requirement{
			Name:        "MediaInfo",
			Command:     cfg.Probe.MediainfoBinary,
			Description: "Required for media inspection",
		})
	}
	reqs = append(reqs, Requirement{
		Name:        "FFmpeg",
		Command:     cfg.Crop.FFmpegBinary,
		Description: "Used for crop detection and by av1an for decoding",
		Optional:    !cfg.Crop.Enabled,
	})
	if cfg.Encoder.Concat == "mkvmerge" {
		reqs = append(reqs, Requirement{
			Name:        "mkvmerge",
			Command:     "mkvmerge",
			Description: "Joins encoded chunks into the output container",
		})
	}
	return reqs
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
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Path = resolved
		status.Available = true
		results = append(results, status)
	}
	return results
}

// MissingRequired returns the unavailable, non-optional entries.
func MissingRequired(statuses []Status) []Status {
	var missing []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s)
		}
	}
	return missing
}
