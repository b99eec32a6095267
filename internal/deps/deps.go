package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"whiskproc/internal/config"
)

// Requirement defines an external executable the pipeline relies on.
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
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements derives the dependency list from the configured tool paths.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{Name: "ffmpeg", Command: cfg.Tools.FFmpeg, Description: "frame decoding, channel encoding, timestamp alignment"},
		{Name: "ffprobe", Command: cfg.Tools.FFprobe, Description: "source container metadata"},
		{Name: "trace", Command: cfg.TraceBinary(), Description: "whisker shape detection"},
		{Name: "measure", Command: cfg.MeasureBinary(), Description: "whisker measurement"},
		{Name: "classify", Command: cfg.ClassifyBinary(), Description: "whisker/noise classification"},
		{Name: "reclassify", Command: cfg.ReclassifyBinary(), Description: "temporal reclassification"},
		{Name: "extract", Command: cfg.ExtractBinary(), Description: "whiskers-to-CSV table extraction"},
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

// MissingRequired returns the names of unavailable non-optional dependencies.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status.Name)
		}
	}
	return missing
}
