package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement is an external binary the pipeline shells out to, tied to the
// config key that names it.
type Requirement struct {
	Name        string
	Command     string
	ConfigKey   string
	Description string
	Optional    bool
}

// Status is the outcome of resolving one requirement. Path is the resolved
// executable when available; Detail explains why it is not.
type Status struct {
	Requirement
	Available bool
	Path      string
	Detail    string
}

// CheckBinaries resolves every requirement on PATH.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		req.Command = strings.TrimSpace(req.Command)
		req.Description = strings.TrimSpace(req.Description)
		status := Status{Requirement: req}
		switch path, err := exec.LookPath(req.Command); {
		case req.Command == "":
			status.Detail = withKey("command not configured", req.ConfigKey)
		case err != nil:
			status.Detail = withKey(fmt.Sprintf("binary %q not found", req.Command), req.ConfigKey)
		default:
			status.Available = true
			status.Path = path
		}
		results = append(results, status)
	}
	return results
}

// Availability maps requirement names to whether they resolved.
func Availability(statuses []Status) map[string]bool {
	out := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		out[s.Name] = s.Available
	}
	return out
}

func withKey(detail, key string) string {
	if key == "" {
		return detail
	}
	return fmt.Sprintf("%s (set %s)", detail, key)
}
