package procrunner

import "fmt"

// ProcessTerminatedError is raised when a child process is killed by
// the runner (timeout escalation) or could not be started at all
// (ENOENT), carrying the exit code the caller should treat the run as
// having produced.
type ProcessTerminatedError struct {
	ExitCode int
	Reason   string
}

func (e *ProcessTerminatedError) Error() string {
	return fmt.Sprintf("procrunner: process terminated (exit code %d): %s", e.ExitCode, e.Reason)
}
