package supervise

import (
	"fmt"
	"os/exec"

	"github.com/nevs77-02/pi-timelaps/internal/log"
)

// ExecSupervisor drives the capture process through an external control
// binary (tlctl) using the exit-code convention: 0 = success/running,
// nonzero = failure/not-running.
type ExecSupervisor struct {
	// Command is the control binary, e.g. "tlctl" or "/usr/local/bin/tlctl".
	Command string

	// Args are prepended before the verb, for wrapper invocations.
	Args []string
}

var _ Supervisor = (*ExecSupervisor)(nil)

// NewExecSupervisor creates a supervisor client for the given binary.
func NewExecSupervisor(command string, args ...string) *ExecSupervisor {
	return &ExecSupervisor{Command: command, Args: args}
}

func (e *ExecSupervisor) run(verb, configPath string) error {
	args := append(append([]string{}, e.Args...), verb, "--config", configPath)
	cmd := exec.Command(e.Command, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("supervise: %s %s: %w (%s)", e.Command, verb, err, out)
	}
	return nil
}

// Start launches the capture process.
func (e *ExecSupervisor) Start(configPath string) error {
	return e.run("start", configPath)
}

// Stop terminates the capture process.
func (e *ExecSupervisor) Stop(configPath string) error {
	return e.run("stop", configPath)
}

// Running probes the capture process status.
func (e *ExecSupervisor) Running(configPath string) bool {
	if err := e.run("status", configPath); err != nil {
		log.Debug("capture not running", "err", err)
		return false
	}
	return true
}
