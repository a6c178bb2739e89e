// Package supervise models control of the external capture process.
//
// The package follows the Interface Segregation Principle: consumers
// depend on the three-operation Supervisor contract, not on how the
// process is actually managed. The exec-backed client shells out to the
// tlctl binary; tests use the function-field Mock.
package supervise

import (
	"time"

	"github.com/nevs77-02/pi-timelaps/internal/log"
)

// Supervisor is the start/stop/status contract for the capture process.
// All three operations are idempotent and synchronous.
type Supervisor interface {
	// Start launches the capture process for the given config file.
	Start(configPath string) error

	// Stop terminates the capture process for the given config file.
	Stop(configPath string) error

	// Running reports whether the capture process is currently healthy.
	Running(configPath string) bool
}

// CycleOpts bounds the stop→start sequence.
type CycleOpts struct {
	// PollInterval between Running probes after a stop.
	PollInterval time.Duration

	// ExitTimeout caps how long to wait for the old process to leave
	// before starting the new one anyway.
	ExitTimeout time.Duration
}

// DefaultCycleOpts waits up to five seconds in 200ms probes.
func DefaultCycleOpts() CycleOpts {
	return CycleOpts{
		PollInterval: 200 * time.Millisecond,
		ExitTimeout:  5 * time.Second,
	}
}

// Cycle stops the capture process, waits (bounded) until it reports
// not-running, then starts it again. Deliberately stop→start rather than
// a single restart verb, so any supervisor implementing only the three
// base operations works. The wait reduces the chance the outgoing process
// still holds the camera when the incoming one opens it.
func Cycle(s Supervisor, configPath string, opts CycleOpts) error {
	if err := s.Stop(configPath); err != nil {
		log.Warn("capture stop failed, starting anyway", "err", err)
	}

	deadline := time.Now().Add(opts.ExitTimeout)
	for s.Running(configPath) && time.Now().Before(deadline) {
		time.Sleep(opts.PollInterval)
	}

	return s.Start(configPath)
}
