package supervise

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// PidFile tracks a detached background process by pid.
type PidFile struct {
	Path string
}

// Read returns the recorded pid, or 0 when no pidfile exists.
func (p PidFile) Read() (int, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("supervise: read pidfile: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("supervise: malformed pidfile %s: %w", p.Path, err)
	}
	return pid, nil
}

// Write records the pid.
func (p PidFile) Write(pid int) error {
	return os.WriteFile(p.Path, []byte(strconv.Itoa(pid)+"\n"), 0o644)
}

// Remove deletes the pidfile; a missing file is not an error.
func (p PidFile) Remove() {
	os.Remove(p.Path)
}

// Alive reports whether the pid currently names a live process.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || err == unix.EPERM
}

// Terminate sends SIGTERM, waits up to timeout for the process to exit,
// then escalates to SIGKILL. Returns true once the process is gone.
func Terminate(pid int, timeout time.Duration) bool {
	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		return !Alive(pid)
	}
	if WaitExit(pid, timeout) {
		return true
	}
	unix.Kill(pid, unix.SIGKILL)
	return WaitExit(pid, 2*time.Second)
}

// WaitExit polls until the pid is gone or timeout elapses.
func WaitExit(pid int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !Alive(pid) {
			return true
		}
		time.Sleep(50 * time.Millisecond)
	}
	return !Alive(pid)
}
