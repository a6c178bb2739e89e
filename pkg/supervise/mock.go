package supervise

import "sync"

// Mock implements Supervisor for testing.
// All methods can be customized via function fields.
type Mock struct {
	// StartFunc is called when Start is invoked. If nil, returns nil.
	StartFunc func(configPath string) error

	// StopFunc is called when Stop is invoked. If nil, returns nil.
	StopFunc func(configPath string) error

	// RunningFunc is called when Running is invoked. If nil, reports the
	// state implied by recorded Start/Stop calls.
	RunningFunc func(configPath string) bool

	mu      sync.Mutex
	calls   []string
	running bool
}

var _ Supervisor = (*Mock)(nil)

// Start records the call and delegates to StartFunc.
func (m *Mock) Start(configPath string) error {
	m.mu.Lock()
	m.calls = append(m.calls, "start")
	m.running = true
	m.mu.Unlock()
	if m.StartFunc != nil {
		return m.StartFunc(configPath)
	}
	return nil
}

// Stop records the call and delegates to StopFunc.
func (m *Mock) Stop(configPath string) error {
	m.mu.Lock()
	m.calls = append(m.calls, "stop")
	m.running = false
	m.mu.Unlock()
	if m.StopFunc != nil {
		return m.StopFunc(configPath)
	}
	return nil
}

// Running delegates to RunningFunc or the recorded state.
func (m *Mock) Running(configPath string) bool {
	m.mu.Lock()
	m.calls = append(m.calls, "status")
	r := m.running
	m.mu.Unlock()
	if m.RunningFunc != nil {
		return m.RunningFunc(configPath)
	}
	return r
}

// SetRunning seeds the simulated process state.
func (m *Mock) SetRunning(r bool) {
	m.mu.Lock()
	m.running = r
	m.mu.Unlock()
}

// Calls returns the recorded call sequence.
func (m *Mock) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// CycleCount returns how many stop→start pairs were issued.
func (m *Mock) CycleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for i := 0; i < len(m.calls)-1; i++ {
		if m.calls[i] == "stop" {
			for j := i + 1; j < len(m.calls); j++ {
				if m.calls[j] == "start" {
					n++
					i = j
					break
				}
				if m.calls[j] == "stop" {
					break
				}
			}
		}
	}
	return n
}
