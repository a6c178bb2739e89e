package supervise

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func fastOpts() CycleOpts {
	return CycleOpts{PollInterval: time.Millisecond, ExitTimeout: 20 * time.Millisecond}
}

func TestCycle_StopThenStart(t *testing.T) {
	m := &Mock{}
	m.SetRunning(true)

	if err := Cycle(m, "config.json", fastOpts()); err != nil {
		t.Fatalf("Cycle: %v", err)
	}

	calls := m.Calls()
	if len(calls) < 2 || calls[0] != "stop" || calls[len(calls)-1] != "start" {
		t.Errorf("expected stop...start, got %v", calls)
	}
	for _, c := range calls {
		if c == "restart" {
			t.Error("Cycle must never issue a restart verb")
		}
	}
}

func TestCycle_StartsEvenWhenStopFails(t *testing.T) {
	m := &Mock{
		StopFunc: func(string) error { return errors.New("boom") },
	}

	if err := Cycle(m, "config.json", fastOpts()); err != nil {
		t.Fatalf("Cycle should still start: %v", err)
	}
	calls := m.Calls()
	if calls[len(calls)-1] != "start" {
		t.Errorf("start missing after failed stop: %v", calls)
	}
}

func TestCycle_BoundedWaitForExit(t *testing.T) {
	m := &Mock{
		RunningFunc: func(string) bool { return true }, // never exits
	}

	done := make(chan error, 1)
	go func() { done <- Cycle(m, "config.json", fastOpts()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Cycle: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Cycle did not respect the exit timeout")
	}
}

func TestCycle_ReturnsStartError(t *testing.T) {
	m := &Mock{
		StartFunc: func(string) error { return errors.New("spawn failed") },
	}
	if err := Cycle(m, "config.json", fastOpts()); err == nil {
		t.Error("start failure must be reported")
	}
}

func TestPidFile_RoundTrip(t *testing.T) {
	p := PidFile{Path: filepath.Join(t.TempDir(), "timelapse.pid")}

	if pid, err := p.Read(); err != nil || pid != 0 {
		t.Errorf("missing pidfile: got pid=%d err=%v, want 0,nil", pid, err)
	}
	if err := p.Write(12345); err != nil {
		t.Fatal(err)
	}
	pid, err := p.Read()
	if err != nil || pid != 12345 {
		t.Errorf("got pid=%d err=%v, want 12345,nil", pid, err)
	}
	p.Remove()
	if pid, _ := p.Read(); pid != 0 {
		t.Errorf("pidfile not removed, read %d", pid)
	}
}

func TestPidFile_Malformed(t *testing.T) {
	p := PidFile{Path: filepath.Join(t.TempDir(), "timelapse.pid")}
	if err := os.WriteFile(p.Path, []byte("not-a-pid"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Read(); err == nil {
		t.Error("malformed pidfile should error")
	}
}

func TestAlive(t *testing.T) {
	if !Alive(os.Getpid()) {
		t.Error("own pid should be alive")
	}
	if Alive(0) || Alive(-1) {
		t.Error("non-positive pids are never alive")
	}
}
