// Command tlctl starts, stops and inspects the capture process.
//
// start spawns the capture command detached in its own session and
// records a pidfile; stop sends SIGTERM with a bounded wait before
// escalating to SIGKILL; status reports via the exit code (0 = running,
// 1 = stopped). The controllers drive this binary through the
// start/stop/status contract and never depend on a restart verb.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/nevs77-02/pi-timelaps/internal/config"
	"github.com/nevs77-02/pi-timelaps/internal/log"
	"github.com/nevs77-02/pi-timelaps/pkg/store"
	"github.com/nevs77-02/pi-timelaps/pkg/supervise"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s {start|stop|status} [flags]\n", os.Args[0])
		flag.PrintDefaults()
	}
	configPath := flag.String("config", config.ConfigPath(""), "path to the shared capture config")
	captureCmd := flag.String("capture-cmd", captureCommand(), "capture command to spawn (binary plus args)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	log.Init("tlctl", *logLevel)

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	pf := pidFileFor(*configPath)
	var code int
	switch flag.Arg(0) {
	case "start":
		code = doStart(pf, *captureCmd, *configPath)
	case "stop":
		code = doStop(pf)
	case "status":
		code = doStatus(pf)
	default:
		flag.Usage()
		code = 2
	}
	os.Exit(code)
}

// captureCommand returns the capture binary from TL_CAPTURE_CMD or default.
func captureCommand() string {
	if c := os.Getenv("TL_CAPTURE_CMD"); c != "" {
		return c
	}
	return "timelapsed"
}

// pidFileFor places the pidfile in the log folder named by the capture
// config, falling back to the LOG_ROOT convention.
func pidFileFor(configPath string) supervise.PidFile {
	st := store.New(configPath, config.LockPath())
	rec := st.Read()
	dir := rec.LogFolder
	if dir == "" {
		dir = config.LogRoot(configPath)
	}
	os.MkdirAll(dir, 0o755)
	return supervise.PidFile{Path: filepath.Join(dir, "timelapse.pid")}
}

func doStart(pf supervise.PidFile, captureCmd, configPath string) int {
	pid, err := pf.Read()
	if err != nil {
		log.Warn("unreadable pidfile, removing", "err", err)
		pf.Remove()
	}
	if supervise.Alive(pid) {
		log.Info("already running", "pid", pid)
		return 0
	}
	if pid != 0 {
		log.Warn("stale pidfile, removing", "pid", pid)
		pf.Remove()
	}

	parts := strings.Fields(captureCmd)
	if len(parts) == 0 {
		log.Error("empty capture command")
		return 1
	}
	args := append(parts[1:], "--config", configPath)

	logDir := filepath.Dir(pf.Path)
	stdout, err := os.OpenFile(filepath.Join(logDir, "stdout.log"),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Error("cannot open stdout log", "err", err)
		return 1
	}
	defer stdout.Close()
	stderr, err := os.OpenFile(filepath.Join(logDir, "stderr.log"),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Error("cannot open stderr log", "err", err)
		return 1
	}
	defer stderr.Close()

	cmd := exec.Command(parts[0], args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	// Own session: the capture process must survive tlctl exiting and
	// must not receive the controllers' terminal signals.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		log.Error("capture start failed", "cmd", captureCmd, "err", err)
		return 1
	}
	if err := pf.Write(cmd.Process.Pid); err != nil {
		log.Error("cannot write pidfile", "err", err)
		return 1
	}
	// Detach; the pidfile is the only handle on the child from here on.
	cmd.Process.Release()
	log.Info("capture started", "pid", cmd.Process.Pid, "logs", logDir)
	return 0
}

func doStop(pf supervise.PidFile) int {
	pid, err := pf.Read()
	if err != nil {
		log.Warn("unreadable pidfile", "err", err)
		pf.Remove()
		return 0
	}
	if pid == 0 {
		log.Info("not started")
		return 0
	}
	if !supervise.Alive(pid) {
		log.Info("process already gone, removing pidfile", "pid", pid)
		pf.Remove()
		return 0
	}

	if !supervise.Terminate(pid, 5*time.Second) {
		log.Error("process did not exit", "pid", pid)
		return 1
	}
	pf.Remove()
	log.Info("capture stopped", "pid", pid)
	return 0
}

func doStatus(pf supervise.PidFile) int {
	pid, err := pf.Read()
	if err == nil && supervise.Alive(pid) {
		fmt.Printf("RUNNING (pid %d)\n", pid)
		return 0
	}
	fmt.Println("STOPPED")
	return 1
}
