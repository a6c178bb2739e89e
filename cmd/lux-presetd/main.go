// Command lux-presetd switches the capture config between named scene
// presets based on ambient light, restarting the capture process when a
// structurally significant parameter changes.
package main

import (
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nevs77-02/pi-timelaps/internal/config"
	"github.com/nevs77-02/pi-timelaps/internal/log"
	"github.com/nevs77-02/pi-timelaps/internal/obsrv"
	"github.com/nevs77-02/pi-timelaps/pkg/preset"
	"github.com/nevs77-02/pi-timelaps/pkg/store"
	"github.com/nevs77-02/pi-timelaps/pkg/supervise"
)

func main() {
	configPath := flag.String("config", config.ConfigPath(""), "path to the shared capture config")
	ctlPath := flag.String("ctl", "lux_control.json", "path to the switcher control file")
	lockPath := flag.String("lock", config.LockPath(), "path to the shared config lock file")
	tlctl := flag.String("tlctl", config.TlctlCommand(), "capture control command (binary plus args)")
	metricsPort := flag.Int("metrics-port", 0, "serve /healthz and /metrics on this port (0 = off)")
	once := flag.Bool("once", false, "run a single check and exit")
	apply := flag.String("apply", "", "apply the named preset immediately and exit")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	log.Init("lux-presetd", *logLevel)

	st := store.New(*configPath, *lockPath)
	if err := st.Probe(); err != nil {
		log.Error("store unusable", "err", err)
		os.Exit(1)
	}

	parts := strings.Fields(*tlctl)
	if len(parts) == 0 {
		log.Error("empty tlctl command")
		os.Exit(1)
	}
	sup := supervise.NewExecSupervisor(parts[0], parts[1:]...)
	sw := preset.NewSwitcher(*ctlPath, st, sup)

	if *apply != "" {
		cfg, err := preset.LoadConfig(*ctlPath)
		if err != nil {
			log.Warn("control file unusable, using defaults", "err", err)
		}
		if err := sw.Apply(*apply, &cfg); err != nil {
			log.Error("apply failed", "preset", *apply, "err", err)
			os.Exit(1)
		}
		return
	}

	if *once {
		cfg, err := preset.LoadConfig(*ctlPath)
		if err != nil {
			log.Error("control file unusable", "err", err)
			os.Exit(1)
		}
		if err := sw.Tick(&cfg); err != nil {
			log.Error("check failed", "err", err)
			os.Exit(1)
		}
		return
	}

	sw.SetMetrics(obsrv.NewLoopMetrics("lux-presetd"))
	go obsrv.Serve("lux-presetd", *metricsPort)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutting down")
		sw.Stop()
	}()

	log.Info("preset switcher started", "config", *configPath, "ctl", *ctlPath)
	sw.Run()
	log.Info("preset switcher stopped")
}
