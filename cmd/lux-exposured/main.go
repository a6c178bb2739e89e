// Command lux-exposured continuously maps ambient light to shutter time
// and analogue gain and writes them into the shared capture config.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/nevs77-02/pi-timelaps/internal/config"
	"github.com/nevs77-02/pi-timelaps/internal/log"
	"github.com/nevs77-02/pi-timelaps/internal/obsrv"
	"github.com/nevs77-02/pi-timelaps/pkg/exposure"
	"github.com/nevs77-02/pi-timelaps/pkg/store"
)

func main() {
	configPath := flag.String("config", config.ConfigPath(""), "path to the shared capture config")
	ctlPath := flag.String("ctl", "lux_exposured.json", "path to the controller's own control file")
	lockPath := flag.String("lock", config.LockPath(), "path to the shared config lock file")
	metricsPort := flag.Int("metrics-port", 0, "serve /healthz and /metrics on this port (0 = off)")
	dryRun := flag.Bool("dry-run", false, "compute targets but never write")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	log.Init("lux-exposured", *logLevel)

	cfg, err := exposure.LoadConfig(*ctlPath)
	if err != nil {
		log.Warn("control file unusable, using defaults", "err", err)
	}

	st := store.New(*configPath, *lockPath)
	if err := st.Probe(); err != nil {
		// Without write access to the store the daemon cannot function.
		log.Error("store unusable", "err", err)
		os.Exit(1)
	}

	ctrl := exposure.NewController(cfg, st, *dryRun)
	ctrl.SetMetrics(obsrv.NewLoopMetrics("lux-exposured"))
	go obsrv.Serve("lux-exposured", *metricsPort)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutting down")
		ctrl.Stop()
	}()

	log.Info("exposure controller started",
		"config", *configPath, "ctl", *ctlPath, "dry_run", *dryRun)
	ctrl.Run()
	log.Info("exposure controller stopped")
}
