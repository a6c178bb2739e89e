// Command awb-adjusterd trims the manual white-balance gains at night,
// when auto white balance is disabled in the shared capture config.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/nevs77-02/pi-timelaps/internal/config"
	"github.com/nevs77-02/pi-timelaps/internal/log"
	"github.com/nevs77-02/pi-timelaps/internal/obsrv"
	"github.com/nevs77-02/pi-timelaps/pkg/awb"
	"github.com/nevs77-02/pi-timelaps/pkg/store"
)

func main() {
	configPath := flag.String("config", config.ConfigPath(""), "path to the shared capture config")
	ctlPath := flag.String("ctl", "awb_adjuster.json", "path to the controller's own control file")
	lockPath := flag.String("lock", config.LockPath(), "path to the shared config lock file")
	metricsPort := flag.Int("metrics-port", 0, "serve /healthz and /metrics on this port (0 = off)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	log.Init("awb-adjusterd", *logLevel)

	cfg, err := awb.LoadConfig(*ctlPath)
	if err != nil {
		log.Warn("control file unusable, using defaults", "err", err)
	}

	st := store.New(*configPath, *lockPath)
	if err := st.Probe(); err != nil {
		log.Error("store unusable", "err", err)
		os.Exit(1)
	}

	ctrl := awb.NewController(cfg, st)
	ctrl.SetMetrics(obsrv.NewLoopMetrics("awb-adjusterd"))
	go obsrv.Serve("awb-adjusterd", *metricsPort)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutting down")
		ctrl.Stop()
	}()

	log.Info("awb adjuster started", "config", *configPath, "ctl", *ctlPath)
	ctrl.Run()
	log.Info("awb adjuster stopped")
}
