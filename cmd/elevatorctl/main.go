// Command elevatorctl wires the elevator core into a runnable process: it
// loads configuration, constructs the event sink, dispatcher, and monitor,
// and blocks until an OS signal requests shutdown. Grounded on multivator's
// src/main.go wiring (construct components, run the select loop, shut down
// on signal), generalized to this module's Dispatcher/Monitor pair.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"multivator/internal/clock"
	"multivator/internal/config"
	"multivator/internal/dispatcher"
	"multivator/internal/eventsink"
	"multivator/internal/monitor"
	"multivator/internal/oracle"
)

func main() {
	configPath := flag.String("config", "configs/elevatorctl.yaml", "path to the YAML configuration file")
	envPath := flag.String("env", ".env", "path to an optional .env override file")
	maxBoarding := flag.Int("max-boarding", 5, "upper bound on passengers the random oracle proposes boarding per stop")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := config.LoadEnvOverrides(cfg, *envPath); err != nil {
		slog.Error("failed to apply environment overrides", "error", err)
		os.Exit(1)
	}

	sink, err := eventsink.NewFileSink(cfg.LogDirectory)
	if err != nil {
		slog.Error("failed to initialize event sink", "error", err)
		os.Exit(1)
	}

	clk := clock.Real{}
	orc := oracle.NewRandom(*maxBoarding)

	d := dispatcher.New(cfg, clk, orc, sink)
	d.Start()

	mon := monitor.New(d, clk, sink, nil, cfg.Timing.MonitorPeriod)
	stopMonitor := make(chan struct{})
	monitorDone := make(chan struct{})
	go func() {
		mon.Run(stopMonitor)
		close(monitorDone)
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Info("elevatorctl running", "num_cars", cfg.NumCars, "max_floors", cfg.MaxFloors, "capacity", cfg.Capacity)
	<-ctx.Done()

	slog.Info("shutdown requested")
	close(stopMonitor)
	select {
	case <-monitorDone:
	case <-time.After(5 * time.Second):
		slog.Warn("monitor did not stop within the grace period")
	}
	d.Stop()
	slog.Info("shutdown complete")
}
