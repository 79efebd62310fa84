// Command swimmer sweeps a range of fins back and forth until interrupted,
// then centers every fin and sends stop.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-petinga/internal/config"
	"github.com/teslashibe/go-petinga/internal/log"
	"github.com/teslashibe/go-petinga/pkg/vehicle"
)

func main() {
	flags := config.RegisterFlags(flag.CommandLine)
	first := flag.Int("first", 4, "First fin ID to sweep")
	last := flag.Int("last", 7, "Last fin ID to sweep")
	low := flag.Float64("low", -0.7, "Sweep low position")
	high := flag.Float64("high", 0.7, "Sweep high position")
	step := flag.Float64("step", 1.4, "Position increment per tick")
	delay := flag.Duration("delay", 100*time.Millisecond, "Delay between ticks")
	flag.Parse()

	cfg, err := flags.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log.Init(cfg.Log.Level)

	s := sweep{
		first: *first, last: *last,
		low: *low, high: *high, step: *step,
		delay: *delay,
	}
	if err := s.validate(); err != nil {
		log.Error("invalid sweep", "error", err)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ctrl, err := vehicle.New(cfg.VehicleConfig(), log.L())
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	fmt.Printf("🐟 Connecting to vehicle at %s...\n", cfg.Bus.Addr())
	if err := ctrl.Connect(ctx); err != nil {
		log.Error("failed to connect", "addr", cfg.Bus.Addr(), "error", err)
		os.Exit(1)
	}
	defer ctrl.Close()

	fmt.Printf("Sweeping fins %d-%d from %.2f to %.2f\n", s.first, s.last, s.low, s.high)
	fmt.Println("Press Ctrl+C to stop")

	err = s.run(ctx, ctrl)

	fmt.Println("\n👋 Stopping...")
	if cerr := ctrl.CenterServos(); cerr != nil {
		log.Warn("failed to center fins", "error", cerr)
	}
	if serr := ctrl.Stop(); serr != nil {
		log.Warn("failed to send stop", "error", serr)
	}

	if err != nil {
		log.Error("sweep ended", "error", err)
		ctrl.Close()
		os.Exit(1)
	}
}
