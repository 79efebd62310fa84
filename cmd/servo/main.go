// Command servo sets one fin position on the vehicle.
//
//	servo [flags] <servo> [position]
//
// servo is a fin name (port, rear_starboard, ...) or ID 0-7; position is in
// [-1, 1] and defaults to 0.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/teslashibe/go-petinga/internal/config"
	"github.com/teslashibe/go-petinga/internal/log"
	"github.com/teslashibe/go-petinga/pkg/vehicle"
)

func main() {
	flags := config.RegisterFlags(flag.CommandLine)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <servo> [position]\n\nFlags:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 || flag.NArg() > 2 {
		flag.Usage()
		os.Exit(2)
	}

	servo := vehicle.ParseServo(flag.Arg(0))
	position := 0.0
	if flag.NArg() == 2 {
		p, err := strconv.ParseFloat(flag.Arg(1), 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: position %q is not a number\n", flag.Arg(1))
			os.Exit(2)
		}
		position = p
	}

	cfg, err := flags.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log.Init(cfg.Log.Level)

	ctrl, err := vehicle.New(cfg.VehicleConfig(), log.L())
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Connecting to vehicle at %s...\n", cfg.Bus.Addr())
	if err := ctrl.Connect(context.Background()); err != nil {
		log.Error("failed to connect", "addr", cfg.Bus.Addr(), "error", err)
		os.Exit(1)
	}
	defer ctrl.Close()

	if err := ctrl.SetServoPosition(servo, position); err != nil {
		log.Error("command failed", "servo", servo.String(), "position", position, "error", err)
		ctrl.Close()
		os.Exit(1)
	}

	fmt.Printf("✅ %s → %.3f on %s\n", servo, position, ctrl.SystemName())
}
