// Command console serves the operator console: REST and websocket control
// of the vehicle plus a live telemetry feed.
//
// Commands and telemetry use separate bus connections so a slow telemetry
// stream never delays a command.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-petinga/internal/config"
	"github.com/teslashibe/go-petinga/internal/log"
	"github.com/teslashibe/go-petinga/pkg/console"
	"github.com/teslashibe/go-petinga/pkg/hub"
	"github.com/teslashibe/go-petinga/pkg/jsonbus"
	"github.com/teslashibe/go-petinga/pkg/protocol"
	"github.com/teslashibe/go-petinga/pkg/vehicle"
)

func main() {
	flags := config.RegisterFlags(flag.CommandLine)
	addr := flag.String("listen", "", "Console listen address (overrides console.addr)")
	flag.Parse()

	cfg, err := flags.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Console.Addr = *addr
	}
	log.Init(cfg.Log.Level)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		log.Error("console stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.File) error {
	ctrl, err := vehicle.New(cfg.VehicleConfig(), log.L())
	if err != nil {
		return err
	}
	if err := ctrl.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to vehicle: %w", err)
	}
	defer ctrl.Close()

	telemetry := hub.New("telemetry", log.L())
	go telemetry.Run(ctx)

	server := console.New(ctrl, telemetry, log.L())

	feed, err := jsonbus.New(cfg.Bus, log.L().With("role", "telemetry"))
	if err != nil {
		return err
	}
	listener := jsonbus.NewListener(feed, log.L())
	topics := make([]protocol.Abbrev, len(cfg.Console.Telemetry))
	for i, t := range cfg.Console.Telemetry {
		topics[i] = protocol.Abbrev(t)
	}
	if err := listener.AddCallback(server.PublishTelemetry, topics...); err != nil {
		return err
	}

	errc := make(chan error, 2)
	go func() {
		if err := listener.Run(ctx); err != nil {
			errc <- fmt.Errorf("telemetry feed: %w", err)
		}
	}()
	go func() {
		errc <- server.Listen(cfg.Console.Addr)
	}()

	fmt.Printf("🌊 Console: http://%s (vehicle %s)\n", cfg.Console.Addr, ctrl.SystemName())

	select {
	case <-ctx.Done():
		fmt.Println("\n👋 Shutting down...")
	case err = <-errc:
	}

	if serr := server.Shutdown(); serr != nil && err == nil {
		err = serr
	}
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return err
}
