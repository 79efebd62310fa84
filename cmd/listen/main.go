// Command listen prints vehicle navigation telemetry from the bus until
// interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-petinga/internal/config"
	"github.com/teslashibe/go-petinga/internal/log"
	"github.com/teslashibe/go-petinga/pkg/jsonbus"
	"github.com/teslashibe/go-petinga/pkg/protocol"
)

func main() {
	flags := config.RegisterFlags(flag.CommandLine)
	statsEvery := flag.Duration("stats", 5*time.Second, "How often to log bus counters")
	flag.Parse()

	cfg, err := flags.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log.Init(cfg.Log.Level)

	client, err := jsonbus.New(cfg.Bus, log.L())
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	listener := jsonbus.NewListener(client, log.L())
	if err := listener.AddCallback(onEstimatedState, protocol.AbbrevEstimatedState); err != nil {
		log.Error("invalid callback", "error", err)
		os.Exit(1)
	}
	if err := listener.AddCallback(onSimulatedState, protocol.AbbrevSimulatedState); err != nil {
		log.Error("invalid callback", "error", err)
		os.Exit(1)
	}
	err = listener.AddPeriodicTask(func(context.Context) error {
		st := client.Stats()
		log.Info("bus stats", "frames_received", st.FramesReceived, "bytes_received", st.BytesReceived)
		return nil
	}, *statsEvery)
	if err != nil {
		log.Error("invalid -stats", "error", err)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Printf("📡 Listening on %s (Ctrl+C to stop)\n", cfg.Bus.Addr())
	if err := listener.Run(ctx); err != nil {
		log.Error("listener stopped", "error", err)
		os.Exit(1)
	}
}

func onEstimatedState(msg protocol.Message) {
	st, err := msg.GetEstimatedState()
	if err != nil {
		log.Warn("bad EstimatedState", "error", err)
		return
	}
	fmt.Printf("[EstimatedState] lat %.6f lon %.6f depth %.2fm heading %.1f°\n",
		st.Lat, st.Lon, st.Depth, st.Psi*180/math.Pi)
}

func onSimulatedState(msg protocol.Message) {
	st, err := msg.GetSimulatedState()
	if err != nil {
		log.Warn("bad SimulatedState", "error", err)
		return
	}
	fmt.Printf("[SimulatedState] x %.2f y %.2f z %.2f\n", st.X, st.Y, st.Z)
}
