package main

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/teslashibe/go-petinga/pkg/vehicle"
)

type sweep struct {
	first, last     int
	low, high, step float64
	delay           time.Duration
}

func (s sweep) validate() error {
	if s.first < vehicle.MinServoID || s.last > vehicle.MaxServoID || s.first > s.last {
		return fmt.Errorf("fin range %d-%d outside %d-%d", s.first, s.last, vehicle.MinServoID, vehicle.MaxServoID)
	}
	if s.low < vehicle.MinPosition || s.high > vehicle.MaxPosition {
		return fmt.Errorf("positions %.2f..%.2f outside [%v, %v]", s.low, s.high, vehicle.MinPosition, vehicle.MaxPosition)
	}
	if s.low >= s.high {
		return fmt.Errorf("low %.2f must be below high %.2f", s.low, s.high)
	}
	if s.step <= 0 {
		return fmt.Errorf("step must be positive, got %.2f", s.step)
	}
	if s.delay <= 0 {
		return fmt.Errorf("delay must be positive, got %s", s.delay)
	}
	return nil
}

// positions returns one full cycle: low up to high, then back down,
// without repeating the turning points.
func (s sweep) positions() []float64 {
	var up []float64
	for v := s.low; v <= s.high+1e-9; v += s.step {
		up = append(up, math.Min(v, s.high))
	}
	if last := up[len(up)-1]; last < s.high-1e-9 {
		up = append(up, s.high)
	}

	cycle := append([]float64(nil), up...)
	for i := len(up) - 2; i > 0; i-- {
		cycle = append(cycle, up[i])
	}
	return cycle
}

// run sweeps until ctx is cancelled. Cancellation is not an error.
func (s sweep) run(ctx context.Context, ctrl vehicle.ServoController) error {
	ticker := time.NewTicker(s.delay)
	defer ticker.Stop()

	cycle := s.positions()
	for i := 0; ; i = (i + 1) % len(cycle) {
		for id := s.first; id <= s.last; id++ {
			if err := ctrl.SetServoPosition(vehicle.ServoID(id), cycle[i]); err != nil {
				return err
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
