package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/teslashibe/go-petinga/pkg/jsonbus"
	"github.com/teslashibe/go-petinga/pkg/vehicle"
	"gopkg.in/yaml.v3"
)

// DefaultConsoleAddr is where the operator console listens.
const DefaultConsoleAddr = ":8080"

// File is the on-disk configuration shared by all commands. Durations are
// written as Go duration strings ("500ms", "5s").
type File struct {
	Bus     jsonbus.Config `yaml:"bus"`
	Vehicle VehicleConfig  `yaml:"vehicle"`
	Console ConsoleConfig  `yaml:"console"`
	Log     LogConfig      `yaml:"log"`
}

// VehicleConfig holds controller options.
type VehicleConfig struct {
	AckMode    vehicle.AckMode `yaml:"ack_mode"`
	AckTimeout time.Duration   `yaml:"ack_timeout"`
}

// ConsoleConfig holds operator console options.
type ConsoleConfig struct {
	Addr string `yaml:"addr"`
	// Telemetry lists message kinds forwarded to /ws/telemetry.
	// Empty forwards everything.
	Telemetry []string `yaml:"telemetry"`
}

// LogConfig holds logging options.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() File {
	v := vehicle.DefaultConfig()
	return File{
		Bus: v.Config,
		Vehicle: VehicleConfig{
			AckMode:    v.AckMode,
			AckTimeout: v.AckTimeout,
		},
		Console: ConsoleConfig{Addr: DefaultConsoleAddr},
		Log:     LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// An empty path skips the file. Unknown keys are an error.
func Load(path string) (File, error) {
	f := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return File{}, fmt.Errorf("could not open config file: %w", err)
		}
		if err := decode(data, &f); err != nil {
			return File{}, fmt.Errorf("could not parse config file %s: %w", path, err)
		}
	}

	if err := f.ApplyEnv(); err != nil {
		return File{}, err
	}
	if err := f.Validate(); err != nil {
		return File{}, fmt.Errorf("invalid config: %w", err)
	}
	return f, nil
}

func decode(data []byte, f *File) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides host, port and log level from the environment.
func (f *File) ApplyEnv() error {
	f.Bus.Host = Host(f.Bus.Host)
	port, err := Port(f.Bus.Port)
	if err != nil {
		return err
	}
	f.Bus.Port = port
	f.Log.Level = LogLevel(f.Log.Level)
	return nil
}

// VehicleConfig assembles the controller configuration.
func (f File) VehicleConfig() vehicle.Config {
	return vehicle.Config{
		Config:     f.Bus,
		AckMode:    f.Vehicle.AckMode,
		AckTimeout: f.Vehicle.AckTimeout,
	}
}

// Validate checks the whole file.
func (f File) Validate() error {
	if err := f.VehicleConfig().Validate(); err != nil {
		return err
	}
	if f.Console.Addr == "" {
		return errors.New("console.addr is required")
	}
	return nil
}
