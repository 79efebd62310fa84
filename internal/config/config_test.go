package config

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/teslashibe/go-petinga/pkg/vehicle"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "petinga.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Setenv(EnvHost, "")
	t.Setenv(EnvPort, "")
	t.Setenv(EnvLogLevel, "")
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	f, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if f.Bus.Host != "localhost" || f.Bus.Port != 9005 {
		t.Errorf("bus = %s:%d, want localhost:9005", f.Bus.Host, f.Bus.Port)
	}
	if f.Vehicle.AckMode != vehicle.AckNone {
		t.Errorf("ack mode = %q", f.Vehicle.AckMode)
	}
	if f.Console.Addr != DefaultConsoleAddr {
		t.Errorf("console addr = %q", f.Console.Addr)
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
bus:
  host: 10.0.10.70
  port: 9006
  receive_timeout: 750ms
vehicle:
  ack_mode: response
  ack_timeout: 1s
console:
  addr: 127.0.0.1:9090
  telemetry: [EstimatedState]
log:
  level: debug
`)

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if f.Bus.Host != "10.0.10.70" || f.Bus.Port != 9006 {
		t.Errorf("bus = %s:%d", f.Bus.Host, f.Bus.Port)
	}
	if f.Bus.ReceiveTimeout != 750*time.Millisecond {
		t.Errorf("receive timeout = %v", f.Bus.ReceiveTimeout)
	}
	// Keys absent from the file keep their defaults.
	if f.Bus.ConnectTimeout != 5*time.Second {
		t.Errorf("connect timeout = %v", f.Bus.ConnectTimeout)
	}

	vc := f.VehicleConfig()
	if vc.AckMode != vehicle.AckResponse || vc.AckTimeout != time.Second || vc.Host != "10.0.10.70" {
		t.Errorf("vehicle config = %+v", vc)
	}
	if len(f.Console.Telemetry) != 1 || f.Console.Telemetry[0] != "EstimatedState" {
		t.Errorf("telemetry = %v", f.Console.Telemetry)
	}
	if f.Log.Level != "debug" {
		t.Errorf("log level = %q", f.Log.Level)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvHost, "buv.local")
	t.Setenv(EnvPort, "9100")
	t.Setenv(EnvLogLevel, "warn")

	f, err := Load(writeFile(t, "bus:\n  host: ignored\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if f.Bus.Host != "buv.local" || f.Bus.Port != 9100 || f.Log.Level != "warn" {
		t.Errorf("got %s:%d level %s", f.Bus.Host, f.Bus.Port, f.Log.Level)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     string
		want    string
	}{
		{"unknown key", "bus:\n  hots: x\n", "", "hots"},
		{"bad duration", "bus:\n  connect_timeout: soon\n", "", "soon"},
		{"bad ack mode", "vehicle:\n  ack_mode: maybe\n", "", "ack_mode"},
		{"bad port env", "", "nine", EnvPort},
		{"empty console addr", "console:\n  addr: \"\"\n", "", "console.addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(EnvPort, tt.env)
			_, err := Load(writeFile(t, tt.content))
			if err == nil {
				t.Fatal("Load() error = nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFlagsOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvHost, "from-env")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fl := RegisterFlags(fs)
	path := writeFile(t, "bus:\n  port: 9006\n")
	if err := fs.Parse([]string{"-config", path, "-host", "10.0.0.5", "-debug"}); err != nil {
		t.Fatal(err)
	}

	f, err := fl.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if f.Bus.Host != "10.0.0.5" || f.Bus.Port != 9006 || f.Log.Level != "debug" {
		t.Errorf("got %s:%d level %s", f.Bus.Host, f.Bus.Port, f.Log.Level)
	}

	fs = flag.NewFlagSet("test", flag.ContinueOnError)
	fl = RegisterFlags(fs)
	fs.Parse([]string{"-port", "70000"})
	if _, err := fl.Load(); err == nil {
		t.Error("out-of-range -port should fail validation")
	}
}
