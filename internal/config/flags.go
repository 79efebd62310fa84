package config

import "flag"

// Flags are the command-line options shared by every command. Set flags
// win over the config file and the environment.
type Flags struct {
	Config string
	Host   string
	Port   int
	Debug  bool
}

// RegisterFlags defines the shared flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	fl := &Flags{}
	fs.StringVar(&fl.Config, "config", "", "YAML config file")
	fs.StringVar(&fl.Host, "host", "", "JSONBus host (or set "+EnvHost+")")
	fs.IntVar(&fl.Port, "port", 0, "JSONBus port (or set "+EnvPort+")")
	fs.BoolVar(&fl.Debug, "debug", false, "Enable debug logging")
	return fl
}

// Load reads the config file named by -config and applies the flags.
func (fl *Flags) Load() (File, error) {
	f, err := Load(fl.Config)
	if err != nil {
		return File{}, err
	}
	if fl.Host != "" {
		f.Bus.Host = fl.Host
	}
	if fl.Port != 0 {
		f.Bus.Port = fl.Port
	}
	if fl.Debug {
		f.Log.Level = "debug"
	}
	if err := f.Validate(); err != nil {
		return File{}, err
	}
	return f, nil
}
