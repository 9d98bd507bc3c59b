// Package config loads navtexrx's configuration from an optional ini file,
// following the sdrctl staged-pipeline config idiom: a defaults struct
// populated by ini.MapToWithMapper, overridable by CLI flags.
package config

import (
	"errors"
	"os"

	"gopkg.in/ini.v1"
)

const (
	// EnvVar names the environment variable pointing at a config file.
	EnvVar = "NAVTEXRX_CONFIG_FILE"
)

// ErrConfigNotFound is returned when an explicitly-requested config file
// does not exist.
var ErrConfigNotFound = errors.New("navtexrx: unable to find configuration file")

// Config holds every tunable of the receive chain and CLI, loadable from an
// ini file plus overridable by flags. Section and key names are the field
// names in lower snake case (ini.TitleUnderscore), e.g. [receiver]
// sample_rate.
type Config struct {
	Receiver struct {
		SampleRate int
		OnlySitorB bool
		Reverse    bool
		LogLevel   string
	}
	IO struct {
		InputPath  string
		OutputPath string
	}
}

// Defaults returns the built-in configuration used when no file is present
// and no flags override it.
func Defaults() Config {
	var c Config
	c.Receiver.SampleRate = 8000
	c.Receiver.LogLevel = "WARN"
	c.IO.InputPath = "-"
	c.IO.OutputPath = "-"
	return c
}

// Load reads path (if non-empty) into a Config seeded with Defaults. An
// empty path is not an error: the defaults are returned unchanged.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}

	if err := ini.MapToWithMapper(&cfg, ini.TitleUnderscore, path); err != nil {
		if os.IsNotExist(err) {
			return Config{}, ErrConfigNotFound
		}
		return Config{}, err
	}
	return cfg, nil
}

// FileFromEnv resolves a config file path: an explicit CLI flag wins, then
// the environment variable, then "no config file" (empty string).
func FileFromEnv(cliFlag string) string {
	if cliFlag != "" {
		return cliFlag
	}
	return os.Getenv(EnvVar)
}
