// Package config holds the editor configuration. Defaults come from the
// environment (optionally loaded from a .env file by main), command-line
// flags override them.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/Conceptual-Machines/hb100-editor/internal/logger"
)

// Config holds the application configuration.
type Config struct {
	// Behaviour
	Interactive  bool
	HTTPPort     int
	Offline      bool
	NoInit       bool
	NoGetPresets bool
	NoGetExtras  bool

	// Presets
	SavePresetsFolder string
	ChangePreset      int
	PresetFileIn      string
	PresetFileOut     string
	PHBFileIn         string
	PHBFileOut        string
	UploadPreset      int

	// Logging
	DebugLevel      int
	DebugTimestamps bool
	DisableColors   bool
	DebugLibusb     int

	// Observability
	SentryDSN   string
	Environment string
}

// Load builds a configuration from environment defaults.
func Load() *Config {
	return &Config{
		HTTPPort:    getEnvInt("HB100_HTTP_PORT", 0),
		DebugLevel:  getEnvInt("HB100_DEBUG_LEVEL", logger.LevelInfo),
		SentryDSN:   getEnv("SENTRY_DSN", ""),
		Environment: getEnv("ENVIRONMENT", "development"),
	}
}

// ParseFlags applies command-line flags on top of the configuration. It
// returns an error on unknown flags or malformed values; --help is handled
// by pflag and reported as pflag.ErrHelp.
func (c *Config) ParseFlags(args []string) error {
	flags := pflag.NewFlagSet("hb100-editor", pflag.ContinueOnError)
	flags.BoolVarP(&c.Interactive, "interactive", "i", c.Interactive,
		"Provide a CLI to interact with the device (default=no, quit when done)")
	flags.IntVarP(&c.HTTPPort, "http-ws", "H", c.HTTPPort,
		"Expose an HTTP/WebSocket API on the provided port (default=0, disabled)")
	flags.BoolVarP(&c.Offline, "offline", "o", c.Offline,
		"Don't connect to the device via USB (default=always connect)")
	flags.BoolVarP(&c.NoInit, "no-init", "I", c.NoInit,
		"Don't send the initialization messages at startup (default=no)")
	flags.BoolVarP(&c.NoGetPresets, "no-get-presets", "G", c.NoGetPresets,
		"Don't retrieve all presets at startup (default=no)")
	flags.BoolVarP(&c.NoGetExtras, "no-get-extras", "E", c.NoGetExtras,
		"Don't retrieve extras (IRs?) at startup (default=no)")
	flags.StringVarP(&c.SavePresetsFolder, "save-presets", "s", c.SavePresetsFolder,
		"Folder to store all retrieved presets to by default (default=none, don't save presets)")
	flags.IntVarP(&c.ChangePreset, "change-preset", "c", c.ChangePreset,
		"Change the current preset at startup (default=0, which means no)")
	flags.StringVarP(&c.PresetFileIn, "preset-in", "b", c.PresetFileIn,
		"Binary preset file to read at startup (default=none)")
	flags.StringVarP(&c.PresetFileOut, "preset-out", "B", c.PresetFileOut,
		"Binary preset file to write at startup (default=none)")
	flags.StringVarP(&c.PHBFileIn, "phb-in", "p", c.PHBFileIn,
		"PHB preset file to read at startup (default=none)")
	flags.StringVarP(&c.PHBFileOut, "phb-out", "P", c.PHBFileOut,
		"PHB preset file to write at startup (default=none)")
	flags.IntVarP(&c.UploadPreset, "upload-preset", "u", c.UploadPreset,
		"Upload the imported preset to the specified preset number (default=0, don't upload anything)")
	flags.IntVarP(&c.DebugLevel, "debug-level", "d", c.DebugLevel,
		"Debug/logging level (0=disable debugging, 7=maximum debug level; default=4)")
	flags.BoolVarP(&c.DebugTimestamps, "debug-timestamps", "t", c.DebugTimestamps,
		"Enable debug/logging timestamps")
	flags.BoolVarP(&c.DisableColors, "disable-colors", "C", c.DisableColors,
		"Disable color in the logging")
	flags.IntVarP(&c.DebugLibusb, "libusb-debug", "D", c.DebugLibusb,
		"Debug/logging level for libusb (0=disable libusb debugging, 4=maximum libusb debug level; default=0)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	return c.normalize()
}

func (c *Config) normalize() error {
	if c.HTTPPort < 0 {
		logger.Warn("Negative HTTP/WebSocket port, disabling the API", logger.Fields{"port": c.HTTPPort})
		c.HTTPPort = 0
	}
	if c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP/WebSocket port %d", c.HTTPPort)
	}
	if c.DebugLevel < 0 {
		c.DebugLevel = 0
	}
	if c.DebugLevel > logger.LevelHuge {
		c.DebugLevel = logger.LevelHuge
	}
	if c.DebugLibusb < 0 {
		c.DebugLibusb = 0
	}
	if c.DebugLibusb > 4 {
		c.DebugLibusb = 4
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
