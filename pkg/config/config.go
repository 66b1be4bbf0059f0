// Package config provides configuration management for cf5223dbg.
// It reads settings from coldfiredbg.ini using multiple search paths.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"
)

// Config holds all configuration settings for cf5223dbg.
type Config struct {
	// USB pod identification
	USBVendor  uint16
	USBProduct uint16

	// GDB RSP server
	GDBPort int

	// Flashloader image search path override
	FlashloaderPath string

	// Operation timeouts, in seconds. They are read from the ini file
	// only; the pod session and the debugger do not consult them (the
	// freeze check uses a fixed 500 ms, continue a fixed 5 s).
	FreezeTimeout   int
	ContinueTimeout int

	Verbose bool
}

// Load reads configuration from coldfiredbg.ini in the following search
// order:
//  1. Current directory (./coldfiredbg.ini)
//  2. $COLDFIREDBG directory ($COLDFIREDBG/coldfiredbg.ini)
//  3. Home directory (~/coldfiredbg.ini)
//
// A missing file is not an error: built-in defaults are used, so a
// plain `cf5223dbg` with no config still runs.
func Load() (*Config, error) {
	var searchPaths []string

	searchPaths = append(searchPaths, filepath.Join(".", "coldfiredbg.ini"))

	if dir := os.Getenv("COLDFIREDBG"); dir != "" {
		searchPaths = append(searchPaths, filepath.Join(dir, "coldfiredbg.ini"))
	}

	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, "coldfiredbg.ini"))
	}

	cfg := &Config{
		USBVendor:       0x1357,
		USBProduct:      0x0503,
		GDBPort:         3333,
		FlashloaderPath: "",
		FreezeTimeout:   5,
		ContinueTimeout: 5,
		Verbose:         false,
	}

	var iniFile *ini.File
	var err error

	for _, path := range searchPaths {
		if _, statErr := os.Stat(path); statErr == nil {
			iniFile, err = ini.Load(path)
			if err == nil {
				break
			}
		}
	}

	if iniFile == nil {
		return cfg, nil
	}

	section := iniFile.Section("DEFAULT")

	cfg.USBVendor = uint16(section.Key("usb_vendor").MustUint(uint(cfg.USBVendor)))
	cfg.USBProduct = uint16(section.Key("usb_product").MustUint(uint(cfg.USBProduct)))
	cfg.GDBPort = section.Key("gdb_port").MustInt(cfg.GDBPort)
	cfg.FlashloaderPath = section.Key("flashloader_path").MustString(cfg.FlashloaderPath)
	cfg.FreezeTimeout = section.Key("freeze_timeout").MustInt(cfg.FreezeTimeout)
	cfg.ContinueTimeout = section.Key("continue_timeout").MustInt(cfg.ContinueTimeout)
	cfg.Verbose = section.Key("verbose").MustBool(cfg.Verbose)

	return cfg, nil
}

// ResolveFlashloaderPath finds the on-disk flashloader ELF image, trying
// the configured override first, then the current directory's
// flashloader/ subdirectory, then the system-wide install location.
func (c *Config) ResolveFlashloaderPath() (string, error) {
	var candidates []string
	if c.FlashloaderPath != "" {
		candidates = append(candidates, c.FlashloaderPath)
	}
	candidates = append(candidates,
		filepath.Join("flashloader", "flashloader.elf"),
		"/usr/local/share/openlink-coldfire/flashloader/flashloader.elf",
	)

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", &FlashloaderNotFoundError{Candidates: candidates}
}

// FlashloaderNotFoundError reports that no flashloader image could be
// located at any of the searched paths.
type FlashloaderNotFoundError struct {
	Candidates []string
}

func (e *FlashloaderNotFoundError) Error() string {
	msg := "flashloader image not found, tried:"
	for _, c := range e.Candidates {
		msg += " " + c
	}
	return msg
}
