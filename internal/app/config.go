package app

import (
	"fmt"
	"strings"
)

const (
	defaultLogLevel  = "info"
	defaultLogFormat = "text"
	defaultRemote    = "origin"
)

var supportedLogFormats = map[string]struct{}{
	"text": {},
	"json": {},
}

var supportedLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

// Config captures runtime options sourced from command-line flags.
type Config struct {
	Branch    string
	Force     bool
	DryRun    bool
	Remote    string
	LogLevel  string
	LogFormat string

	// WorkDir overrides the repository root, defaults to the process working
	// directory.
	WorkDir string
}

// Normalize applies defaults and validates the configuration.
func (c *Config) Normalize() error {
	c.Branch = strings.TrimSpace(c.Branch)
	c.Remote = strings.TrimSpace(c.Remote)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))

	if c.Remote == "" {
		c.Remote = defaultRemote
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = defaultLogFormat
	}

	if _, ok := supportedLogLevels[c.LogLevel]; !ok {
		return fmt.Errorf("unsupported log level %q", c.LogLevel)
	}
	if _, ok := supportedLogFormats[c.LogFormat]; !ok {
		return fmt.Errorf("unsupported log format %q", c.LogFormat)
	}

	return nil
}
