package app

import (
	"strings"

	"github.com/charlesng35/axoncache/pkg/logger"
)

// ConfigureLogging initialises the global logger from the server section, defaulting to info.
func ConfigureLogging(cfg ServerConfig) error {
	level := strings.TrimSpace(cfg.LogLevel)
	if level == "" {
		level = "info"
	}
	return logger.Init(logger.Config{Level: level, Format: cfg.LogFormat})
}
