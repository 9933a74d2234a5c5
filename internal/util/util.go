package util

import (
	log "github.com/sirupsen/logrus"

	"github.com/omnichat-dev/omnichat/internal/config"
)

// SetLogLevel configures the logrus log level based on the configuration.
// It sets the log level to DebugLevel if debug mode is enabled, otherwise to InfoLevel.
func SetLogLevel(cfg *config.Config) {
	currentLevel := log.GetLevel()
	var newLevel log.Level
	if cfg.Debug {
		newLevel = log.DebugLevel
	} else {
		newLevel = log.InfoLevel
	}

	if currentLevel != newLevel {
		log.SetLevel(newLevel)
		log.Infof("log level changed from %s to %s (debug=%t)", currentLevel, newLevel, cfg.Debug)
	}
}

// InArray reports whether needle is present in hystack.
func InArray(hystack []string, needle string) bool {
	for _, item := range hystack {
		if item == needle {
			return true
		}
	}
	return false
}
