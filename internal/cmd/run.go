// Package cmd wires the OmniChat service together: configuration, the chat
// state and persistence, the HTTP server, the config watcher and graceful
// shutdown.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/omnichat-dev/omnichat/internal/api"
	"github.com/omnichat-dev/omnichat/internal/browser"
	"github.com/omnichat-dev/omnichat/internal/chat"
	"github.com/omnichat-dev/omnichat/internal/config"
	"github.com/omnichat-dev/omnichat/internal/logging"
	"github.com/omnichat-dev/omnichat/internal/store"
	"github.com/omnichat-dev/omnichat/internal/util"
	"github.com/omnichat-dev/omnichat/internal/watcher"
)

// StartService runs the chat server until SIGINT or SIGTERM.
func StartService(cfg *config.Config, configPath string) {
	util.SetLogLevel(cfg)
	if err := logging.ConfigureLogOutput(cfg.LoggingToFile); err != nil {
		log.Warnf("failed to configure log output: %v", err)
	}

	chatStore, err := store.Open(cfg.ChatDBPath)
	if err != nil {
		log.Fatalf("failed to open chat database: %v", err)
	}

	st := chat.NewState()
	apiServer := api.NewServer(cfg, st, chatStore, configPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	configWatcher, errWatcher := watcher.NewWatcher(configPath, cfg, apiServer.ApplyConfig)
	if errWatcher != nil {
		log.Warnf("config watcher unavailable: %v", errWatcher)
	} else {
		if errStart := configWatcher.Start(ctx); errStart != nil {
			log.Warnf("config watcher failed to start: %v", errStart)
		}
		defer func() {
			_ = configWatcher.Stop()
		}()
	}

	go func() {
		log.Infof("Starting chat server on port %d", cfg.Port)
		if errServe := apiServer.Start(); errServe != nil {
			log.Fatalf("chat server failed to start: %v", errServe)
		}
	}()

	if cfg.OpenBrowser {
		go func() {
			// Give the listener a moment before pointing the browser at it.
			time.Sleep(500 * time.Millisecond)
			url := fmt.Sprintf("http://localhost:%d/", cfg.Port)
			if errOpen := browser.OpenURL(url); errOpen != nil {
				log.Warnf("could not open browser: %v", errOpen)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Debugf("Received shutdown signal. Cleaning up...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()
	if errStop := apiServer.Stop(shutdownCtx); errStop != nil {
		log.Debugf("Error stopping chat server: %v", errStop)
	}
	if errClose := chatStore.Close(); errClose != nil {
		log.Debugf("Error closing chat database: %v", errClose)
	}
	log.Debugf("Cleanup completed. Exiting...")
}
