// control/hotreload.go
// Author: momentics <momentics@gmail.com>
//
// Re-reads the configuration file and pushes changed keys into a ConfigStore.

package control

import (
	"context"
	"os"
	"os/signal"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// ReloadFile decodes path over defaults and publishes the result to store.
// Only keys whose value changed reach the store listeners.
func ReloadFile(store *ConfigStore, path string, defaults Config) error {
	cfg := defaults
	if err := LoadConfig(path, &cfg); err != nil {
		return err
	}
	return store.SetConfig(cfg.Flatten())
}

// WatchSignals calls ReloadFile every time one of sigs arrives, until ctx is
// done. Reload failures are logged and the previous values stay in effect.
func WatchSignals(ctx context.Context, logger log.Logger, store *ConfigStore, path string, defaults Config, sigs ...os.Signal) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)
	defer signal.Stop(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
			if err := ReloadFile(store, path, defaults); err != nil {
				level.Warn(logger).Log("msg", "config reload failed", "path", path, "err", err)
				continue
			}
			level.Info(logger).Log("msg", "config reloaded", "path", path)
		}
	}
}
