package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"aodash/config"
	"aodash/session"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix = "AODASH"

	keyConfig   = "config"
	keyState    = "state"
	keyUI       = "ui"
	keyInterval = "interval"
	keySelf     = "self"
)

// bindSettings makes every flag also readable from AODASH_<NAME>.
func bindSettings(v *viper.Viper, flags *pflag.FlagSet) {
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	_ = v.BindPFlags(flags)
}

// Purpose: Load the config file and apply flag/env overrides.
// Key aspects: A missing default config.json falls back to built-in defaults;
// an explicitly named file that is missing is an error.
// Upstream: root, snapshot and config commands.
// Downstream: config.Load, config.Normalize.
func resolveConfig(v *viper.Viper) (*config.Config, error) {
	cfg, err := loadConfigFile(strings.TrimSpace(v.GetString(keyConfig)))
	if err != nil {
		return nil, err
	}

	if v.IsSet(keyState) {
		if path := strings.TrimSpace(v.GetString(keyState)); path != "" {
			cfg.StateFilePath = path
		}
	}
	if v.IsSet(keyUI) {
		if mode := strings.TrimSpace(v.GetString(keyUI)); mode != "" {
			cfg.UI.Mode = mode
		}
	}
	if v.IsSet(keyInterval) {
		if interval := v.GetDuration(keyInterval); interval != 0 {
			cfg.UI.RefreshMS = int(interval.Milliseconds())
			if cfg.UI.RefreshMS == 0 {
				return nil, fmt.Errorf("--interval %s is below one millisecond", interval)
			}
		}
	}
	if v.IsSet(keySelf) {
		cfg.UI.SelfName = v.GetString(keySelf)
	}
	if err := cfg.Normalize(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return cfg, nil
}

func loadConfigFile(explicit string) (*config.Config, error) {
	if explicit != "" {
		return config.Load(explicit)
	}
	cfg, err := config.Load(config.DefaultPath)
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return cfg, err
}

// sessionOptions maps presentation settings onto reconcile options.
func sessionOptions(cfg *config.Config) (session.Options, error) {
	progress, err := session.ProgressPolicyByName(cfg.UI.Progress)
	if err != nil {
		return session.Options{}, err
	}
	return session.Options{
		SelfName:     cfg.UI.SelfName,
		ChatLines:    cfg.UI.ChatLines,
		LootLines:    cfg.UI.LootLines,
		Progress:     progress,
		CollapseLoot: cfg.CollapseLootEnabled(),
		CollapseChat: cfg.UI.CollapseChat,
	}, nil
}
