package backend

import (
	"errors"
	"fmt"
	"strings"

	"projecttracker/internal/config"
)

// FromAppConfig picks the backend settings out of the process config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}
	cfg := Config{
		Type:         BackendType(appConfig.DataBackend),
		SQLiteDBPath: appConfig.SQLiteDBPath,
	}
	if !cfg.Type.IsValid() {
		return Config{}, unknownType(cfg.Type)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return unknownType(c.Type)
	}
	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		return errors.New("sqlite backend needs a database path")
	}
	return nil
}

// Types lists the supported backends, the default first.
func Types() []BackendType {
	return []BackendType{SQLiteBackend, MemoryBackend}
}

func unknownType(t BackendType) error {
	names := make([]string, 0, 2)
	for _, bt := range Types() {
		names = append(names, bt.String())
	}
	return fmt.Errorf("unknown backend %q (want %s)", t, strings.Join(names, " or "))
}
