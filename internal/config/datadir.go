package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// ResolveDataDir returns the directory for the search index and lock file,
// creating it when needed. An explicit data_dir wins; otherwise the user home
// directory is tried first, then a data directory next to the executable,
// then ./data.
func (c *Config) ResolveDataDir(log *zap.Logger) (string, error) {
	if c.DataDir != "" {
		dir, err := filepath.Abs(c.DataDir)
		if err != nil {
			return "", fmt.Errorf("invalid data directory %q: %w", c.DataDir, err)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("unable to create data directory: %w", err)
		}
		log.Debug("Data directory", zap.String("path", dir), zap.String("from", "config"))
		return dir, nil
	}

	if home, err := os.UserHomeDir(); err == nil {
		dir := filepath.Join(home, "."+AppName)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			log.Debug("Data directory", zap.String("path", dir), zap.String("from", "home"))
			return dir, nil
		}
		err := os.MkdirAll(dir, 0755)
		if err == nil {
			log.Info("Data directory created", zap.String("path", dir))
			return dir, nil
		}
		log.Warn("Could not create user data directory", zap.String("path", dir), zap.Error(err))
	} else {
		log.Warn("Could not determine user home directory", zap.Error(err))
	}

	if exe, err := os.Executable(); err == nil {
		dir := filepath.Join(filepath.Dir(exe), "data")
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			log.Debug("Data directory", zap.String("path", dir), zap.String("from", "executable"))
			return dir, nil
		}
	}

	dir, err := filepath.Abs("data")
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("unable to create data directory: %w", err)
	}
	log.Warn("Using fallback data directory", zap.String("path", dir))
	return dir, nil
}
