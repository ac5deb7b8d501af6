// Package config loads the scrollkeep runtime configuration: where the
// backing files live and where managed copies of uploads and profile
// pictures are stored.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// Config holds every configurable path. All paths may be relative to the
// working directory.
type Config struct {
	DataDir           string `json:"dataDir"`
	AccountsFile      string `json:"accountsFile"`
	ArtifactsFile     string `json:"artifactsFile"`
	UploadDir         string `json:"uploadDir"`
	ProfilePictureDir string `json:"profilePictureDir"`
}

// Default returns the stock layout under ./data.
func Default() Config {
	return Config{
		DataDir:           "data",
		AccountsFile:      filepath.Join("data", "users.db"),
		ArtifactsFile:     filepath.Join("data", "scrolls", "scrolls.db"),
		UploadDir:         filepath.Join("data", "uploads"),
		ProfilePictureDir: filepath.Join("data", "profile_pictures"),
	}
}

// Load reads the JSON config at path. A missing file is not an error: the
// defaults are written there for next time and returned. Fields left blank
// in the file fall back to their defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			if writeErr := cfg.write(path); writeErr != nil {
				log.Printf("WARN: Failed to write default config %s: %v", path, writeErr)
			} else {
				log.Printf("INFO: Created default config at %s", path)
			}
			return cfg, nil
		}
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.fillDefaults()
	return cfg, nil
}

// EnsureDirs creates the data tree.
func (c Config) EnsureDirs() error {
	for _, dir := range []string{
		c.DataDir,
		filepath.Dir(c.AccountsFile),
		filepath.Dir(c.ArtifactsFile),
		c.UploadDir,
		c.ProfilePictureDir,
	} {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

func (c *Config) fillDefaults() {
	defaults := Default()
	if c.DataDir == "" {
		c.DataDir = defaults.DataDir
	}
	if c.AccountsFile == "" {
		c.AccountsFile = defaults.AccountsFile
	}
	if c.ArtifactsFile == "" {
		c.ArtifactsFile = defaults.ArtifactsFile
	}
	if c.UploadDir == "" {
		c.UploadDir = defaults.UploadDir
	}
	if c.ProfilePictureDir == "" {
		c.ProfilePictureDir = defaults.ProfilePictureDir
	}
}

func (c Config) write(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}
