// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package paths resolves the tool's configuration and data locations.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// GetConfigDir returns the docrecon configuration directory. The
// DOCRECON_CONFIG_DIR environment variable overrides platform defaults.
func GetConfigDir() string {
	if dir := os.Getenv("DOCRECON_CONFIG_DIR"); dir != "" {
		return dir
	}

	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "docrecon")
		}
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "docrecon")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".docrecon"
	}
	return filepath.Join(home, ".docrecon")
}

// GetConfigFile returns the path to the main config file.
func GetConfigFile() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

// GetDataDir returns the default directory for the file-backed store.
func GetDataDir() string {
	if dir := os.Getenv("DOCRECON_DATA_DIR"); dir != "" {
		return dir
	}
	return filepath.Join(GetConfigDir(), "documents")
}
