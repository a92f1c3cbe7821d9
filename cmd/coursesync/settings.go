package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/devkat/CodeExpertDesktop/pkg/fsutil"
)

// settings is the CLI's view of spec.md §6's settings.json: a flat
// key-value store; login writes clientId, projectDir, and server into it.
type settings map[string]string

func settingsPath(storePath string) string {
	return filepath.Join(filepath.Dir(storePath), "settings.json")
}

func loadSettings(path string) settings {
	data, err := os.ReadFile(path)
	if err != nil {
		return settings{}
	}
	var s settings
	if err := json.Unmarshal(data, &s); err != nil {
		return settings{}
	}
	return s
}

func saveSettings(path string, s settings) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return fsutil.WriteFile(path, data, false)
}
