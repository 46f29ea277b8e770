// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the project config file looked up at the scan root.
const FileName = ".acp.yaml"

// Read loads <root>/.acp.yaml.
//
// A missing file is not an error: the defaults apply. Keys absent from
// the file keep their default values.
func Read(root string) (ProjectConfig, error) {
	cfg := DefaultConfig()
	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read the config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// WriteDefault creates <root>/.acp.yaml with the default configuration
// and returns its path. An existing file is left alone and reported
// with fs.ErrExist.
func WriteDefault(root string) (string, error) {
	path := filepath.Join(root, FileName)
	if _, err := os.Stat(path); err == nil {
		return path, fs.ErrExist
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return path, err
	}
	return path, os.WriteFile(path, data, 0644)
}
