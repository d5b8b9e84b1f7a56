// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cloud provides components for interacting with Google Cloud services.
// This file holds the configuration loaders.
//
// LoadConfig reads a base file and then overlays an environment specific file
// (".env.toml" then ".env.<runtime>.toml"). The directory and runtime come from the
// GCP_CONFIG_PREFIX and GCP_RUNTIME environment variables. LoadConfigFile reads one
// explicit TOML or YAML file.
package cloud

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	ConfigFileBaseName  = ".env"
	ConfigFileExtension = ".toml"
	ConfigSeparator     = "."
	EnvConfigFilePrefix = "GCP_CONFIG_PREFIX"
	EnvConfigRuntime    = "GCP_RUNTIME"
	DefaultRuntime      = "local"
)

func fileExists(in string) bool {
	_, err := os.Stat(in)
	return !errors.Is(err, os.ErrNotExist)
}

// LoadConfig overlays the base and runtime configuration files onto baseConfig.
// runtime overrides GCP_RUNTIME when not empty. Missing files are skipped.
func LoadConfig(baseConfig interface{}, runtime string) error {
	configurationFilePrefix := os.Getenv(EnvConfigFilePrefix)
	if len(configurationFilePrefix) > 0 && !strings.HasSuffix(configurationFilePrefix, string(os.PathSeparator)) {
		configurationFilePrefix = configurationFilePrefix + string(os.PathSeparator)
	}

	runtimeEnvironment := runtime
	if runtimeEnvironment == "" {
		runtimeEnvironment = os.Getenv(EnvConfigRuntime)
	}
	if runtimeEnvironment == "" {
		runtimeEnvironment = DefaultRuntime
	}

	baseConfigFileName := configurationFilePrefix + ConfigFileBaseName + ConfigFileExtension
	envConfigFileName := configurationFilePrefix + ConfigFileBaseName + ConfigSeparator + runtimeEnvironment + ConfigFileExtension

	for _, name := range []string{baseConfigFileName, envConfigFileName} {
		if !fileExists(name) {
			slog.Debug("configuration file not found, skipping", "file", name)
			continue
		}
		if err := LoadConfigFile(name, baseConfig); err != nil {
			return err
		}
		slog.Debug("loaded configuration file", "file", name)
	}
	return nil
}

// LoadConfigFile decodes a single file into baseConfig. The format follows the
// extension: ".yaml" and ".yml" are YAML, everything else is TOML.
func LoadConfigFile(name string, baseConfig interface{}) error {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read configuration file %s: %w", name, err)
		}
		if err := yaml.Unmarshal(data, baseConfig); err != nil {
			return fmt.Errorf("failed to decode configuration file %s: %w", name, err)
		}
	default:
		if _, err := toml.DecodeFile(name, baseConfig); err != nil {
			return fmt.Errorf("failed to decode configuration file %s: %w", name, err)
		}
	}
	return nil
}
