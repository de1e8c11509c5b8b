/*
 * Copyright 2026 the AssetRadar Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package config loads pipeline configuration from JSON or YAML files and
// validates it at the process boundary.
package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/assetradar/assetradar/pkg/logger"
)

// ConfigLoader reads configuration from some source into dst.
type ConfigLoader interface {
	Load(ctx context.Context, path string, dst interface{}) error
}

// Validator is implemented by configs that can check their own shape.
type Validator interface {
	Validate() error
}

// Defaulter is implemented by configs that fill zero values before validation.
type Defaulter interface {
	ApplyDefaults()
}

// Config holds the configuration loading dependencies.
type Config struct {
	logger logger.Logger
}

// NewConfig initializes a Config. If log is nil a minimal stderr logger is
// used so config loading failures are never silent.
func NewConfig(log logger.Logger) *Config {
	if log == nil {
		zlog := zerolog.New(os.Stderr).
			Level(zerolog.WarnLevel).
			With().
			Timestamp().
			Logger()
		log = logger.NewFromZerolog(zlog)
	}

	return &Config{logger: log}
}

// ValidateConfig validates a configuration if it implements Validator.
func ValidateConfig(cfg interface{}) error {
	v, ok := cfg.(Validator)
	if !ok {
		return nil
	}

	return v.Validate()
}

// Load reads a configuration file into cfg without defaulting or validation.
// Callers that overlay values from other sources (flags, environment) run
// validation themselves once the overlay is complete.
func (c *Config) Load(ctx context.Context, path string, cfg interface{}) error {
	return c.loaderFor(path).Load(ctx, path, cfg)
}

// LoadAndValidate loads a configuration file, applies defaults, and validates
// it. The codec is chosen by file extension; anything that is not .yaml or
// .yml is treated as JSON.
func (c *Config) LoadAndValidate(ctx context.Context, path string, cfg interface{}) error {
	if err := c.Load(ctx, path, cfg); err != nil {
		return err
	}

	if d, ok := cfg.(Defaulter); ok {
		d.ApplyDefaults()
	}

	return ValidateConfig(cfg)
}

func (c *Config) loaderFor(path string) ConfigLoader {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return &YAMLConfigLoader{logger: c.logger}
	default:
		return &FileConfigLoader{logger: c.logger}
	}
}
