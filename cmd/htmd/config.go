package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// maxConfigSize limits config files read with --config.
const maxConfigSize = 1 << 20

var errConfigTooLarge = errors.New("config exceeds maximum size")

// fileConfig is the YAML form of the command line flags.
type fileConfig struct {
	Origin  string   `yaml:"origin"`
	Preset  string   `yaml:"preset"`
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
	Output  string   `yaml:"output"`
	Verbose bool     `yaml:"verbose"`
}

func loadConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	return parseConfig(data)
}

// parseConfig decodes strictly: unknown keys are errors.
func parseConfig(data []byte) (fileConfig, error) {
	var cfg fileConfig
	if len(data) > maxConfigSize {
		return cfg, fmt.Errorf("%w: %d bytes (max %d)", errConfigTooLarge, len(data), maxConfigSize)
	}
	if len(data) == 0 {
		return cfg, nil
	}
	if err := yaml.UnmarshalWithOptions(data, &cfg, yaml.Strict()); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	return cfg, nil
}

// apply copies config values into opts for every flag not set explicitly.
func (c fileConfig) apply(opts *options, changed func(string) bool) {
	if !changed("origin") && c.Origin != "" {
		opts.origin = c.Origin
	}
	if !changed("preset") && c.Preset != "" {
		opts.preset = c.Preset
	}
	if !changed("include") && len(c.Include) > 0 {
		opts.include = c.Include
	}
	if !changed("exclude") && len(c.Exclude) > 0 {
		opts.exclude = c.Exclude
	}
	if !changed("output") && c.Output != "" {
		opts.outPath = c.Output
	}
	if !changed("verbose") && c.Verbose {
		opts.verbose = true
	}
}
