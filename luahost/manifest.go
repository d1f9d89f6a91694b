package luahost

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest declares a set of chips to load as one unit.
type Manifest struct {
	Chips []ChipEntry `yaml:"chips"`
}

// ChipEntry is a single chip declaration in a manifest.
type ChipEntry struct {
	// Chip name, unique within the host
	Name string `yaml:"name"`

	// Owner key for private group scoping
	Owner string `yaml:"owner"`

	// Script file, relative to the manifest unless absolute
	Script string `yaml:"script"`

	// Groups joined on the chip's behalf after its script runs
	Groups []string `yaml:"groups,omitempty"`
}

// LoadManifest reads and parses a chip manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &manifest, nil
}
