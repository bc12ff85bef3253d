package db

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ObservationsFile is the YAML layout used to seed or import observations
type ObservationsFile struct {
	Observations []Observation `yaml:"observations"`
}

// LoadObservationsFile reads observations from a YAML file
func LoadObservationsFile(path string) ([]Observation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read observations file: %w", err)
	}

	var file ObservationsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse observations file: %w", err)
	}

	return file.Observations, nil
}
