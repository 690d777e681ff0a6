package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/cohort/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// VariantDefinition describes one variant in a definitions file.
type VariantDefinition struct {
	ID      string   `mapstructure:"id"`
	Weight  *float64 `mapstructure:"weight"`
	Action  string   `mapstructure:"action"`
	Payload string   `mapstructure:"payload"`
}

// Definition describes one experiment in a definitions file.
type Definition struct {
	ID          string              `mapstructure:"id"`
	Description string              `mapstructure:"description"`
	SampleSize  *float64            `mapstructure:"sample_size"`
	Expiry      time.Time           `mapstructure:"expiry"`
	Variants    []VariantDefinition `mapstructure:"variants"`
}

// File is the root of experiments.yaml (or .json).
type File struct {
	Experiments []Definition `mapstructure:"experiments"`
}

// Find returns the definition with the given id.
func (f *File) Find(id string) (Definition, bool) {
	for _, d := range f.Experiments {
		if d.ID == id {
			return d, true
		}
	}
	return Definition{}, false
}

// WeightOrDefault returns the declared weight, or domain.DefaultWeight.
func (v VariantDefinition) WeightOrDefault() float64 {
	if v.Weight == nil {
		return domain.DefaultWeight
	}
	return *v.Weight
}

// SampleSizeOrDefault returns the declared sample size, or 1.
func (d Definition) SampleSizeOrDefault() float64 {
	if d.SampleSize == nil {
		return 1
	}
	return *d.SampleSize
}

// LoadDefinitions reads a definitions file. The format follows the extension:
// .json is JSON, anything else is YAML.
func LoadDefinitions(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definitions: %w", err)
	}
	return ParseDefinitions(data, strings.ToLower(filepath.Ext(path)) == ".json")
}

// ParseDefinitions decodes and validates definitions from raw bytes.
func ParseDefinitions(data []byte, isJSON bool) (*File, error) {
	var raw map[string]any
	if isJSON {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse definitions json: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse definitions yaml: %w", err)
		}
	}

	var file File
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
		ErrorUnused: true,
		Result:      &file,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode definitions: %w", err)
	}

	if err := file.validate(); err != nil {
		return nil, err
	}
	return &file, nil
}

func (f *File) validate() error {
	seen := make(map[string]bool, len(f.Experiments))
	for i, d := range f.Experiments {
		if strings.TrimSpace(d.ID) == "" {
			return domain.NewValidationError(fmt.Sprintf("experiments[%d].id", i), "must not be empty")
		}
		if domain.CollidesWithIdentity(d.ID) {
			return domain.NewValidationError(fmt.Sprintf("experiments[%d].id", i), fmt.Sprintf("%q is reserved for the user identity record", d.ID))
		}
		if seen[d.ID] {
			return domain.NewValidationError(fmt.Sprintf("experiments[%d].id", i), fmt.Sprintf("duplicate experiment %q", d.ID))
		}
		seen[d.ID] = true

		for j, v := range d.Variants {
			if v.ID == "" {
				return domain.NewValidationError(fmt.Sprintf("%s.variants[%d].id", d.ID, j), "must not be empty")
			}
		}
	}
	return nil
}
