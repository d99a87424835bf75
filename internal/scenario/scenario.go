// Package scenario loads named simulation scenarios from YAML files.
package scenario

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"ctsim/domain/core"
	"ctsim/domain/trial"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// File is a scenario document
type File struct {
	Scenarios []Scenario `yaml:"scenarios" validate:"required,min=1,dive"`
}

// Scenario is one named batch definition
type Scenario struct {
	Name         string `yaml:"name" validate:"required"`
	Description  string `yaml:"description,omitempty"`
	NumTrials    int    `yaml:"num_trials" validate:"gte=0"`
	trial.Config `yaml:",inline"`
	Seed         *int64  `yaml:"seed,omitempty"`
	Alpha        float64 `yaml:"alpha,omitempty" validate:"omitempty,gt=0,lt=1"`
	Output       string  `yaml:"output,omitempty"`
}

var validate = validator.New()

// ID returns the scenario's identifier
func (s Scenario) ID() core.ScenarioID {
	// Validate rejects names ParseScenarioID would refuse.
	id, _ := core.ParseScenarioID(s.Name)
	return id
}

// Load reads and validates a scenario file
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	f, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes and validates a scenario document. Unknown keys are rejected.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, core.NewValidationError(core.ErrInvalidConfig, "scenarios", "document is empty")
		}
		return nil, fmt.Errorf("%w: invalid scenario YAML: %v", core.ErrInvalidConfig, err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks field constraints, trial parameters and name uniqueness
func (f *File) Validate() error {
	if err := validate.Struct(f); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return core.NewValidationError(core.ErrInvalidConfig, fe.Namespace(), fmt.Sprintf("fails %q", fe.Tag()))
		}
		return fmt.Errorf("%w: %v", core.ErrInvalidConfig, err)
	}

	seen := make(map[string]bool, len(f.Scenarios))
	for _, s := range f.Scenarios {
		if _, err := core.ParseScenarioID(s.Name); err != nil {
			return core.NewValidationError(core.ErrInvalidConfig, "name", err.Error())
		}
		if seen[s.Name] {
			return core.NewValidationError(core.ErrInvalidConfig, "name", fmt.Sprintf("duplicate scenario %q", s.Name))
		}
		seen[s.Name] = true

		if err := trial.ValidateTrialCount(s.NumTrials, 0); err != nil {
			return fmt.Errorf("scenario %q: %w", s.Name, err)
		}
		if err := s.Config.Validate(); err != nil {
			return fmt.Errorf("scenario %q: %w", s.Name, err)
		}
	}
	return nil
}

// Find returns the scenario with the given name
func (f *File) Find(name string) (Scenario, bool) {
	for _, s := range f.Scenarios {
		if s.Name == name {
			return s, true
		}
	}
	return Scenario{}, false
}
