package scenario

import (
	"bytes"
	"fmt"
	"os"

	"operator-verify/internal/domain/entity"

	"gopkg.in/yaml.v3"
)

// Load reads a scenario from a YAML file. Unknown fields are rejected so a
// typo in a step key fails before any browser is launched.
func Load(path string) (entity.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return entity.Scenario{}, fmt.Errorf("read scenario file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (entity.Scenario, error) {
	var sc entity.Scenario

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return entity.Scenario{}, fmt.Errorf("%w: decode yaml: %v", entity.ErrInvalidScenario, err)
	}

	if err := sc.Validate(); err != nil {
		return entity.Scenario{}, err
	}
	return sc, nil
}
