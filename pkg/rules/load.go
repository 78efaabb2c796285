package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RuleLoadError reports a rules file that could not be read or parsed.
type RuleLoadError struct {
	Path string
	Err  error
}

func (e *RuleLoadError) Error() string {
	return fmt.Sprintf("failed to load rules from %s: %v", e.Path, e.Err)
}

func (e *RuleLoadError) Unwrap() error {
	return e.Err
}

// LoadSanityRules reads and parses a sanity rules file.
func LoadSanityRules(path string) (SanityRules, error) {
	var r SanityRules
	if err := loadYAML(path, &r); err != nil {
		return SanityRules{}, err
	}
	return r, nil
}

// LoadEDARules reads and parses an EDA rules file.
func LoadEDARules(path string) (EDARules, error) {
	var r EDARules
	if err := loadYAML(path, &r); err != nil {
		return EDARules{}, err
	}
	return r, nil
}

// LoadSchemaDoc reads and parses a schema documentation file.
func LoadSchemaDoc(path string) (SchemaDoc, error) {
	var d SchemaDoc
	if err := loadYAML(path, &d); err != nil {
		return SchemaDoc{}, err
	}
	return d, nil
}

func loadYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &RuleLoadError{Path: path, Err: err}
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return &RuleLoadError{Path: path, Err: err}
	}
	return nil
}
