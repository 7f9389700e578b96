package blueprint

import "gopkg.in/yaml.v3"

// FromYAML unmarshals a blueprint from YAML bytes. It performs no schema
// validation: rejecting out-of-scope references is the static analyzer's job
// (internal/analyzer), and rejecting malformed blueprints entirely is the
// external loader's job (spec §1 Non-goals). This is a thin convenience for
// tests and for any driver built on top of this module.
func FromYAML(data []byte) (*Blueprint, error) {
	var bp Blueprint
	if err := yaml.Unmarshal(data, &bp); err != nil {
		return nil, err
	}
	return &bp, nil
}
