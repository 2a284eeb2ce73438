//go:build !rp2040

package config

import (
	"errors"
	"os"

	"gopkg.in/yaml.v2"
)

// Load reads a YAML profile from path.
func Load(path string) (Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, err
	}
	return Parse(raw)
}

// Parse decodes a YAML profile. Unknown fields are errors and motor types
// may use the short names.
func Parse(raw []byte) (Profile, error) {
	var p Profile
	if err := yaml.UnmarshalStrict(raw, &p); err != nil {
		return Profile{}, err
	}
	if len(p.Motors) == 0 {
		return Profile{}, errors.New("profile: no motors")
	}
	seen := map[string]bool{}
	for i := range p.Motors {
		m := &p.Motors[i]
		if m.ID == "" {
			return Profile{}, errors.New("profile: motor without id")
		}
		if seen[m.ID] {
			return Profile{}, errors.New("profile: duplicate motor id " + m.ID)
		}
		seen[m.ID] = true
		full, ok := typeAlias[m.Type]
		if !ok {
			return Profile{}, errors.New("profile: " + m.ID + ": unknown type " + m.Type)
		}
		m.Type = full
	}
	return p, nil
}
