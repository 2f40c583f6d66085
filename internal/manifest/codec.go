package manifest

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrMissingDependencies indicates a document without a dependencies key.
var ErrMissingDependencies = errors.New("missing dependencies field")

// rawRequirement detects missing fields, which a plain struct cannot.
type rawRequirement struct {
	Name       *string `yaml:"name"`
	Version    *string `yaml:"version"`
	Repository *string `yaml:"repository"`
}

type rawRequirementsFile struct {
	Dependencies *[]rawRequirement `yaml:"dependencies"`
}

// Decode parses a requirements document. Every dependency needs a name and
// a version; repository is optional.
func Decode(data []byte) ([]Requirement, error) {
	var doc rawRequirementsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse requirements: %w", err)
	}
	if doc.Dependencies == nil {
		return nil, ErrMissingDependencies
	}

	reqs := make([]Requirement, 0, len(*doc.Dependencies))
	for i, raw := range *doc.Dependencies {
		if raw.Name == nil {
			return nil, fmt.Errorf("dependency %d: missing name field", i)
		}
		if raw.Version == nil {
			return nil, fmt.Errorf("dependency %d (%s): missing version field", i, *raw.Name)
		}
		reqs = append(reqs, Requirement{
			Name:       *raw.Name,
			Version:    *raw.Version,
			Repository: raw.Repository,
		})
	}
	return reqs, nil
}

// Encode renders reqs as a requirements document.
func Encode(reqs []Requirement) ([]byte, error) {
	if reqs == nil {
		reqs = []Requirement{}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(RequirementsFile{Dependencies: reqs}); err != nil {
		return nil, fmt.Errorf("marshal requirements: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("marshal requirements: %w", err)
	}
	return buf.Bytes(), nil
}
