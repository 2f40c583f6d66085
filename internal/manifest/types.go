package manifest

// DefaultDocument is the manifest used when the store has no value yet.
const DefaultDocument = "{dependencies: []}\n"

// Requirement is one chart dependency of the umbrella chart.
type Requirement struct {
	// Name is the chart name, unique within a manifest.
	Name string `yaml:"name"`

	// Version is the chart version. It is not validated as semver.
	Version string `yaml:"version"`

	// Repository is the chart repository URL. Nil serializes as null.
	Repository *string `yaml:"repository"`
}

// RequirementsFile is the document persisted in the store and written to
// requirements.yaml.
type RequirementsFile struct {
	Dependencies []Requirement `yaml:"dependencies"`
}

// ServiceSetting is a single --set argument.
type ServiceSetting struct {
	Name string

	// Version is nil when the setting removes the service.
	Version *string
}

// Removes reports whether the setting removes its service.
func (s ServiceSetting) Removes() bool {
	return s.Version == nil
}

// Names returns the dependency names in list order.
func Names(reqs []Requirement) []string {
	names := make([]string, len(reqs))
	for i, r := range reqs {
		names[i] = r.Name
	}
	return names
}
