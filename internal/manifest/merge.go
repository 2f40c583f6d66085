package manifest

// Apply folds settings into reqs in order and returns the updated list.
// reqs itself is not modified.
//
// Merge semantics, per setting, against the first entry with the same name:
//   - version set, entry found: version updated in place; repository
//     replaced by defaultRepo when it is non-nil, otherwise kept
//   - version set, no entry: a new entry with defaultRepo is appended
//   - version unset, entry found: that one entry is removed
//   - version unset, no entry: no-op
func Apply(reqs []Requirement, settings []ServiceSetting, defaultRepo *string) []Requirement {
	result := copyRequirements(reqs)

	for _, s := range settings {
		idx := indexOf(result, s.Name)

		if s.Removes() {
			if idx >= 0 {
				result = append(result[:idx], result[idx+1:]...)
			}
			continue
		}

		if idx < 0 {
			result = append(result, Requirement{
				Name:       s.Name,
				Version:    *s.Version,
				Repository: cloneString(defaultRepo),
			})
			continue
		}

		result[idx].Version = *s.Version
		if defaultRepo != nil {
			result[idx].Repository = cloneString(defaultRepo)
		}
	}

	return result
}

func indexOf(reqs []Requirement, name string) int {
	for i, r := range reqs {
		if r.Name == name {
			return i
		}
	}
	return -1
}

// copyRequirements deep-copies reqs, including repository pointers.
func copyRequirements(reqs []Requirement) []Requirement {
	result := make([]Requirement, len(reqs))
	for i, r := range reqs {
		result[i] = Requirement{
			Name:       r.Name,
			Version:    r.Version,
			Repository: cloneString(r.Repository),
		}
	}
	return result
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
