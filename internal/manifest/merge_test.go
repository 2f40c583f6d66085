package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func set(name, version string) ServiceSetting {
	if version == "" {
		return ServiceSetting{Name: name}
	}
	return ServiceSetting{Name: name, Version: strPtr(version)}
}

func TestApply(t *testing.T) {
	repoA := "https://a.example.com"
	repoB := "https://b.example.com"

	base := func() []Requirement {
		return []Requirement{
			{Name: "auth", Version: "1.0.0", Repository: strPtr(repoA)},
			{Name: "sessions", Version: "2.0.0"},
			{Name: "billing", Version: "3.0.0", Repository: strPtr(repoA)},
		}
	}

	tests := []struct {
		name        string
		reqs        []Requirement
		settings    []ServiceSetting
		defaultRepo *string
		want        []Requirement
	}{
		{
			name:     "append absent name",
			reqs:     base(),
			settings: []ServiceSetting{set("search", "0.1.0")},
			want: append(base(), Requirement{
				Name:    "search",
				Version: "0.1.0",
			}),
		},
		{
			name:        "append uses default repository",
			reqs:        nil,
			settings:    []ServiceSetting{set("search", "0.1.0")},
			defaultRepo: strPtr(repoB),
			want: []Requirement{
				{Name: "search", Version: "0.1.0", Repository: strPtr(repoB)},
			},
		},
		{
			name:     "update keeps stored repository without default",
			reqs:     base(),
			settings: []ServiceSetting{set("auth", "1.1.0")},
			want: []Requirement{
				{Name: "auth", Version: "1.1.0", Repository: strPtr(repoA)},
				{Name: "sessions", Version: "2.0.0"},
				{Name: "billing", Version: "3.0.0", Repository: strPtr(repoA)},
			},
		},
		{
			name:        "update with default repository replaces stored one",
			reqs:        base(),
			settings:    []ServiceSetting{set("auth", "1.1.0"), set("sessions", "2.1.0")},
			defaultRepo: strPtr(repoB),
			want: []Requirement{
				{Name: "auth", Version: "1.1.0", Repository: strPtr(repoB)},
				{Name: "sessions", Version: "2.1.0", Repository: strPtr(repoB)},
				{Name: "billing", Version: "3.0.0", Repository: strPtr(repoA)},
			},
		},
		{
			name:     "remove present name keeps order",
			reqs:     base(),
			settings: []ServiceSetting{set("sessions", "")},
			want: []Requirement{
				{Name: "auth", Version: "1.0.0", Repository: strPtr(repoA)},
				{Name: "billing", Version: "3.0.0", Repository: strPtr(repoA)},
			},
		},
		{
			name:     "remove absent name is a no-op",
			reqs:     base(),
			settings: []ServiceSetting{set("search", "")},
			want:     base(),
		},
		{
			name:     "no settings is a no-op",
			reqs:     base(),
			settings: nil,
			want:     base(),
		},
		{
			name:     "settings apply in order",
			reqs:     base(),
			settings: []ServiceSetting{set("search", "0.1.0"), set("search", ""), set("search", "0.2.0")},
			want:     append(base(), Requirement{Name: "search", Version: "0.2.0"}),
		},
		{
			name: "remove only the first duplicate",
			reqs: []Requirement{
				{Name: "dup", Version: "1"},
				{Name: "other", Version: "2"},
				{Name: "dup", Version: "3"},
			},
			settings: []ServiceSetting{set("dup", "")},
			want: []Requirement{
				{Name: "other", Version: "2"},
				{Name: "dup", Version: "3"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(tt.reqs, tt.settings, tt.defaultRepo)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApply_LengthProperties(t *testing.T) {
	reqs := []Requirement{{Name: "auth", Version: "1.0.0"}}

	added := Apply(reqs, []ServiceSetting{set("svc-a", "1.0.0")}, nil)
	require.Len(t, added, len(reqs)+1)
	assert.Equal(t, "svc-a", added[1].Name)
	assert.Equal(t, "1.0.0", added[1].Version)
	assert.Nil(t, added[1].Repository)

	removed := Apply(added, []ServiceSetting{set("auth", "")}, nil)
	require.Len(t, removed, len(added)-1)
	assert.Equal(t, "svc-a", removed[0].Name)
}

func TestApply_DoesNotModifyInput(t *testing.T) {
	repo := "https://a.example.com"
	reqs := []Requirement{
		{Name: "auth", Version: "1.0.0", Repository: &repo},
		{Name: "sessions", Version: "2.0.0"},
	}

	other := "https://b.example.com"
	_ = Apply(reqs, []ServiceSetting{set("auth", "9.9.9"), set("sessions", "")}, &other)

	assert.Equal(t, "1.0.0", reqs[0].Version)
	assert.Equal(t, "https://a.example.com", *reqs[0].Repository)
	assert.Equal(t, "sessions", reqs[1].Name)
}
