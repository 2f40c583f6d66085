// Package manifest holds the umbrella chart's dependency manifest.
//
// The manifest is a YAML document listing the charts the umbrella depends on:
//
//	dependencies:
//	  - name: sessions-2020
//	    version: 1.0.0
//	    repository: https://charts.example.com
//
// Version changes arrive as "name=version" settings. An empty version removes
// the dependency:
//
//	vongform --set sessions-2020=1.0.1 --set auth-2020=
//
// Apply folds the settings into the list in order. Existing entries keep
// their position, new entries are appended, and removals do not reorder the
// rest of the list.
package manifest
