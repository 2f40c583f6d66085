// Package chart writes the umbrella chart directory.
//
// An umbrella chart is three files:
//
//	Chart.yaml         fixed metadata stamped with the generation time
//	values.yaml        the override tree
//	requirements.yaml  the dependency manifest
//
// Rendering is pure formatting; nothing here decides what goes in the chart.
package chart

import (
	"bytes"
	"fmt"
	"path/filepath"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"gopkg.in/yaml.v3"

	"github.com/vongform/vongform/internal/fileutil"
	"github.com/vongform/vongform/internal/manifest"
	"github.com/vongform/vongform/internal/overrides"
)

// Output file names.
const (
	ChartFile        = "Chart.yaml"
	ValuesFile       = "values.yaml"
	RequirementsFile = "requirements.yaml"
)

// RFC2822 is the layout of the generation time in Chart.yaml.
const RFC2822 = "Mon, 2 Jan 2006 15:04:05 -0700"

const chartTemplate = `apiVersion: 'v1'
description: 'Umbrella chart, generated on {{ dateInZone .Layout .GeneratedAt "UTC" }}'
appVersion: '1.0'
name: chart
version: '1.0.0-{{ unixEpoch .GeneratedAt }}'
`

var chartTmpl = template.Must(template.New(ChartFile).Funcs(sprig.TxtFuncMap()).Parse(chartTemplate))

// Files holds the rendered file bodies.
type Files struct {
	Chart        []byte
	Values       []byte
	Requirements []byte
}

// Render produces the three file bodies. A nil tree renders as an empty
// mapping.
func Render(reqs []manifest.Requirement, tree *overrides.Tree, generatedAt time.Time) (*Files, error) {
	var chartBuf bytes.Buffer
	data := struct {
		Layout      string
		GeneratedAt time.Time
	}{
		Layout:      RFC2822,
		GeneratedAt: generatedAt.UTC(),
	}
	if err := chartTmpl.Execute(&chartBuf, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", ChartFile, err)
	}

	if tree == nil {
		tree = overrides.Node()
	}
	values, err := yaml.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", ValuesFile, err)
	}

	requirements, err := manifest.Encode(reqs)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", RequirementsFile, err)
	}

	return &Files{
		Chart:        chartBuf.Bytes(),
		Values:       values,
		Requirements: requirements,
	}, nil
}

// Write writes files into dir, creating it if needed. Each file is replaced
// atomically; the set as a whole is not.
func Write(dir string, files *Files) ([]string, error) {
	if err := fileutil.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	targets := []struct {
		name string
		data []byte
	}{
		{ChartFile, files.Chart},
		{ValuesFile, files.Values},
		{RequirementsFile, files.Requirements},
	}

	written := make([]string, 0, len(targets))
	for _, t := range targets {
		path := filepath.Join(dir, t.name)
		if err := fileutil.WriteFileAtomic(path, t.data, 0644); err != nil {
			return written, fmt.Errorf("write %s: %w", t.name, err)
		}
		written = append(written, path)
	}
	return written, nil
}

// Emit renders and writes the chart into dir.
func Emit(dir string, reqs []manifest.Requirement, tree *overrides.Tree, generatedAt time.Time) ([]string, error) {
	files, err := Render(reqs, tree, generatedAt)
	if err != nil {
		return nil, err
	}
	return Write(dir, files)
}
