package provider

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sap/internal/lazyload"
)

// Source kinds a manifest can select.
const (
	SourceDemo    = "demo"
	SourceXML     = "xml"
	SourceFixture = "fixture"
)

// Manifest is a provider description loaded from disk.
//
// CUE form (value at path "provider"):
//
//	provider: {
//		name:        "Demo SAP Provider"
//		description: "Example provider built with SAP"
//		source:      "fixture"
//		file:        "employees.yaml"
//		interval:    "30s"
//		lazy_loading_scopes: [
//			{type: "swipe", fields: ["date", "time"], filtering_fields: ["date"]},
//		]
//	}
//
// The YAML form uses the same keys at the top level.
type Manifest struct {
	Name        string
	Description string
	Version     string

	// Source is one of SourceDemo, SourceXML, SourceFixture. Empty means
	// SourceDemo.
	Source string

	// File is the data file for xml and fixture sources, relative to the
	// manifest's directory unless absolute.
	File string

	// RootID names the root object of an xml source.
	RootID string

	// Interval between cycles; zero leaves the choice to the caller.
	Interval time.Duration

	// RunImmediately, when set, overrides the caller's default.
	RunImmediately *bool

	Scopes []lazyload.Scope

	// Path is the file the manifest was loaded from, if any.
	Path string
}

// manifestYAML is the YAML wire form.
type manifestYAML struct {
	Name           string           `yaml:"name"`
	Description    string           `yaml:"description"`
	Version        string           `yaml:"version"`
	Source         string           `yaml:"source"`
	File           string           `yaml:"file"`
	RootID         string           `yaml:"root_id"`
	Interval       string           `yaml:"interval"`
	RunImmediately *bool            `yaml:"run_immediately"`
	Scopes         []lazyload.Scope `yaml:"lazy_loading_scopes"`
}

// LoadManifest reads a manifest from path. Files ending in .cue are
// compiled with CUE; .yaml, .yml and .json are decoded as YAML.
func LoadManifest(path string) (*Manifest, error) {
	var (
		m   *Manifest
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		m, err = loadCUEManifest(path)
	case ".yaml", ".yml", ".json":
		var data []byte
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading manifest: %w", err)
		}
		m, err = ParseManifestYAML(path, data)
	default:
		return nil, &ManifestError{File: path, Field: "file", Message: "unsupported manifest extension (want .cue, .yaml, .yml or .json)"}
	}
	if err != nil {
		return nil, err
	}
	m.Path = path
	return m, nil
}

// ParseManifestYAML decodes and validates a YAML manifest. Unknown keys are
// rejected. name is used in error messages only.
func ParseManifestYAML(name string, data []byte) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var w manifestYAML
	if err := dec.Decode(&w); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ManifestError{File: name, Field: "manifest", Message: "empty manifest"}
		}
		var te *yaml.TypeError
		if errors.As(err, &te) && len(te.Errors) > 0 {
			return nil, &ManifestError{File: name, Field: "yaml", Message: te.Errors[0]}
		}
		return nil, &ManifestError{File: name, Field: "yaml", Message: err.Error()}
	}

	m := &Manifest{
		Name:           w.Name,
		Description:    w.Description,
		Version:        w.Version,
		Source:         w.Source,
		File:           w.File,
		RootID:         w.RootID,
		RunImmediately: w.RunImmediately,
		Scopes:         w.Scopes,
	}
	if w.Interval != "" {
		d, err := time.ParseDuration(w.Interval)
		if err != nil {
			return nil, &ManifestError{File: name, Field: "interval", Message: err.Error()}
		}
		m.Interval = d
	}

	if err := m.Validate(); err != nil {
		var me *ManifestError
		if errors.As(err, &me) && me.File == "" {
			me.File = name
		}
		return nil, err
	}
	return m, nil
}

// Validate checks the manifest's internal consistency.
func (m *Manifest) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return &ManifestError{Field: "name", Message: "name is required"}
	}
	switch m.Source {
	case "", SourceDemo:
	case SourceXML, SourceFixture:
		if m.File == "" {
			return &ManifestError{Field: "file", Message: fmt.Sprintf("source %q requires a file", m.Source)}
		}
	default:
		return &ManifestError{Field: "source", Message: fmt.Sprintf("unknown source %q (want demo, xml or fixture)", m.Source)}
	}
	if m.Interval < 0 {
		return &ManifestError{Field: "interval", Message: "interval must not be negative"}
	}
	if err := lazyload.ValidateScopes(m.Scopes); err != nil {
		return &ManifestError{Field: "lazy_loading_scopes", Message: err.Error()}
	}
	return nil
}

// SourceKind returns Source with the default applied.
func (m *Manifest) SourceKind() string {
	if m.Source == "" {
		return SourceDemo
	}
	return m.Source
}

// ResolveFile returns File resolved against the manifest's directory.
func (m *Manifest) ResolveFile() string {
	if m.File == "" || filepath.IsAbs(m.File) || m.Path == "" {
		return m.File
	}
	return filepath.Join(filepath.Dir(m.Path), m.File)
}
