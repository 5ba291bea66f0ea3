package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/roach88/sap/internal/lazyload"
	"github.com/roach88/sap/internal/provider"
	"github.com/roach88/sap/internal/provider/demo"
	"github.com/roach88/sap/internal/provider/fixture"
	"github.com/roach88/sap/internal/provider/xmltree"
)

// providerSource selects a built-in provider. Flags fill it directly; a
// manifest fills the fields its flags leave empty.
type providerSource struct {
	Manifest string
	Source   string
	File     string
	RootID   string
	Scopes   []lazyload.Scope
}

// loadProvider resolves src into a provider and the manifest it came from
// (nil without --manifest).
func loadProvider(src providerSource) (provider.Provider, *provider.Manifest, error) {
	var m *provider.Manifest
	if src.Manifest != "" {
		var err error
		m, err = provider.LoadManifest(src.Manifest)
		if err != nil {
			return nil, nil, err
		}
		if src.Source == "" {
			src.Source = m.SourceKind()
		}
		if src.File == "" {
			src.File = m.ResolveFile()
		}
		if src.RootID == "" {
			src.RootID = m.RootID
		}
		src.Scopes = m.Scopes
	}

	p, err := buildProvider(src)
	if err != nil {
		return nil, nil, err
	}
	return provider.Override(p, m), m, nil
}

func buildProvider(src providerSource) (provider.Provider, error) {
	source := src.Source
	if source == "" {
		source = provider.SourceDemo
	}

	switch source {
	case provider.SourceDemo:
		return demo.New(), nil

	case provider.SourceXML:
		if src.File == "" {
			return nil, fmt.Errorf("source %q requires --file", source)
		}
		typeName := strings.TrimSuffix(filepath.Base(src.File), filepath.Ext(src.File))
		return &xmltree.Provider{
			Path: src.File,
			Meta: provider.Info{
				Name:        typeName + " XML",
				Description: "Elements of " + filepath.Base(src.File),
			},
			Opts: xmltree.Options{
				Source:   "xml:" + filepath.Base(src.File),
				TypeName: typeName,
				RootID:   src.RootID,
			},
		}, nil

	case provider.SourceFixture:
		if src.File == "" {
			return nil, fmt.Errorf("source %q requires --file", source)
		}
		return &fixture.Provider{
			Path: src.File,
			Meta: provider.Info{
				Name:        "Fixture " + filepath.Base(src.File),
				Description: "Objects read from " + filepath.Base(src.File),
				Scopes:      src.Scopes,
			},
		}, nil

	default:
		return nil, fmt.Errorf("unknown source %q (want demo, xml or fixture)", source)
	}
}
