package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sap/internal/provider/demo"
	"github.com/roach88/sap/internal/provider/xmltree"
)

func TestBuildProvider_DefaultsToDemo(t *testing.T) {
	p, err := buildProvider(providerSource{})
	require.NoError(t, err)
	assert.Equal(t, demo.Name, p.Info().Name)
	assert.NotNil(t, p.Query())
}

func TestBuildProvider_XML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.xml")
	require.NoError(t, os.WriteFile(path, []byte(`<catalog><item>one</item></catalog>`), 0o644))

	p, err := buildProvider(providerSource{Source: "xml", File: path, RootID: "catalog_root"})
	require.NoError(t, err)
	assert.Nil(t, p.Query())

	objects, err := p.Fetch(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, objects)
	assert.Equal(t, "catalog_root", objects[0].ID)
	assert.Equal(t, []string{xmltree.NodeType("catalog")}, objects[0].Types)
}

func TestBuildProvider_RequiresFile(t *testing.T) {
	for _, source := range []string{"xml", "fixture"} {
		_, err := buildProvider(providerSource{Source: source})
		assert.ErrorContains(t, err, "requires --file", source)
	}
}

func TestBuildProvider_UnknownSource(t *testing.T) {
	_, err := buildProvider(providerSource{Source: "ldap"})
	assert.ErrorContains(t, err, `unknown source "ldap"`)
}

func TestLoadProvider_ManifestOverrides(t *testing.T) {
	p, m, err := loadProvider(providerSource{Manifest: filepath.Join(manifestDir, "demo.cue")})
	require.NoError(t, err)
	require.NotNil(t, m)

	info := p.Info()
	assert.Equal(t, "Demo SAP Provider", info.Name)
	assert.Equal(t, "0.2.0", info.Version)
	assert.Len(t, info.Scopes, 3)
}

func TestLoadProvider_FixtureKeepsManifestScopes(t *testing.T) {
	p, m, err := loadProvider(providerSource{Manifest: filepath.Join(manifestDir, "fixture.yaml")})
	require.NoError(t, err)

	assert.Equal(t, "fixture", m.SourceKind())
	assert.Equal(t, "HR fixture", p.Info().Name)
	require.Len(t, p.Info().Scopes, 1)
	assert.Equal(t, "badge", p.Info().Scopes[0].Type)
	assert.NotNil(t, p.Query())
}

func TestLoadProvider_FlagsWinOverManifest(t *testing.T) {
	p, _, err := loadProvider(providerSource{
		Manifest: filepath.Join(manifestDir, "fixture.yaml"),
		Source:   "demo",
	})
	require.NoError(t, err)

	objects, err := p.Fetch(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, objects)
}
