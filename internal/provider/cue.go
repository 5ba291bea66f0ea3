package provider

import (
	"fmt"
	"path/filepath"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/sap/internal/lazyload"
)

// ManifestPath is the CUE path holding the manifest.
const ManifestPath = "provider"

// loadCUEManifest compiles a single CUE file and extracts the manifest.
func loadCUEManifest(path string) (*Manifest, error) {
	ctx := cuecontext.New()
	cfg := &load.Config{Dir: filepath.Dir(path)}
	instances := load.Instances([]string{filepath.Base(path)}, cfg)
	if len(instances) == 0 {
		return nil, &ManifestError{File: path, Field: "cue", Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &ManifestError{File: path, Field: "cue", Message: fmt.Sprintf("loading CUE file: %v", inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v := value.LookupPath(cue.ParsePath(ManifestPath))
	if !v.Exists() {
		return nil, &ManifestError{File: path, Field: ManifestPath, Message: "no provider value found"}
	}
	return CompileManifest(v)
}

// CompileManifest parses a CUE value into a Manifest.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the manifest struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`provider: { name: "demo" }`)
//	m, err := CompileManifest(v.LookupPath(cue.ParsePath("provider")))
func CompileManifest(v cue.Value) (*Manifest, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	m := &Manifest{}
	var err error

	// name is required; Validate reports its absence with a field name, so
	// only the type is checked here.
	if m.Name, err = optionalString(v, "name"); err != nil {
		return nil, err
	}
	if m.Description, err = optionalString(v, "description"); err != nil {
		return nil, err
	}
	if m.Version, err = optionalString(v, "version"); err != nil {
		return nil, err
	}
	if m.Source, err = optionalString(v, "source"); err != nil {
		return nil, err
	}
	if m.File, err = optionalString(v, "file"); err != nil {
		return nil, err
	}
	if m.RootID, err = optionalString(v, "root_id"); err != nil {
		return nil, err
	}

	interval, err := optionalString(v, "interval")
	if err != nil {
		return nil, err
	}
	if interval != "" {
		d, perr := time.ParseDuration(interval)
		if perr != nil {
			return nil, &ManifestError{Field: "interval", Message: perr.Error(), Pos: v.LookupPath(cue.ParsePath("interval")).Pos()}
		}
		m.Interval = d
	}

	runVal := v.LookupPath(cue.ParsePath("run_immediately"))
	if runVal.Exists() {
		b, err := runVal.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		m.RunImmediately = &b
	}

	m.Scopes, err = parseScopes(v)
	if err != nil {
		return nil, err
	}

	if err := m.Validate(); err != nil {
		if me, ok := err.(*ManifestError); ok && !me.Pos.IsValid() {
			me.Pos = v.Pos()
		}
		return nil, err
	}
	return m, nil
}

// parseScopes extracts lazy_loading_scopes (optional) in declaration order.
func parseScopes(v cue.Value) ([]lazyload.Scope, error) {
	scopesVal := v.LookupPath(cue.ParsePath("lazy_loading_scopes"))
	if !scopesVal.Exists() {
		return nil, nil
	}

	iter, err := scopesVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var scopes []lazyload.Scope
	for iter.Next() {
		scope, err := parseScope(iter.Value())
		if err != nil {
			return nil, err
		}
		scopes = append(scopes, scope)
	}
	return scopes, nil
}

// parseScope parses one scope. fields may be "*" or a list of names and
// defaults to "*".
func parseScope(v cue.Value) (lazyload.Scope, error) {
	scope := lazyload.Scope{Fields: lazyload.AllFields()}

	typ, err := optionalString(v, "type")
	if err != nil {
		return scope, err
	}
	if typ == "" {
		return scope, &ManifestError{Field: "lazy_loading_scopes.type", Message: "scope type is required", Pos: v.Pos()}
	}
	scope.Type = typ

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if fieldsVal.Exists() {
		if s, err := fieldsVal.String(); err == nil {
			if s != lazyload.Wildcard {
				return scope, &ManifestError{
					Field:   "lazy_loading_scopes.fields",
					Message: fmt.Sprintf("string value must be %q, got %q", lazyload.Wildcard, s),
					Pos:     fieldsVal.Pos(),
				}
			}
		} else {
			names, err := stringList(fieldsVal)
			if err != nil {
				return scope, err
			}
			scope.Fields = lazyload.Fields(names...)
		}
	}

	filterVal := v.LookupPath(cue.ParsePath("filtering_fields"))
	if filterVal.Exists() {
		scope.FilteringFields, err = stringList(filterVal)
		if err != nil {
			return scope, err
		}
	}

	needsVal := v.LookupPath(cue.ParsePath("needs_id_types"))
	if needsVal.Exists() {
		scope.NeedsIDTypes, err = needsVal.Bool()
		if err != nil {
			return scope, formatCUEError(err)
		}
	}

	return scope, nil
}

func optionalString(v cue.Value, path string) (string, error) {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func stringList(v cue.Value) ([]string, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	out := []string{}
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}
