// Package provider defines what a data provider supplies to the runner and
// the lazy-load protocol, and how a provider is described on disk.
//
// A Provider has descriptive Info (name, description, version, declared
// lazy-load scopes), a Fetch function producing the snapshot objects, and an
// optional lazyload.QueryFunc. Concrete providers live in subpackages:
// demo, xmltree and fixture.
//
// A Manifest is a provider description loaded from CUE or YAML. It names
// the provider, declares its scopes, and selects a source and refresh
// interval. CUE manifests are compiled with the CUE Go API (no
// subprocesses); the manifest is the value at path "provider".
package provider
