package provider

import (
	"context"

	"github.com/roach88/sap/internal/lazyload"
	"github.com/roach88/sap/internal/model"
)

// DefaultVersion is reported when a provider does not set one.
const DefaultVersion = "0.1.0"

// Info describes a provider. It is what GET /hello returns.
type Info struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Version     string           `json:"version"`
	Scopes      []lazyload.Scope `json:"lazy_loading_scopes"`
}

// Provider supplies snapshot objects and, optionally, lazy-load results.
type Provider interface {
	// Info describes the provider.
	Info() Info

	// Fetch produces the raw objects for one cycle.
	Fetch(ctx context.Context) ([]model.Object, error)

	// Query returns the lazy-load function, or nil when the provider does
	// not support lazy loading.
	Query() lazyload.QueryFunc
}

// Func adapts plain functions to Provider.
type Func struct {
	Meta      Info
	FetchFunc func(ctx context.Context) ([]model.Object, error)
	QueryFunc lazyload.QueryFunc
}

// Info implements Provider. Empty version and scope list are filled with
// defaults.
func (f Func) Info() Info {
	info := f.Meta
	if info.Version == "" {
		info.Version = DefaultVersion
	}
	if info.Scopes == nil {
		info.Scopes = []lazyload.Scope{}
	}
	return info
}

// Fetch implements Provider. A nil FetchFunc yields no objects.
func (f Func) Fetch(ctx context.Context) ([]model.Object, error) {
	if f.FetchFunc == nil {
		return nil, nil
	}
	return f.FetchFunc(ctx)
}

// Query implements Provider.
func (f Func) Query() lazyload.QueryFunc {
	return f.QueryFunc
}

// Override returns p with the descriptive fields the manifest sets. Scopes
// are replaced only when the manifest declares at least one.
func Override(p Provider, m *Manifest) Provider {
	if m == nil {
		return p
	}
	info := p.Info()
	if m.Name != "" {
		info.Name = m.Name
	}
	if m.Description != "" {
		info.Description = m.Description
	}
	if m.Version != "" {
		info.Version = m.Version
	}
	if len(m.Scopes) > 0 {
		info.Scopes = m.Scopes
	}
	return Func{Meta: info, FetchFunc: p.Fetch, QueryFunc: p.Query()}
}
