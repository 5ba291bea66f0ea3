// Package server exposes a provider over HTTP.
//
// A Server owns the provider's runner and lazy-load protocol. Routes:
//
//	GET       /           endpoint index
//	GET       /wtf        server type: {"type":"SAP"}
//	GET       /hello      provider description and lazy-load scopes
//	GET       /all_data   the cached snapshot (ETag: snapshot digest)
//	POST      /lazy_load  lazy-load request
//	GET       /health     {"status":"ok","count":N}
//	GET       /status     runner status plus count
//	GET|POST  /refresh    trigger a non-blocking cycle
//
// Start runs the runner, optionally waits for the first snapshot, binds,
// registers the endpoint and serves HTTP/1.1 and cleartext HTTP/2.
package server
