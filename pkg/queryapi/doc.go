// Package queryapi serves read-only registry queries over HTTP.
//
// Routes:
//
//	GET /health
//	GET /registries
//	GET /registries/{registry}/tokens/{id}
//	GET /registries/{registry}/accounts/{account}/balance
//	GET /registries/{registry}/assets/{id}
//	GET /registries/{registry}/events?after=N&limit=M   (when a journal is attached)
//
// Unknown registries, tokens and assets answer 404, malformed identifiers
// 400. Every error body is {"error": "..."}.
package queryapi
