// Package mirror reads registries hosted by another process through its
// query API (see package queryapi).
//
// Client wraps the HTTP routes. RemoteSource adapts a Client to
// nestable.TokenSource so a local Directory can resolve ownership through
// tokens that live elsewhere. Remote sources are read-only: any operation
// that would change remote state fails with nestable.AuthorizationError, so
// local tokens can never be nested under remote ones.
package mirror
