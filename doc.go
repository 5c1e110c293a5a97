// The Nestable SDK for Go implements registries of non-fungible tokens that
// can own other tokens and carry prioritized, owner-approved assets.
//
// # Packages
//
//   - nestable: token registries, nesting, multi-asset and the shared directory
//   - checkpoint: merkle checkpoints, inclusion proofs and snapshot archives
//   - journal: SQLite event journal
//   - relay: socket.io event relay
//   - queryapi: read-only HTTP query API
//   - mirror: client for the query API and read-only remote registries
//   - journey: the gallery walkthrough used by examples and the CLI
//
// The nestctl command in cmd/nestctl wires these together.
//
// # Installation
//
//	go get github.com/bookmart/nestable-sdk-go@latest
package nestable_sdk_go
