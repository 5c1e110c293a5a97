// Package checkpoint commits to registry snapshots.
//
// A checkpoint is a merkle root (RFC 9162 hashing) over the canonical JSON
// of every token, every catalog entry and the registry header. Checkpoints
// can be signed with an operator key, tokens can be proven against a root,
// and snapshots can be archived as brotli-compressed JSON that is verified
// on read.
package checkpoint
