// Package nestable implements nestable, multi-asset token registries.
// Tokens can own other tokens, across registries, and carry a two-phase
// (pending, then active) list of catalog assets in place of a single
// static metadata URI.
//
// Registries attach to a Directory. The directory routes cross-registry
// calls through the TokenSource interface and runs every mutating call as
// one serialized transaction: either every change it makes, in every
// registry it touches, is committed, or none is. Committed events are
// published to subscribers and EventSinks after the lock is released.
//
// # Registries
//
//	directory := nestable.NewDirectory(nestable.DirectoryOptions{})
//
//	films, err := nestable.NewRegistry(directory, "0.0.5001", nestable.Config{
//		Name:   "Films",
//		Symbol: "FLM",
//		Admin:  "0.0.1001",
//		AllowedChildRegistries: []nestable.RegistryID{"0.0.5002"},
//	})
//	characters, err := nestable.NewRegistry(directory, "0.0.5002", nestable.Config{
//		Name:   "Characters",
//		Symbol: "CHR",
//		Admin:  "0.0.1001",
//	})
//
// # Nesting
//
// A nest-mint by anyone but the parent's root owner lands in the pending
// list and must be accepted by index and identity:
//
//	ids, err := films.Mint(ctx, "0.0.1001", "0.0.2002", 1)
//	children, err := characters.NestMint(ctx, "0.0.1001", films.ID(), ids[0], 3)
//	err = films.AcceptChild(ctx, "0.0.2002", ids[0], 0, characters.ID(), children[0])
//
//	owner, err := characters.OwnerOf(ctx, children[0]) // "0.0.2002"
//
// # Assets
//
//	assetID, err := films.AddAssetEntry(ctx, "0.0.1001", "ipfs://poster.json")
//	err = films.AddAssetToTokens(ctx, "0.0.1001", ids, assetID, 0)
//	err = films.AcceptAsset(ctx, "0.0.2002", ids[0], 0, assetID)
//
// # Errors
//
// Every failure is a typed error carrying the offending identifiers, for
// example UnexpectedChildError when a pending list changed between reading
// an index and acting on it. Use errors.As to inspect them.
package nestable
