package nestable

import (
	"context"
	"fmt"
)

// OwnerOf resolves the root owner of ref by following direct owners across
// registries. Results computed entirely from native registries are cached
// per generation.
func (directory *Directory) OwnerOf(ctx context.Context, ref TokenRef) (Account, error) {
	var owner Account
	err := directory.read(ctx, func(ctx context.Context) error {
		current, _ := scopeFrom(ctx, directory)
		cacheable := current.txn == nil
		cacheKey := fmt.Sprintf("%s/%d@%d", ref.Registry, ref.TokenID, directory.generation)
		if cacheable {
			if cached, found := directory.cache.Get(cacheKey); found {
				if account, ok := cached.(Account); ok {
					owner = account
					return nil
				}
			}
		}

		resolved, native, err := directory.resolveOwner(ctx, ref)
		if err != nil {
			return err
		}
		if cacheable && native {
			directory.cache.SetDefault(cacheKey, resolved)
		}
		owner = resolved
		return nil
	})
	return owner, err
}

// resolveOwner walks the direct-owner chain from start. native is false if
// any hop was answered by a source outside this package.
func (directory *Directory) resolveOwner(ctx context.Context, start TokenRef) (Account, bool, error) {
	native := true
	current := start
	for hop := 0; hop < directory.options.MaxResolutionDepth; hop++ {
		source, err := directory.Lookup(current.Registry)
		if err != nil {
			return "", false, err
		}
		if _, ok := source.(*Registry); !ok {
			native = false
		}
		owner, err := source.DirectOwnerOf(ctx, current.TokenID)
		if err != nil {
			return "", false, err
		}
		if !owner.IsToken() {
			return owner.Account, native, nil
		}
		current = owner.Parent
	}
	return "", false, NewResolutionDepthExceededError(start, directory.options.MaxResolutionDepth)
}

// chainContains reports whether target appears on the owner chain that
// starts at start, start included.
func (directory *Directory) chainContains(ctx context.Context, start TokenRef, target TokenRef) (bool, error) {
	current := start
	for hop := 0; hop < directory.options.MaxResolutionDepth; hop++ {
		if current == target {
			return true, nil
		}
		source, err := directory.Lookup(current.Registry)
		if err != nil {
			return false, err
		}
		owner, err := source.DirectOwnerOf(ctx, current.TokenID)
		if err != nil {
			return false, err
		}
		if !owner.IsToken() {
			return false, nil
		}
		current = owner.Parent
	}
	return false, NewResolutionDepthExceededError(start, directory.options.MaxResolutionDepth)
}

// ownerHops counts the direct-owner lookups needed to reach the root
// account of start.
func (directory *Directory) ownerHops(ctx context.Context, start TokenRef) (int, error) {
	current := start
	for hop := 1; hop <= directory.options.MaxResolutionDepth; hop++ {
		source, err := directory.Lookup(current.Registry)
		if err != nil {
			return 0, err
		}
		owner, err := source.DirectOwnerOf(ctx, current.TokenID)
		if err != nil {
			return 0, err
		}
		if !owner.IsToken() {
			return hop, nil
		}
		current = owner.Parent
	}
	return 0, NewResolutionDepthExceededError(start, directory.options.MaxResolutionDepth)
}

// subtreeHeight is the number of nesting levels below ref. Children held
// by sources outside this package count as leaves.
func (directory *Directory) subtreeHeight(ref TokenRef, budget int) int {
	if budget <= 0 {
		return 0
	}
	registry, err := directory.Registry(ref.Registry)
	if err != nil {
		return 0
	}
	record, err := registry.tokens.get(ref.TokenID)
	if err != nil {
		return 0
	}
	height := 0
	for _, children := range [][]TokenRef{record.activeChildren, record.pendingChildren} {
		for _, child := range children {
			if below := 1 + directory.subtreeHeight(child, budget-1); below > height {
				height = below
			}
		}
	}
	return height
}

// checkNestingDepth fails when hanging levels more tokens under parent
// would leave one whose owner cannot be resolved.
func (directory *Directory) checkNestingDepth(ctx context.Context, parent TokenRef, levels int) error {
	hops, err := directory.ownerHops(ctx, parent)
	if err != nil {
		return err
	}
	if hops+levels > directory.options.MaxResolutionDepth {
		return NewResolutionDepthExceededError(parent, directory.options.MaxResolutionDepth)
	}
	return nil
}

// tokenExists asks the owning source whether ref exists.
func (directory *Directory) tokenExists(ctx context.Context, ref TokenRef) error {
	source, err := directory.Lookup(ref.Registry)
	if err != nil {
		return err
	}
	exists, err := source.Exists(ctx, ref.TokenID)
	if err != nil {
		return err
	}
	if !exists {
		return NewUnknownTokenError(ref.Registry, ref.TokenID)
	}
	return nil
}
