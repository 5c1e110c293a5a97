package nestable

import (
	"context"
	"fmt"
)

const (
	listChildren = "children"
	listAssets   = "assets"
)

// NestMint mints quantity new tokens directly under destTokenID of
// destRegistry. They land in the destination's active children when the
// caller is the destination's root owner, and pending otherwise.
func (registry *Registry) NestMint(
	ctx context.Context,
	caller Account,
	destRegistry RegistryID,
	destTokenID TokenID,
	quantity int,
) ([]TokenID, error) {
	caller, err := normalizeCaller(caller)
	if err != nil {
		return nil, err
	}
	destinationID, err := NormalizeRegistryID(string(destRegistry))
	if err != nil {
		return nil, fmt.Errorf("destination registry: %w", err)
	}
	destination := TokenRef{Registry: destinationID, TokenID: destTokenID}

	var minted []TokenID
	err = registry.directory.transact(ctx, "nest-mint", registry.id, func(ctx context.Context, txn *transaction) error {
		if err := registry.checkSupply(quantity); err != nil {
			return err
		}
		if err := registry.directory.tokenExists(ctx, destination); err != nil {
			return err
		}
		if err := registry.directory.checkNestingDepth(ctx, destination, 1); err != nil {
			return err
		}
		destinationSource, err := registry.directory.Lookup(destination.Registry)
		if err != nil {
			return err
		}

		minted = make([]TokenID, 0, quantity)
		for index := 0; index < quantity; index++ {
			id := registry.tokens.mint(txn, TokenOwner(destination))
			minted = append(minted, id)
			registry.emit(txn, Event{Type: EventMint, TokenID: id, From: string(caller), To: destination.String()})
			actorCtx := withActor(ctx, registry.id, destination.Registry)
			if err := destinationSource.ReceiveChild(actorCtx, destTokenID, registry.ref(id), caller); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return minted, nil
}

// ReceiveChild records child under parentID. Children proposed by another
// native registry on behalf of the parent's root owner become active right
// away. Every other proposal waits in the pending list.
func (registry *Registry) ReceiveChild(ctx context.Context, parentID TokenID, child TokenRef, caller Account) error {
	return registry.directory.transact(ctx, "receive-child", registry.id, func(ctx context.Context, txn *transaction) error {
		parent := registry.ref(parentID)
		if !registry.config.allowsChild(registry.id, child.Registry) {
			return NewAuthorizationError(registry.id, caller, parentID,
				fmt.Sprintf("children from registry %s are not allowed", child.Registry))
		}
		childSource, err := registry.directory.Lookup(child.Registry)
		if err != nil {
			return err
		}
		childOwner, err := childSource.DirectOwnerOf(ctx, child.TokenID)
		if err != nil {
			return err
		}
		if !childOwner.IsToken() || childOwner.Parent != parent {
			return NewAuthorizationError(registry.id, caller, parentID,
				fmt.Sprintf("%s is not owned by %s", child, parent))
		}

		release, err := txn.guard(parent)
		if err != nil {
			return err
		}
		defer release()

		record, err := registry.tokens.mutable(txn, parentID)
		if err != nil {
			return err
		}
		if indexOfRef(record.activeChildren, child) >= 0 || indexOfRef(record.pendingChildren, child) >= 0 {
			return NewChildAlreadyExistsError(parent, child)
		}

		active := false
		if _, trusted := callerRegistry(ctx, registry.id); trusted && caller != "" {
			owner, err := registry.rootOwner(ctx, parentID)
			if err != nil {
				return err
			}
			active = caller == owner
		}

		if active {
			record.activeChildren = append(record.activeChildren, child)
			registry.emit(txn, Event{
				Type:    EventChildAccepted,
				TokenID: parentID,
				Child:   childRef(child),
				From:    string(caller),
				Index:   len(record.activeChildren) - 1,
			})
			return nil
		}

		if len(record.pendingChildren) >= registry.config.MaxPendingChildren {
			return NewPendingLimitExceededError(parent, listChildren, registry.config.MaxPendingChildren)
		}
		record.pendingChildren = append(record.pendingChildren, child)
		registry.emit(txn, Event{
			Type:    EventChildProposed,
			TokenID: parentID,
			Child:   childRef(child),
			From:    string(caller),
			Index:   len(record.pendingChildren) - 1,
		})
		return nil
	})
}

// AcceptChild moves the pending child at index into the active list. The
// entry at index must still be (childRegistry, childID).
func (registry *Registry) AcceptChild(
	ctx context.Context,
	caller Account,
	parentID TokenID,
	index int,
	childRegistry RegistryID,
	childID TokenID,
) error {
	caller, err := normalizeCaller(caller)
	if err != nil {
		return err
	}
	childRegistryID, err := NormalizeRegistryID(string(childRegistry))
	if err != nil {
		return fmt.Errorf("child registry: %w", err)
	}
	expected := TokenRef{Registry: childRegistryID, TokenID: childID}

	return registry.directory.transact(ctx, "accept-child", registry.id, func(ctx context.Context, txn *transaction) error {
		if _, err := registry.authorizeOwnerOrApproved(ctx, caller, parentID); err != nil {
			return err
		}
		parent := registry.ref(parentID)
		release, err := txn.guard(parent)
		if err != nil {
			return err
		}
		defer release()

		record, err := registry.tokens.mutable(txn, parentID)
		if err != nil {
			return err
		}
		if err := checkChildAt(parent, record.pendingChildren, index, expected); err != nil {
			return err
		}
		record.pendingChildren = removeRefAt(record.pendingChildren, index)
		record.activeChildren = append(record.activeChildren, expected)

		childSource, err := registry.directory.Lookup(expected.Registry)
		if err != nil {
			return err
		}
		if err := childSource.NotifyAccepted(withActor(ctx, registry.id, expected.Registry), childID, parent); err != nil {
			return err
		}
		registry.emit(txn, Event{
			Type:    EventChildAccepted,
			TokenID: parentID,
			Child:   childRef(expected),
			From:    string(caller),
			Index:   index,
		})
		return nil
	})
}

// TransferChild moves the child at index of the pending (isPending) or
// active list out of parentID. With destTokenID zero, to is the receiving
// account. Otherwise to names the registry of the receiving token.
func (registry *Registry) TransferChild(
	ctx context.Context,
	caller Account,
	parentID TokenID,
	to string,
	destTokenID TokenID,
	index int,
	childRegistry RegistryID,
	childID TokenID,
	isPending bool,
) error {
	caller, err := normalizeCaller(caller)
	if err != nil {
		return err
	}
	childRegistryID, err := NormalizeRegistryID(string(childRegistry))
	if err != nil {
		return fmt.Errorf("child registry: %w", err)
	}
	child := TokenRef{Registry: childRegistryID, TokenID: childID}

	var destination Owner
	if destTokenID == 0 {
		account, err := NormalizeAccount(to)
		if err != nil {
			return fmt.Errorf("recipient: %w", err)
		}
		destination = AccountOwner(account)
	} else {
		destinationRegistry, err := NormalizeRegistryID(to)
		if err != nil {
			return fmt.Errorf("destination registry: %w", err)
		}
		destination = TokenOwner(TokenRef{Registry: destinationRegistry, TokenID: destTokenID})
	}

	return registry.directory.transact(ctx, "transfer-child", registry.id, func(ctx context.Context, txn *transaction) error {
		if _, err := registry.authorizeOwnerOrApproved(ctx, caller, parentID); err != nil {
			return err
		}
		parent := registry.ref(parentID)
		release, err := txn.guard(parent)
		if err != nil {
			return err
		}
		defer release()

		record, err := registry.tokens.mutable(txn, parentID)
		if err != nil {
			return err
		}
		list := record.activeChildren
		if isPending {
			list = record.pendingChildren
		}
		if err := checkChildAt(parent, list, index, child); err != nil {
			return err
		}

		if destination.IsToken() {
			if destination.Parent == parent {
				return NewChildAlreadyExistsError(parent, child)
			}
			if err := registry.directory.tokenExists(ctx, destination.Parent); err != nil {
				return err
			}
			cycle, err := registry.directory.chainContains(ctx, destination.Parent, child)
			if err != nil {
				return err
			}
			if cycle {
				return NewCycleDetectedError(child, destination.Parent)
			}
			levels := 1 + registry.directory.subtreeHeight(child, registry.directory.options.MaxResolutionDepth)
			if err := registry.directory.checkNestingDepth(ctx, destination.Parent, levels); err != nil {
				return err
			}
		}

		if isPending {
			record.pendingChildren = removeRefAt(record.pendingChildren, index)
		} else {
			record.activeChildren = removeRefAt(record.activeChildren, index)
		}

		childSource, err := registry.directory.Lookup(child.Registry)
		if err != nil {
			return err
		}
		if err := childSource.NotifyChildTransferred(withActor(ctx, registry.id, child.Registry), childID, parent, destination); err != nil {
			return err
		}
		if destination.IsToken() {
			destinationSource, err := registry.directory.Lookup(destination.Parent.Registry)
			if err != nil {
				return err
			}
			actorCtx := withActor(ctx, registry.id, destination.Parent.Registry)
			if err := destinationSource.ReceiveChild(actorCtx, destination.Parent.TokenID, child, caller); err != nil {
				return err
			}
		}

		registry.emit(txn, Event{
			Type:    EventChildTransferred,
			TokenID: parentID,
			Child:   childRef(child),
			From:    string(caller),
			To:      destination.String(),
			Index:   index,
			Flag:    isPending,
		})
		return nil
	})
}

// RejectAllChildren clears the pending children of parentID, handing each
// rejected child to the parent's root owner. A positive maxRejections
// fails the call when more children are pending.
func (registry *Registry) RejectAllChildren(ctx context.Context, caller Account, parentID TokenID, maxRejections int) error {
	caller, err := normalizeCaller(caller)
	if err != nil {
		return err
	}

	return registry.directory.transact(ctx, "reject-all-children", registry.id, func(ctx context.Context, txn *transaction) error {
		if _, err := registry.authorizeOwnerOrApproved(ctx, caller, parentID); err != nil {
			return err
		}
		parent := registry.ref(parentID)
		release, err := txn.guard(parent)
		if err != nil {
			return err
		}
		defer release()

		record, err := registry.tokens.mutable(txn, parentID)
		if err != nil {
			return err
		}
		rejected := record.pendingChildren
		if maxRejections > 0 && len(rejected) > maxRejections {
			return NewUnexpectedNumberError(parent, "pending children", maxRejections, len(rejected))
		}
		owner, err := registry.rootOwner(ctx, parentID)
		if err != nil {
			return err
		}
		record.pendingChildren = nil

		for _, child := range rejected {
			childSource, err := registry.directory.Lookup(child.Registry)
			if err != nil {
				return err
			}
			actorCtx := withActor(ctx, registry.id, child.Registry)
			if err := childSource.NotifyChildTransferred(actorCtx, child.TokenID, parent, AccountOwner(owner)); err != nil {
				return err
			}
		}
		registry.emit(txn, Event{
			Type:    EventAllChildrenRejected,
			TokenID: parentID,
			From:    string(caller),
			To:      string(owner),
			Count:   len(rejected),
		})
		return nil
	})
}

// NotifyChildBurned drops a burned child from parentID's lists. Only the
// child's registry may call it.
func (registry *Registry) NotifyChildBurned(ctx context.Context, parentID TokenID, child TokenRef) error {
	return registry.directory.transact(ctx, "notify-child-burned", registry.id, func(ctx context.Context, txn *transaction) error {
		parent := registry.ref(parentID)
		if from, ok := callerRegistry(ctx, registry.id); !ok || from != child.Registry {
			return NewAuthorizationError(registry.id, "", parentID, "only the child's registry reports its burn")
		}
		release, err := txn.guard(parent)
		if err != nil {
			return err
		}
		defer release()

		record, err := registry.tokens.mutable(txn, parentID)
		if err != nil {
			return err
		}
		if index := indexOfRef(record.activeChildren, child); index >= 0 {
			record.activeChildren = removeRefAt(record.activeChildren, index)
			return nil
		}
		if index := indexOfRef(record.pendingChildren, child); index >= 0 {
			record.pendingChildren = removeRefAt(record.pendingChildren, index)
			return nil
		}
		return NewUnexpectedChildError(parent, -1, child, nil)
	})
}

// ChildrenOf returns the active children of tokenID in acceptance order.
func (registry *Registry) ChildrenOf(ctx context.Context, tokenID TokenID) ([]TokenRef, error) {
	var children []TokenRef
	err := registry.directory.read(ctx, func(ctx context.Context) error {
		record, err := registry.tokens.get(tokenID)
		if err != nil {
			return err
		}
		children = append([]TokenRef{}, record.activeChildren...)
		return nil
	})
	return children, err
}

// PendingChildrenOf returns the pending children of tokenID in proposal
// order.
func (registry *Registry) PendingChildrenOf(ctx context.Context, tokenID TokenID) ([]TokenRef, error) {
	var children []TokenRef
	err := registry.directory.read(ctx, func(ctx context.Context) error {
		record, err := registry.tokens.get(tokenID)
		if err != nil {
			return err
		}
		children = append([]TokenRef{}, record.pendingChildren...)
		return nil
	})
	return children, err
}

// ChildOf returns the active child at index.
func (registry *Registry) ChildOf(ctx context.Context, parentID TokenID, index int) (TokenRef, error) {
	var child TokenRef
	err := registry.directory.read(ctx, func(ctx context.Context) error {
		record, err := registry.tokens.get(parentID)
		if err != nil {
			return err
		}
		if index < 0 || index >= len(record.activeChildren) {
			return NewUnexpectedChildError(registry.ref(parentID), index, TokenRef{}, nil)
		}
		child = record.activeChildren[index]
		return nil
	})
	return child, err
}

func checkChildAt(parent TokenRef, list []TokenRef, index int, expected TokenRef) error {
	if index < 0 || index >= len(list) {
		return NewUnexpectedChildError(parent, index, expected, nil)
	}
	if list[index] != expected {
		found := list[index]
		return NewUnexpectedChildError(parent, index, expected, &found)
	}
	return nil
}

func indexOfRef(list []TokenRef, ref TokenRef) int {
	for index, candidate := range list {
		if candidate == ref {
			return index
		}
	}
	return -1
}

func removeRefAt(list []TokenRef, index int) []TokenRef {
	return append(list[:index], list[index+1:]...)
}
