package nestable

import (
	"context"
	"fmt"
)

var _ TokenSource = (*Registry)(nil)

// NotifyAccepted confirms that tokenID is nested under parent. The direct
// owner was already set when the child was proposed, so nothing changes.
func (registry *Registry) NotifyAccepted(ctx context.Context, childID TokenID, parent TokenRef) error {
	return registry.directory.transact(ctx, "notify-accepted", registry.id, func(ctx context.Context, txn *transaction) error {
		release, err := txn.guard(registry.ref(childID))
		if err != nil {
			return err
		}
		defer release()

		record, err := registry.tokens.get(childID)
		if err != nil {
			return err
		}
		if !record.owner.IsToken() || record.owner.Parent != parent {
			return NewAuthorizationError(registry.id, "", childID, fmt.Sprintf("token is not a child of %s", parent))
		}
		return nil
	})
}

// NotifyChildTransferred hands childID from its parent to a new owner.
// Only the parent's registry may call it.
func (registry *Registry) NotifyChildTransferred(ctx context.Context, childID TokenID, from TokenRef, to Owner) error {
	return registry.directory.transact(ctx, "notify-child-transferred", registry.id, func(ctx context.Context, txn *transaction) error {
		if caller, ok := callerRegistry(ctx, registry.id); !ok || caller != from.Registry {
			return NewAuthorizationError(registry.id, "", childID, "only the parent's registry may move its child")
		}
		child := registry.ref(childID)
		release, err := txn.guard(child)
		if err != nil {
			return err
		}
		defer release()

		record, err := registry.tokens.mutable(txn, childID)
		if err != nil {
			return err
		}
		if !record.owner.IsToken() || record.owner.Parent != from {
			return NewAuthorizationError(registry.id, "", childID, fmt.Sprintf("token is not a child of %s", from))
		}
		if !to.IsToken() {
			account, err := NormalizeAccount(string(to.Account))
			if err != nil {
				return fmt.Errorf("recipient: %w", err)
			}
			to = AccountOwner(account)
		} else if to.Parent == child {
			return NewCycleDetectedError(child, to.Parent)
		}

		registry.tokens.setDirectOwner(txn, record, to)
		registry.emit(txn, Event{Type: EventTransfer, TokenID: childID, From: from.String(), To: to.String()})
		return nil
	})
}

// BurnChild burns childID and its descendants on behalf of its parent.
// Only the parent's registry may call it.
func (registry *Registry) BurnChild(ctx context.Context, childID TokenID, parent TokenRef, maxRecursiveBurns int) (int, error) {
	burned := 0
	err := registry.directory.transact(ctx, "burn-child", registry.id, func(ctx context.Context, txn *transaction) error {
		if caller, ok := callerRegistry(ctx, registry.id); !ok || caller != parent.Registry {
			return NewAuthorizationError(registry.id, "", childID, "only the parent's registry may burn its child")
		}
		record, err := registry.tokens.get(childID)
		if err != nil {
			return err
		}
		if !record.owner.IsToken() || record.owner.Parent != parent {
			return NewAuthorizationError(registry.id, "", childID, fmt.Sprintf("token is not a child of %s", parent))
		}
		burned, err = registry.burnToken(ctx, txn, childID, maxRecursiveBurns)
		return err
	})
	if err != nil {
		return 0, err
	}
	return burned, nil
}
