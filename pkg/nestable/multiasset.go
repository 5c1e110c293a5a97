package nestable

import (
	"context"
	"fmt"
	"strings"
)

// AddAssetEntry appends reference to the asset catalog and returns its id.
// Only the admin and contributors may write to the catalog.
func (registry *Registry) AddAssetEntry(ctx context.Context, caller Account, reference string) (AssetID, error) {
	caller, err := normalizeCaller(caller)
	if err != nil {
		return 0, err
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return 0, fmt.Errorf("asset reference is required")
	}

	var assetID AssetID
	err = registry.directory.transact(ctx, "add-asset-entry", registry.id, func(ctx context.Context, txn *transaction) error {
		if !registry.isCatalogWriter(caller) {
			return NewAuthorizationError(registry.id, caller, 0, "caller cannot write to the asset catalog")
		}
		assetID = registry.assets.add(txn, reference)
		registry.emit(txn, Event{Type: EventAssetEntryAdded, AssetID: assetID, Reference: reference, From: string(caller)})
		return nil
	})
	if err != nil {
		return 0, err
	}
	return assetID, nil
}

// AddAssetToTokens offers assetID to every token in tokenIDs. Tokens whose
// root owner is the caller take it as active right away, replacing
// replaces in place when present. Every other token gets a pending entry
// tagged with replaces.
func (registry *Registry) AddAssetToTokens(
	ctx context.Context,
	caller Account,
	tokenIDs []TokenID,
	assetID AssetID,
	replaces AssetID,
) error {
	caller, err := normalizeCaller(caller)
	if err != nil {
		return err
	}
	return registry.directory.transact(ctx, "add-asset-to-tokens", registry.id, func(ctx context.Context, txn *transaction) error {
		return registry.addAssetToTokens(ctx, txn, caller, tokenIDs, assetID, replaces)
	})
}

// AddAssetsToTokens offers every asset in assetIDs to every token in
// tokenIDs, without replacements, in one transaction.
func (registry *Registry) AddAssetsToTokens(ctx context.Context, caller Account, tokenIDs []TokenID, assetIDs []AssetID) error {
	caller, err := normalizeCaller(caller)
	if err != nil {
		return err
	}
	return registry.directory.transact(ctx, "add-assets-to-tokens", registry.id, func(ctx context.Context, txn *transaction) error {
		for _, assetID := range assetIDs {
			if err := registry.addAssetToTokens(ctx, txn, caller, tokenIDs, assetID, 0); err != nil {
				return err
			}
		}
		return nil
	})
}

func (registry *Registry) addAssetToTokens(
	ctx context.Context,
	txn *transaction,
	caller Account,
	tokenIDs []TokenID,
	assetID AssetID,
	replaces AssetID,
) error {
	if !registry.isCatalogWriter(caller) {
		return NewAuthorizationError(registry.id, caller, 0, "caller cannot assign catalog assets")
	}
	if _, ok := registry.assets.reference(assetID); !ok {
		return NewUnknownAssetError(registry.id, assetID)
	}
	if replaces != 0 {
		if _, ok := registry.assets.reference(replaces); !ok {
			return NewUnknownAssetError(registry.id, replaces)
		}
	}
	for _, tokenID := range tokenIDs {
		if err := registry.addAssetToToken(ctx, txn, caller, tokenID, assetID, replaces); err != nil {
			return err
		}
	}
	return nil
}

func (registry *Registry) addAssetToToken(
	ctx context.Context,
	txn *transaction,
	caller Account,
	tokenID TokenID,
	assetID AssetID,
	replaces AssetID,
) error {
	token := registry.ref(tokenID)
	release, err := txn.guard(token)
	if err != nil {
		return err
	}
	defer release()

	record, err := registry.tokens.mutable(txn, tokenID)
	if err != nil {
		return err
	}
	if indexOfAsset(record.activeAssets, assetID) >= 0 || indexOfPendingAsset(record.pendingAssets, assetID) >= 0 {
		return NewAssetAlreadyExistsError(token, assetID)
	}
	owner, err := registry.rootOwner(ctx, tokenID)
	if err != nil {
		return err
	}

	if caller == owner {
		slot, replaced := activateAsset(record, assetID, replaces)
		registry.emit(txn, Event{
			Type:     EventAssetAddedToToken,
			TokenID:  tokenID,
			AssetID:  assetID,
			Replaces: replaced,
			From:     string(caller),
			Index:    slot,
			Flag:     true,
		})
		return nil
	}

	if len(record.pendingAssets) >= registry.config.MaxPendingAssets {
		return NewPendingLimitExceededError(token, listAssets, registry.config.MaxPendingAssets)
	}
	record.pendingAssets = append(record.pendingAssets, pendingAsset{AssetID: assetID, Replaces: replaces})
	registry.emit(txn, Event{
		Type:     EventAssetAddedToToken,
		TokenID:  tokenID,
		AssetID:  assetID,
		Replaces: replaces,
		From:     string(caller),
		Index:    len(record.pendingAssets) - 1,
	})
	return nil
}

// AcceptAsset activates the pending asset at index. The entry at index
// must still be assetID. A replacing entry takes over the replaced slot
// and its priority; any other entry is appended.
func (registry *Registry) AcceptAsset(ctx context.Context, caller Account, tokenID TokenID, index int, assetID AssetID) error {
	caller, err := normalizeCaller(caller)
	if err != nil {
		return err
	}
	return registry.directory.transact(ctx, "accept-asset", registry.id, func(ctx context.Context, txn *transaction) error {
		record, release, err := registry.pendingAssetAt(ctx, txn, caller, tokenID, index, assetID)
		if err != nil {
			return err
		}
		defer release()

		entry := record.pendingAssets[index]
		record.pendingAssets = removePendingAssetAt(record.pendingAssets, index)
		slot, replaced := activateAsset(record, entry.AssetID, entry.Replaces)
		registry.emit(txn, Event{
			Type:     EventAssetAccepted,
			TokenID:  tokenID,
			AssetID:  assetID,
			Replaces: replaced,
			From:     string(caller),
			Index:    slot,
		})
		return nil
	})
}

// RejectAsset drops the pending asset at index.
func (registry *Registry) RejectAsset(ctx context.Context, caller Account, tokenID TokenID, index int, assetID AssetID) error {
	caller, err := normalizeCaller(caller)
	if err != nil {
		return err
	}
	return registry.directory.transact(ctx, "reject-asset", registry.id, func(ctx context.Context, txn *transaction) error {
		record, release, err := registry.pendingAssetAt(ctx, txn, caller, tokenID, index, assetID)
		if err != nil {
			return err
		}
		defer release()

		record.pendingAssets = removePendingAssetAt(record.pendingAssets, index)
		registry.emit(txn, Event{
			Type:    EventAssetRejected,
			TokenID: tokenID,
			AssetID: assetID,
			From:    string(caller),
			Index:   index,
			Count:   1,
		})
		return nil
	})
}

// RejectAllAssets clears the pending assets of tokenID. A positive
// maxRejections fails the call when more assets are pending.
func (registry *Registry) RejectAllAssets(ctx context.Context, caller Account, tokenID TokenID, maxRejections int) error {
	caller, err := normalizeCaller(caller)
	if err != nil {
		return err
	}
	return registry.directory.transact(ctx, "reject-all-assets", registry.id, func(ctx context.Context, txn *transaction) error {
		if _, err := registry.authorizeOwnerOrApproved(ctx, caller, tokenID); err != nil {
			return err
		}
		token := registry.ref(tokenID)
		release, err := txn.guard(token)
		if err != nil {
			return err
		}
		defer release()

		record, err := registry.tokens.mutable(txn, tokenID)
		if err != nil {
			return err
		}
		count := len(record.pendingAssets)
		if maxRejections > 0 && count > maxRejections {
			return NewUnexpectedNumberError(token, "pending assets", maxRejections, count)
		}
		record.pendingAssets = nil
		registry.emit(txn, Event{Type: EventAssetRejected, TokenID: tokenID, From: string(caller), Count: count})
		return nil
	})
}

// SetPriority replaces the priorities of the active assets. priorities
// must have one value per active asset.
func (registry *Registry) SetPriority(ctx context.Context, caller Account, tokenID TokenID, priorities []uint64) error {
	caller, err := normalizeCaller(caller)
	if err != nil {
		return err
	}
	return registry.directory.transact(ctx, "set-priority", registry.id, func(ctx context.Context, txn *transaction) error {
		if _, err := registry.authorizeOwnerOrApproved(ctx, caller, tokenID); err != nil {
			return err
		}
		token := registry.ref(tokenID)
		release, err := txn.guard(token)
		if err != nil {
			return err
		}
		defer release()

		record, err := registry.tokens.mutable(txn, tokenID)
		if err != nil {
			return err
		}
		if len(priorities) != len(record.activeAssets) {
			return NewUnexpectedNumberError(token, "priorities", len(record.activeAssets), len(priorities))
		}
		record.priorities = append([]uint64{}, priorities...)
		registry.emit(txn, Event{Type: EventPrioritySet, TokenID: tokenID, From: string(caller), Count: len(priorities)})
		return nil
	})
}

// pendingAssetAt authorizes caller on tokenID, guards the token and checks
// that the pending entry at index is assetID.
func (registry *Registry) pendingAssetAt(
	ctx context.Context,
	txn *transaction,
	caller Account,
	tokenID TokenID,
	index int,
	assetID AssetID,
) (*tokenRecord, func(), error) {
	if _, err := registry.authorizeOwnerOrApproved(ctx, caller, tokenID); err != nil {
		return nil, nil, err
	}
	token := registry.ref(tokenID)
	release, err := txn.guard(token)
	if err != nil {
		return nil, nil, err
	}
	record, err := registry.tokens.mutable(txn, tokenID)
	if err != nil {
		release()
		return nil, nil, err
	}
	if index < 0 || index >= len(record.pendingAssets) {
		release()
		return nil, nil, NewUnexpectedAssetError(token, index, assetID, 0)
	}
	if found := record.pendingAssets[index].AssetID; found != assetID {
		release()
		return nil, nil, NewUnexpectedAssetError(token, index, assetID, found)
	}
	return record, release, nil
}

// GetActiveAssets returns the active assets of tokenID in display order.
func (registry *Registry) GetActiveAssets(ctx context.Context, tokenID TokenID) ([]AssetID, error) {
	var assets []AssetID
	err := registry.directory.read(ctx, func(ctx context.Context) error {
		record, err := registry.tokens.get(tokenID)
		if err != nil {
			return err
		}
		assets = append([]AssetID{}, record.activeAssets...)
		return nil
	})
	return assets, err
}

// GetPendingAssets returns the pending assets of tokenID in proposal order.
func (registry *Registry) GetPendingAssets(ctx context.Context, tokenID TokenID) ([]AssetID, error) {
	var assets []AssetID
	err := registry.directory.read(ctx, func(ctx context.Context) error {
		record, err := registry.tokens.get(tokenID)
		if err != nil {
			return err
		}
		assets = make([]AssetID, len(record.pendingAssets))
		for index, entry := range record.pendingAssets {
			assets[index] = entry.AssetID
		}
		return nil
	})
	return assets, err
}

// GetActiveAssetPriorities returns one priority per active asset.
func (registry *Registry) GetActiveAssetPriorities(ctx context.Context, tokenID TokenID) ([]uint64, error) {
	var priorities []uint64
	err := registry.directory.read(ctx, func(ctx context.Context) error {
		record, err := registry.tokens.get(tokenID)
		if err != nil {
			return err
		}
		priorities = append([]uint64{}, record.priorities...)
		return nil
	})
	return priorities, err
}

// GetAssetReplacements returns the active asset a pending asset will
// replace when accepted, or zero.
func (registry *Registry) GetAssetReplacements(ctx context.Context, tokenID TokenID, assetID AssetID) (AssetID, error) {
	var replaces AssetID
	err := registry.directory.read(ctx, func(ctx context.Context) error {
		record, err := registry.tokens.get(tokenID)
		if err != nil {
			return err
		}
		index := indexOfPendingAsset(record.pendingAssets, assetID)
		if index < 0 {
			return NewTokenDoesNotHaveAssetError(registry.ref(tokenID), assetID)
		}
		replaces = record.pendingAssets[index].Replaces
		return nil
	})
	return replaces, err
}

// GetAssetMetadata returns the reference of an asset that is active or
// pending on tokenID.
func (registry *Registry) GetAssetMetadata(ctx context.Context, tokenID TokenID, assetID AssetID) (string, error) {
	var reference string
	err := registry.directory.read(ctx, func(ctx context.Context) error {
		record, err := registry.tokens.get(tokenID)
		if err != nil {
			return err
		}
		if indexOfAsset(record.activeAssets, assetID) < 0 && indexOfPendingAsset(record.pendingAssets, assetID) < 0 {
			return NewTokenDoesNotHaveAssetError(registry.ref(tokenID), assetID)
		}
		reference, _ = registry.assets.reference(assetID)
		return nil
	})
	return reference, err
}

// AssetEntry returns the catalog reference of assetID.
func (registry *Registry) AssetEntry(ctx context.Context, assetID AssetID) (string, error) {
	var reference string
	err := registry.directory.read(ctx, func(ctx context.Context) error {
		value, ok := registry.assets.reference(assetID)
		if !ok {
			return NewUnknownAssetError(registry.id, assetID)
		}
		reference = value
		return nil
	})
	return reference, err
}

// TotalAssets returns the number of catalog entries.
func (registry *Registry) TotalAssets(ctx context.Context) (int, error) {
	total := 0
	err := registry.directory.read(ctx, func(ctx context.Context) error {
		total = registry.assets.size()
		return nil
	})
	return total, err
}

// activateAsset puts assetID in the active list, in the slot of replaces
// when it is active, and returns the slot and the id actually replaced.
func activateAsset(record *tokenRecord, assetID AssetID, replaces AssetID) (int, AssetID) {
	if replaces != 0 {
		if slot := indexOfAsset(record.activeAssets, replaces); slot >= 0 {
			record.activeAssets[slot] = assetID
			return slot, replaces
		}
	}
	record.activeAssets = append(record.activeAssets, assetID)
	record.priorities = append(record.priorities, 0)
	return len(record.activeAssets) - 1, 0
}

func indexOfAsset(list []AssetID, assetID AssetID) int {
	for index, candidate := range list {
		if candidate == assetID {
			return index
		}
	}
	return -1
}

func indexOfPendingAsset(list []pendingAsset, assetID AssetID) int {
	for index, candidate := range list {
		if candidate.AssetID == assetID {
			return index
		}
	}
	return -1
}

func removePendingAssetAt(list []pendingAsset, index int) []pendingAsset {
	return append(list[:index], list[index+1:]...)
}
