package nestable

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func snapshotAll(r *rapid.T, f fixture) map[RegistryID]Snapshot {
	snapshots := map[RegistryID]Snapshot{}
	for _, registry := range []*Registry{f.films, f.characters} {
		snapshot, err := registry.Snapshot(f.ctx)
		require.NoError(r, err)
		snapshots[registry.ID()] = snapshot
	}
	return snapshots
}

func checkInvariants(r *rapid.T, f fixture) {
	snapshots := snapshotAll(r, f)
	live := map[TokenRef]TokenSnapshot{}
	for id, snapshot := range snapshots {
		for _, token := range snapshot.Tokens {
			if !token.Burned {
				live[ref(id, token.ID)] = token
			}
		}
	}

	for id, snapshot := range snapshots {
		balances := map[Account]int{}
		for _, token := range snapshot.Tokens {
			if !token.Burned && !token.DirectOwner.IsToken() {
				balances[token.DirectOwner.Account]++
			}
		}
		require.Equal(r, balances, snapshot.Balances, "balances of %s", id)
	}

	for tokenRef, token := range live {
		for _, child := range token.ActiveChildren {
			require.NotContains(r, token.PendingChildren, child, "%s lists %s as active and pending", tokenRef, child)
		}
		pendingAssets := make([]AssetID, 0, len(token.PendingAssets))
		for _, entry := range token.PendingAssets {
			pendingAssets = append(pendingAssets, entry.AssetID)
		}
		for _, asset := range token.ActiveAssets {
			require.NotContains(r, pendingAssets, asset, "%s lists asset %d as active and pending", tokenRef, asset)
		}
		require.Len(r, token.Priorities, len(token.ActiveAssets))

		children := append(append([]TokenRef{}, token.ActiveChildren...), token.PendingChildren...)
		for _, child := range children {
			childToken, ok := live[child]
			require.True(r, ok, "%s lists missing child %s", tokenRef, child)
			require.Equal(r, TokenOwner(tokenRef), childToken.DirectOwner)
		}

		if token.DirectOwner.IsToken() {
			parent, ok := live[token.DirectOwner.Parent]
			require.True(r, ok, "%s is owned by missing %s", tokenRef, token.DirectOwner.Parent)
			listed := 0
			for _, sibling := range append(append([]TokenRef{}, parent.ActiveChildren...), parent.PendingChildren...) {
				if sibling == tokenRef {
					listed++
				}
			}
			require.Equal(r, 1, listed, "%s appears %d times under its parent", tokenRef, listed)
		}

		_, err := f.directory.OwnerOf(f.ctx, tokenRef)
		require.NoError(r, err, "owner of %s", tokenRef)
	}
}

func TestInvariantsHoldUnderRandomOperations(t *testing.T) {
	rapid.Check(t, func(r *rapid.T) {
		f, err := buildFixture()
		require.NoError(r, err)
		registries := []*Registry{f.films, f.characters}
		accounts := []Account{adminAccount, aliceAccount, bobAccount}
		for _, registry := range registries {
			for index := 0; index < 3; index++ {
				_, err := registry.AddAssetEntry(f.ctx, adminAccount, fmt.Sprintf("ipfs://%s/%d", registry.ID(), index))
				require.NoError(r, err)
			}
		}

		steps := rapid.IntRange(1, 40).Draw(r, "steps")
		for step := 0; step < steps; step++ {
			registry := rapid.SampledFrom(registries).Draw(r, "registry")
			other := rapid.SampledFrom(registries).Draw(r, "other")
			caller := rapid.SampledFrom(accounts).Draw(r, "caller")
			recipient := rapid.SampledFrom(accounts).Draw(r, "recipient")
			tokenID := TokenID(rapid.IntRange(1, 8).Draw(r, "token"))
			targetID := TokenID(rapid.IntRange(1, 8).Draw(r, "target"))
			index := rapid.IntRange(0, 2).Draw(r, "index")
			op := rapid.IntRange(0, 10).Draw(r, "op")

			before := snapshotAll(r, f)
			var opErr error
			switch op {
			case 0:
				_, opErr = registry.Mint(f.ctx, caller, recipient, rapid.IntRange(1, 2).Draw(r, "quantity"))
			case 1:
				_, opErr = registry.NestMint(f.ctx, caller, other.ID(), targetID, rapid.IntRange(1, 2).Draw(r, "quantity"))
			case 2:
				child := ref(registry.ID(), tokenID)
				if pending, err := other.PendingChildrenOf(f.ctx, targetID); err == nil && index < len(pending) {
					child = pending[index]
				}
				opErr = other.AcceptChild(f.ctx, caller, targetID, index, child.Registry, child.TokenID)
			case 3:
				opErr = registry.NestTransfer(f.ctx, caller, tokenID, other.ID(), targetID)
			case 4:
				pending := rapid.Bool().Draw(r, "pending")
				child := ref(other.ID(), targetID)
				list, err := registry.ChildrenOf(f.ctx, tokenID)
				if pending {
					list, err = registry.PendingChildrenOf(f.ctx, tokenID)
				}
				if err == nil && index < len(list) {
					child = list[index]
				}
				if rapid.Bool().Draw(r, "to account") {
					opErr = registry.TransferChild(f.ctx, caller, tokenID, string(recipient), 0, index, child.Registry, child.TokenID, pending)
				} else {
					opErr = registry.TransferChild(f.ctx, caller, tokenID, string(other.ID()), targetID, index, child.Registry, child.TokenID, pending)
				}
			case 5:
				opErr = registry.RejectAllChildren(f.ctx, caller, tokenID, rapid.IntRange(0, 2).Draw(r, "max"))
			case 6:
				_, opErr = registry.Burn(f.ctx, caller, tokenID, rapid.IntRange(0, 4).Draw(r, "max burns"))
			case 7:
				assetID := AssetID(rapid.IntRange(1, 3).Draw(r, "asset"))
				replaces := AssetID(rapid.IntRange(0, 3).Draw(r, "replaces"))
				opErr = registry.AddAssetToTokens(f.ctx, adminAccount, []TokenID{tokenID, targetID}, assetID, replaces)
			case 8:
				assetID := AssetID(rapid.IntRange(1, 3).Draw(r, "asset"))
				if pending, err := registry.GetPendingAssets(f.ctx, tokenID); err == nil && index < len(pending) {
					assetID = pending[index]
				}
				opErr = registry.AcceptAsset(f.ctx, caller, tokenID, index, assetID)
			case 9:
				opErr = registry.Transfer(f.ctx, caller, tokenID, recipient)
			case 10:
				opErr = registry.Approve(f.ctx, caller, tokenID, recipient)
			}

			if opErr != nil {
				require.Equal(r, before, snapshotAll(r, f), "op %d failed with %v but changed state", op, opErr)
			}
			checkInvariants(r, f)
		}
	})
}

func TestAdversarialCycleAttemptsAreRejected(t *testing.T) {
	rapid.Check(t, func(r *rapid.T) {
		f, err := buildFixture()
		require.NoError(r, err)

		// Build a random chain root -> ... -> leaf alternating registries.
		depth := rapid.IntRange(1, 6).Draw(r, "depth")
		registries := []*Registry{f.films, f.characters}
		chain := []TokenRef{}
		ids, err := f.films.Mint(f.ctx, adminAccount, aliceAccount, 1)
		require.NoError(r, err)
		chain = append(chain, ref(filmsID, ids[0]))
		for level := 1; level <= depth; level++ {
			registry := registries[level%2]
			parent := chain[len(chain)-1]
			children, err := registry.NestMint(f.ctx, aliceAccount, parent.Registry, parent.TokenID, 1)
			require.NoError(r, err)
			chain = append(chain, ref(registry.ID(), children[0]))
		}

		moved := rapid.IntRange(0, depth-1).Draw(r, "moved")
		destination := rapid.IntRange(moved, depth).Draw(r, "destination")
		mover := chain[moved]
		target := chain[destination]
		source, err := f.directory.Registry(mover.Registry)
		require.NoError(r, err)

		if moved == 0 {
			err = source.NestTransfer(f.ctx, aliceAccount, mover.TokenID, target.Registry, target.TokenID)
		} else {
			parent := chain[moved-1]
			parentRegistry, lookupErr := f.directory.Registry(parent.Registry)
			require.NoError(r, lookupErr)
			err = parentRegistry.TransferChild(f.ctx, aliceAccount, parent.TokenID, string(target.Registry), target.TokenID, 0, mover.Registry, mover.TokenID, false)
		}

		var cycle CycleDetectedError
		require.ErrorAs(r, err, &cycle)
		checkInvariants(r, f)
	})
}
