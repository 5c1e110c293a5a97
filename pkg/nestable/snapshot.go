package nestable

import (
	"context"
	"fmt"
	"sort"
)

type AssetEntrySnapshot struct {
	ID        AssetID `json:"id"`
	Reference string  `json:"reference"`
}

type PendingAssetSnapshot struct {
	AssetID  AssetID `json:"assetId"`
	Replaces AssetID `json:"replaces,omitempty"`
}

type TokenSnapshot struct {
	ID              TokenID                `json:"id"`
	Burned          bool                   `json:"burned,omitempty"`
	DirectOwner     Owner                  `json:"directOwner"`
	ActiveChildren  []TokenRef             `json:"activeChildren,omitempty"`
	PendingChildren []TokenRef             `json:"pendingChildren,omitempty"`
	ActiveAssets    []AssetID              `json:"activeAssets,omitempty"`
	Priorities      []uint64               `json:"priorities,omitempty"`
	PendingAssets   []PendingAssetSnapshot `json:"pendingAssets,omitempty"`
	Approved        Account                `json:"approved,omitempty"`
}

type OperatorSnapshot struct {
	Owner     Account   `json:"owner"`
	Operators []Account `json:"operators"`
}

// Snapshot is a deep copy of one registry's state at a generation.
type Snapshot struct {
	Registry     RegistryID           `json:"registry"`
	Config       Config               `json:"config"`
	Generation   uint64               `json:"generation"`
	Assets       []AssetEntrySnapshot `json:"assets"`
	Tokens       []TokenSnapshot      `json:"tokens"`
	Contributors []Account            `json:"contributors,omitempty"`
	Operators    []OperatorSnapshot   `json:"operators,omitempty"`
	Balances     map[Account]int      `json:"balances"`
}

// Snapshot returns a deep copy of the registry state. Contributors and
// operators are sorted so equal states produce equal snapshots.
func (registry *Registry) Snapshot(ctx context.Context) (Snapshot, error) {
	var snapshot Snapshot
	err := registry.directory.read(ctx, func(ctx context.Context) error {
		snapshot = Snapshot{
			Registry:   registry.id,
			Config:     registry.config.clone(),
			Generation: registry.directory.generation,
			Assets:     make([]AssetEntrySnapshot, 0, registry.assets.size()),
			Tokens:     make([]TokenSnapshot, 0, registry.tokens.issued()),
			Balances:   make(map[Account]int, len(registry.tokens.balances)),
		}
		for index, reference := range registry.assets.entries {
			snapshot.Assets = append(snapshot.Assets, AssetEntrySnapshot{ID: AssetID(index + 1), Reference: reference})
		}
		for index := 1; index < len(registry.tokens.tokens); index++ {
			snapshot.Tokens = append(snapshot.Tokens, snapshotToken(TokenID(index), registry.tokens.tokens[index]))
		}
		for account, balance := range registry.tokens.balances {
			snapshot.Balances[account] = balance
		}
		for account := range registry.contributors {
			snapshot.Contributors = append(snapshot.Contributors, account)
		}
		sort.Slice(snapshot.Contributors, func(left, right int) bool {
			return snapshot.Contributors[left] < snapshot.Contributors[right]
		})
		for owner, operators := range registry.operators {
			entry := OperatorSnapshot{Owner: owner}
			for operator := range operators {
				entry.Operators = append(entry.Operators, operator)
			}
			sort.Slice(entry.Operators, func(left, right int) bool { return entry.Operators[left] < entry.Operators[right] })
			snapshot.Operators = append(snapshot.Operators, entry)
		}
		sort.Slice(snapshot.Operators, func(left, right int) bool {
			return snapshot.Operators[left].Owner < snapshot.Operators[right].Owner
		})
		return nil
	})
	return snapshot, err
}

func snapshotToken(id TokenID, record *tokenRecord) TokenSnapshot {
	if record.burned {
		return TokenSnapshot{ID: id, Burned: true, DirectOwner: record.owner}
	}
	pending := make([]PendingAssetSnapshot, len(record.pendingAssets))
	for index, entry := range record.pendingAssets {
		pending[index] = PendingAssetSnapshot{AssetID: entry.AssetID, Replaces: entry.Replaces}
	}
	return TokenSnapshot{
		ID:              id,
		DirectOwner:     record.owner,
		ActiveChildren:  append([]TokenRef{}, record.activeChildren...),
		PendingChildren: append([]TokenRef{}, record.pendingChildren...),
		ActiveAssets:    append([]AssetID{}, record.activeAssets...),
		Priorities:      append([]uint64{}, record.priorities...),
		PendingAssets:   pending,
		Approved:        record.approved,
	}
}

// RestoreRegistry rebuilds a registry from snapshot and attaches it to
// directory. Balances are recomputed from the tokens. References into
// other registries are not checked, so related registries can be restored
// in any order.
func RestoreRegistry(directory *Directory, snapshot Snapshot) (*Registry, error) {
	registry, err := newRegistry(directory, string(snapshot.Registry), snapshot.Config)
	if err != nil {
		return nil, err
	}

	for index, entry := range snapshot.Assets {
		if entry.ID != AssetID(index+1) {
			return nil, fmt.Errorf("snapshot asset %d is out of sequence (expected %d)", entry.ID, index+1)
		}
		registry.assets.entries = append(registry.assets.entries, entry.Reference)
	}

	for index, token := range snapshot.Tokens {
		if token.ID != TokenID(index+1) {
			return nil, fmt.Errorf("snapshot token %d is out of sequence (expected %d)", token.ID, index+1)
		}
		record, err := restoreToken(registry, token)
		if err != nil {
			return nil, err
		}
		registry.tokens.tokens = append(registry.tokens.tokens, record)
		if record.burned {
			registry.tokens.burned++
			continue
		}
		if !record.owner.IsToken() {
			registry.tokens.balances[record.owner.Account]++
		}
	}

	for _, contributor := range snapshot.Contributors {
		account, err := NormalizeAccount(string(contributor))
		if err != nil {
			return nil, fmt.Errorf("snapshot contributor: %w", err)
		}
		registry.contributors[account] = true
	}
	for _, entry := range snapshot.Operators {
		for _, operator := range entry.Operators {
			registry.setOperator(entry.Owner, operator, true)
		}
	}

	if err := directory.Register(registry); err != nil {
		return nil, err
	}
	registry.logger.Info().Int("tokens", len(snapshot.Tokens)).Int("assets", len(snapshot.Assets)).Msg("registry restored")
	return registry, nil
}

func restoreToken(registry *Registry, token TokenSnapshot) (*tokenRecord, error) {
	record := &tokenRecord{owner: token.DirectOwner, burned: token.Burned}
	if token.Burned {
		return record, nil
	}
	if !token.DirectOwner.IsToken() {
		account, err := NormalizeAccount(string(token.DirectOwner.Account))
		if err != nil {
			return nil, fmt.Errorf("snapshot token %d owner: %w", token.ID, err)
		}
		record.owner = AccountOwner(account)
	}

	record.activeChildren = append([]TokenRef{}, token.ActiveChildren...)
	record.pendingChildren = append([]TokenRef{}, token.PendingChildren...)
	record.activeAssets = append([]AssetID{}, token.ActiveAssets...)
	record.priorities = append([]uint64{}, token.Priorities...)
	if len(record.priorities) == 0 {
		record.priorities = make([]uint64, len(record.activeAssets))
	}
	if len(record.priorities) != len(record.activeAssets) {
		return nil, fmt.Errorf("snapshot token %d has %d priorities for %d active assets",
			token.ID, len(record.priorities), len(record.activeAssets))
	}
	for _, entry := range token.PendingAssets {
		record.pendingAssets = append(record.pendingAssets, pendingAsset{AssetID: entry.AssetID, Replaces: entry.Replaces})
	}
	for _, assetID := range record.activeAssets {
		if _, ok := registry.assets.reference(assetID); !ok {
			return nil, NewUnknownAssetError(registry.id, assetID)
		}
	}
	for _, entry := range record.pendingAssets {
		if _, ok := registry.assets.reference(entry.AssetID); !ok {
			return nil, NewUnknownAssetError(registry.id, entry.AssetID)
		}
	}
	record.approved = token.Approved
	return record, nil
}
