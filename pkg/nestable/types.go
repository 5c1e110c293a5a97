package nestable

import (
	"fmt"
	"time"
)

const (
	DefaultMaxPendingChildren = 128
	DefaultMaxPendingAssets   = 128
	DefaultMaxResolutionDepth = 64

	MaxRoyaltyBps = 10_000
)

// TokenID identifies a token within one registry. Ids start at 1 and are
// never reused.
type TokenID uint64

// AssetID identifies an asset entry within one registry's catalog.
type AssetID uint64

// RegistryID is a normalized registry identifier.
type RegistryID string

// Account is a normalized external account identifier.
type Account string

// TokenRef points at a token in some registry.
type TokenRef struct {
	Registry RegistryID `json:"registry"`
	TokenID  TokenID    `json:"tokenId"`
}

func (ref TokenRef) String() string {
	return fmt.Sprintf("%s#%d", ref.Registry, ref.TokenID)
}

// Owner is the direct owner of a token: an external account, or a parent
// token when Nested is set.
type Owner struct {
	Account Account  `json:"account,omitempty"`
	Parent  TokenRef `json:"parent"`
	Nested  bool     `json:"nested"`
}

// AccountOwner returns an Owner for an external account.
func AccountOwner(account Account) Owner {
	return Owner{Account: account}
}

// TokenOwner returns an Owner for a parent token.
func TokenOwner(parent TokenRef) Owner {
	return Owner{Parent: parent, Nested: true}
}

// IsToken reports whether the owner is a parent token.
func (owner Owner) IsToken() bool {
	return owner.Nested
}

func (owner Owner) String() string {
	if owner.Nested {
		return owner.Parent.String()
	}
	return string(owner.Account)
}

// Config is the construction-time configuration of a registry. It is
// immutable once the registry exists.
type Config struct {
	Name                   string       `json:"name" mapstructure:"name"`
	Symbol                 string       `json:"symbol" mapstructure:"symbol"`
	CollectionMetadata     string       `json:"collectionMetadata" mapstructure:"collection_metadata"`
	BaseTokenURI           string       `json:"baseTokenUri" mapstructure:"base_token_uri"`
	PaymentAsset           string       `json:"paymentAsset,omitempty" mapstructure:"payment_asset"`
	TokenURIIsEnumerable   bool         `json:"tokenUriIsEnumerable" mapstructure:"token_uri_is_enumerable"`
	RoyaltyRecipient       string       `json:"royaltyRecipient,omitempty" mapstructure:"royalty_recipient"`
	RoyaltyPercentageBps   uint32       `json:"royaltyPercentageBps" mapstructure:"royalty_percentage_bps"`
	MaxSupply              uint64       `json:"maxSupply" mapstructure:"max_supply"`
	PricePerMint           string       `json:"pricePerMint,omitempty" mapstructure:"price_per_mint"`
	MaxPendingChildren     int          `json:"maxPendingChildren" mapstructure:"max_pending_children"`
	MaxPendingAssets       int          `json:"maxPendingAssets" mapstructure:"max_pending_assets"`
	Admin                  Account      `json:"admin" mapstructure:"admin"`
	AllowedChildRegistries []RegistryID `json:"allowedChildRegistries,omitempty" mapstructure:"allowed_child_registries"`
}

// TokenView is a read-only copy of one token's state, its root owner and
// token URI, all taken at Generation.
type TokenView struct {
	ID              TokenID    `json:"id"`
	DirectOwner     Owner      `json:"directOwner"`
	ActiveChildren  []TokenRef `json:"activeChildren"`
	PendingChildren []TokenRef `json:"pendingChildren"`
	ActiveAssets    []AssetID  `json:"activeAssets"`
	Priorities      []uint64   `json:"priorities"`
	PendingAssets   []AssetID  `json:"pendingAssets"`
	Approved        Account    `json:"approved,omitempty"`
	Owner           Account    `json:"owner"`
	TokenURI        string     `json:"tokenUri"`
	Generation      uint64     `json:"generation"`
}

// EventType names a committed state transition.
type EventType string

const (
	EventMint                EventType = "mint"
	EventTransfer            EventType = "transfer"
	EventNestTransfer        EventType = "nest-transfer"
	EventBurn                EventType = "burn"
	EventChildProposed       EventType = "child-proposed"
	EventChildAccepted       EventType = "child-accepted"
	EventChildTransferred    EventType = "child-transferred"
	EventAllChildrenRejected EventType = "all-children-rejected"
	EventAssetEntryAdded     EventType = "asset-entry-added"
	EventAssetAddedToToken   EventType = "asset-added-to-token"
	EventAssetAccepted       EventType = "asset-accepted"
	EventAssetRejected       EventType = "asset-rejected"
	EventPrioritySet         EventType = "priority-set"
	EventApproval            EventType = "approval"
	EventApprovalForAll      EventType = "approval-for-all"
	EventContributorUpdated  EventType = "contributor-updated"
)

// Event describes one committed state transition. Fields that do not apply
// to the event type are left zero.
type Event struct {
	ID         string     `json:"id"`
	Type       EventType  `json:"type"`
	Registry   RegistryID `json:"registry"`
	TokenID    TokenID    `json:"tokenId,omitempty"`
	AssetID    AssetID    `json:"assetId,omitempty"`
	Replaces   AssetID    `json:"replaces,omitempty"`
	Reference  string     `json:"reference,omitempty"`
	Child      *TokenRef  `json:"child,omitempty"`
	From       string     `json:"from,omitempty"`
	To         string     `json:"to,omitempty"`
	Index      int        `json:"index,omitempty"`
	Count      int        `json:"count,omitempty"`
	Flag       bool       `json:"flag,omitempty"`
	Generation uint64     `json:"generation"`
	Timestamp  time.Time  `json:"timestamp"`
}
