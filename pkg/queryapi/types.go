package queryapi

import (
	"context"

	"github.com/bookmart/nestable-sdk-go/pkg/journal"
	"github.com/bookmart/nestable-sdk-go/pkg/nestable"
)

// TokenResponse describes one token with its resolved owner.
type TokenResponse struct {
	Registry        nestable.RegistryID `json:"registry"`
	TokenID         nestable.TokenID    `json:"tokenId"`
	Owner           nestable.Account    `json:"owner"`
	DirectOwner     nestable.Owner      `json:"directOwner"`
	ActiveChildren  []nestable.TokenRef `json:"activeChildren"`
	PendingChildren []nestable.TokenRef `json:"pendingChildren"`
	ActiveAssets    []nestable.AssetID  `json:"activeAssets"`
	Priorities      []uint64            `json:"priorities"`
	PendingAssets   []nestable.AssetID  `json:"pendingAssets"`
	Approved        nestable.Account    `json:"approved,omitempty"`
	TokenURI        string              `json:"tokenUri"`
	Generation      uint64              `json:"generation"`
}

type BalanceResponse struct {
	Registry nestable.RegistryID `json:"registry"`
	Account  nestable.Account    `json:"account"`
	Balance  int                 `json:"balance"`
}

type AssetResponse struct {
	Registry  nestable.RegistryID `json:"registry"`
	AssetID   nestable.AssetID    `json:"assetId"`
	Reference string              `json:"reference"`
}

type RegistriesResponse struct {
	Registries []nestable.RegistryID `json:"registries"`
	Generation uint64                `json:"generation"`
}

type EventsResponse struct {
	Registry nestable.RegistryID `json:"registry"`
	Events   []journal.Entry     `json:"events"`
	Next     int64               `json:"next"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// EventLog is the journal surface the events route reads from.
type EventLog interface {
	Events(ctx context.Context, registry nestable.RegistryID, afterSeq int64, limit int) ([]journal.Entry, error)
}
