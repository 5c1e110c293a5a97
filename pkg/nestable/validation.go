package nestable

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/bookmart/nestable-sdk-go/pkg/shared"
)

// NormalizeAccount normalizes an external account identifier.
func NormalizeAccount(raw string) (Account, error) {
	normalized, err := shared.NormalizeAccount(raw)
	if err != nil {
		return "", err
	}
	return Account(normalized), nil
}

// NormalizeRegistryID normalizes a registry identifier.
func NormalizeRegistryID(raw string) (RegistryID, error) {
	normalized, err := shared.NormalizeRegistryID(raw)
	if err != nil {
		return "", err
	}
	return RegistryID(normalized), nil
}

// NormalizeConfig trims and normalizes identifiers and fills defaults.
func NormalizeConfig(config Config) (Config, error) {
	normalized := config
	normalized.Name = strings.TrimSpace(config.Name)
	normalized.Symbol = strings.TrimSpace(config.Symbol)
	normalized.CollectionMetadata = strings.TrimSpace(config.CollectionMetadata)
	normalized.BaseTokenURI = strings.TrimSpace(config.BaseTokenURI)
	normalized.PricePerMint = strings.TrimSpace(config.PricePerMint)

	if normalized.MaxPendingChildren == 0 {
		normalized.MaxPendingChildren = DefaultMaxPendingChildren
	}
	if normalized.MaxPendingAssets == 0 {
		normalized.MaxPendingAssets = DefaultMaxPendingAssets
	}

	admin, err := NormalizeAccount(string(config.Admin))
	if err != nil {
		return normalized, fmt.Errorf("admin: %w", err)
	}
	normalized.Admin = admin

	paymentAsset := strings.TrimSpace(config.PaymentAsset)
	if paymentAsset != "" && !shared.IsZeroAddress(paymentAsset) {
		registryID, err := shared.NormalizeRegistryID(paymentAsset)
		if err != nil {
			return normalized, fmt.Errorf("payment asset: %w", err)
		}
		paymentAsset = registryID
	} else {
		paymentAsset = ""
	}
	normalized.PaymentAsset = paymentAsset

	royaltyRecipient := strings.TrimSpace(config.RoyaltyRecipient)
	if royaltyRecipient != "" && !shared.IsZeroAddress(royaltyRecipient) {
		account, err := shared.NormalizeAccount(royaltyRecipient)
		if err != nil {
			return normalized, fmt.Errorf("royalty recipient: %w", err)
		}
		royaltyRecipient = account
	} else {
		royaltyRecipient = ""
	}
	normalized.RoyaltyRecipient = royaltyRecipient

	allowed := make([]RegistryID, 0, len(config.AllowedChildRegistries))
	seen := map[RegistryID]bool{}
	for _, raw := range config.AllowedChildRegistries {
		registryID, err := NormalizeRegistryID(string(raw))
		if err != nil {
			return normalized, fmt.Errorf("allowed child registry: %w", err)
		}
		if seen[registryID] {
			continue
		}
		seen[registryID] = true
		allowed = append(allowed, registryID)
	}
	normalized.AllowedChildRegistries = allowed

	return normalized, nil
}

// ValidateConfig normalizes config and checks value ranges.
func ValidateConfig(config Config) (Config, error) {
	normalized, err := NormalizeConfig(config)
	if err != nil {
		return normalized, NewConfigValidationError([]string{err.Error()})
	}

	validationErrors := make([]string, 0)
	if normalized.Name == "" {
		validationErrors = append(validationErrors, "name is required")
	}
	if normalized.Symbol == "" {
		validationErrors = append(validationErrors, "symbol is required")
	}
	if normalized.RoyaltyPercentageBps > MaxRoyaltyBps {
		validationErrors = append(validationErrors, fmt.Sprintf("royalty percentage must be <= %d bps", MaxRoyaltyBps))
	}
	if normalized.MaxPendingChildren < 0 {
		validationErrors = append(validationErrors, "max pending children must be positive")
	}
	if normalized.MaxPendingAssets < 0 {
		validationErrors = append(validationErrors, "max pending assets must be positive")
	}
	if normalized.PricePerMint != "" {
		price, ok := new(big.Int).SetString(normalized.PricePerMint, 10)
		if !ok || price.Sign() < 0 {
			validationErrors = append(validationErrors, fmt.Sprintf("price per mint %q is not a non-negative integer", normalized.PricePerMint))
		}
	}

	if len(validationErrors) > 0 {
		return normalized, NewConfigValidationError(validationErrors)
	}
	return normalized, nil
}

func validateQuantity(quantity int) error {
	if quantity <= 0 {
		return NewInvalidQuantityError(quantity)
	}
	return nil
}
