package nestable

import "fmt"

type RegistryError struct {
	Message string
}

func (errorValue RegistryError) Error() string {
	return errorValue.Message
}

type UnknownTokenError struct {
	RegistryError
	Registry RegistryID
	TokenID  TokenID
}

func NewUnknownTokenError(registry RegistryID, tokenID TokenID) error {
	return UnknownTokenError{
		RegistryError: RegistryError{Message: fmt.Sprintf("token %d does not exist in registry %s", tokenID, registry)},
		Registry:      registry,
		TokenID:       tokenID,
	}
}

type UnknownAssetError struct {
	RegistryError
	Registry RegistryID
	AssetID  AssetID
}

func NewUnknownAssetError(registry RegistryID, assetID AssetID) error {
	return UnknownAssetError{
		RegistryError: RegistryError{Message: fmt.Sprintf("asset %d is not registered in registry %s", assetID, registry)},
		Registry:      registry,
		AssetID:       assetID,
	}
}

type UnknownRegistryError struct {
	RegistryError
	Registry RegistryID
}

func NewUnknownRegistryError(registry RegistryID) error {
	return UnknownRegistryError{
		RegistryError: RegistryError{Message: fmt.Sprintf("registry %s is not attached to this directory", registry)},
		Registry:      registry,
	}
}

type AuthorizationError struct {
	RegistryError
	Registry RegistryID
	Caller   Account
	TokenID  TokenID
	Reason   string
}

func NewAuthorizationError(registry RegistryID, caller Account, tokenID TokenID, reason string) error {
	message := fmt.Sprintf("%s is not authorized on registry %s: %s", caller, registry, reason)
	if tokenID != 0 {
		message = fmt.Sprintf("%s is not authorized on token %d of registry %s: %s", caller, tokenID, registry, reason)
	}
	return AuthorizationError{
		RegistryError: RegistryError{Message: message},
		Registry:      registry,
		Caller:        caller,
		TokenID:       tokenID,
		Reason:        reason,
	}
}

// UnexpectedChildError reports a pending/active child index that no longer
// holds the child the caller named. Found is nil when the index is out of range.
type UnexpectedChildError struct {
	RegistryError
	Parent   TokenRef
	Index    int
	Expected TokenRef
	Found    *TokenRef
}

func NewUnexpectedChildError(parent TokenRef, index int, expected TokenRef, found *TokenRef) error {
	actual := "nothing"
	if found != nil {
		actual = found.String()
	}
	return UnexpectedChildError{
		RegistryError: RegistryError{Message: fmt.Sprintf(
			"child at index %d of %s is %s, expected %s", index, parent, actual, expected,
		)},
		Parent:   parent,
		Index:    index,
		Expected: expected,
		Found:    found,
	}
}

// UnexpectedAssetError reports a pending index that no longer holds the
// asset the caller named. Found is zero when the index is out of range.
type UnexpectedAssetError struct {
	RegistryError
	Token    TokenRef
	Index    int
	Expected AssetID
	Found    AssetID
}

func NewUnexpectedAssetError(token TokenRef, index int, expected AssetID, found AssetID) error {
	actual := "nothing"
	if found != 0 {
		actual = fmt.Sprintf("asset %d", found)
	}
	return UnexpectedAssetError{
		RegistryError: RegistryError{Message: fmt.Sprintf(
			"pending asset at index %d of %s is %s, expected asset %d", index, token, actual, expected,
		)},
		Token:    token,
		Index:    index,
		Expected: expected,
		Found:    found,
	}
}

type PendingLimitExceededError struct {
	RegistryError
	Token TokenRef
	List  string
	Limit int
}

func NewPendingLimitExceededError(token TokenRef, list string, limit int) error {
	return PendingLimitExceededError{
		RegistryError: RegistryError{Message: fmt.Sprintf("pending %s of %s already holds the maximum of %d", list, token, limit)},
		Token:         token,
		List:          list,
		Limit:         limit,
	}
}

type MaxSupplyExceededError struct {
	RegistryError
	Registry  RegistryID
	MaxSupply uint64
	Issued    uint64
	Requested uint64
}

func NewMaxSupplyExceededError(registry RegistryID, maxSupply uint64, issued uint64, requested uint64) error {
	return MaxSupplyExceededError{
		RegistryError: RegistryError{Message: fmt.Sprintf(
			"minting %d tokens in registry %s exceeds max supply %d (%d already issued)",
			requested, registry, maxSupply, issued,
		)},
		Registry:  registry,
		MaxSupply: maxSupply,
		Issued:    issued,
		Requested: requested,
	}
}

type ResolutionDepthExceededError struct {
	RegistryError
	Start    TokenRef
	MaxDepth int
}

func NewResolutionDepthExceededError(start TokenRef, maxDepth int) error {
	return ResolutionDepthExceededError{
		RegistryError: RegistryError{Message: fmt.Sprintf("owner of %s not resolved within %d hops", start, maxDepth)},
		Start:         start,
		MaxDepth:      maxDepth,
	}
}

type CycleDetectedError struct {
	RegistryError
	Token       TokenRef
	Destination TokenRef
}

func NewCycleDetectedError(token TokenRef, destination TokenRef) error {
	return CycleDetectedError{
		RegistryError: RegistryError{Message: fmt.Sprintf("nesting %s under %s would make it own itself", token, destination)},
		Token:         token,
		Destination:   destination,
	}
}

type ReentrancyError struct {
	RegistryError
	Token TokenRef
}

func NewReentrancyError(token TokenRef) error {
	return ReentrancyError{
		RegistryError: RegistryError{Message: fmt.Sprintf("token %s is already being mutated by this transaction", token)},
		Token:         token,
	}
}

type UnexpectedNumberError struct {
	RegistryError
	Token    TokenRef
	Expected int
	Actual   int
}

func NewUnexpectedNumberError(token TokenRef, what string, expected int, actual int) error {
	return UnexpectedNumberError{
		RegistryError: RegistryError{Message: fmt.Sprintf("%s of %s: expected %d, found %d", what, token, expected, actual)},
		Token:         token,
		Expected:      expected,
		Actual:        actual,
	}
}

type MaxRecursiveBurnsError struct {
	RegistryError
	Token TokenRef
	Limit int
}

func NewMaxRecursiveBurnsError(token TokenRef, limit int) error {
	return MaxRecursiveBurnsError{
		RegistryError: RegistryError{Message: fmt.Sprintf("burning %s needs more than %d recursive burns", token, limit)},
		Token:         token,
		Limit:         limit,
	}
}

type TokenDoesNotHaveAssetError struct {
	RegistryError
	Token   TokenRef
	AssetID AssetID
}

func NewTokenDoesNotHaveAssetError(token TokenRef, assetID AssetID) error {
	return TokenDoesNotHaveAssetError{
		RegistryError: RegistryError{Message: fmt.Sprintf("token %s has no active or pending asset %d", token, assetID)},
		Token:         token,
		AssetID:       assetID,
	}
}

type AssetAlreadyExistsError struct {
	RegistryError
	Token   TokenRef
	AssetID AssetID
}

func NewAssetAlreadyExistsError(token TokenRef, assetID AssetID) error {
	return AssetAlreadyExistsError{
		RegistryError: RegistryError{Message: fmt.Sprintf("token %s already has asset %d", token, assetID)},
		Token:         token,
		AssetID:       assetID,
	}
}

type ChildAlreadyExistsError struct {
	RegistryError
	Parent TokenRef
	Child  TokenRef
}

func NewChildAlreadyExistsError(parent TokenRef, child TokenRef) error {
	return ChildAlreadyExistsError{
		RegistryError: RegistryError{Message: fmt.Sprintf("%s already lists child %s", parent, child)},
		Parent:        parent,
		Child:         child,
	}
}

type InvalidQuantityError struct {
	RegistryError
	Quantity int
}

func NewInvalidQuantityError(quantity int) error {
	return InvalidQuantityError{
		RegistryError: RegistryError{Message: fmt.Sprintf("quantity must be positive, got %d", quantity)},
		Quantity:      quantity,
	}
}

type ConfigValidationError struct {
	RegistryError
	ValidationErrors []string
}

func NewConfigValidationError(validationErrors []string) error {
	return ConfigValidationError{
		RegistryError:    RegistryError{Message: fmt.Sprintf("invalid registry config: %v", validationErrors)},
		ValidationErrors: append([]string{}, validationErrors...),
	}
}
