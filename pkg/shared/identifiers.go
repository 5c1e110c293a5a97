package shared

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	hedera "github.com/hashgraph/hedera-sdk-go/v2"
)

const (
	IdentifierKindAccount  = "account"
	IdentifierKindRegistry = "registry"
)

var hederaEntityRegex = regexp.MustCompile(`^(0|(?:[1-9]\d*))\.(0|(?:[1-9]\d*))\.(0|(?:[1-9]\d*))(?:-([a-z]{5}))?$`)

type InvalidIdentifierError struct {
	Kind  string
	Value string
	Cause string
}

func (errorValue InvalidIdentifierError) Error() string {
	if errorValue.Cause == "" {
		return fmt.Sprintf("invalid %s identifier %q", errorValue.Kind, errorValue.Value)
	}
	return fmt.Sprintf("invalid %s identifier %q: %s", errorValue.Kind, errorValue.Value, errorValue.Cause)
}

// NewInvalidIdentifierError builds an InvalidIdentifierError.
func NewInvalidIdentifierError(kind string, value string, cause string) error {
	return InvalidIdentifierError{Kind: kind, Value: value, Cause: cause}
}

// NormalizeIdentifier normalizes a hex address or Hedera entity id.
// Hex addresses come back in EIP-55 checksum form; Hedera ids lose their
// checksum suffix.
func NormalizeIdentifier(kind string, raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", NewInvalidIdentifierError(kind, raw, "value is empty")
	}

	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		if !common.IsHexAddress(trimmed) {
			return "", NewInvalidIdentifierError(kind, raw, "expected a 20-byte hex address")
		}
		return common.HexToAddress(trimmed).Hex(), nil
	}

	if hederaEntityRegex.MatchString(trimmed) {
		entityID, err := hedera.AccountIDFromString(trimmed)
		if err != nil {
			return "", NewInvalidIdentifierError(kind, raw, err.Error())
		}
		return fmt.Sprintf("%d.%d.%d", entityID.Shard, entityID.Realm, entityID.Account), nil
	}

	return "", NewInvalidIdentifierError(kind, raw, "expected 0x-prefixed address or shard.realm.num")
}

// NormalizeAccount normalizes an external account identifier. The zero
// address never owns tokens.
func NormalizeAccount(raw string) (string, error) {
	normalized, err := NormalizeIdentifier(IdentifierKindAccount, raw)
	if err != nil {
		return "", err
	}
	if normalized == (common.Address{}).Hex() {
		return "", NewInvalidIdentifierError(IdentifierKindAccount, raw, "zero address")
	}
	return normalized, nil
}

// NormalizeRegistryID normalizes a registry (collection) identifier.
func NormalizeRegistryID(raw string) (string, error) {
	return NormalizeIdentifier(IdentifierKindRegistry, raw)
}

// IsZeroAddress reports whether raw is the 0x0 address.
func IsZeroAddress(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	if !common.IsHexAddress(trimmed) {
		return false
	}
	return common.HexToAddress(trimmed) == common.Address{}
}

// AccountFromPublicKey derives the 20-byte account address of a secp256k1 key.
func AccountFromPublicKey(publicKey *btcec.PublicKey) string {
	uncompressed := publicKey.SerializeUncompressed()
	digest := crypto.Keccak256(uncompressed[1:])
	return common.BytesToAddress(digest[12:]).Hex()
}

// GenerateAccount creates a fresh secp256k1 key and its account address.
func GenerateAccount() (string, *btcec.PrivateKey, error) {
	privateKey, err := btcec.NewPrivateKey()
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate account key: %w", err)
	}
	return AccountFromPublicKey(privateKey.PubKey()), privateKey, nil
}
