// Package shared provides the identifier and key helpers used across the
// nestable SDK. It normalizes account and registry identifiers (20-byte
// hex addresses and Hedera entity ids), derives account addresses from
// secp256k1 public keys, and loads the checkpoint signing key from the
// environment or a .env file.
//
// # Identifiers
//
//	account, err := shared.NormalizeAccount("0x7e5f4552091a69125d5dfcb7b8c2659029395bdf")
//	// account == "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf"
//
//	registry, err := shared.NormalizeRegistryID("0.0.4350190-abcde")
//	// registry == "0.0.4350190"
//
// # Environment Variables
//
// OperatorConfigFromEnv reads NESTABLE_OPERATOR_KEY (falling back to
// HEDERA_PRIVATE_KEY, HEDERA_OPERATOR_KEY, OPERATOR_KEY) and the optional
// NESTABLE_OPERATOR_ACCOUNT (falling back to HEDERA_ACCOUNT_ID, OPERATOR_ID).
package shared
