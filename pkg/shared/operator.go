package shared

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	hedera "github.com/hashgraph/hedera-sdk-go/v2"
)

// OperatorConfig identifies the key that signs registry checkpoints.
type OperatorConfig struct {
	AccountID  string
	PrivateKey string
}

var dotenvLoadOnce sync.Once

// OperatorConfigFromEnv loads the checkpoint signing key, reading a .env
// file from the working directory or any parent first.
func OperatorConfigFromEnv() (OperatorConfig, error) {
	loadDotEnvIfPresent()

	privateKey := firstNonEmptyEnv(
		"NESTABLE_OPERATOR_KEY",
		"HEDERA_PRIVATE_KEY",
		"HEDERA_OPERATOR_KEY",
		"OPERATOR_KEY",
	)
	if privateKey == "" {
		return OperatorConfig{}, fmt.Errorf("NESTABLE_OPERATOR_KEY is required")
	}

	accountID := firstNonEmptyEnv(
		"NESTABLE_OPERATOR_ACCOUNT",
		"HEDERA_ACCOUNT_ID",
		"OPERATOR_ID",
	)
	if accountID != "" {
		normalized, err := NormalizeAccount(accountID)
		if err != nil {
			return OperatorConfig{}, err
		}
		accountID = normalized
	}

	return OperatorConfig{
		AccountID:  accountID,
		PrivateKey: privateKey,
	}, nil
}

// SigningKey parses the configured private key.
func (config OperatorConfig) SigningKey() (hedera.PrivateKey, error) {
	return ParsePrivateKey(config.PrivateKey)
}

func loadDotEnvIfPresent() {
	dotenvLoadOnce.Do(func() {
		workingDirectory, err := os.Getwd()
		if err != nil {
			return
		}

		current := workingDirectory
		for {
			candidate := filepath.Join(current, ".env")
			if info, statErr := os.Stat(candidate); statErr == nil && !info.IsDir() {
				loadDotEnvFile(candidate)
				return
			}

			parent := filepath.Dir(current)
			if parent == current {
				return
			}
			current = parent
		}
	})
}

func loadDotEnvFile(path string) bool {
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	defer file.Close()

	loadedAny := false
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		key, value, ok := parseDotEnvLine(scanner.Text())
		if !ok {
			continue
		}
		if _, alreadySet := os.LookupEnv(key); alreadySet {
			continue
		}
		if setErr := os.Setenv(key, value); setErr == nil {
			loadedAny = true
		}
	}

	return loadedAny
}

func parseDotEnvLine(rawLine string) (string, string, bool) {
	line := strings.TrimSpace(rawLine)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	line = strings.TrimSpace(strings.TrimPrefix(line, "export "))

	key, value, found := strings.Cut(line, "=")
	if !found {
		return "", "", false
	}
	key = strings.TrimSpace(key)
	if !isValidEnvKey(key) {
		return "", "", false
	}

	value = strings.TrimSpace(value)
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if (first == '"' || first == '\'') && first == last {
			value = value[1 : len(value)-1]
		}
	}
	return key, value, true
}

func isValidEnvKey(key string) bool {
	if key == "" {
		return false
	}
	for index, character := range key {
		switch {
		case character == '_':
		case character >= 'A' && character <= 'Z':
		case character >= 'a' && character <= 'z':
		case index > 0 && character >= '0' && character <= '9':
		default:
			return false
		}
	}
	return true
}

func firstNonEmptyEnv(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}

// ParsePrivateKey parses a DER or raw hex ED25519/ECDSA key.
func ParsePrivateKey(raw string) (hedera.PrivateKey, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return hedera.PrivateKey{}, fmt.Errorf("private key cannot be empty")
	}

	ed25519Key, edErr := hedera.PrivateKeyFromStringEd25519(candidate)
	if edErr == nil {
		return ed25519Key, nil
	}

	ecdsaKey, ecdsaErr := hedera.PrivateKeyFromStringECDSA(candidate)
	if ecdsaErr == nil {
		return ecdsaKey, nil
	}

	genericKey, genericErr := hedera.PrivateKeyFromString(candidate)
	if genericErr == nil {
		return genericKey, nil
	}

	return hedera.PrivateKey{}, fmt.Errorf(
		"failed to parse private key as ED25519 (%v), ECDSA (%v), or generic (%v)",
		edErr,
		ecdsaErr,
		genericErr,
	)
}
