package shared

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

const testPrivateKey = "302e020100300506032b65700422042091132178e72057a1d7528025956fe39b0b847f200ab59b2fdd367017f3087137"

var operatorEnvKeys = []string{
	"NESTABLE_OPERATOR_KEY",
	"NESTABLE_OPERATOR_ACCOUNT",
	"HEDERA_PRIVATE_KEY",
	"HEDERA_OPERATOR_KEY",
	"HEDERA_ACCOUNT_ID",
	"OPERATOR_KEY",
	"OPERATOR_ID",
}

func resetOperatorEnv(t *testing.T) {
	t.Helper()
	dotenvLoadOnce = sync.Once{}
	dotenvLoadOnce.Do(func() {})
	for _, key := range operatorEnvKeys {
		t.Setenv(key, "")
	}
}

func TestIsValidEnvKey(t *testing.T) {
	valid := []string{"A", "ABC", "a_b", "MY_VAR", "A1", "_LEADING"}
	for _, key := range valid {
		if !isValidEnvKey(key) {
			t.Fatalf("expected %q to be valid", key)
		}
	}

	invalid := []string{"", "1ABC", "A B", "A-B", "A.B"}
	for _, key := range invalid {
		if isValidEnvKey(key) {
			t.Fatalf("expected %q to be invalid", key)
		}
	}
}

func TestParseDotEnvLine(t *testing.T) {
	cases := []struct {
		line  string
		key   string
		value string
		ok    bool
	}{
		{"KEY=value", "KEY", "value", true},
		{"export KEY=value", "KEY", "value", true},
		{"KEY=\"quoted value\"", "KEY", "quoted value", true},
		{"KEY='single'", "KEY", "single", true},
		{"KEY=\"mismatched'", "KEY", "\"mismatched'", true},
		{"# comment", "", "", false},
		{"", "", "", false},
		{"=novalue", "", "", false},
		{"NOEQUALS", "", "", false},
	}

	for _, tc := range cases {
		key, value, ok := parseDotEnvLine(tc.line)
		if ok != tc.ok || key != tc.key || value != tc.value {
			t.Fatalf("parseDotEnvLine(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tc.line, key, value, ok, tc.key, tc.value, tc.ok)
		}
	}
}

func TestOperatorConfigFromEnvMissingKey(t *testing.T) {
	resetOperatorEnv(t)

	_, err := OperatorConfigFromEnv()
	if err == nil {
		t.Fatal("expected error for missing private key")
	}
}

func TestOperatorConfigFromEnvPrefersNestableKeys(t *testing.T) {
	resetOperatorEnv(t)
	t.Setenv("HEDERA_PRIVATE_KEY", "ignored")
	t.Setenv("NESTABLE_OPERATOR_KEY", testPrivateKey)
	t.Setenv("NESTABLE_OPERATOR_ACCOUNT", "0.0.12345-vfmkw")

	config, err := OperatorConfigFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.PrivateKey != testPrivateKey {
		t.Fatalf("expected nestable key to win, got %q", config.PrivateKey)
	}
	if config.AccountID != "0.0.12345" {
		t.Fatalf("expected normalized account 0.0.12345, got %q", config.AccountID)
	}

	key, err := config.SigningKey()
	if err != nil {
		t.Fatalf("unexpected signing key error: %v", err)
	}
	if key.PublicKey().String() == "" {
		t.Fatal("expected a public key")
	}
}

func TestOperatorConfigFromEnvFallbackKeys(t *testing.T) {
	resetOperatorEnv(t)
	t.Setenv("OPERATOR_KEY", testPrivateKey)

	config, err := OperatorConfigFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.AccountID != "" {
		t.Fatalf("expected no account, got %q", config.AccountID)
	}
}

func TestOperatorConfigFromEnvRejectsBadAccount(t *testing.T) {
	resetOperatorEnv(t)
	t.Setenv("NESTABLE_OPERATOR_KEY", testPrivateKey)
	t.Setenv("NESTABLE_OPERATOR_ACCOUNT", "not-an-account")

	if _, err := OperatorConfigFromEnv(); err == nil {
		t.Fatal("expected error for malformed operator account")
	}
}

func TestLoadDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	content := "# comment\n\n_TEST_NESTABLE_DOTENV=loaded\nexport _TEST_NESTABLE_EXPORT='exported'\n"
	if err := os.WriteFile(envPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	defer os.Unsetenv("_TEST_NESTABLE_DOTENV")
	defer os.Unsetenv("_TEST_NESTABLE_EXPORT")

	if !loadDotEnvFile(envPath) {
		t.Fatal("expected loadDotEnvFile to return true")
	}
	if os.Getenv("_TEST_NESTABLE_DOTENV") != "loaded" {
		t.Fatalf("expected 'loaded', got %q", os.Getenv("_TEST_NESTABLE_DOTENV"))
	}
	if os.Getenv("_TEST_NESTABLE_EXPORT") != "exported" {
		t.Fatalf("expected 'exported', got %q", os.Getenv("_TEST_NESTABLE_EXPORT"))
	}
}

func TestLoadDotEnvFileKeepsExistingValues(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	t.Setenv("_TEST_NESTABLE_PREEXIST", "original")
	if err := os.WriteFile(envPath, []byte("_TEST_NESTABLE_PREEXIST=overridden\n"), 0o644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}

	loadDotEnvFile(envPath)
	if os.Getenv("_TEST_NESTABLE_PREEXIST") != "original" {
		t.Fatalf("expected 'original', got %q", os.Getenv("_TEST_NESTABLE_PREEXIST"))
	}
}

func TestLoadDotEnvFileNonexistent(t *testing.T) {
	if loadDotEnvFile(filepath.Join(t.TempDir(), "missing.env")) {
		t.Fatal("expected false for nonexistent file")
	}
}

func TestParsePrivateKey(t *testing.T) {
	if _, err := ParsePrivateKey("   "); err == nil {
		t.Fatal("expected error for blank key")
	}
	if _, err := ParsePrivateKey("notavalidkey"); err == nil {
		t.Fatal("expected error for invalid key")
	}

	key, err := ParsePrivateKey(testPrivateKey)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key.String() == "" {
		t.Fatal("expected non-empty key string")
	}
}
