package security

import (
	"strings"
	"testing"
)

func TestHashPasswordAndVerifySuccess(t *testing.T) {
	password := "correct horse battery staple"

	encoded, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		t.Fatalf("unexpected hash format: %q", encoded)
	}
	if parts[1] != phcVariant {
		t.Fatalf("unexpected variant: %s", parts[1])
	}
	if parts[2] != phcVersion {
		t.Fatalf("unexpected version: %s", parts[2])
	}

	ok, err := VerifyPassword(password, encoded)
	if err != nil {
		t.Fatalf("VerifyPassword returned error: %v", err)
	}
	if !ok {
		t.Fatal("VerifyPassword returned false for correct password")
	}
}

func TestVerifyPasswordIncorrectPassword(t *testing.T) {
	encoded, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	ok, err := VerifyPassword("Tr0ub4dor&3", encoded)
	if err != nil {
		t.Fatalf("VerifyPassword returned error: %v", err)
	}
	if ok {
		t.Fatal("VerifyPassword returned true for incorrect password")
	}
}

func TestVerifyPasswordInvalidFormat(t *testing.T) {
	for _, encoded := range []string{
		"invalid-format",
		"c2FsdA==:aGFzaA==",
		"$bcrypt$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA",
	} {
		if _, err := VerifyPassword("password", encoded); err == nil {
			t.Fatalf("VerifyPassword accepted malformed hash %q", encoded)
		}
	}
}

func TestVerifyPasswordEmptyInputs(t *testing.T) {
	ok, err := VerifyPassword("", "")
	if err != nil {
		t.Fatalf("VerifyPassword returned error for empty inputs: %v", err)
	}
	if ok {
		t.Fatal("VerifyPassword should return false for empty inputs")
	}
}

func TestConfigureArgon2OverridesDefaults(t *testing.T) {
	original := CurrentArgon2Config()
	defer func() {
		if err := ConfigureArgon2(original); err != nil {
			t.Fatalf("failed to restore original config: %v", err)
		}
	}()

	newCfg := Argon2Config{
		Memory:      128 * 1024,
		Iterations:  4,
		Parallelism: 2,
		SaltLength:  24,
		KeyLength:   48,
	}
	if err := ConfigureArgon2(newCfg); err != nil {
		t.Fatalf("ConfigureArgon2 returned error: %v", err)
	}

	encoded, err := HashPassword("change-me")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	params := strings.Split(encoded, "$")[3]
	if params != "m=131072,t=4,p=2" {
		t.Fatalf("encoded hash does not reflect configured parameters: %s", params)
	}
}

func TestVerifyPasswordSurvivesParameterUpgrade(t *testing.T) {
	original := CurrentArgon2Config()
	defer func() {
		if err := ConfigureArgon2(original); err != nil {
			t.Fatalf("failed to restore original config: %v", err)
		}
	}()

	password := "upgrade-me"
	encoded, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	stronger := original
	stronger.Memory = original.Memory * 2
	stronger.Iterations = original.Iterations + 1
	if err := ConfigureArgon2(stronger); err != nil {
		t.Fatalf("ConfigureArgon2 returned error: %v", err)
	}

	ok, err := VerifyPassword(password, encoded)
	if err != nil {
		t.Fatalf("VerifyPassword returned error: %v", err)
	}
	if !ok {
		t.Fatal("hash issued under previous parameters no longer verifies")
	}
}

func TestConfigureArgon2RejectsWeakParameters(t *testing.T) {
	weak := Argon2Config{
		Memory:      1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
	if err := ConfigureArgon2(weak); err == nil {
		t.Fatal("ConfigureArgon2 accepted memory below the floor")
	}
}
