package account

import (
	"encoding/hex"
	"testing"
)

func TestGenerateTemporaryPassword(t *testing.T) {
	p1, err := GenerateTemporaryPassword()
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if len(p1) != temporaryPasswordBytes*2 {
		t.Errorf("expected %d hex chars, got %d", temporaryPasswordBytes*2, len(p1))
	}
	if _, err := hex.DecodeString(p1); err != nil {
		t.Errorf("expected hex encoding, got %q", p1)
	}

	p2, err := GenerateTemporaryPassword()
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if p1 == p2 {
		t.Errorf("expected distinct passwords across calls")
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("hunter2hunter2")
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if string(hash) == "hunter2hunter2" {
		t.Fatalf("hash must not equal plaintext")
	}

	if !CheckPassword(hash, "hunter2hunter2") {
		t.Errorf("expected correct password to verify")
	}
	if CheckPassword(hash, "wrong") {
		t.Errorf("expected wrong password to fail")
	}
	if CheckPassword(nil, "anything") {
		t.Errorf("expected nil hash to fail")
	}
}
