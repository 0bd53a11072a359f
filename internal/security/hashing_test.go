package security

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndCompare(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	password := []byte("abc12345")
	hash, err := h.Hash(password)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "" || hash == string(password) {
		t.Fatal("Hash returned empty or plaintext")
	}
	if err := h.Compare(hash, password); err != nil {
		t.Fatalf("Compare: %v", err)
	}
}

func TestHasher_CompareWrongPassword(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	hash, _ := h.Hash([]byte("abc12345"))
	err := h.Compare(hash, []byte("wrong"))
	if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		t.Fatalf("Compare with wrong password: want ErrMismatchedHashAndPassword, got %v", err)
	}
}

func TestHasher_CompareGarbageHash(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	if err := h.Compare("not-a-hash", []byte("abc12345")); err == nil {
		t.Fatal("Compare against invalid hash should fail")
	}
}

func TestHasher_EmptyPassword(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	if _, err := h.Hash(nil); !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("Hash(nil): want ErrEmptyPassword, got %v", err)
	}
}

func TestHasher_Cost(t *testing.T) {
	if h := NewHasher(12); h.Cost != 12 {
		t.Errorf("Cost want 12, got %d", h.Cost)
	}
	if h := NewHasher(0); h.Cost != DefaultBcryptCost {
		t.Errorf("zero cost should default to %d, got %d", DefaultBcryptCost, h.Cost)
	}
	if h := NewHasher(2); h.Cost != bcrypt.MinCost {
		t.Errorf("low cost should clamp to MinCost, got %d", h.Cost)
	}
	if h := NewHasher(99); h.Cost != bcrypt.MaxCost {
		t.Errorf("high cost should clamp to MaxCost, got %d", h.Cost)
	}
}
