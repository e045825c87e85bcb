package security

import (
	"strings"
	"testing"
)

func TestHashAndVerify(t *testing.T) {
	t.Parallel()

	hasher := NewHasher(8*1024, 1, 1)
	encoded, err := hasher.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$") {
		t.Fatalf("unexpected encoding: %s", encoded)
	}
	if !hasher.Verify("correct horse battery staple", encoded) {
		t.Fatalf("expected verify to succeed")
	}
	if hasher.Verify("wrong password", encoded) {
		t.Fatalf("expected verify to fail")
	}
}

func TestHashesAreSalted(t *testing.T) {
	t.Parallel()

	hasher := NewHasher(8*1024, 1, 1)
	first, err := hasher.Hash("same password")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	second, err := hasher.Hash("same password")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if first == second {
		t.Fatalf("two hashes of the same password must differ")
	}
}

func TestVerifyAcrossParameterChange(t *testing.T) {
	t.Parallel()

	old := NewHasher(8*1024, 1, 1)
	encoded, err := old.Hash("password1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	// parameters travel inside the encoded hash
	current := NewHasher(16*1024, 2, 2)
	if !current.Verify("password1", encoded) {
		t.Fatalf("hash from older parameters must still verify")
	}
}

func TestVerifyMalformed(t *testing.T) {
	t.Parallel()

	hasher := NewHasher(0, 0, 0)
	for _, encoded := range []string{"", "plaintext", "$argon2id$garbage", "$argon2i$v=19$m=8,t=1,p=1$c2FsdA$aGFzaA"} {
		if hasher.Verify("password", encoded) {
			t.Fatalf("malformed hash %q must not verify", encoded)
		}
	}
}
