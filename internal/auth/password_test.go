package auth

import (
	"strings"
	"testing"
)

func TestPasswordHasherRoundTrip(t *testing.T) {
	t.Parallel()

	hasher := NewPasswordHasher()

	digest, err := hasher.Hash("Sup3r$ecret")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if digest == "Sup3r$ecret" {
		t.Fatal("digest equals the plaintext")
	}
	if !strings.HasPrefix(digest, "$2") {
		t.Errorf("digest does not look like bcrypt: %q", digest)
	}

	if !hasher.Verify("Sup3r$ecret", digest) {
		t.Error("Verify rejected the correct password")
	}
	if hasher.Verify("wrong-password", digest) {
		t.Error("Verify accepted a wrong password")
	}
}

func TestPasswordHasherDistinctDigests(t *testing.T) {
	t.Parallel()

	hasher := NewPasswordHasher()

	first, err := hasher.Hash("Sup3r$ecret")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	second, err := hasher.Hash("Sup3r$ecret")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if first == second {
		t.Error("two digests of the same password are identical, salting is broken")
	}
}

func TestPasswordHasherMalformedDigest(t *testing.T) {
	t.Parallel()

	hasher := NewPasswordHasher()

	if hasher.Verify("anything", "not-a-bcrypt-digest") {
		t.Error("Verify accepted a malformed digest")
	}
	if hasher.Verify("anything", "") {
		t.Error("Verify accepted an empty digest")
	}
}
