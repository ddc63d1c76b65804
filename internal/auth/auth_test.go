package auth

import (
	"testing"
)

func TestTokenRoundTrip(t *testing.T) {
	Init("test-secret")
	token, err := GenerateJWT("6ba7b810-9dad-11d1-80b4-00c04fd430c8", "alice", "ADMIN")
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	claims, err := ParseAndVerify(token)
	if err != nil {
		t.Fatalf("ParseAndVerify: %v", err)
	}
	if claims.UserID != "6ba7b810-9dad-11d1-80b4-00c04fd430c8" {
		t.Errorf("UserID = %q", claims.UserID)
	}
	if claims.Username != "alice" {
		t.Errorf("Username = %q", claims.Username)
	}
	if claims.Role != "ADMIN" {
		t.Errorf("Role = %q", claims.Role)
	}
	if claims.ExpiresAt <= claims.IssuedAt {
		t.Errorf("ExpiresAt %d not after IssuedAt %d", claims.ExpiresAt, claims.IssuedAt)
	}
}

func TestWrongSecretRejected(t *testing.T) {
	Init("first-secret")
	token, err := GenerateJWT("id", "bob", "AUDITOR")
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	Init("second-secret")
	if _, err := ParseAndVerify(token); err == nil {
		t.Fatal("token signed with a different secret was accepted")
	}
}

func TestGarbageTokenRejected(t *testing.T) {
	Init("test-secret")
	if _, err := ParseAndVerify("not.a.token"); err == nil {
		t.Fatal("garbage token was accepted")
	}
}
