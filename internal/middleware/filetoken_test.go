package middleware

import (
	"testing"
	"time"
)

const testSecret = "test-secret"

func TestFileTokenRoundTrip(t *testing.T) {
	token, err := GenerateFileToken("essay-42", testSecret, time.Minute)
	if err != nil {
		t.Fatalf("GenerateFileToken: %v", err)
	}

	claims, err := ParseFileToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseFileToken: %v", err)
	}
	if claims.EssayID != "essay-42" {
		t.Errorf("EssayID = %q, want essay-42", claims.EssayID)
	}
}

func TestFileTokenWrongSecret(t *testing.T) {
	token, err := GenerateFileToken("essay-42", testSecret, time.Minute)
	if err != nil {
		t.Fatalf("GenerateFileToken: %v", err)
	}
	if _, err := ParseFileToken(token, "other-secret"); err == nil {
		t.Error("token signed with a different secret was accepted")
	}
}

func TestFileTokenExpiry(t *testing.T) {
	token, err := GenerateFileToken("essay-42", testSecret, -time.Minute)
	if err != nil {
		t.Fatalf("GenerateFileToken: %v", err)
	}
	if _, err := ParseFileToken(token, testSecret); err == nil {
		t.Error("expired token was accepted")
	}
}

func TestHashFileToken(t *testing.T) {
	token, err := GenerateFileToken("essay-42", testSecret, time.Minute)
	if err != nil {
		t.Fatalf("GenerateFileToken: %v", err)
	}

	hash, err := HashFileToken(token)
	if err != nil {
		t.Fatalf("HashFileToken: %v", err)
	}
	if hash == token {
		t.Error("hash equals the raw token")
	}
	if !matchFileToken(token, hash) {
		t.Error("token does not match its own hash")
	}
	if matchFileToken("some-other-token", hash) {
		t.Error("unrelated token matched the hash")
	}
}
