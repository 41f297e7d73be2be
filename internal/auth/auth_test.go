package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "hunter2" {
		t.Error("hash must not equal the plaintext")
	}
	if !VerifyPassword(hash, "hunter2") {
		t.Error("correct password rejected")
	}
	if VerifyPassword(hash, "wrong") {
		t.Error("wrong password accepted")
	}
}

func TestMintAndParseToken(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	token, err := m.MintToken("grandpa@example.com")
	if err != nil {
		t.Fatalf("MintToken: %v", err)
	}

	email, err := m.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if email != "grandpa@example.com" {
		t.Errorf("subject = %q", email)
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, err := NewManager("secret-a", time.Hour).MintToken("a@b.c")
	if err != nil {
		t.Fatalf("MintToken: %v", err)
	}

	if _, err := NewManager("secret-b", time.Hour).ParseToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseTokenExpired(t *testing.T) {
	m := NewManager("test-secret", -time.Minute)
	token, err := m.MintToken("a@b.c")
	if err != nil {
		t.Fatalf("MintToken: %v", err)
	}
	if _, err := m.ParseToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestMiddleware(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	token, _ := m.MintToken("user@example.com")

	var gotEmail string
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotEmail, _ = EmailFromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/stories/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if gotEmail != "user@example.com" {
		t.Errorf("context email = %q", gotEmail)
	}

	// Missing and malformed tokens are rejected.
	for _, header := range []string{"", "Bearer ", "Bearer not-a-token", "Basic abc"} {
		req := httptest.NewRequest("GET", "/stories/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("header %q: expected 401, got %d", header, w.Code)
		}
	}
}
