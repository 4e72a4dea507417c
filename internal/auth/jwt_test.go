package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-at-least-32-chars-long-for-security"

func TestJWTManager_GenerateAndValidate(t *testing.T) {
	m := NewJWTManager(testSecret, "sistemapedidos")

	token, err := m.GenerateAccessToken(7, "ADMIN", 15*time.Minute)
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	id, err := m.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken failed: %v", err)
	}
	if id.UserID != 7 {
		t.Errorf("expected user 7, got %d", id.UserID)
	}
	if !id.HasRole("ADMIN") {
		t.Errorf("expected role ADMIN, got %q", id.Role)
	}
}

func TestJWTManager_Rejects(t *testing.T) {
	m := NewJWTManager(testSecret, "sistemapedidos")

	expired, _ := m.GenerateAccessToken(7, "USER", -time.Minute)
	otherIssuer, _ := NewJWTManager(testSecret, "someone-else").GenerateAccessToken(7, "USER", time.Minute)
	otherSecret, _ := NewJWTManager(strings.Repeat("x", 40), "sistemapedidos").GenerateAccessToken(7, "USER", time.Minute)
	badSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "abc",
			Issuer:    "sistemapedidos",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}).SignedString([]byte(testSecret))
	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "7", Issuer: "sistemapedidos"},
	}).SignedString([]byte(testSecret))

	tests := map[string]string{
		"empty":     "",
		"garbage":   "not.a.token",
		"expired":   expired,
		"issuer":    otherIssuer,
		"secret":    otherSecret,
		"subject":   badSubject,
		"no expiry": noExpiry,
		"alg none":  "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0.eyJzdWIiOiI3In0.",
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := m.ValidateAccessToken(token); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestIdentityFromCtx(t *testing.T) {
	if _, ok := IdentityFromCtx(context.Background()); ok {
		t.Fatal("expected anonymous context")
	}

	ctx := WithIdentity(context.Background(), Identity{UserID: 3, Role: "USER"})
	id, ok := IdentityFromCtx(ctx)
	if !ok || id.UserID != 3 {
		t.Fatalf("unexpected identity %+v (ok=%v)", id, ok)
	}
	if id.HasRole("") || id.HasRole("ADMIN") {
		t.Error("unexpected role match")
	}
}
