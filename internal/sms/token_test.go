package sms

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokens("s3cret")
	raw, err := tokens.Mint("bitematch")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	sub, err := tokens.Verify(raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if sub != "bitematch" {
		t.Errorf("subject = %q", sub)
	}
}

func TestTokenExpired(t *testing.T) {
	minter := NewTokens("s3cret")
	minter.now = func() time.Time { return time.Now().Add(-TokenTTL - time.Minute) }
	raw, err := minter.Mint("bitematch")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	_, err = NewTokens("s3cret").Verify(raw)
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	raw, _ := NewTokens("one").Mint("bitematch")
	if _, err := NewTokens("two").Verify(raw); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestTokenWrongAudience(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:   "bitematch",
		Audience:  jwt.ClaimStrings{"elsewhere"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("s3cret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewTokens("s3cret").Verify(raw); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestTokenWithoutExpiry(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:  "bitematch",
		Audience: jwt.ClaimStrings{TokenAudience},
	}
	raw, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("s3cret"))
	if _, err := NewTokens("s3cret").Verify(raw); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}
