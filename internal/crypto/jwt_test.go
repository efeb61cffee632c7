package crypto

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestIssuer(t *testing.T, secret string, expiry time.Duration) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer(secret, expiry)
	if err != nil {
		t.Fatalf("NewTokenIssuer() unexpected error: %v", err)
	}
	return issuer
}

func TestNewTokenIssuerRequiresSecret(t *testing.T) {
	if _, err := NewTokenIssuer("", 0); err != ErrMissingSecret {
		t.Errorf("NewTokenIssuer() error = %v, want %v", err, ErrMissingSecret)
	}
}

func TestIssueAndParse(t *testing.T) {
	issuer := newTestIssuer(t, "test-secret", 0)

	token, err := issuer.Issue("acc-42")
	if err != nil {
		t.Fatalf("Issue() unexpected error: %v", err)
	}
	if token == "" {
		t.Fatal("Issue() returned empty string")
	}

	claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}
	if claims.AccountID != "acc-42" {
		t.Errorf("Parse() AccountID = %q, want %q", claims.AccountID, "acc-42")
	}
	if claims.IssuedAt == nil {
		t.Error("Parse() expected iat claim")
	}
	if claims.ExpiresAt != nil {
		t.Error("Parse() expected no exp claim when expiry is zero")
	}
}

func TestIssueWithExpiry(t *testing.T) {
	issuer := newTestIssuer(t, "test-secret", time.Hour)

	token, err := issuer.Issue("acc-42")
	if err != nil {
		t.Fatalf("Issue() unexpected error: %v", err)
	}

	claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}
	if claims.ExpiresAt == nil {
		t.Fatal("Parse() expected exp claim")
	}
}

func TestParseExpired(t *testing.T) {
	issuer := newTestIssuer(t, "test-secret", time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, err := issuer.Issue("acc-42")
	if err != nil {
		t.Fatalf("Issue() unexpected error: %v", err)
	}

	if _, err := issuer.Parse(token); err != ErrInvalidToken {
		t.Errorf("Parse() error = %v, want %v", err, ErrInvalidToken)
	}
}

func TestParseInvalid(t *testing.T) {
	issuer := newTestIssuer(t, "test-secret", 0)

	if _, err := issuer.Parse("not-a-valid-token"); err != ErrInvalidToken {
		t.Errorf("Parse() error = %v, want %v", err, ErrInvalidToken)
	}
}

func TestParseWrongSecret(t *testing.T) {
	token, err := newTestIssuer(t, "correct-secret", 0).Issue("acc-42")
	if err != nil {
		t.Fatalf("Issue() unexpected error: %v", err)
	}

	if _, err := newTestIssuer(t, "wrong-secret", 0).Parse(token); err == nil {
		t.Error("Parse() expected error for wrong secret")
	}
}

func TestParseRejectsForeignTokens(t *testing.T) {
	secret := "test-secret"
	issuer := newTestIssuer(t, secret, 0)

	tests := []struct {
		name   string
		claims Claims
		method jwt.SigningMethod
	}{
		{
			name: "wrong issuer",
			claims: Claims{
				RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else"},
				AccountID:        "acc-42",
			},
			method: jwt.SigningMethodHS256,
		},
		{
			name: "missing account id",
			claims: Claims{
				RegisteredClaims: jwt.RegisteredClaims{Issuer: tokenIssuer},
			},
			method: jwt.SigningMethodHS256,
		},
		{
			name: "different hmac size still verifies issuer",
			claims: Claims{
				RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else"},
				AccountID:        "acc-42",
			},
			method: jwt.SigningMethodHS512,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokenString, err := jwt.NewWithClaims(tt.method, tt.claims).SignedString([]byte(secret))
			if err != nil {
				t.Fatalf("SignedString() unexpected error: %v", err)
			}

			if _, err := issuer.Parse(tokenString); err == nil {
				t.Error("Parse() expected error")
			}
		})
	}
}
