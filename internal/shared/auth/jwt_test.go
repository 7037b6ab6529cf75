package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func TestJWT_GenerateAndValidate(t *testing.T) {
	j := NewJWT("my-secret-key-123456", time.Hour)

	token, sessionID, err := j.NewSession()
	if err != nil {
		t.Fatalf("NewSession() failed: %v", err)
	}
	if token == "" || sessionID == "" {
		t.Fatal("NewSession() returned empty token or id")
	}

	claims, err := j.Validate(token)
	if err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	if claims.SessionID() != sessionID {
		t.Errorf("SessionID() = %q, want %q", claims.SessionID(), sessionID)
	}

	// Tampered signature
	parts := strings.Split(token, ".")
	_, err = j.Validate(parts[0] + "." + parts[1] + ".invalid-signature")
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Validate() tampered signature error = %v, want ErrInvalidToken", err)
	}

	// Invalid format
	if _, err := j.Validate("invalid.token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Validate() invalid format error = %v, want ErrInvalidToken", err)
	}
}

func TestJWT_WrongSecret(t *testing.T) {
	token, err := NewJWT("secret-one-0123456", time.Hour).Generate("s1")
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}

	if _, err := NewJWT("secret-two-0123456", time.Hour).Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Validate() error = %v, want ErrInvalidToken", err)
	}
}

func TestJWT_ExpiredToken(t *testing.T) {
	j := NewJWT("my-secret-key-123456", 24*time.Hour)
	j.now = func() time.Time { return time.Now().Add(-25 * time.Hour) }

	token, err := j.Generate("expired")
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}

	if _, err := j.Validate(token); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Validate() error = %v, want ErrTokenExpired", err)
	}
}

func TestJWT_RejectsOtherAlgorithms(t *testing.T) {
	j := NewJWT("my-secret-key-123456", time.Hour)

	claims := SessionClaims{RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer, Subject: "s1"}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("SignedString() failed: %v", err)
	}

	if _, err := j.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Validate() error = %v, want ErrInvalidToken", err)
	}
}

func TestJWT_RejectsForeignIssuer(t *testing.T) {
	j := NewJWT("my-secret-key-123456", time.Hour)

	claims := SessionClaims{RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else", Subject: "s1"}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		t.Fatalf("SignedString() failed: %v", err)
	}

	if _, err := j.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Validate() error = %v, want ErrInvalidToken", err)
	}
}
