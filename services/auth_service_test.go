package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DIPEDEV/batalla-numeros/models"

	"golang.org/x/oauth2"
)

func TestTokenRoundTrip(t *testing.T) {
	s := NewAuthService(nil, "secret", nil)
	token, err := s.GenerateToken(&models.User{ID: "u1", IsAnonymous: true})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	claims, err := s.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != "u1" || !claims.IsAnonymous {
		t.Fatalf("unexpected claims %+v", claims)
	}

	other := NewAuthService(nil, "other-secret", nil)
	if _, err := other.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for foreign secret, got %v", err)
	}
	if _, err := s.ValidateToken("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	s := NewAuthService(nil, "secret", nil)
	issued := time.Now().Add(-tokenTTL - time.Hour)
	s.now = func() time.Time { return issued }
	token, err := s.GenerateToken(&models.User{ID: "u1"})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	s.now = time.Now
	if _, err := s.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
}

func TestNormalizeUsername(t *testing.T) {
	if _, _, err := normalizeUsername(" ab "); !errors.Is(err, ErrInvalidUsername) {
		t.Fatalf("expected ErrInvalidUsername, got %v", err)
	}
	if _, _, err := normalizeUsername(strings.Repeat("x", maxNameLength+1)); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
	name, lower, err := normalizeUsername("  Pablo ")
	if err != nil || name != "Pablo" || lower != "pablo" {
		t.Fatalf("got %q %q %v", name, lower, err)
	}
}

func TestGoogleAuthURL(t *testing.T) {
	if _, err := NewAuthService(nil, "secret", nil).GoogleAuthURL("state"); !errors.Is(err, ErrOAuthDisabled) {
		t.Fatalf("expected ErrOAuthDisabled, got %v", err)
	}
	cfg := &oauth2.Config{
		ClientID: "client-1",
		Endpoint: oauth2.Endpoint{AuthURL: "https://accounts.example.com/auth"},
	}
	url, err := NewAuthService(nil, "secret", cfg).GoogleAuthURL("state-1")
	if err != nil || !strings.Contains(url, "client_id=client-1") || !strings.Contains(url, "state=state-1") {
		t.Fatalf("unexpected url %q %v", url, err)
	}
}
