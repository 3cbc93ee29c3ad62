package auth_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"bridge/internal/auth"
	"bridge/internal/clock"
	"bridge/internal/store"
)

func newAuth(t *testing.T, clk clock.Clock) *auth.Service {
	t.Helper()
	st, err := store.NewJSONStore(filepath.Join(t.TempDir(), "accounts.json"), 0)
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}
	svc, err := auth.NewService(st, "test-secret", time.Hour, clk)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc
}

func TestSignUpSignInAndTokenRoundTrip(t *testing.T) {
	svc := newAuth(t, nil)

	session, err := svc.SignUp(auth.Credentials{Email: " Pilot@Bridge.io ", Password: "correct horse"})
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if session.Email != "pilot@bridge.io" || session.UserID == "" || session.Token == "" {
		t.Fatalf("unexpected session %+v", session)
	}

	userID, err := svc.UserIDFromToken(session.Token)
	if err != nil || userID != session.UserID {
		t.Fatalf("UserIDFromToken() = %q, %v", userID, err)
	}

	signedIn, err := svc.SignIn(auth.Credentials{Email: "pilot@bridge.io", Password: "correct horse"})
	if err != nil || signedIn.UserID != session.UserID {
		t.Fatalf("SignIn() = %+v, %v", signedIn, err)
	}
}

func TestSignUpRejectsDuplicatesAndBadInput(t *testing.T) {
	svc := newAuth(t, nil)
	if _, err := svc.SignUp(auth.Credentials{Email: "a@b.co", Password: "password1"}); err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if _, err := svc.SignUp(auth.Credentials{Email: "A@B.co", Password: "password2"}); !errors.Is(err, auth.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
	if _, err := svc.SignUp(auth.Credentials{Email: "not-an-email", Password: "password1"}); !errors.Is(err, auth.ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if _, err := svc.SignUp(auth.Credentials{Email: "c@d.co", Password: "short"}); !errors.Is(err, auth.ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}

func TestSignInRejectsWrongPassword(t *testing.T) {
	svc := newAuth(t, nil)
	if _, err := svc.SignUp(auth.Credentials{Email: "a@b.co", Password: "password1"}); err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if _, err := svc.SignIn(auth.Credentials{Email: "a@b.co", Password: "password2"}); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.SignIn(auth.Credentials{Email: "nobody@b.co", Password: "password1"}); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestTokenExpiresAndRejectsTampering(t *testing.T) {
	clk := clock.NewManual(time.Now().UTC())
	svc := newAuth(t, clk)
	session, err := svc.SignUp(auth.Credentials{Email: "a@b.co", Password: "password1"})
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}

	if _, err := svc.UserIDFromToken(session.Token + "x"); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for tampered token, got %v", err)
	}
	clk.Advance(2 * time.Hour)
	if _, err := svc.UserIDFromToken(session.Token); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after expiry, got %v", err)
	}
}

func TestNewServiceRequiresSecret(t *testing.T) {
	if _, err := auth.NewService(nil, " ", 0, nil); !errors.Is(err, auth.ErrSecretRequired) {
		t.Fatalf("expected ErrSecretRequired, got %v", err)
	}
}
