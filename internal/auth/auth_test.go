package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/membergate/membergate/internal/account"
	apperrors "github.com/membergate/membergate/internal/errors"
	"github.com/membergate/membergate/internal/logger"
	"github.com/membergate/membergate/internal/session"
	"github.com/membergate/membergate/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.InMemoryStore) {
	t.Helper()
	logger.Init("error", "text")
	st := store.NewInMemoryStore()
	sessions := session.NewInMemoryStore(time.Hour)
	return NewService(st, sessions), st
}

func provision(t *testing.T, st *store.InMemoryStore, email, customerID, password string, active bool) {
	t.Helper()
	hash, err := account.HashPassword(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if _, err := st.UpsertActive(context.Background(), email, customerID, hash); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !active {
		if _, err := st.Deactivate(context.Background(), customerID); err != nil {
			t.Fatalf("deactivate: %v", err)
		}
	}
}

func TestLogin_Success(t *testing.T) {
	svc, st := newTestService(t)
	provision(t, st, "a@b.com", "cus_1", "correct-horse", true)

	token, err := svc.Login(context.Background(), "A@B.com", "correct-horse")
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if token == "" {
		t.Fatal("expected session token")
	}

	acct, err := svc.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if acct == nil || acct.Email != "a@b.com" {
		t.Fatalf("expected resolved account, got %+v", acct)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc, st := newTestService(t)
	provision(t, st, "a@b.com", "cus_1", "correct-horse", true)

	// Wrong password and unknown email must be indistinguishable
	_, wrongPass := "", error(nil)
	_, wrongPass = svc.Login(context.Background(), "a@b.com", "battery-staple")
	_, unknownEmail := svc.Login(context.Background(), "nobody@b.com", "battery-staple")

	if !errors.Is(wrongPass, apperrors.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", wrongPass)
	}
	if !errors.Is(unknownEmail, apperrors.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", unknownEmail)
	}
	if wrongPass.Error() != unknownEmail.Error() {
		t.Errorf("expected identical error messages, got %q vs %q", wrongPass, unknownEmail)
	}
}

func TestLogin_InactiveSubscription(t *testing.T) {
	svc, st := newTestService(t)
	provision(t, st, "a@b.com", "cus_1", "correct-horse", false)

	_, err := svc.Login(context.Background(), "a@b.com", "correct-horse")
	if !errors.Is(err, apperrors.ErrSubscriptionInactive) {
		t.Fatalf("expected ErrSubscriptionInactive, got %v", err)
	}
}

func TestLogin_MissingFields(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Login(context.Background(), "", "pw"); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected validation error for missing email, got %v", err)
	}
	if _, err := svc.Login(context.Background(), "a@b.com", ""); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected validation error for missing password, got %v", err)
	}
}

func TestResolve_UnknownToken(t *testing.T) {
	svc, _ := newTestService(t)

	acct, err := svc.Resolve(context.Background(), "bogus")
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if acct != nil {
		t.Fatalf("expected nil account for unknown token")
	}

	acct, err = svc.Resolve(context.Background(), "")
	if err != nil || acct != nil {
		t.Fatalf("expected nil, nil for empty token")
	}
}
