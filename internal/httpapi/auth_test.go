package httpapi

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"grosirpos/internal/domain"
)

type userStoreStub struct {
	mu      sync.Mutex
	users   map[string]domain.UserAccount
	updates int
}

func (s *userStoreStub) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.UserAccount, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	return out, nil
}

func (s *userStoreStub) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.users[username]
	user.Password = password
	s.users[username] = user
	s.updates++
	return nil
}

func stubWithAdmin() *userStoreStub {
	return &userStoreStub{
		users: map[string]domain.UserAccount{
			"admin": {
				Username:  "admin",
				Password:  "admin123",
				Role:      "admin",
				Active:    true,
				CreatedAt: time.Now().UTC(),
			},
		},
	}
}

func TestAuthManagerUpgradesLegacyPlainPassword(t *testing.T) {
	store := stubWithAdmin()

	manager := NewAuthManager("test-secret", time.Hour, store)
	_, err := manager.Login(domain.LoginRequest{
		Username: "admin",
		Password: "admin123",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	users, err := store.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(users))
	}
	if users[0].Password == "admin123" {
		t.Fatalf("expected password to be upgraded from plain-text")
	}
	if !strings.HasPrefix(users[0].Password, "$2") {
		t.Fatalf("expected bcrypt password hash, got %s", users[0].Password)
	}
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	store := stubWithAdmin()
	store.users["caja1"] = domain.UserAccount{
		Username:  "caja1",
		Password:  "pass1234",
		Role:      "cashier",
		Active:    false,
		CreatedAt: time.Now().UTC(),
	}

	manager := NewAuthManager("test-secret", time.Hour, store)
	if _, err := manager.Login(domain.LoginRequest{Username: "caja1", Password: "pass1234"}); err == nil {
		t.Fatalf("expected inactive account to be rejected")
	}
}

func TestLoginPicksUpNewlyCreatedUsers(t *testing.T) {
	store := stubWithAdmin()
	manager := NewAuthManager("test-secret", time.Hour, store)

	// Account created after the manager was constructed, as the admin API does.
	store.mu.Lock()
	store.users["caja2"] = domain.UserAccount{
		Username:  "caja2",
		Password:  "supersegura",
		Role:      "cashier",
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	store.mu.Unlock()

	resp, err := manager.Login(domain.LoginRequest{Username: "caja2", Password: "supersegura"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.Role != "cashier" {
		t.Fatalf("expected cashier role, got %s", resp.Role)
	}
}

func TestParseTokenRoundTrip(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, stubWithAdmin())

	resp, err := manager.Login(domain.LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	actor, err := manager.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if actor.Username != "admin" || actor.Role != "admin" {
		t.Fatalf("unexpected actor: %+v", actor)
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, stubWithAdmin())

	if _, err := manager.ParseToken("not.a.token"); err == nil {
		t.Fatalf("expected garbage token to be rejected")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	manager := NewAuthManager("test-secret", -time.Minute, stubWithAdmin())
	// tokenTTL <= 0 falls back to the default, so sign directly in the past.
	token, err := manager.sign("admin", "admin", time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	if _, err := manager.ParseToken(token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewAuthManager("secret-one", time.Hour, stubWithAdmin())
	verifier := NewAuthManager("secret-two", time.Hour, stubWithAdmin())

	resp, err := issuer.Login(domain.LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, err := verifier.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}
}
