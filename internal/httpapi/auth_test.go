package httpapi

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"meatledger/backend/internal/domain"
	"meatledger/backend/internal/store"
	"meatledger/backend/internal/store/memory"
)

type userStoreStub struct {
	mu      sync.Mutex
	users   map[string]domain.UserAccount
	updates int
}

func (s *userStoreStub) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users == nil {
		s.users = make(map[string]domain.UserAccount)
	}
	s.users[user.Username] = user
	return nil
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

func TestAuthManagerUpgradesLegacyPlainPassword(t *testing.T) {
	store := &userStoreStub{
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

	manager := NewAuthManager("test-secret", time.Hour, store)
	_, err := manager.Login(context.Background(), domain.LoginRequest{
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

func TestCreateStaffStoresPasswordHash(t *testing.T) {
	store := &userStoreStub{
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

	manager := NewAuthManager("test-secret", time.Hour, store)
	staff, err := manager.CreateStaff(context.Background(), StaffCreateRequest{
		Username: "counter2",
		Password: "pass1234",
	})
	if err != nil {
		t.Fatalf("create staff failed: %v", err)
	}
	if staff.Username != "counter2" || staff.Role != RoleStaff {
		t.Fatalf("unexpected staff user %+v", staff)
	}

	users, err := store.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	var found *domain.UserAccount
	for i := range users {
		if users[i].Username == "counter2" {
			found = &users[i]
			break
		}
	}
	if found == nil {
		t.Fatalf("expected staff user to be saved")
	}
	if found.Password == "pass1234" {
		t.Fatalf("expected staff password to be hashed")
	}
	if !strings.HasPrefix(found.Password, "$2") {
		t.Fatalf("expected bcrypt hash prefix, got %s", found.Password)
	}

	_, err = manager.Login(context.Background(), domain.LoginRequest{
		Username: "counter2",
		Password: "pass1234",
	})
	if err != nil {
		t.Fatalf("login with hashed staff user failed: %v", err)
	}
}

func TestCreateStaffRejectsDuplicatesAndWeakInput(t *testing.T) {
	store := &userStoreStub{users: map[string]domain.UserAccount{}}
	manager := NewAuthManager("test-secret", time.Hour, store)

	cases := []StaffCreateRequest{
		{Username: "abc", Password: "pass1234"},
		{Username: "has space", Password: "pass1234"},
		{Username: "counter3", Password: "12345"},
	}
	for _, req := range cases {
		if _, err := manager.CreateStaff(context.Background(), req); err == nil {
			t.Fatalf("expected %+v to be rejected", req)
		}
	}

	if _, err := manager.CreateStaff(context.Background(), StaffCreateRequest{Username: "Counter3", Password: "pass1234"}); err != nil {
		t.Fatalf("create staff failed: %v", err)
	}
	if _, err := manager.CreateStaff(context.Background(), StaffCreateRequest{Username: "counter3", Password: "pass1234"}); err == nil {
		t.Fatalf("expected duplicate username to be rejected")
	}

	staff := manager.ListStaff(context.Background())
	if len(staff) != 1 || staff[0].Username != "counter3" {
		t.Fatalf("unexpected staff list %+v", staff)
	}
}

func TestParseTokenRoundTripsActor(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, nil)
	token, err := manager.sign("admin", RoleAdmin, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	actor, err := manager.ParseToken(token)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if actor.Username != "admin" || actor.Role != RoleAdmin {
		t.Fatalf("unexpected actor %+v", actor)
	}

	other := NewAuthManager("another-secret", time.Hour, nil)
	if _, err := other.ParseToken(token); err == nil {
		t.Fatalf("expected token signed with another secret to fail")
	}

	expired, err := manager.sign("admin", RoleAdmin, time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := manager.ParseToken(expired); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}

func TestRepositoryUserStoreKeysByUsername(t *testing.T) {
	repo := store.NewRepository(memory.New())
	users := NewRepositoryUserStore(repo.Users)
	ctx := context.Background()

	if err := users.CreateUser(ctx, domain.UserAccount{Username: "counter4", Password: "plain", Role: RoleStaff, Active: true}); err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	if err := users.UpdateUserPassword(ctx, "counter4", "$2a$10$replaced"); err != nil {
		t.Fatalf("update password failed: %v", err)
	}

	stored, err := repo.Users.GetByID(ctx, "counter4")
	if err != nil {
		t.Fatalf("get user failed: %v", err)
	}
	if stored.Password != "$2a$10$replaced" || stored.Role != RoleStaff {
		t.Fatalf("unexpected stored user %+v", stored)
	}
}
