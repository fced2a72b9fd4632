package users

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ridepoolhq/ridepool-backend/pkg/config"
	"github.com/ridepoolhq/ridepool-backend/pkg/db/models"
	pkgerrors "github.com/ridepoolhq/ridepool-backend/pkg/errors"
	"gorm.io/gorm"
)

type stubTxRunner struct{}

func (s stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubUserRepository struct {
	byUsername map[string]*models.User
	byID       map[int64]*models.User
	nextID     int64
	createErr  error
	listErr    error
}

func newStubUserRepository() *stubUserRepository {
	return &stubUserRepository{
		byUsername: map[string]*models.User{},
		byID:       map[int64]*models.User{},
		nextID:     1,
	}
}

func (s *stubUserRepository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	user := &models.User{
		ID:           s.nextID,
		Username:     dto.Username,
		PasswordHash: dto.PasswordHash,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	s.nextID++
	s.byUsername[user.Username] = user
	s.byID[user.ID] = user
	return user, nil
}

func (s *stubUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if user, ok := s.byUsername[username]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	if user, ok := s.byID[id]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepository) ListAll(ctx context.Context) ([]models.User, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]models.User, 0, len(s.byID))
	for id := int64(1); id < s.nextID; id++ {
		if u, ok := s.byID[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func newTestService(t *testing.T, repo *stubUserRepository) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		TxRunner:       stubTxRunner{},
		RepoFactory:    func(tx *gorm.DB) userRepository { return repo },
		Reader:         repo,
		PasswordConfig: config.PasswordConfig{},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestRegisterCreatesUserWithoutExposingPassword(t *testing.T) {
	repo := newStubUserRepository()
	svc := newTestService(t, repo)

	dto, err := svc.Register(context.Background(), RegisterRequest{Username: "alice", Password: "hunter22"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if dto.ID != 1 || dto.Username != "alice" {
		t.Fatalf("unexpected dto %+v", dto)
	}

	stored := repo.byUsername["alice"]
	if stored == nil {
		t.Fatal("expected user to be persisted")
	}
	if stored.PasswordHash == "hunter22" {
		t.Fatal("password stored in plaintext")
	}
	if !strings.HasPrefix(stored.PasswordHash, "$argon2id$") {
		t.Fatalf("expected argon2id hash, got %q", stored.PasswordHash)
	}
}

func TestRegisterDuplicateUsernameConflicts(t *testing.T) {
	repo := newStubUserRepository()
	svc := newTestService(t, repo)

	if _, err := svc.Register(context.Background(), RegisterRequest{Username: "alice", Password: "hunter22"}); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	_, err := svc.Register(context.Background(), RegisterRequest{Username: "alice", Password: "other-pass"})
	if err == nil {
		t.Fatal("expected duplicate username to fail")
	}
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestRegisterTrimsUsername(t *testing.T) {
	repo := newStubUserRepository()
	svc := newTestService(t, repo)

	dto, err := svc.Register(context.Background(), RegisterRequest{Username: "  bob  ", Password: "hunter22"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if dto.Username != "bob" {
		t.Fatalf("expected trimmed username, got %q", dto.Username)
	}
}

func TestGetUnknownUserIsNotFound(t *testing.T) {
	repo := newStubUserRepository()
	svc := newTestService(t, repo)

	_, err := svc.Get(context.Background(), 99)
	if err == nil {
		t.Fatal("expected not found")
	}
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestListReturnsEmptySliceWhenNoUsers(t *testing.T) {
	repo := newStubUserRepository()
	svc := newTestService(t, repo)

	list, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if list == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(list) != 0 {
		t.Fatalf("expected no users, got %d", len(list))
	}
}

func TestListReturnsUsersInInsertionOrder(t *testing.T) {
	repo := newStubUserRepository()
	svc := newTestService(t, repo)

	for _, name := range []string{"alice", "bob", "carol"} {
		if _, err := svc.Register(context.Background(), RegisterRequest{Username: name, Password: "hunter22"}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	list, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 users, got %d", len(list))
	}
	if list[0].Username != "alice" || list[2].Username != "carol" {
		t.Fatalf("unexpected ordering: %+v", list)
	}
}
