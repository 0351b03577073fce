package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercatolabs/storefront-backend/internal/users"
	pkgauth "github.com/mercatolabs/storefront-backend/pkg/auth"
	"github.com/mercatolabs/storefront-backend/pkg/config"
	"github.com/mercatolabs/storefront-backend/pkg/db/models"
	"github.com/mercatolabs/storefront-backend/pkg/enums"
	pkgerrors "github.com/mercatolabs/storefront-backend/pkg/errors"
	"github.com/mercatolabs/storefront-backend/pkg/security"
)

type stubUserRepo struct {
	user       *models.User
	created    *models.User
	lastLogins int
}

func (s *stubUserRepo) Create(_ context.Context, dto users.CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	user.ID = uuid.New()
	s.created = user
	return user, nil
}

func (s *stubUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if s.user != nil && s.user.Email == email {
		return s.user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if s.user != nil && s.user.ID == id {
		return s.user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) UpdateLastLogin(_ context.Context, _ uuid.UUID, _ time.Time) error {
	s.lastLogins++
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "storefront",
		ExpirationMinutes: 30,
	}
}

func buildTestService(t *testing.T, repo *stubUserRepo) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		UserRepo:  repo,
		JWTConfig: testJWTConfig(),
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

func TestServiceRegisterIssuesCustomerToken(t *testing.T) {
	t.Parallel()

	repo := &stubUserRepo{}
	svc := buildTestService(t, repo)

	resp, err := svc.Register(context.Background(), RegisterRequest{
		FirstName: "Dana",
		LastName:  "Shopper",
		Email:     "Dana@Example.com",
		Password:  "super-secret",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if repo.created == nil {
		t.Fatalf("expected user to be created")
	}
	if repo.created.Email != "dana@example.com" {
		t.Fatalf("expected lowercased email, got %q", repo.created.Email)
	}
	if repo.created.Role != enums.UserRoleCustomer {
		t.Fatalf("expected customer role, got %s", repo.created.Role)
	}

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Role != enums.UserRoleCustomer {
		t.Fatalf("expected customer role claim, got %s", claims.Role)
	}
	if claims.UserID != repo.created.ID {
		t.Fatalf("expected user id claim to match created user")
	}
}

func TestServiceRegisterRejectsDuplicateEmail(t *testing.T) {
	t.Parallel()

	repo := &stubUserRepo{user: &models.User{
		ID:    uuid.New(),
		Email: "taken@example.com",
	}}
	svc := buildTestService(t, repo)

	_, err := svc.Register(context.Background(), RegisterRequest{
		FirstName: "Dana",
		LastName:  "Shopper",
		Email:     "taken@example.com",
		Password:  "super-secret",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestServiceLoginSuccess(t *testing.T) {
	t.Parallel()

	password := "customer-secret"
	repo := &stubUserRepo{user: &models.User{
		ID:           uuid.New(),
		Email:        "dana@example.com",
		PasswordHash: mustHashPassword(t, password),
		Role:         enums.UserRoleCustomer,
		IsActive:     true,
	}}
	svc := buildTestService(t, repo)

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    "dana@example.com",
		Password: password,
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if repo.lastLogins != 1 {
		t.Fatalf("expected last login to be recorded once, got %d", repo.lastLogins)
	}
	if resp.User == nil || resp.User.LastLoginAt == nil {
		t.Fatalf("expected user with last login timestamp")
	}
}

func TestServiceLoginWrongPassword(t *testing.T) {
	t.Parallel()

	repo := &stubUserRepo{user: &models.User{
		ID:           uuid.New(),
		Email:        "dana@example.com",
		PasswordHash: mustHashPassword(t, "right-password"),
		Role:         enums.UserRoleCustomer,
		IsActive:     true,
	}}
	svc := buildTestService(t, repo)

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "dana@example.com",
		Password: "wrong-password",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

func TestServiceLoginInactiveUser(t *testing.T) {
	t.Parallel()

	password := "customer-secret"
	repo := &stubUserRepo{user: &models.User{
		ID:           uuid.New(),
		Email:        "dana@example.com",
		PasswordHash: mustHashPassword(t, password),
		Role:         enums.UserRoleCustomer,
		IsActive:     false,
	}}
	svc := buildTestService(t, repo)

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "dana@example.com",
		Password: password,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized error for inactive user, got %v", err)
	}
}

func TestServiceMe(t *testing.T) {
	t.Parallel()

	user := &models.User{
		ID:    uuid.New(),
		Email: "dana@example.com",
		Role:  enums.UserRoleCustomer,
	}
	svc := buildTestService(t, &stubUserRepo{user: user})

	dto, err := svc.Me(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if dto.ID != user.ID {
		t.Fatalf("expected user id %s, got %s", user.ID, dto.ID)
	}

	_, err = svc.Me(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for unknown id, got %v", err)
	}
}
