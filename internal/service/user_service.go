package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"scriptorium/internal/models"
	"scriptorium/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLen = 8
	// bcrypt ignores everything past 72 bytes
	maxPasswordLen = 72
)

const msgInvalidCredentials = "invalid credentials"

type UserService struct {
	userRepo repository.UserRepository
	cost     int
	now      func() time.Time
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{
		userRepo: userRepo,
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
	}
}

// WithCost overrides the bcrypt cost; seeding and tests use bcrypt.MinCost.
func (s *UserService) WithCost(cost int) *UserService {
	s.cost = cost
	return s
}

// Register creates an account. Emails are compared case-insensitively.
func (s *UserService) Register(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return nil, models.NewBusinessError("invalid email address")
	}
	if len(password) < minPasswordLen {
		return nil, models.NewBusinessError("password must be at least 8 characters long")
	}
	if len(password) > maxPasswordLen {
		return nil, models.NewBusinessError("password must not exceed 72 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:     email,
		Password:  string(hash),
		CreatedAt: s.now().Unix(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, models.NewBusinessError("email already registered")
		}
		return nil, err
	}
	return user, nil
}

// Authenticate returns the user owning email when password matches. Unknown
// email and wrong password are indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewBusinessError(msgInvalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewBusinessError(msgInvalidCredentials)
	}
	return user, nil
}

func (s *UserService) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, models.NewBusinessError("user not found")
	}
	return user, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
