package service

import (
	"context"
	"errors"
	"testing"

	"scriptorium/internal/models"
	"scriptorium/internal/repository"
	"scriptorium/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	createFn     func(context.Context, *models.User) error
	getByIDFn    func(context.Context, int64) (*models.User, error)
	getByEmailFn func(context.Context, string) (*models.User, error)
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}

func newTestUserService(t *testing.T) *UserService {
	t.Helper()
	svc := NewUserService(repository.NewStore(testutil.NewSQLiteDB(t)).Users())
	svc.cost = bcrypt.MinCost
	return svc
}

func TestUserService_RegisterAndAuthenticate(t *testing.T) {
	svc := newTestUserService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "  Author@Example.com ", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "author@example.com", user.Email)
	assert.NotEqual(t, "correct horse", user.Password)

	got, err := svc.Authenticate(ctx, "AUTHOR@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.Authenticate(ctx, "author@example.com", "wrong horse")
	assert.True(t, models.IsKind(err, models.BusinessException))

	_, err = svc.Authenticate(ctx, "nobody@example.com", "correct horse")
	assert.True(t, models.IsKind(err, models.BusinessException))

	byID, err := svc.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, byID.Email)
}

func TestUserService_RegisterValidation(t *testing.T) {
	svc := newTestUserService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		detail   string
	}{
		{"bad email", "not-an-email", "long enough", "invalid email address"},
		{"short password", "a@example.com", "short", "password must be at least 8 characters long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.email, tt.password)
			var appErr *models.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, models.BusinessException, appErr.Kind)
			assert.Equal(t, tt.detail, appErr.Detail())
		})
	}

	_, err := svc.Register(ctx, "dup@example.com", "long enough")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "DUP@example.com", "long enough")
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "email already registered", appErr.Detail())
}

func TestUserService_StorageFailurePropagates(t *testing.T) {
	boom := errors.New("connection refused")
	svc := NewUserService(&userRepoStub{
		createFn:     func(context.Context, *models.User) error { return boom },
		getByEmailFn: func(context.Context, string) (*models.User, error) { return nil, boom },
		getByIDFn:    func(context.Context, int64) (*models.User, error) { return nil, repository.ErrNotFound },
	})
	svc.cost = bcrypt.MinCost
	ctx := context.Background()

	_, err := svc.Register(ctx, "a@example.com", "long enough")
	assert.ErrorIs(t, err, boom)

	_, err = svc.Authenticate(ctx, "a@example.com", "long enough")
	assert.ErrorIs(t, err, boom)

	_, err = svc.GetUserByID(ctx, 1)
	assert.True(t, models.IsKind(err, models.BusinessException))
}
