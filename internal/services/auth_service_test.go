package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"healthcrm/internal/auth"
	"healthcrm/internal/caching"
	"healthcrm/internal/common"
	"healthcrm/internal/models"
	"healthcrm/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*models.User), args.Error(1)
}

type AuthServiceTestSuite struct {
	suite.Suite
	ctx      context.Context
	mockRepo *MockUserRepository
	store    *caching.MemoryStore
	tokens   *auth.TokenManager
	service  AuthService
}

func (suite *AuthServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.mockRepo = &MockUserRepository{}
	suite.mockRepo.Test(suite.T())
	suite.store = caching.NewMemoryStore()
	suite.tokens = auth.NewTokenManager("test-secret", time.Hour)
	suite.service = NewAuthService(suite.mockRepo, suite.tokens, suite.store, zaptest.NewLogger(suite.T()))
}

func (suite *AuthServiceTestSuite) TearDownTest() {
	suite.mockRepo.AssertExpectations(suite.T())
}

func TestAuthServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}

func (suite *AuthServiceTestSuite) user(password string) *models.User {
	hash, err := auth.HashPassword(password)
	require.NoError(suite.T(), err)
	return &models.User{ID: uuid.New(), Email: "nurse@clinic.test", Name: "Nora", PasswordHash: hash, Roles: []string{"nurse", "pilot"}}
}

func (suite *AuthServiceTestSuite) TestLogin_Success() {
	u := suite.user("s3cret")
	suite.mockRepo.On("GetByEmail", suite.ctx, "nurse@clinic.test").Return(u, nil)

	session, err := suite.service.Login(suite.ctx, " nurse@clinic.test ", "s3cret")
	require.NoError(suite.T(), err)
	assert.NotEmpty(suite.T(), session.Token)
	assert.Equal(suite.T(), u.ID, session.Principal.UserID)
	assert.Equal(suite.T(), auth.Roles(auth.RoleNurse), session.Principal.Roles)

	claims, err := suite.tokens.Parse(session.Token)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), session.Principal.SessionID, claims.ID)
}

func (suite *AuthServiceTestSuite) TestLogin_WrongPassword() {
	suite.mockRepo.On("GetByEmail", suite.ctx, "nurse@clinic.test").Return(suite.user("s3cret"), nil)

	_, err := suite.service.Login(suite.ctx, "nurse@clinic.test", "guess")
	assert.True(suite.T(), errors.Is(err, common.ErrUnauthorized))
}

func (suite *AuthServiceTestSuite) TestLogin_UnknownUser() {
	suite.mockRepo.On("GetByEmail", suite.ctx, "ghost@clinic.test").Return(nil, common.ErrNotFound)

	_, err := suite.service.Login(suite.ctx, "ghost@clinic.test", "x")
	assert.True(suite.T(), errors.Is(err, common.ErrUnauthorized))
}

func (suite *AuthServiceTestSuite) TestLogin_MissingFields() {
	_, err := suite.service.Login(suite.ctx, "", "x")
	assert.True(suite.T(), errors.Is(err, common.ErrValidation))
}

func (suite *AuthServiceTestSuite) TestLogout_RevokesSession() {
	p := &auth.Principal{UserID: uuid.New(), SessionID: "jti-1", ExpiresAt: time.Now().Add(time.Hour)}

	revoked, err := suite.service.IsRevoked(suite.ctx, "jti-1")
	require.NoError(suite.T(), err)
	assert.False(suite.T(), revoked)

	require.NoError(suite.T(), suite.service.Logout(suite.ctx, p))

	revoked, err = suite.service.IsRevoked(suite.ctx, "jti-1")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), revoked)

	require.NoError(suite.T(), suite.service.Logout(suite.ctx, nil))
}

func (suite *AuthServiceTestSuite) TestListUsers_ClampsPagination() {
	suite.mockRepo.On("List", suite.ctx, 50, 0).Return([]*models.User{{ID: uuid.New(), Name: "Ann", Roles: []string{"admin"}}}, nil)

	users, err := suite.service.ListUsers(suite.ctx, 0, -3)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), users, 1)
	assert.Equal(suite.T(), "Ann", users[0].Name)
}

func TestAuthService_RegisterThenLogin(t *testing.T) {
	ctx := context.Background()
	svc := NewAuthService(repositories.NewMemoryUserRepo(), auth.NewTokenManager("k", time.Hour),
		caching.NewMemoryStore(), zaptest.NewLogger(t))

	u, err := svc.Register(ctx, "admin@clinic.test", "Ada", "pw", []string{"sales", "admin"})
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "sales"}, u.Roles)

	_, err = svc.Register(ctx, "x@clinic.test", "X", "pw", []string{"janitor"})
	assert.True(t, errors.Is(err, common.ErrValidation))

	session, err := svc.Login(ctx, "ADMIN@clinic.test", "pw")
	require.NoError(t, err)
	assert.True(t, session.Principal.Roles.Has(auth.RoleAdmin))
}
