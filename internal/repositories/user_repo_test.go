package repositories

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"healthcrm/internal/common"
	"healthcrm/internal/models"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

var userColumns = []string{"id", "email", "name", "password_hash", "roles", "created_at"}

type UserRepoTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	repo    UserRepository
	context context.Context
}

func (suite *UserRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	require.NoError(suite.T(), err)
	suite.mock = mock
	suite.repo = NewUserRepo(mock)
	suite.context = context.Background()
}

func (suite *UserRepoTestSuite) TearDownTest() {
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
	suite.mock.Close()
}

func TestUserRepoTestSuite(t *testing.T) {
	suite.Run(t, new(UserRepoTestSuite))
}

func (suite *UserRepoTestSuite) TestCreate_Success() {
	user := &models.User{ID: uuid.New(), Email: "amy@clinic.test", Name: "Amy", PasswordHash: "hash", Roles: []string{"nurse"}}

	suite.mock.ExpectExec(regexp.QuoteMeta(insertUserQuery)).
		WithArgs(user.ID, user.Email, user.Name, user.PasswordHash, user.Roles).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(suite.T(), suite.repo.Create(suite.context, user))
}

func (suite *UserRepoTestSuite) TestCreate_DuplicateEmail() {
	user := &models.User{ID: uuid.New(), Email: "amy@clinic.test", Name: "Amy", PasswordHash: "hash", Roles: []string{"nurse"}}

	suite.mock.ExpectExec(regexp.QuoteMeta(insertUserQuery)).
		WithArgs(user.ID, user.Email, user.Name, user.PasswordHash, user.Roles).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	err := suite.repo.Create(suite.context, user)
	assert.True(suite.T(), errors.Is(err, common.ErrValidation))
}

func (suite *UserRepoTestSuite) TestGetByEmail_Success() {
	id := uuid.New()
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	suite.mock.ExpectQuery(regexp.QuoteMeta(selectUserByEmailQuery)).
		WithArgs("AMY@clinic.test").
		WillReturnRows(pgxmock.NewRows(userColumns).
			AddRow(id, "amy@clinic.test", "Amy", "hash", []string{"nurse", "admin"}, created))

	user, err := suite.repo.GetByEmail(suite.context, "AMY@clinic.test")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), id, user.ID)
	assert.Equal(suite.T(), []string{"nurse", "admin"}, user.Roles)
	assert.Equal(suite.T(), created, user.CreatedAt)
}

func (suite *UserRepoTestSuite) TestGetByID_NotFound() {
	id := uuid.New()

	suite.mock.ExpectQuery(regexp.QuoteMeta(selectUserByIDQuery)).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	user, err := suite.repo.GetByID(suite.context, id)
	assert.Nil(suite.T(), user)
	assert.True(suite.T(), errors.Is(err, common.ErrNotFound))
}

func (suite *UserRepoTestSuite) TestList_Success() {
	now := time.Now()

	suite.mock.ExpectQuery(regexp.QuoteMeta(listUsersQuery)).
		WithArgs(10, 0).
		WillReturnRows(pgxmock.NewRows(userColumns).
			AddRow(uuid.New(), "a@clinic.test", "Amy", "h", []string{"nurse"}, now).
			AddRow(uuid.New(), "b@clinic.test", "Ben", "h", []string{"admin"}, now))

	users, err := suite.repo.List(suite.context, 10, 0)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), users, 2)
	assert.Equal(suite.T(), "Ben", users[1].Name)
}

func TestMemoryUserRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepo()

	zoe := &models.User{ID: uuid.New(), Email: "zoe@clinic.test", Name: "Zoe", Roles: []string{"admin"}}
	amy := &models.User{ID: uuid.New(), Email: "amy@clinic.test", Name: "Amy", Roles: []string{"nurse"}}
	require.NoError(t, repo.Create(ctx, zoe))
	require.NoError(t, repo.Create(ctx, amy))

	err := repo.Create(ctx, &models.User{ID: uuid.New(), Email: "ZOE@clinic.test"})
	assert.True(t, errors.Is(err, common.ErrValidation))

	got, err := repo.GetByEmail(ctx, "Zoe@Clinic.test")
	require.NoError(t, err)
	assert.Equal(t, zoe.ID, got.ID)

	users, err := repo.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Amy", users[0].Name)

	users, _ = repo.List(ctx, 10, 1)
	assert.Len(t, users, 1)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.True(t, errors.Is(err, common.ErrNotFound))
}
