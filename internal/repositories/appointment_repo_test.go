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

var appointmentRowColumns = []string{"id", "owner_id", "patient_name", "title", "starts_at", "ends_at",
	"status", "location", "notes", "email_thread_id"}

type AppointmentRepoTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	repo    AppointmentRepository
	ownerID uuid.UUID
	start   time.Time
	context context.Context
}

func (suite *AppointmentRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	require.NoError(suite.T(), err)
	suite.mock = mock
	suite.repo = NewAppointmentRepo(mock)
	suite.ownerID = uuid.New()
	suite.start = time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	suite.context = context.Background()
}

func (suite *AppointmentRepoTestSuite) TearDownTest() {
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
	suite.mock.Close()
}

func TestAppointmentRepoTestSuite(t *testing.T) {
	suite.Run(t, new(AppointmentRepoTestSuite))
}

func (suite *AppointmentRepoTestSuite) TestCreate_Success() {
	a := &models.Appointment{ID: "a1", OwnerID: suite.ownerID, PatientName: "Jane Roe", Title: "Checkup",
		Start: suite.start, End: suite.start.Add(30 * time.Minute), Status: models.AppointmentScheduled}

	suite.mock.ExpectExec(regexp.QuoteMeta(insertAppointmentQuery)).
		WithArgs(a.ID, a.OwnerID, a.PatientName, a.Title, a.Start, a.End, "scheduled", a.Location, a.Notes, a.EmailThreadID).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(suite.T(), suite.repo.Create(suite.context, a))
}

func (suite *AppointmentRepoTestSuite) TestGetByID_Success() {
	suite.mock.ExpectQuery(regexp.QuoteMeta(selectAppointmentQuery)).
		WithArgs(suite.ownerID, "a1").
		WillReturnRows(pgxmock.NewRows(appointmentRowColumns).
			AddRow("a1", suite.ownerID, "Jane Roe", "Checkup", suite.start, suite.start.Add(time.Hour),
				"confirmed", "Room 2", "", "e1"))

	a, err := suite.repo.GetByID(suite.context, suite.ownerID, "a1")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.AppointmentConfirmed, a.Status)
	assert.Equal(suite.T(), "e1", a.EmailThreadID)
}

func (suite *AppointmentRepoTestSuite) TestGetByID_NotFound() {
	suite.mock.ExpectQuery(regexp.QuoteMeta(selectAppointmentQuery)).
		WithArgs(suite.ownerID, "missing").
		WillReturnError(pgx.ErrNoRows)

	a, err := suite.repo.GetByID(suite.context, suite.ownerID, "missing")
	assert.Nil(suite.T(), a)
	assert.True(suite.T(), errors.Is(err, common.ErrNotFound))
}

func (suite *AppointmentRepoTestSuite) TestDelete_NotFound() {
	suite.mock.ExpectExec(regexp.QuoteMeta(deleteAppointmentQuery)).
		WithArgs(suite.ownerID, "missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := suite.repo.Delete(suite.context, suite.ownerID, "missing")
	assert.True(suite.T(), errors.Is(err, common.ErrNotFound))
}

func (suite *AppointmentRepoTestSuite) TestListStartingBetween() {
	to := suite.start.Add(time.Hour)

	suite.mock.ExpectQuery(regexp.QuoteMeta(listAppointmentsBetweenQuery)).
		WithArgs(suite.start, to).
		WillReturnRows(pgxmock.NewRows(appointmentRowColumns).
			AddRow("a1", suite.ownerID, "Jane Roe", "Checkup", suite.start, to, "scheduled", "", "", ""))

	list, err := suite.repo.ListStartingBetween(suite.context, suite.start, to)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), list, 1)
}

func TestMemoryAppointmentRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAppointmentRepo()
	owner := uuid.New()
	base := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

	late := &models.Appointment{ID: "late", OwnerID: owner, Start: base.Add(2 * time.Hour), Status: models.AppointmentScheduled}
	early := &models.Appointment{ID: "early", OwnerID: owner, Start: base, Status: models.AppointmentScheduled}
	cancelled := &models.Appointment{ID: "cx", OwnerID: owner, Start: base.Add(time.Hour), Status: models.AppointmentCancelled}
	for _, a := range []*models.Appointment{late, early, cancelled} {
		require.NoError(t, repo.Create(ctx, a))
	}

	list, err := repo.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "early", list[0].ID)

	window, err := repo.ListStartingBetween(ctx, base, base.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Len(t, window, 2)

	_, err = repo.GetByID(ctx, uuid.New(), "early")
	assert.True(t, errors.Is(err, common.ErrNotFound))

	require.NoError(t, repo.Delete(ctx, owner, "early"))
	assert.True(t, errors.Is(repo.Delete(ctx, owner, "early"), common.ErrNotFound))
}
