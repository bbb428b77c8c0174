package seed

import (
	"context"
	"testing"
	"time"

	"healthcrm/internal/auth"
	"healthcrm/internal/caching"
	"healthcrm/internal/models"
	"healthcrm/internal/repositories"
	"healthcrm/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestLoadFixtures(t *testing.T) {
	f, err := Load()
	require.NoError(t, err)

	assert.Len(t, f.Users, 5)
	roles := map[string]bool{}
	for _, u := range f.Users {
		for _, r := range u.Roles {
			_, err := auth.ParseRole(r)
			assert.NoError(t, err, r)
			roles[r] = true
		}
	}
	assert.Len(t, roles, len(auth.AllRoles()), "every role has a demo account")

	for _, e := range f.Emails {
		_, ok := models.ParseFolder(e.Folder)
		assert.True(t, ok, e.ID)
	}
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	_, err := Decode("[[users]]\nemail = \"a@b.test\"\nnickname = \"x\"\n")
	assert.ErrorContains(t, err, "unknown fixture keys")
}

func TestFixtureRecordsAreValid(t *testing.T) {
	f, err := Load()
	require.NoError(t, err)
	c := NewCollections(f)
	ctx := context.Background()

	patients, _ := c.Patients.List(ctx, "")
	for _, p := range patients {
		assert.NoError(t, p.Validate())
	}
	deals, _ := c.Deals.List(ctx, "")
	for _, d := range deals {
		assert.NoError(t, d.Validate())
	}
	workflows, _ := c.Workflows.List(ctx, "")
	for _, w := range workflows {
		assert.NoError(t, w.Validate())
	}
	calls, _ := c.Calls.List(ctx, "")
	for _, call := range calls {
		assert.NoError(t, call.Validate())
	}
	assert.Equal(t, len(f.Prescriptions), c.Prescriptions.Len())
}

func TestSeedAccountsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	log := zaptest.NewLogger(t)
	users := repositories.NewMemoryUserRepo()
	emails := repositories.NewMemoryEmailRepo()
	appointments := repositories.NewMemoryAppointmentRepo()
	authService := services.NewAuthService(users, auth.NewTokenManager("secret", time.Hour), caching.NewMemoryStore(), log)

	f, err := Load()
	require.NoError(t, err)
	f.Users = f.Users[:2]

	now := time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)
	s := &Seeder{Auth: authService, Users: users, Emails: emails, Appointments: appointments, Log: log,
		Now: func() time.Time { return now }}
	require.NoError(t, s.Accounts(ctx, f))
	require.NoError(t, s.Accounts(ctx, f))

	listed, err := users.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	grey, err := users.GetByEmail(ctx, "grey@healthcrm.test")
	require.NoError(t, err)

	mailbox, err := emails.ListByOwner(ctx, grey.ID)
	require.NoError(t, err)
	require.Len(t, mailbox, len(f.Emails))
	assert.Equal(t, "e1", mailbox[0].ID, "newest first")
	assert.Equal(t, grey.Email, mailbox[0].Recipient)

	schedule, err := appointments.ListByOwner(ctx, grey.ID)
	require.NoError(t, err)
	require.Len(t, schedule, len(f.Appointments))
	assert.Equal(t, time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), schedule[0].Start)

	session, err := authService.Login(ctx, "grey@healthcrm.test", "password123")
	require.NoError(t, err)
	assert.True(t, session.Principal.Roles.Has(auth.RolePhysician))
}
