package services

import (
	"bytes"
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

type MockEmailRepository struct {
	mock.Mock
}

func (m *MockEmailRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Email, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Email), args.Error(1)
}

func (m *MockEmailRepository) Create(ctx context.Context, email *models.Email) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockEmailRepository) Update(ctx context.Context, email *models.Email) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

type EmailServiceTestSuite struct {
	suite.Suite
	ctx           context.Context
	repo          repositories.EmailRepository
	store         *caching.MemoryStore
	drafts        DraftStore
	storage       *MemoryStorage
	notifications NotificationService
	service       EmailService
	principal     *auth.Principal
}

func (suite *EmailServiceTestSuite) SetupTest() {
	log := zaptest.NewLogger(suite.T())
	suite.ctx = context.Background()
	suite.repo = repositories.NewMemoryEmailRepo()
	suite.store = caching.NewMemoryStore()
	suite.drafts = NewDraftStore(suite.store)
	suite.storage = NewMemoryStorage()
	suite.notifications = NewNotificationService(suite.store, log)
	suite.service = NewEmailService(suite.repo, suite.drafts, NewComposeStager(suite.store, time.Minute),
		suite.storage, suite.notifications, log)
	suite.principal = &auth.Principal{
		UserID:    uuid.New(),
		Name:      "Dr. Grey",
		Email:     "grey@clinic.test",
		Roles:     auth.Roles(auth.RolePhysician),
		SessionID: "session-1",
	}

	owner := suite.principal.UserID
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	for _, e := range []models.Email{
		{ID: "e3", OwnerID: owner, Subject: "Invoice", Sender: "Billing", SenderEmail: "billing@ins.test", Folder: models.FolderInbox, Labels: []string{"finance"}, ReceivedAt: base},
		{ID: "e2", OwnerID: owner, Subject: "Referral letter", Folder: models.FolderDrafts, Read: true, ReceivedAt: base.Add(time.Hour)},
		{ID: "e1", OwnerID: owner, Subject: "Lab results", Sender: "Dr. Lee", SenderEmail: "lee@lab.test", Body: "All normal.", Folder: models.FolderInbox, ReceivedAt: base.Add(2 * time.Hour)},
	} {
		e := e
		require.NoError(suite.T(), suite.repo.Create(suite.ctx, &e))
	}
	require.NoError(suite.T(), suite.drafts.Save(suite.ctx, &models.Draft{ID: "e2", OwnerID: owner, Subject: "Referral letter"}))
}

func TestEmailServiceTestSuite(t *testing.T) {
	suite.Run(t, new(EmailServiceTestSuite))
}

func (suite *EmailServiceTestSuite) owner() uuid.UUID {
	return suite.principal.UserID
}

func (suite *EmailServiceTestSuite) TestToggleStar_StarsInboxEmail() {
	e, err := suite.service.ToggleStar(suite.ctx, suite.owner(), "e1")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), e.Starred)
	assert.Equal(suite.T(), models.FolderInbox, e.Folder)

	starred, err := suite.service.List(suite.ctx, suite.owner(), EmailFilter{Starred: true})
	require.NoError(suite.T(), err)
	require.Len(suite.T(), starred, 1)
	assert.Equal(suite.T(), "e1", starred[0].ID)

	e, err = suite.service.ToggleStar(suite.ctx, suite.owner(), "e1")
	require.NoError(suite.T(), err)
	assert.False(suite.T(), e.Starred)
}

func (suite *EmailServiceTestSuite) TestDelete_DraftRemovesPersistedDraft() {
	e, err := suite.service.Delete(suite.ctx, suite.owner(), "e2")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.FolderTrash, e.Folder)

	_, err = suite.drafts.Get(suite.ctx, suite.owner(), "e2")
	assert.True(suite.T(), errors.Is(err, caching.ErrMiss))

	again, err := suite.service.Delete(suite.ctx, suite.owner(), "e2")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.FolderTrash, again.Folder)
}

func (suite *EmailServiceTestSuite) TestDelete_InboxKeepsDrafts() {
	_, err := suite.service.Delete(suite.ctx, suite.owner(), "e1")
	require.NoError(suite.T(), err)

	drafts, err := suite.service.ListDrafts(suite.ctx, suite.owner())
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), drafts, 1)
}

func (suite *EmailServiceTestSuite) TestUnknownID_NotFoundWithBackLink() {
	_, err := suite.service.Archive(suite.ctx, suite.owner(), "missing")
	require.Error(suite.T(), err)
	assert.True(suite.T(), errors.Is(err, common.ErrNotFound))

	var nf *common.NotFoundError
	require.True(suite.T(), errors.As(err, &nf))
	assert.Equal(suite.T(), "/email", nf.Back)

	_, err = suite.service.Get(suite.ctx, uuid.New(), "e1")
	assert.True(suite.T(), errors.Is(err, common.ErrNotFound), "other owners cannot see the email")
}

func (suite *EmailServiceTestSuite) TestLabels_AddIsIdempotentAndRemove() {
	_, err := suite.service.AddLabel(suite.ctx, suite.owner(), "e1", "urgent")
	require.NoError(suite.T(), err)
	e, err := suite.service.AddLabel(suite.ctx, suite.owner(), "e1", "urgent")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{"urgent"}, e.Labels)

	labels, err := suite.service.Labels(suite.ctx, suite.owner())
	require.NoError(suite.T(), err)
	assert.ElementsMatch(suite.T(), []string{"urgent", "finance"}, labels)

	urgent, _ := suite.service.List(suite.ctx, suite.owner(), EmailFilter{Label: "urgent"})
	assert.Len(suite.T(), urgent, 1)

	e, err = suite.service.RemoveLabel(suite.ctx, suite.owner(), "e1", "urgent")
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), e.Labels)

	_, err = suite.service.AddLabel(suite.ctx, suite.owner(), "e1", "  ")
	assert.True(suite.T(), errors.Is(err, common.ErrValidation))
}

func (suite *EmailServiceTestSuite) TestFolderCounts() {
	counts, err := suite.service.FolderCounts(suite.ctx, suite.owner())
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 2, counts[models.FolderInbox])

	_, err = suite.service.MarkRead(suite.ctx, suite.owner(), "e1", true)
	require.NoError(suite.T(), err)
	counts, _ = suite.service.FolderCounts(suite.ctx, suite.owner())
	assert.Equal(suite.T(), 1, counts[models.FolderInbox])
}

func (suite *EmailServiceTestSuite) TestReply_StagesPayloadForSession() {
	payload, err := suite.service.Reply(suite.ctx, suite.principal, "e1")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "lee@lab.test", payload.To)
	assert.Equal(suite.T(), "Re: Lab results", payload.Subject)
	assert.True(suite.T(), payload.IsReply)

	other := *suite.principal
	other.SessionID = "session-2"
	staged, err := suite.service.TakeCompose(suite.ctx, &other)
	require.NoError(suite.T(), err)
	assert.Nil(suite.T(), staged)

	staged, err = suite.service.TakeCompose(suite.ctx, suite.principal)
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), staged)
	assert.Equal(suite.T(), "e1", staged.OriginalEmailID)

	staged, err = suite.service.TakeCompose(suite.ctx, suite.principal)
	require.NoError(suite.T(), err)
	assert.Nil(suite.T(), staged, "a staged payload is taken once")
}

func (suite *EmailServiceTestSuite) TestForward_EmptyRecipient() {
	payload, err := suite.service.Forward(suite.ctx, suite.principal, "e1")
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), payload.To)
	assert.Equal(suite.T(), "Fwd: Lab results", payload.Subject)
	assert.True(suite.T(), payload.IsForward)
}

func (suite *EmailServiceTestSuite) TestSaveDraft_CreatesThenUpdates() {
	draft, err := suite.service.SaveDraft(suite.ctx, suite.principal, DraftRequest{To: "a@b.test", Subject: "Hi", Message: "<b>hello</b><script>x()</script>"})
	require.NoError(suite.T(), err)
	assert.NotEmpty(suite.T(), draft.ID)
	assert.Equal(suite.T(), "<b>hello</b>", draft.Message)

	updated, err := suite.service.SaveDraft(suite.ctx, suite.principal, DraftRequest{ID: draft.ID, To: "a@b.test", Subject: "Hi again"})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), draft.ID, updated.ID)

	drafts, _ := suite.service.List(suite.ctx, suite.owner(), EmailFilter{Folder: models.FolderDrafts})
	assert.Len(suite.T(), drafts, 2)
	assert.Equal(suite.T(), "Hi again", drafts[0].Subject)

	_, err = suite.service.SaveDraft(suite.ctx, suite.principal, DraftRequest{ID: "e1", Subject: "nope"})
	assert.True(suite.T(), errors.Is(err, common.ErrValidation), "inbox email cannot become a draft")
}

func (suite *EmailServiceTestSuite) TestSend_FromDraft() {
	sent, err := suite.service.Send(suite.ctx, suite.principal, SendRequest{To: "lee@lab.test", Subject: "Referral letter", Message: "Attached.", DraftID: "e2"})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.FolderSent, sent.Folder)
	assert.True(suite.T(), sent.Read)
	assert.Equal(suite.T(), "Dr. Grey", sent.Sender)

	all, _ := suite.service.List(suite.ctx, suite.owner(), EmailFilter{})
	assert.Equal(suite.T(), sent.ID, all[0].ID, "sent email is newest")

	draft, err := suite.service.Get(suite.ctx, suite.owner(), "e2")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.FolderTrash, draft.Folder)

	drafts, _ := suite.service.ListDrafts(suite.ctx, suite.owner())
	assert.Empty(suite.T(), drafts)

	toasts, _ := suite.notifications.Drain(suite.ctx, suite.owner())
	require.Len(suite.T(), toasts, 1)
	assert.Equal(suite.T(), models.ToastSuccess, toasts[0].Level)
}

func (suite *EmailServiceTestSuite) TestSend_ValidationPushesErrorToast() {
	_, err := suite.service.Send(suite.ctx, suite.principal, SendRequest{Subject: "No recipient"})
	assert.True(suite.T(), errors.Is(err, common.ErrValidation))

	toasts, _ := suite.notifications.Drain(suite.ctx, suite.owner())
	require.Len(suite.T(), toasts, 1)
	assert.Equal(suite.T(), models.ToastError, toasts[0].Level)
}

func (suite *EmailServiceTestSuite) TestAttachments() {
	data := []byte("%PDF-1.4")
	att, err := suite.service.AddAttachment(suite.ctx, suite.owner(), "e1", UploadRequest{
		Name: "../labs.pdf", ContentType: "application/pdf", Size: int64(len(data)), Body: bytes.NewReader(data),
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "labs.pdf", att.Name)

	stored, ok := suite.storage.Object(att.ObjectKey)
	require.True(suite.T(), ok)
	assert.Equal(suite.T(), data, stored)

	e, _ := suite.service.Get(suite.ctx, suite.owner(), "e1")
	require.Len(suite.T(), e.Attachments, 1)

	url, err := suite.service.AttachmentURL(suite.ctx, suite.owner(), "e1", "labs.pdf")
	require.NoError(suite.T(), err)
	assert.NotEmpty(suite.T(), url)

	_, err = suite.service.AttachmentURL(suite.ctx, suite.owner(), "e1", "other.pdf")
	assert.True(suite.T(), errors.Is(err, common.ErrNotFound))
}

func TestEmailService_RepositoryErrorPropagates(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	repo := &MockEmailRepository{}
	repo.Test(t)
	defer repo.AssertExpectations(t)

	dbErr := errors.New("connection reset")
	repo.On("ListByOwner", ctx, owner).Return([]models.Email{{ID: "e1", OwnerID: owner, Folder: models.FolderInbox}}, nil)
	repo.On("Update", ctx, mock.MatchedBy(func(e *models.Email) bool { return e.ID == "e1" && e.Folder == models.FolderArchive })).Return(dbErr)

	store := caching.NewMemoryStore()
	log := zaptest.NewLogger(t)
	svc := NewEmailService(repo, NewDraftStore(store), NewComposeStager(store, time.Minute), NewMemoryStorage(),
		NewNotificationService(store, log), log)

	_, err := svc.Archive(ctx, owner, "e1")
	assert.ErrorIs(t, err, dbErr)
}

func TestComposeStager_OwnersWithoutSessionStayApart(t *testing.T) {
	ctx := context.Background()
	stager := NewComposeStager(caching.NewMemoryStore(), time.Minute)
	alice, bob := uuid.New(), uuid.New()

	require.NoError(t, stager.Stage(ctx, alice, "", models.ComposePayload{Subject: "Re: lab results", Message: "> alice private"}))

	staged, err := stager.Take(ctx, bob, "")
	require.NoError(t, err)
	assert.Nil(t, staged)

	staged, err = stager.Take(ctx, alice, "")
	require.NoError(t, err)
	require.NotNil(t, staged)
	assert.Equal(t, "Re: lab results", staged.Subject)
}

type flakyDraftStore struct {
	DraftStore
	deleteErr error
}

func (f *flakyDraftStore) Delete(ctx context.Context, ownerID uuid.UUID, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.DraftStore.Delete(ctx, ownerID, id)
}

func (suite *EmailServiceTestSuite) TestDelete_DraftRemovalFailureKeepsDraftFolder() {
	log := zaptest.NewLogger(suite.T())
	drafts := &flakyDraftStore{DraftStore: suite.drafts, deleteErr: errors.New("store unavailable")}
	svc := NewEmailService(suite.repo, drafts, NewComposeStager(suite.store, time.Minute),
		suite.storage, suite.notifications, log)

	_, err := svc.Delete(suite.ctx, suite.owner(), "e2")
	require.Error(suite.T(), err)

	e, err := svc.Get(suite.ctx, suite.owner(), "e2")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.FolderDrafts, e.Folder)

	drafts.deleteErr = nil
	e, err = svc.Delete(suite.ctx, suite.owner(), "e2")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.FolderTrash, e.Folder)

	_, err = suite.drafts.Get(suite.ctx, suite.owner(), "e2")
	assert.True(suite.T(), errors.Is(err, caching.ErrMiss))
}
