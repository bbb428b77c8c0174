package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sync"
	"time"

	"healthcrm/internal/auth"
	"healthcrm/internal/common"
	"healthcrm/internal/mailbox"
	"healthcrm/internal/models"
	"healthcrm/internal/repositories"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

const (
	emailBack          = "/email"
	maxAttachmentBytes = 25 << 20
	attachmentURLTTL   = 15 * time.Minute
)

// EmailFilter selects which emails List returns. Zero values match everything.
type EmailFilter struct {
	Folder  models.Folder
	Label   string
	Starred bool
}

type DraftRequest struct {
	ID      string `json:"id"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type SendRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Message string `json:"message"`
	DraftID string `json:"draft_id,omitempty"`
}

type UploadRequest struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// EmailService owns every user's mailbox. Mutations run one at a time per
// owner: load, apply a mailbox transform, persist the changed record.
type EmailService interface {
	List(ctx context.Context, ownerID uuid.UUID, filter EmailFilter) ([]models.Email, error)
	Get(ctx context.Context, ownerID uuid.UUID, id string) (*models.Email, error)
	FolderCounts(ctx context.Context, ownerID uuid.UUID) (map[models.Folder]int, error)
	Labels(ctx context.Context, ownerID uuid.UUID) ([]string, error)

	ToggleStar(ctx context.Context, ownerID uuid.UUID, id string) (*models.Email, error)
	MarkRead(ctx context.Context, ownerID uuid.UUID, id string, read bool) (*models.Email, error)
	Archive(ctx context.Context, ownerID uuid.UUID, id string) (*models.Email, error)
	Delete(ctx context.Context, ownerID uuid.UUID, id string) (*models.Email, error)
	AddLabel(ctx context.Context, ownerID uuid.UUID, id, label string) (*models.Email, error)
	RemoveLabel(ctx context.Context, ownerID uuid.UUID, id, label string) (*models.Email, error)

	Reply(ctx context.Context, p *auth.Principal, id string) (*models.ComposePayload, error)
	Forward(ctx context.Context, p *auth.Principal, id string) (*models.ComposePayload, error)
	TakeCompose(ctx context.Context, p *auth.Principal) (*models.ComposePayload, error)

	SaveDraft(ctx context.Context, p *auth.Principal, req DraftRequest) (*models.Draft, error)
	ListDrafts(ctx context.Context, ownerID uuid.UUID) ([]models.Draft, error)
	Send(ctx context.Context, p *auth.Principal, req SendRequest) (*models.Email, error)

	AddAttachment(ctx context.Context, ownerID uuid.UUID, id string, upload UploadRequest) (*models.Attachment, error)
	AttachmentURL(ctx context.Context, ownerID uuid.UUID, id, name string) (string, error)
}

type emailService struct {
	repo          repositories.EmailRepository
	drafts        DraftStore
	stager        ComposeStager
	attachments   AttachmentStorage
	notifications NotificationService
	policy        *bluemonday.Policy
	log           *zap.Logger
	now           func() time.Time

	locks sync.Map // uuid.UUID -> *sync.Mutex
}

func NewEmailService(
	repo repositories.EmailRepository,
	drafts DraftStore,
	stager ComposeStager,
	attachments AttachmentStorage,
	notifications NotificationService,
	log *zap.Logger,
) EmailService {
	return &emailService{
		repo:          repo,
		drafts:        drafts,
		stager:        stager,
		attachments:   attachments,
		notifications: notifications,
		policy:        bluemonday.UGCPolicy(),
		log:           log,
		now:           time.Now,
	}
}

func (s *emailService) lock(ownerID uuid.UUID) func() {
	m, _ := s.locks.LoadOrStore(ownerID, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func emailNotFound(id string) error {
	return common.NewNotFound("email", id, emailBack)
}

func (s *emailService) List(ctx context.Context, ownerID uuid.UUID, filter EmailFilter) ([]models.Email, error) {
	emails, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if filter.Folder != "" {
		emails = mailbox.InFolder(emails, filter.Folder)
	}
	if filter.Label != "" {
		emails = mailbox.WithLabel(emails, filter.Label)
	}
	if filter.Starred {
		emails = mailbox.Starred(emails)
	}
	return emails, nil
}

func (s *emailService) Get(ctx context.Context, ownerID uuid.UUID, id string) (*models.Email, error) {
	emails, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	e, ok := mailbox.Find(emails, id)
	if !ok {
		return nil, emailNotFound(id)
	}
	return &e, nil
}

func (s *emailService) FolderCounts(ctx context.Context, ownerID uuid.UUID) (map[models.Folder]int, error) {
	emails, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return mailbox.UnreadCounts(emails), nil
}

func (s *emailService) Labels(ctx context.Context, ownerID uuid.UUID) ([]string, error) {
	emails, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return mailbox.Labels(emails), nil
}

// apply runs transform over the owner's mailbox and persists the record
// with the given id. An id the mailbox does not hold is reported as not found.
func (s *emailService) apply(ctx context.Context, ownerID uuid.UUID, id string,
	transform func([]models.Email) []models.Email) (*models.Email, error) {
	return s.applyThen(ctx, ownerID, id, transform, nil)
}

// applyThen is apply with a hook that runs under the owner lock after the
// transform and before the result is persisted. A hook error leaves the
// stored email untouched.
func (s *emailService) applyThen(ctx context.Context, ownerID uuid.UUID, id string,
	transform func([]models.Email) []models.Email, beforeUpdate func(prev, next models.Email) error) (*models.Email, error) {
	unlock := s.lock(ownerID)
	defer unlock()

	emails, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	prev, ok := mailbox.Find(emails, id)
	if !ok {
		return nil, emailNotFound(id)
	}
	next, _ := mailbox.Find(transform(emails), id)
	if beforeUpdate != nil {
		if err := beforeUpdate(prev, next); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Update(ctx, &next); err != nil {
		return nil, fmt.Errorf("failed to update email %s: %w", id, err)
	}
	return &next, nil
}

func (s *emailService) ToggleStar(ctx context.Context, ownerID uuid.UUID, id string) (*models.Email, error) {
	return s.apply(ctx, ownerID, id, func(emails []models.Email) []models.Email {
		return mailbox.ToggleStar(emails, id)
	})
}

func (s *emailService) MarkRead(ctx context.Context, ownerID uuid.UUID, id string, read bool) (*models.Email, error) {
	return s.apply(ctx, ownerID, id, func(emails []models.Email) []models.Email {
		return mailbox.MarkRead(emails, id, read)
	})
}

func (s *emailService) Archive(ctx context.Context, ownerID uuid.UUID, id string) (*models.Email, error) {
	return s.apply(ctx, ownerID, id, func(emails []models.Email) []models.Email {
		return mailbox.Archive(emails, id)
	})
}

// Delete moves the email to trash. Deleting a draft also drops its persisted
// compose state, which shares the email's id; the draft goes first so a
// failure leaves the email in drafts for a retry.
func (s *emailService) Delete(ctx context.Context, ownerID uuid.UUID, id string) (*models.Email, error) {
	return s.applyThen(ctx, ownerID, id, func(emails []models.Email) []models.Email {
		out, _ := mailbox.Delete(emails, id)
		return out
	}, func(prev, _ models.Email) error {
		if prev.Folder != models.FolderDrafts {
			return nil
		}
		if err := s.drafts.Delete(ctx, ownerID, id); err != nil {
			return fmt.Errorf("failed to remove draft %s: %w", id, err)
		}
		return nil
	})
}

func (s *emailService) AddLabel(ctx context.Context, ownerID uuid.UUID, id, label string) (*models.Email, error) {
	if err := common.ValidateRequiredString(label, "label"); err != nil {
		return nil, err
	}
	if err := common.ValidateMaxLength(label, "label", 50); err != nil {
		return nil, err
	}
	return s.apply(ctx, ownerID, id, func(emails []models.Email) []models.Email {
		return mailbox.AddLabel(emails, id, label)
	})
}

func (s *emailService) RemoveLabel(ctx context.Context, ownerID uuid.UUID, id, label string) (*models.Email, error) {
	return s.apply(ctx, ownerID, id, func(emails []models.Email) []models.Email {
		return mailbox.RemoveLabel(emails, id, label)
	})
}

func (s *emailService) Reply(ctx context.Context, p *auth.Principal, id string) (*models.ComposePayload, error) {
	return s.stage(ctx, p, id, mailbox.Reply)
}

func (s *emailService) Forward(ctx context.Context, p *auth.Principal, id string) (*models.ComposePayload, error) {
	return s.stage(ctx, p, id, mailbox.Forward)
}

func (s *emailService) stage(ctx context.Context, p *auth.Principal, id string,
	build func(models.Email) models.ComposePayload) (*models.ComposePayload, error) {
	e, err := s.Get(ctx, p.UserID, id)
	if err != nil {
		return nil, err
	}
	payload := build(*e)
	if err := s.stager.Stage(ctx, p.UserID, p.SessionID, payload); err != nil {
		return nil, fmt.Errorf("failed to stage compose payload: %w", err)
	}
	return &payload, nil
}

func (s *emailService) TakeCompose(ctx context.Context, p *auth.Principal) (*models.ComposePayload, error) {
	return s.stager.Take(ctx, p.UserID, p.SessionID)
}

// SaveDraft persists compose state and mirrors it as a record in the drafts
// folder. A request without an id starts a new draft.
func (s *emailService) SaveDraft(ctx context.Context, p *auth.Principal, req DraftRequest) (*models.Draft, error) {
	if err := common.ValidateMaxLength(req.Subject, "subject", 500); err != nil {
		return nil, err
	}
	unlock := s.lock(p.UserID)
	defer unlock()

	emails, err := s.repo.ListByOwner(ctx, p.UserID)
	if err != nil {
		return nil, err
	}

	id := req.ID
	existing := -1
	if id == "" {
		id = uuid.NewString()
	} else {
		existing = mailbox.Index(emails, id)
		if existing >= 0 && emails[existing].Folder != models.FolderDrafts {
			return nil, fmt.Errorf("%w: email %s is not a draft", common.ErrValidation, id)
		}
	}

	now := s.now().UTC()
	draft := &models.Draft{
		ID:        id,
		OwnerID:   p.UserID,
		To:        req.To,
		Subject:   req.Subject,
		Message:   s.policy.Sanitize(req.Message),
		UpdatedAt: now,
	}
	if err := s.drafts.Save(ctx, draft); err != nil {
		return nil, fmt.Errorf("failed to persist draft: %w", err)
	}

	record := models.Email{
		ID:          id,
		OwnerID:     p.UserID,
		Subject:     draft.Subject,
		Sender:      p.Name,
		SenderEmail: p.Email,
		Recipient:   draft.To,
		Body:        draft.Message,
		Labels:      []string{},
		ReceivedAt:  now,
	}
	if existing >= 0 {
		record.Labels = emails[existing].Labels
		record.Attachments = emails[existing].Attachments
		record.Starred = emails[existing].Starred
	}
	saved, _ := mailbox.Find(mailbox.SaveDraft(emails, record), id)
	if existing >= 0 {
		err = s.repo.Update(ctx, &saved)
	} else {
		err = s.repo.Create(ctx, &saved)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save draft record: %w", err)
	}
	return draft, nil
}

func (s *emailService) ListDrafts(ctx context.Context, ownerID uuid.UUID) ([]models.Draft, error) {
	return s.drafts.List(ctx, ownerID)
}

// Send records an outgoing email in the sent folder. Nothing leaves the
// system. Sending from a draft moves the draft record to trash and removes
// its persisted state.
func (s *emailService) Send(ctx context.Context, p *auth.Principal, req SendRequest) (*models.Email, error) {
	if err := errors.Join(
		common.ValidateRequiredString(req.To, "to"),
		common.ValidateMaxLength(req.Subject, "subject", 500),
	); err != nil {
		s.notifications.Push(ctx, p.UserID, models.ToastError, "Email not sent", err.Error())
		return nil, err
	}

	sent, err := s.send(ctx, p, req)
	if err != nil {
		s.notifications.Push(ctx, p.UserID, models.ToastError, "Email not sent", "Something went wrong, please try again.")
		return nil, err
	}
	s.notifications.Push(ctx, p.UserID, models.ToastSuccess, "Email sent", "Your message to "+sent.Recipient+" was sent.")
	s.log.Info("email sent", zap.Stringer("owner_id", p.UserID), zap.String("email_id", sent.ID))
	return sent, nil
}

func (s *emailService) send(ctx context.Context, p *auth.Principal, req SendRequest) (*models.Email, error) {
	unlock := s.lock(p.UserID)
	defer unlock()

	emails, err := s.repo.ListByOwner(ctx, p.UserID)
	if err != nil {
		return nil, err
	}

	if req.DraftID != "" {
		if mailbox.Index(emails, req.DraftID) < 0 {
			return nil, emailNotFound(req.DraftID)
		}
		var wasDraft bool
		emails, wasDraft = mailbox.Delete(emails, req.DraftID)
		if !wasDraft {
			return nil, fmt.Errorf("%w: email %s is not a draft", common.ErrValidation, req.DraftID)
		}
		trashed, _ := mailbox.Find(emails, req.DraftID)
		if err := s.repo.Update(ctx, &trashed); err != nil {
			return nil, err
		}
		if err := s.drafts.Delete(ctx, p.UserID, req.DraftID); err != nil {
			return nil, err
		}
	}

	record := models.Email{
		ID:          uuid.NewString(),
		OwnerID:     p.UserID,
		Subject:     req.Subject,
		Sender:      p.Name,
		SenderEmail: p.Email,
		Recipient:   req.To,
		Body:        s.policy.Sanitize(req.Message),
		Labels:      []string{},
		ReceivedAt:  s.now().UTC(),
	}
	sent := mailbox.Send(emails, record)[0]
	if err := s.repo.Create(ctx, &sent); err != nil {
		return nil, err
	}
	return &sent, nil
}

func (s *emailService) AddAttachment(ctx context.Context, ownerID uuid.UUID, id string, upload UploadRequest) (*models.Attachment, error) {
	name := path.Base(upload.Name)
	if err := common.ValidateRequiredString(upload.Name, "name"); err != nil {
		return nil, err
	}
	if upload.Size > maxAttachmentBytes {
		return nil, fmt.Errorf("%w: attachment exceeds %d bytes", common.ErrValidation, maxAttachmentBytes)
	}
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return nil, err
	}

	att := models.Attachment{
		Name:        name,
		ContentType: upload.ContentType,
		Size:        upload.Size,
		ObjectKey:   fmt.Sprintf("%s/%s/%s", ownerID, id, name),
	}
	if err := s.attachments.Upload(ctx, att.ObjectKey, upload.Body, upload.Size, upload.ContentType); err != nil {
		return nil, fmt.Errorf("failed to upload attachment: %w", err)
	}
	if _, err := s.apply(ctx, ownerID, id, func(emails []models.Email) []models.Email {
		return mailbox.AddAttachment(emails, id, att)
	}); err != nil {
		return nil, err
	}
	return &att, nil
}

func (s *emailService) AttachmentURL(ctx context.Context, ownerID uuid.UUID, id, name string) (string, error) {
	e, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return "", err
	}
	for _, att := range e.Attachments {
		if att.Name == name {
			return s.attachments.PresignedURL(ctx, att.ObjectKey, attachmentURLTTL)
		}
	}
	return "", common.NewNotFound("attachment", name, emailBack+"/"+id)
}
