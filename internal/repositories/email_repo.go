package repositories

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"healthcrm/internal/common"
	"healthcrm/internal/models"

	"github.com/google/uuid"
)

// EmailRepository stores each user's emails, newest first.
type EmailRepository interface {
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Email, error)
	Create(ctx context.Context, email *models.Email) error
	Update(ctx context.Context, email *models.Email) error
}

const (
	listEmailsQuery = `
		SELECT id, owner_id, subject, sender, sender_email, recipient, body, read, starred, folder, labels, attachments, received_at
		FROM emails
		WHERE owner_id = $1
		ORDER BY received_at DESC
	`
	insertEmailQuery = `
		INSERT INTO emails (id, owner_id, subject, sender, sender_email, recipient, body, read, starred, folder, labels, attachments, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	updateEmailQuery = `
		UPDATE emails
		SET subject = $1, recipient = $2, body = $3, read = $4, starred = $5, folder = $6, labels = $7, attachments = $8, received_at = $9
		WHERE owner_id = $10 AND id = $11
	`
)

type emailRepo struct {
	db Database
}

func NewEmailRepo(db Database) EmailRepository {
	return &emailRepo{db: db}
}

func (r *emailRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Email, error) {
	rows, err := r.db.Query(ctx, listEmailsQuery, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	emails := make([]models.Email, 0)
	for rows.Next() {
		var (
			e           models.Email
			folder      string
			attachments []byte
		)
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.Subject, &e.Sender, &e.SenderEmail, &e.Recipient, &e.Body,
			&e.Read, &e.Starred, &folder, &e.Labels, &attachments, &e.ReceivedAt); err != nil {
			return nil, err
		}
		e.Folder = models.Folder(folder)
		if len(attachments) > 0 {
			if err := json.Unmarshal(attachments, &e.Attachments); err != nil {
				return nil, err
			}
		}
		emails = append(emails, e)
	}
	return emails, rows.Err()
}

func (r *emailRepo) Create(ctx context.Context, e *models.Email) error {
	attachments, err := marshalAttachments(e.Attachments)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, insertEmailQuery, e.ID, e.OwnerID, e.Subject, e.Sender, e.SenderEmail, e.Recipient, e.Body,
		e.Read, e.Starred, string(e.Folder), labelsOrEmpty(e.Labels), attachments, e.ReceivedAt)
	return err
}

func (r *emailRepo) Update(ctx context.Context, e *models.Email) error {
	attachments, err := marshalAttachments(e.Attachments)
	if err != nil {
		return err
	}
	return requireRow(r.db.Exec(ctx, updateEmailQuery, e.Subject, e.Recipient, e.Body, e.Read, e.Starred,
		string(e.Folder), labelsOrEmpty(e.Labels), attachments, e.ReceivedAt, e.OwnerID, e.ID))
}

func marshalAttachments(atts []models.Attachment) ([]byte, error) {
	if atts == nil {
		atts = []models.Attachment{}
	}
	return json.Marshal(atts)
}

func labelsOrEmpty(labels []string) []string {
	if labels == nil {
		return []string{}
	}
	return labels
}

type memoryEmailRepo struct {
	mu     sync.RWMutex
	emails map[uuid.UUID][]models.Email
}

// NewMemoryEmailRepo keeps emails in process memory.
func NewMemoryEmailRepo() EmailRepository {
	return &memoryEmailRepo{emails: make(map[uuid.UUID][]models.Email)}
}

func (r *memoryEmailRepo) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]models.Email, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := slices.Clone(r.emails[ownerID])
	if out == nil {
		out = make([]models.Email, 0)
	}
	return out, nil
}

func (r *memoryEmailRepo) Create(_ context.Context, e *models.Email) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.ReceivedAt.IsZero() {
		e.ReceivedAt = time.Now().UTC()
	}
	list := r.emails[e.OwnerID]
	out := make([]models.Email, 0, len(list)+1)
	out = append(out, *e)
	out = append(out, list...)
	sortNewestFirst(out)
	r.emails[e.OwnerID] = out
	return nil
}

func (r *memoryEmailRepo) Update(_ context.Context, e *models.Email) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.emails[e.OwnerID]
	i := slices.IndexFunc(list, func(x models.Email) bool { return x.ID == e.ID })
	if i < 0 {
		return common.ErrNotFound
	}
	list = slices.Clone(list)
	list[i] = *e
	sortNewestFirst(list)
	r.emails[e.OwnerID] = list
	return nil
}

// sortNewestFirst matches the ORDER BY received_at DESC of the SQL driver.
func sortNewestFirst(emails []models.Email) {
	slices.SortStableFunc(emails, func(a, b models.Email) int {
		return b.ReceivedAt.Compare(a.ReceivedAt)
	})
}
