package models

import (
	"time"

	"github.com/google/uuid"
)

// Folder is the classifier that decides which list an email appears in
type Folder string

const (
	FolderInbox   Folder = "inbox"
	FolderSent    Folder = "sent"
	FolderDrafts  Folder = "drafts"
	FolderTrash   Folder = "trash"
	FolderArchive Folder = "archive"
)

// Folders lists every folder in display order
func Folders() []Folder {
	return []Folder{FolderInbox, FolderSent, FolderDrafts, FolderArchive, FolderTrash}
}

// ParseFolder validates a folder name
func ParseFolder(name string) (Folder, bool) {
	for _, f := range Folders() {
		if string(f) == name {
			return f, true
		}
	}
	return "", false
}

type Email struct {
	ID          string       `json:"id" db:"id"`
	OwnerID     uuid.UUID    `json:"owner_id" db:"owner_id"`
	Subject     string       `json:"subject" db:"subject"`
	Sender      string       `json:"sender" db:"sender"`
	SenderEmail string       `json:"sender_email" db:"sender_email"`
	Recipient   string       `json:"recipient" db:"recipient"`
	Body        string       `json:"body" db:"body"`
	Read        bool         `json:"read" db:"read"`
	Starred     bool         `json:"starred" db:"starred"`
	Folder      Folder       `json:"folder" db:"folder"`
	Labels      []string     `json:"labels" db:"labels"`
	Attachments []Attachment `json:"attachments,omitempty" db:"attachments"`
	ReceivedAt  time.Time    `json:"received_at" db:"received_at"`
}

// Attachment points at an object in attachment storage
type Attachment struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	ObjectKey   string `json:"object_key"`
}

// Draft is a persisted, not-yet-sent compose state
type Draft struct {
	ID        string    `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ComposePayload is staged for the compose screen by reply and forward
type ComposePayload struct {
	To              string `json:"to"`
	Subject         string `json:"subject"`
	Message         string `json:"message"`
	IsReply         bool   `json:"is_reply"`
	IsForward       bool   `json:"is_forward"`
	OriginalEmailID string `json:"original_email_id"`
}
