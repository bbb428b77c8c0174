package models

import "time"

// ToastLevel is the severity of a transient notification
type ToastLevel string

const (
	ToastInfo    ToastLevel = "info"
	ToastSuccess ToastLevel = "success"
	ToastError   ToastLevel = "error"
)

// Toast is a transient notification shown once to a user
type Toast struct {
	Level     ToastLevel `json:"level"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	CreatedAt time.Time  `json:"created_at"`
}

// ImportState tracks the lifecycle of a data import
type ImportState string

const (
	ImportRunning   ImportState = "running"
	ImportCompleted ImportState = "completed"
	ImportFailed    ImportState = "failed"
	ImportCancelled ImportState = "cancelled"
)

// ImportStatus reports progress of a data import
type ImportStatus struct {
	ID         string      `json:"id"`
	State      ImportState `json:"state"`
	Total      int         `json:"total"`
	Processed  int         `json:"processed"`
	Failed     int         `json:"failed"`
	Errors     []string    `json:"errors,omitempty"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
}
