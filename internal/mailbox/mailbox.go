// Package mailbox holds the folder, label and status transitions applied to a
// user's email list. Every function returns a new slice and leaves its input
// untouched; an unknown id yields the input unchanged.
package mailbox

import (
	"slices"

	"healthcrm/internal/models"
)

// Index returns the position of the email with id, or -1.
func Index(emails []models.Email, id string) int {
	return slices.IndexFunc(emails, func(e models.Email) bool { return e.ID == id })
}

// Find returns the email with id.
func Find(emails []models.Email, id string) (models.Email, bool) {
	i := Index(emails, id)
	if i < 0 {
		return models.Email{}, false
	}
	return emails[i], true
}

// update copies emails and applies fn to the copy of the matching record.
func update(emails []models.Email, id string, fn func(e *models.Email)) []models.Email {
	i := Index(emails, id)
	if i < 0 {
		return emails
	}
	out := slices.Clone(emails)
	fn(&out[i])
	return out
}

// ToggleStar flips the starred flag.
func ToggleStar(emails []models.Email, id string) []models.Email {
	return update(emails, id, func(e *models.Email) {
		e.Starred = !e.Starred
	})
}

// MarkRead sets the read flag.
func MarkRead(emails []models.Email, id string, read bool) []models.Email {
	return update(emails, id, func(e *models.Email) {
		e.Read = read
	})
}

// Archive moves the email to the archive folder.
func Archive(emails []models.Email, id string) []models.Email {
	return update(emails, id, func(e *models.Email) {
		e.Folder = models.FolderArchive
	})
}

// Delete moves the email to the trash folder. wasDraft reports whether the
// record was in drafts, in which case the caller must drop the persisted draft.
func Delete(emails []models.Email, id string) (out []models.Email, wasDraft bool) {
	out = update(emails, id, func(e *models.Email) {
		wasDraft = e.Folder == models.FolderDrafts
		e.Folder = models.FolderTrash
	})
	return out, wasDraft
}

// AddLabel appends label unless the email already carries it.
func AddLabel(emails []models.Email, id, label string) []models.Email {
	if label == "" {
		return emails
	}
	return update(emails, id, func(e *models.Email) {
		if slices.Contains(e.Labels, label) {
			return
		}
		labels := make([]string, len(e.Labels), len(e.Labels)+1)
		copy(labels, e.Labels)
		e.Labels = append(labels, label)
	})
}

// RemoveLabel drops every occurrence of label.
func RemoveLabel(emails []models.Email, id, label string) []models.Email {
	return update(emails, id, func(e *models.Email) {
		e.Labels = slices.DeleteFunc(slices.Clone(e.Labels), func(l string) bool { return l == label })
	})
}

// AddAttachment records an uploaded attachment, replacing one with the same name.
func AddAttachment(emails []models.Email, id string, att models.Attachment) []models.Email {
	return update(emails, id, func(e *models.Email) {
		atts := slices.DeleteFunc(slices.Clone(e.Attachments), func(a models.Attachment) bool { return a.Name == att.Name })
		e.Attachments = append(atts, att)
	})
}

// Send puts a new record at the head of the list, tagged as sent.
func Send(emails []models.Email, e models.Email) []models.Email {
	e.Folder = models.FolderSent
	e.Read = true
	out := make([]models.Email, 0, len(emails)+1)
	out = append(out, e)
	return append(out, emails...)
}

// SaveDraft inserts or replaces the drafts record with the draft's id.
func SaveDraft(emails []models.Email, e models.Email) []models.Email {
	e.Folder = models.FolderDrafts
	e.Read = true
	if i := Index(emails, e.ID); i >= 0 {
		out := slices.Clone(emails)
		out[i] = e
		return out
	}
	out := make([]models.Email, 0, len(emails)+1)
	out = append(out, e)
	return append(out, emails...)
}

// InFolder filters emails by folder, keeping order.
func InFolder(emails []models.Email, folder models.Folder) []models.Email {
	out := make([]models.Email, 0)
	for _, e := range emails {
		if e.Folder == folder {
			out = append(out, e)
		}
	}
	return out
}

// WithLabel filters emails carrying label, keeping order.
func WithLabel(emails []models.Email, label string) []models.Email {
	out := make([]models.Email, 0)
	for _, e := range emails {
		if slices.Contains(e.Labels, label) {
			out = append(out, e)
		}
	}
	return out
}

// Starred filters starred emails outside the trash.
func Starred(emails []models.Email) []models.Email {
	out := make([]models.Email, 0)
	for _, e := range emails {
		if e.Starred && e.Folder != models.FolderTrash {
			out = append(out, e)
		}
	}
	return out
}

// UnreadCounts counts unread emails per folder. Every folder is present.
func UnreadCounts(emails []models.Email) map[models.Folder]int {
	counts := make(map[models.Folder]int, len(models.Folders()))
	for _, f := range models.Folders() {
		counts[f] = 0
	}
	for _, e := range emails {
		if !e.Read {
			counts[e.Folder]++
		}
	}
	return counts
}

// Labels lists the distinct labels in first-seen order.
func Labels(emails []models.Email) []string {
	var labels []string
	for _, e := range emails {
		for _, l := range e.Labels {
			if !slices.Contains(labels, l) {
				labels = append(labels, l)
			}
		}
	}
	return labels
}
