package handlers

import (
	"net/http"
	"strconv"

	"healthcrm/internal/models"
	"healthcrm/internal/services"

	"github.com/labstack/echo/v4"
)

const composePath = "/email/compose"

type EmailHandlers struct {
	emailService services.EmailService
}

func NewEmailHandlers(emailService services.EmailService) *EmailHandlers {
	return &EmailHandlers{emailService: emailService}
}

type MailboxView struct {
	Folder models.Folder         `json:"folder,omitempty"`
	Label  string                `json:"label,omitempty"`
	Emails []models.Email        `json:"emails"`
	Unread map[models.Folder]int `json:"unread"`
	Labels []string              `json:"labels"`
}

// List renders a folder (inbox by default), a label or the starred view.
func (h *EmailHandlers) List(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	filter := services.EmailFilter{Label: c.QueryParam("label")}
	if starred := c.QueryParam("starred"); starred != "" {
		if filter.Starred, err = strconv.ParseBool(starred); err != nil {
			return badRequest("starred must be a boolean")
		}
	}
	if folder := c.QueryParam("folder"); folder != "" {
		f, ok := models.ParseFolder(folder)
		if !ok {
			return badRequest("unknown folder " + folder)
		}
		filter.Folder = f
	} else if filter.Label == "" && !filter.Starred {
		filter.Folder = models.FolderInbox
	}

	emails, err := h.emailService.List(ctx, p.UserID, filter)
	if err != nil {
		return err
	}
	counts, err := h.emailService.FolderCounts(ctx, p.UserID)
	if err != nil {
		return err
	}
	labels, err := h.emailService.Labels(ctx, p.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MailboxView{
		Folder: filter.Folder,
		Label:  filter.Label,
		Emails: emails,
		Unread: counts,
		Labels: labels,
	})
}

// Get opens an email and marks it read.
func (h *EmailHandlers) Get(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	e, err := h.emailService.MarkRead(c.Request().Context(), p.UserID, c.Param("id"), true)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

func (h *EmailHandlers) ToggleStar(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	e, err := h.emailService.ToggleStar(c.Request().Context(), p.UserID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

type MarkReadRequest struct {
	Read bool `json:"read" form:"read"`
}

func (h *EmailHandlers) MarkRead(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req MarkReadRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("Invalid request format")
	}
	e, err := h.emailService.MarkRead(c.Request().Context(), p.UserID, c.Param("id"), req.Read)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

func (h *EmailHandlers) Archive(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	e, err := h.emailService.Archive(c.Request().Context(), p.UserID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

func (h *EmailHandlers) Delete(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	e, err := h.emailService.Delete(c.Request().Context(), p.UserID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

type LabelRequest struct {
	Label string `json:"label" form:"label"`
}

func (h *EmailHandlers) AddLabel(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req LabelRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("Invalid request format")
	}
	e, err := h.emailService.AddLabel(c.Request().Context(), p.UserID, c.Param("id"), req.Label)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

func (h *EmailHandlers) RemoveLabel(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	e, err := h.emailService.RemoveLabel(c.Request().Context(), p.UserID, c.Param("id"), c.Param("label"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

// Reply stages a reply for this session and moves on to the compose screen.
func (h *EmailHandlers) Reply(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	if _, err := h.emailService.Reply(c.Request().Context(), p, c.Param("id")); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, composePath)
}

func (h *EmailHandlers) Forward(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	if _, err := h.emailService.Forward(c.Request().Context(), p, c.Param("id")); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, composePath)
}

// Compose returns the staged reply or forward, or a blank form.
func (h *EmailHandlers) Compose(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	payload, err := h.emailService.TakeCompose(c.Request().Context(), p)
	if err != nil {
		return err
	}
	if payload == nil {
		payload = &models.ComposePayload{}
	}
	return c.JSON(http.StatusOK, payload)
}

func (h *EmailHandlers) ListDrafts(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	drafts, err := h.emailService.ListDrafts(c.Request().Context(), p.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"drafts": drafts})
}

func (h *EmailHandlers) SaveDraft(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req services.DraftRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("Invalid request format")
	}
	draft, err := h.emailService.SaveDraft(c.Request().Context(), p, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, draft)
}

func (h *EmailHandlers) Send(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req services.SendRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("Invalid request format")
	}
	sent, err := h.emailService.Send(c.Request().Context(), p, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, sent)
}

// UploadAttachment stores the multipart "file" field against an email.
func (h *EmailHandlers) UploadAttachment(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest("file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	att, err := h.emailService.AddAttachment(c.Request().Context(), p.UserID, c.Param("id"), services.UploadRequest{
		Name:        fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Size:        fh.Size,
		Body:        f,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, att)
}

// DownloadAttachment redirects to a short-lived URL for the attachment.
func (h *EmailHandlers) DownloadAttachment(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	url, err := h.emailService.AttachmentURL(c.Request().Context(), p.UserID, c.Param("id"), c.Param("name"))
	if err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, url)
}
