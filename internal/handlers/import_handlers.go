package handlers

import (
	"io"
	"net/http"
	"strings"

	"healthcrm/internal/jobs"

	"github.com/labstack/echo/v4"
)

const maxImportBytes = 10 << 20

type ImportHandlers struct {
	runner *jobs.ImportRunner
}

func NewImportHandlers(runner *jobs.ImportRunner) *ImportHandlers {
	return &ImportHandlers{runner: runner}
}

// Start accepts a CSV either as the multipart "file" field or as the raw
// request body and returns 202 with the job status.
func (h *ImportHandlers) Start(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	var body io.Reader
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		fh, err := c.FormFile("file")
		if err != nil {
			return badRequest("file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return err
		}
		defer f.Close()
		body = f
	} else {
		body = c.Request().Body
	}

	status, err := h.runner.Start(p.UserID, io.LimitReader(body, maxImportBytes))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, status)
}

func (h *ImportHandlers) Status(c echo.Context) error {
	status, err := h.runner.Status(c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, status)
}

func (h *ImportHandlers) Cancel(c echo.Context) error {
	status, err := h.runner.Cancel(c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, status)
}
