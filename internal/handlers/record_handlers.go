package handlers

import (
	"fmt"
	"net/http"

	"healthcrm/internal/models"
	"healthcrm/internal/printing"
	"healthcrm/internal/services"

	"github.com/labstack/echo/v4"
)

// RecordHandlers serves list/detail/create/update/delete for one kind of
// CRM record. Param names the path parameter carrying the record id.
type RecordHandlers[T models.Record[T]] struct {
	service services.RecordService[T]
	param   string
	plural  string
}

func NewRecordHandlers[T models.Record[T]](service services.RecordService[T], plural, param string) *RecordHandlers[T] {
	if param == "" {
		param = "id"
	}
	return &RecordHandlers[T]{service: service, param: param, plural: plural}
}

// List filters by the optional ?q= search term.
func (h *RecordHandlers[T]) List(c echo.Context) error {
	items, err := h.service.List(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{h.plural: items, "total": len(items)})
}

func (h *RecordHandlers[T]) Get(c echo.Context) error {
	item, err := h.service.Get(c.Request().Context(), c.Param(h.param))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, item)
}

func (h *RecordHandlers[T]) Create(c echo.Context) error {
	var item T
	if err := c.Bind(&item); err != nil {
		return badRequest("Invalid request format")
	}
	created, err := h.service.Create(c.Request().Context(), item)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *RecordHandlers[T]) Update(c echo.Context) error {
	var item T
	if err := c.Bind(&item); err != nil {
		return badRequest("Invalid request format")
	}
	updated, err := h.service.Update(c.Request().Context(), c.Param(h.param), item)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *RecordHandlers[T]) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param(h.param)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// PipelineHandlers adds the deal pipeline actions.
type PipelineHandlers struct {
	deals *services.DealService
}

func NewPipelineHandlers(deals *services.DealService) *PipelineHandlers {
	return &PipelineHandlers{deals: deals}
}

type StageRequest struct {
	Stage models.DealStage `json:"stage" form:"stage"`
}

func (h *PipelineHandlers) MoveStage(c echo.Context) error {
	var req StageRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("Invalid request format")
	}
	deal, err := h.deals.MoveStage(c.Request().Context(), c.Param("id"), req.Stage)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, deal)
}

func (h *PipelineHandlers) Summary(c echo.Context) error {
	count, total, err := h.deals.OpenPipeline(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"open_deals": count, "open_value": total})
}

type WorkflowHandlers struct {
	workflows *services.WorkflowService
}

func NewWorkflowHandlers(workflows *services.WorkflowService) *WorkflowHandlers {
	return &WorkflowHandlers{workflows: workflows}
}

func (h *WorkflowHandlers) Activate(c echo.Context) error {
	w, err := h.workflows.Activate(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, w)
}

func (h *WorkflowHandlers) Pause(c echo.Context) error {
	w, err := h.workflows.Pause(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, w)
}

type PrescriptionHandlers struct {
	prescriptions *services.PrescriptionService
}

func NewPrescriptionHandlers(prescriptions *services.PrescriptionService) *PrescriptionHandlers {
	return &PrescriptionHandlers{prescriptions: prescriptions}
}

type PrescriptionStatusRequest struct {
	Status string `json:"status" form:"status"`
}

func (h *PrescriptionHandlers) SetStatus(c echo.Context) error {
	var req PrescriptionStatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("Invalid request format")
	}
	p, err := h.prescriptions.SetStatus(c.Request().Context(), c.Param("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// Print streams the prescription as a PDF attachment.
func (h *PrescriptionHandlers) Print(c echo.Context) error {
	p, err := h.prescriptions.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	doc, err := printing.PrescriptionPDF(p)
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=prescription-%s.pdf", p.ID))
	return c.Blob(http.StatusOK, "application/pdf", doc)
}

type CallHandlers struct {
	*RecordHandlers[models.CallRecord]
	calls *services.CallService
}

func NewCallHandlers(calls *services.CallService) *CallHandlers {
	return &CallHandlers{RecordHandlers: NewRecordHandlers[models.CallRecord](calls, "calls", "id"), calls: calls}
}

// List narrows to one contact's calls when ?contact= is given.
func (h *CallHandlers) List(c echo.Context) error {
	contact := c.QueryParam("contact")
	if contact == "" {
		return h.RecordHandlers.List(c)
	}
	calls, err := h.calls.ByContact(c.Request().Context(), contact)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"calls": calls, "total": len(calls)})
}
