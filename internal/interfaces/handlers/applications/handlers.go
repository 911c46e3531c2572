package applications

import (
	appsvc "lamf-backend/internal/application/applications"
	custsvc "lamf-backend/internal/application/customers"
	prodsvc "lamf-backend/internal/application/products"
	"lamf-backend/internal/domain"
	"lamf-backend/internal/interfaces/handlers/apierror"
	"lamf-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *appsvc.Service
}

var rules = []apierror.Rule{
	{Err: appsvc.ErrApplicationNotFound, Status: fiber.StatusNotFound},
	{Err: prodsvc.ErrProductNotFound, Status: fiber.StatusNotFound},
	{Err: appsvc.ErrInvalidApplication, Status: fiber.StatusBadRequest},
	{Err: custsvc.ErrInvalidCustomer, Status: fiber.StatusBadRequest},
	{Err: appsvc.ErrInvalidStatus, Status: fiber.StatusBadRequest},
	{Err: appsvc.ErrRejectionReasonRequired, Status: fiber.StatusBadRequest},
	{Err: appsvc.ErrDisburseViaLoans, Status: fiber.StatusConflict},
	{Err: appsvc.ErrApplicationClosed, Status: fiber.StatusConflict},
	{Err: custsvc.ErrDuplicateEmail, Status: fiber.StatusConflict},
}

// POST /api/v1/applications/evaluate (preview; nothing is stored)
func (h *Handlers) Evaluate(c *fiber.Ctx) error {
	var in appsvc.CreateInput
	if !apierror.Body(c, &in) {
		return nil
	}
	p, err := h.Service.Evaluate(c.Context(), in)
	if err != nil {
		return apierror.Write(c, err, rules...)
	}
	return response.Success(c, "Application is eligible", p, nil)
}

// POST /api/v1/applications
func (h *Handlers) Create(c *fiber.Ctx) error {
	var in appsvc.CreateInput
	if !apierror.Body(c, &in) {
		return nil
	}
	app, err := h.Service.Create(c.Context(), in)
	if err != nil {
		return apierror.Write(c, err, rules...)
	}
	return response.SuccessCreated(c, "Loan application created successfully", app, nil)
}

// GET /api/v1/applications?status=&customer_id=
func (h *Handlers) List(c *fiber.Ctx) error {
	var f appsvc.ListFilter
	if s := c.Query("status"); s != "" {
		st, ok := domain.ParseApplicationStatus(s)
		if !ok {
			return response.BadRequest(c, "Invalid status filter")
		}
		f.Status = &st
	}
	if s := c.Query("customer_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return response.BadRequest(c, "Invalid customer_id")
		}
		f.CustomerID = &id
	}
	list, err := h.Service.List(c.Context(), f)
	if err != nil {
		return apierror.Write(c, err, rules...)
	}
	return response.List(c, "Loan applications fetched successfully", list, len(list))
}

// GET /api/v1/applications/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, ok := apierror.ParamUUID(c, "id")
	if !ok {
		return nil
	}
	app, err := h.Service.Get(c.Context(), id)
	if err != nil {
		return apierror.Write(c, err, rules...)
	}
	return response.Success(c, "Loan application fetched successfully", app, nil)
}

// GET /api/v1/applications/:id/events
func (h *Handlers) Events(c *fiber.Ctx) error {
	id, ok := apierror.ParamUUID(c, "id")
	if !ok {
		return nil
	}
	events, err := h.Service.Events(c.Context(), id)
	if err != nil {
		return apierror.Write(c, err, rules...)
	}
	return response.List(c, "Application events fetched successfully", events, len(events))
}

// PATCH /api/v1/applications/:id/status { status, reason }
func (h *Handlers) UpdateStatus(c *fiber.Ctx) error {
	id, ok := apierror.ParamUUID(c, "id")
	if !ok {
		return nil
	}
	var in appsvc.UpdateStatusInput
	if !apierror.Body(c, &in) {
		return nil
	}
	app, err := h.Service.UpdateStatus(c.Context(), id, in)
	if err != nil {
		return apierror.Write(c, err, rules...)
	}
	return response.Success(c, "Application status updated", app, nil)
}

// POST /api/v1/applications/:id/reevaluate
func (h *Handlers) Reevaluate(c *fiber.Ctx) error {
	id, ok := apierror.ParamUUID(c, "id")
	if !ok {
		return nil
	}
	app, res, err := h.Service.Reevaluate(c.Context(), id)
	if err != nil {
		return apierror.Write(c, err, rules...)
	}
	return response.Success(c, "Application re-evaluated", fiber.Map{"application": app, "result": res}, nil)
}
