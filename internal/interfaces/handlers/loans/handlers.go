package loans

import (
	"time"

	loansvc "lamf-backend/internal/application/loans"
	"lamf-backend/internal/domain"
	"lamf-backend/internal/interfaces/handlers/apierror"
	"lamf-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *loansvc.Service
}

// Rules is shared with the transactions handlers, which book through loans.
var Rules = []apierror.Rule{
	{Err: loansvc.ErrLoanNotFound, Status: fiber.StatusNotFound},
	{Err: loansvc.ErrApplicationNotFound, Status: fiber.StatusNotFound},
	{Err: loansvc.ErrApplicationNotApproved, Status: fiber.StatusConflict},
	{Err: loansvc.ErrLoanNotActive, Status: fiber.StatusConflict},
	{Err: loansvc.ErrOutstandingBalance, Status: fiber.StatusConflict},
	{Err: loansvc.ErrOverpayment, Status: fiber.StatusUnprocessableEntity},
	{Err: loansvc.ErrInvalidLoanStatus, Status: fiber.StatusBadRequest},
	{Err: loansvc.ErrInvalidTransactionType, Status: fiber.StatusBadRequest},
	{Err: loansvc.ErrInvalidAmount, Status: fiber.StatusBadRequest},
	{Err: loansvc.ErrInvalidPaymentMethod, Status: fiber.StatusBadRequest},
}

// POST /api/v1/loans/disburse { application_id, payment_method, reference_number }
func (h *Handlers) Disburse(c *fiber.Ctx) error {
	var body struct {
		ApplicationID uuid.UUID `json:"application_id"`
		loansvc.DisburseInput
	}
	if !apierror.Body(c, &body) {
		return nil
	}
	if body.ApplicationID == uuid.Nil {
		return response.BadRequest(c, "application_id is required")
	}
	loan, err := h.Service.Disburse(c.Context(), body.ApplicationID, body.DisburseInput)
	if err != nil {
		return apierror.Write(c, err, Rules...)
	}
	return response.SuccessCreated(c, "Loan disbursed successfully", loan, nil)
}

// GET /api/v1/loans?status=active|closed|defaulted|all (default active)
func (h *Handlers) List(c *fiber.Ctx) error {
	status := domain.LoanActive
	switch s := c.Query("status"); s {
	case "":
	case "all":
		status = ""
	default:
		st, ok := domain.ParseLoanStatus(s)
		if !ok {
			return response.BadRequest(c, "Invalid status filter")
		}
		status = st
	}
	list, err := h.Service.List(c.Context(), status)
	if err != nil {
		return apierror.Write(c, err, Rules...)
	}
	return response.List(c, "Loans fetched successfully", list, len(list))
}

// GET /api/v1/loans/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, ok := apierror.ParamUUID(c, "id")
	if !ok {
		return nil
	}
	loan, err := h.Service.Get(c.Context(), id)
	if err != nil {
		return apierror.Write(c, err, Rules...)
	}
	return response.Success(c, "Loan fetched successfully", loan, nil)
}

// GET /api/v1/loans/ltv-report
func (h *Handlers) LTVReport(c *fiber.Ctx) error {
	rows, err := h.Service.LTVReport(c.Context())
	if err != nil {
		return apierror.Write(c, err, Rules...)
	}
	return response.List(c, "LTV report generated", rows, len(rows))
}

// POST /api/v1/loans/:id/accrue { as_of }
func (h *Handlers) AccrueInterest(c *fiber.Ctx) error {
	id, ok := apierror.ParamUUID(c, "id")
	if !ok {
		return nil
	}
	var body struct {
		AsOf *time.Time `json:"as_of"`
	}
	if len(c.Body()) > 0 && !apierror.Body(c, &body) {
		return nil
	}
	asOf := time.Now()
	if body.AsOf != nil {
		asOf = *body.AsOf
	}
	loan, err := h.Service.AccrueInterest(c.Context(), id, asOf)
	if err != nil {
		return apierror.Write(c, err, Rules...)
	}
	return response.Success(c, "Interest accrued", loan, nil)
}

// POST /api/v1/loans/:id/transactions
func (h *Handlers) RecordTransaction(c *fiber.Ctx) error {
	id, ok := apierror.ParamUUID(c, "id")
	if !ok {
		return nil
	}
	var in loansvc.TransactionInput
	if !apierror.Body(c, &in) {
		return nil
	}
	tx, err := h.Service.RecordTransaction(c.Context(), id, in)
	if err != nil {
		return apierror.Write(c, err, Rules...)
	}
	return response.SuccessCreated(c, "Transaction recorded successfully", tx, nil)
}

// PATCH /api/v1/loans/:id/status { status }
func (h *Handlers) UpdateStatus(c *fiber.Ctx) error {
	id, ok := apierror.ParamUUID(c, "id")
	if !ok {
		return nil
	}
	var body struct {
		Status string `json:"status"`
	}
	if !apierror.Body(c, &body) {
		return nil
	}
	loan, err := h.Service.UpdateStatus(c.Context(), id, body.Status)
	if err != nil {
		return apierror.Write(c, err, Rules...)
	}
	return response.Success(c, "Loan status updated", loan, nil)
}
