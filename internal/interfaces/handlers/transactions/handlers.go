package transactions

import (
	txsvc "lamf-backend/internal/application/transactions"
	"lamf-backend/internal/interfaces/handlers/apierror"
	"lamf-backend/internal/interfaces/handlers/loans"
	"lamf-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *txsvc.Service
}

func rules() []apierror.Rule {
	return append([]apierror.Rule{
		{Err: txsvc.ErrTransactionNotFound, Status: fiber.StatusNotFound},
		{Err: txsvc.ErrLoanIDRequired, Status: fiber.StatusBadRequest},
	}, loans.Rules...)
}

// GET /api/v1/transactions?loan_id=
func (h *Handlers) List(c *fiber.Ctx) error {
	var loanID *uuid.UUID
	if s := c.Query("loan_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return response.BadRequest(c, "Invalid loan_id")
		}
		loanID = &id
	}
	list, err := h.Service.List(c.Context(), loanID)
	if err != nil {
		return apierror.Write(c, err, rules()...)
	}
	return response.List(c, "Transactions fetched successfully", list, len(list))
}

// GET /api/v1/transactions/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, ok := apierror.ParamUUID(c, "id")
	if !ok {
		return nil
	}
	tx, err := h.Service.Get(c.Context(), id)
	if err != nil {
		return apierror.Write(c, err, rules()...)
	}
	return response.Success(c, "Transaction fetched successfully", tx, nil)
}

// POST /api/v1/transactions { loan_id, type, amount, ... }
func (h *Handlers) Create(c *fiber.Ctx) error {
	var in txsvc.CreateInput
	if !apierror.Body(c, &in) {
		return nil
	}
	tx, err := h.Service.Create(c.Context(), in)
	if err != nil {
		return apierror.Write(c, err, rules()...)
	}
	return response.SuccessCreated(c, "Transaction recorded successfully", tx, nil)
}
