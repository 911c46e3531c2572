package collaterals

import (
	colsvc "lamf-backend/internal/application/collaterals"
	"lamf-backend/internal/interfaces/handlers/apierror"
	"lamf-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Handlers struct {
	Service *colsvc.Service
}

var rules = []apierror.Rule{
	{Err: colsvc.ErrCollateralNotFound, Status: fiber.StatusNotFound},
	{Err: colsvc.ErrInvalidNAV, Status: fiber.StatusBadRequest},
	{Err: colsvc.ErrNAVPrecision, Status: fiber.StatusBadRequest},
	{Err: colsvc.ErrInvalidISIN, Status: fiber.StatusBadRequest},
	{Err: colsvc.ErrLienReferenceMissing, Status: fiber.StatusBadRequest},
	{Err: colsvc.ErrLoanActive, Status: fiber.StatusConflict},
	{Err: colsvc.ErrCollateralLocked, Status: fiber.StatusConflict},
	{Err: colsvc.ErrLastCollateral, Status: fiber.StatusConflict},
}

func queryUUID(c *fiber.Ctx, name string) (*uuid.UUID, bool) {
	s := c.Query(name)
	if s == "" {
		return nil, true
	}
	id, err := uuid.Parse(s)
	if err != nil {
		_ = response.BadRequest(c, "Invalid "+name)
		return nil, false
	}
	return &id, true
}

// GET /api/v1/collaterals?loan_id=&loan_application_id=
func (h *Handlers) List(c *fiber.Ctx) error {
	var f colsvc.ListFilter
	var ok bool
	if f.LoanID, ok = queryUUID(c, "loan_id"); !ok {
		return nil
	}
	if f.LoanApplicationID, ok = queryUUID(c, "loan_application_id"); !ok {
		return nil
	}
	list, err := h.Service.List(c.Context(), f)
	if err != nil {
		return apierror.Write(c, err, rules...)
	}
	return response.List(c, "Collaterals fetched successfully", list, len(list))
}

// GET /api/v1/collaterals/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, ok := apierror.ParamUUID(c, "id")
	if !ok {
		return nil
	}
	col, err := h.Service.Get(c.Context(), id)
	if err != nil {
		return apierror.Write(c, err, rules...)
	}
	return response.Success(c, "Collateral fetched successfully", col, nil)
}

// PATCH /api/v1/collaterals/:id/nav { nav }
func (h *Handlers) UpdateNAV(c *fiber.Ctx) error {
	id, ok := apierror.ParamUUID(c, "id")
	if !ok {
		return nil
	}
	var body struct {
		NAV decimal.Decimal `json:"nav"`
	}
	if !apierror.Body(c, &body) {
		return nil
	}
	col, err := h.Service.UpdateNAV(c.Context(), id, body.NAV)
	if err != nil {
		return apierror.Write(c, err, rules...)
	}
	return response.Success(c, "Collateral NAV updated", col, nil)
}

// POST /api/v1/collaterals/nav-refresh { isin, nav }
func (h *Handlers) RefreshNAV(c *fiber.Ctx) error {
	var body struct {
		ISIN string          `json:"isin"`
		NAV  decimal.Decimal `json:"nav"`
	}
	if !apierror.Body(c, &body) {
		return nil
	}
	res, err := h.Service.RefreshNAV(c.Context(), body.ISIN, body.NAV)
	if err != nil {
		return apierror.Write(c, err, rules...)
	}
	return response.Success(c, "NAV refreshed", res, nil)
}

// POST /api/v1/collaterals/:id/lien { reference }
func (h *Handlers) MarkLien(c *fiber.Ctx) error {
	id, ok := apierror.ParamUUID(c, "id")
	if !ok {
		return nil
	}
	var body struct {
		Reference string `json:"reference"`
	}
	if !apierror.Body(c, &body) {
		return nil
	}
	col, err := h.Service.MarkLien(c.Context(), id, body.Reference)
	if err != nil {
		return apierror.Write(c, err, rules...)
	}
	return response.Success(c, "Lien marked", col, nil)
}

// POST /api/v1/collaterals/:id/release
func (h *Handlers) ReleaseLien(c *fiber.Ctx) error {
	id, ok := apierror.ParamUUID(c, "id")
	if !ok {
		return nil
	}
	col, err := h.Service.ReleaseLien(c.Context(), id)
	if err != nil {
		return apierror.Write(c, err, rules...)
	}
	return response.Success(c, "Lien released", col, nil)
}

// DELETE /api/v1/collaterals/:id
func (h *Handlers) Delete(c *fiber.Ctx) error {
	id, ok := apierror.ParamUUID(c, "id")
	if !ok {
		return nil
	}
	if err := h.Service.Delete(c.Context(), id); err != nil {
		return apierror.Write(c, err, rules...)
	}
	return response.Success(c, "Collateral removed", fiber.Map{"id": id}, nil)
}
