package products

import (
	prodsvc "lamf-backend/internal/application/products"
	"lamf-backend/internal/interfaces/handlers/apierror"
	"lamf-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *prodsvc.Service
}

var rules = []apierror.Rule{
	{Err: prodsvc.ErrProductNotFound, Status: fiber.StatusNotFound},
	{Err: prodsvc.ErrInvalidProduct, Status: fiber.StatusBadRequest},
	{Err: prodsvc.ErrProductInUse, Status: fiber.StatusConflict},
}

// GET /api/v1/products?active=true
func (h *Handlers) List(c *fiber.Ctx) error {
	list, err := h.Service.List(c.Context(), c.QueryBool("active", false))
	if err != nil {
		return apierror.Write(c, err, rules...)
	}
	return response.List(c, "Loan products fetched successfully", list, len(list))
}

// GET /api/v1/products/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, ok := apierror.ParamUUID(c, "id")
	if !ok {
		return nil
	}
	p, err := h.Service.Get(c.Context(), id)
	if err != nil {
		return apierror.Write(c, err, rules...)
	}
	return response.Success(c, "Loan product fetched successfully", p, nil)
}

// POST /api/v1/products
func (h *Handlers) Create(c *fiber.Ctx) error {
	var in prodsvc.ProductInput
	if !apierror.Body(c, &in) {
		return nil
	}
	p, err := h.Service.Create(c.Context(), in)
	if err != nil {
		return apierror.Write(c, err, rules...)
	}
	return response.SuccessCreated(c, "Loan product created successfully", p, nil)
}

// PATCH /api/v1/products/:id
func (h *Handlers) Update(c *fiber.Ctx) error {
	id, ok := apierror.ParamUUID(c, "id")
	if !ok {
		return nil
	}
	var in prodsvc.UpdateProductInput
	if !apierror.Body(c, &in) {
		return nil
	}
	p, err := h.Service.Update(c.Context(), id, in)
	if err != nil {
		return apierror.Write(c, err, rules...)
	}
	return response.Success(c, "Loan product updated successfully", p, nil)
}

// DELETE /api/v1/products/:id
func (h *Handlers) Delete(c *fiber.Ctx) error {
	id, ok := apierror.ParamUUID(c, "id")
	if !ok {
		return nil
	}
	if err := h.Service.Delete(c.Context(), id); err != nil {
		return apierror.Write(c, err, rules...)
	}
	return response.Success(c, "Loan product deleted successfully", fiber.Map{"id": id}, nil)
}
