package customers

import (
	custsvc "lamf-backend/internal/application/customers"
	"lamf-backend/internal/interfaces/handlers/apierror"
	"lamf-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *custsvc.Service
}

var rules = []apierror.Rule{
	{Err: custsvc.ErrCustomerNotFound, Status: fiber.StatusNotFound},
	{Err: custsvc.ErrInvalidCustomer, Status: fiber.StatusBadRequest},
	{Err: custsvc.ErrDuplicatePAN, Status: fiber.StatusConflict},
	{Err: custsvc.ErrDuplicateEmail, Status: fiber.StatusConflict},
	{Err: custsvc.ErrAadhaarMismatch, Status: fiber.StatusUnprocessableEntity},
}

// GET /api/v1/customers
func (h *Handlers) List(c *fiber.Ctx) error {
	list, err := h.Service.List(c.Context())
	if err != nil {
		return apierror.Write(c, err, rules...)
	}
	return response.List(c, "Customers fetched successfully", list, len(list))
}

// GET /api/v1/customers/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, ok := apierror.ParamUUID(c, "id")
	if !ok {
		return nil
	}
	cust, err := h.Service.Get(c.Context(), id)
	if err != nil {
		return apierror.Write(c, err, rules...)
	}
	return response.Success(c, "Customer fetched successfully", cust, nil)
}

// POST /api/v1/customers
func (h *Handlers) Create(c *fiber.Ctx) error {
	var in custsvc.CustomerInput
	if !apierror.Body(c, &in) {
		return nil
	}
	cust, err := h.Service.Create(c.Context(), in)
	if err != nil {
		return apierror.Write(c, err, rules...)
	}
	return response.SuccessCreated(c, "Customer created successfully", cust, nil)
}

// POST /api/v1/customers/:id/verify-kyc { aadhaar }
func (h *Handlers) VerifyKYC(c *fiber.Ctx) error {
	id, ok := apierror.ParamUUID(c, "id")
	if !ok {
		return nil
	}
	var body struct {
		Aadhaar string `json:"aadhaar"`
	}
	if !apierror.Body(c, &body) {
		return nil
	}
	cust, err := h.Service.VerifyKYC(c.Context(), id, body.Aadhaar)
	if err != nil {
		return apierror.Write(c, err, rules...)
	}
	return response.Success(c, "KYC verified", cust, nil)
}
