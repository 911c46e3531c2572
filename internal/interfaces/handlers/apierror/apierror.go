// Package apierror maps service errors onto the standard error envelope.
package apierror

import (
	"errors"

	"lamf-backend/internal/application/eligibility"
	"lamf-backend/internal/domain"
	"lamf-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Rule binds a sentinel to the status it is reported with.
type Rule struct {
	Err    error
	Status int
}

// Write reports err. Eligibility rejections are 422 with their structured
// details, invalid transitions are 409, and the rules decide the rest.
// Anything unmatched is returned as is, so the app's error handler logs it,
// records it in the health error log and answers with a bare 500.
func Write(c *fiber.Ctx, err error, rules ...Rule) error {
	var ee *eligibility.Error
	if errors.As(err, &ee) {
		return response.Error(c, ee.Error(), fiber.StatusUnprocessableEntity, ee.Details())
	}
	if errors.Is(err, domain.ErrInvalidTransition) {
		return response.Error(c, err.Error(), fiber.StatusConflict, nil)
	}
	for _, r := range rules {
		if errors.Is(err, r.Err) {
			return response.Error(c, err.Error(), r.Status, nil)
		}
	}
	return err
}

// ParamUUID parses a path parameter, writing a 400 when it is not a uuid.
func ParamUUID(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		_ = response.BadRequest(c, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// Body decodes the JSON body, writing a 400 on failure.
func Body(c *fiber.Ctx, out interface{}) bool {
	if err := c.BodyParser(out); err != nil {
		_ = response.BadRequest(c, "Invalid request body")
		return false
	}
	return true
}
