package middleware

import (
	"context"
	"encoding/json"
	"time"

	"lamf-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const errorLogSize = 50

// ErrorHandler returns the global error handler. Unhandled errors are logged
// and, when Redis is available, pushed to the capped health error log.
func ErrorHandler(rdb *redis.Client) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		e, isFiber := err.(*fiber.Error)
		if isFiber {
			code = e.Code
		}

		if code >= 500 {
			log.Error().Err(err).Str("trace_id", GetTraceID(c)).Str("method", c.Method()).Str("path", c.Path()).Msg("unhandled error")
			if rdb != nil {
				entry, _ := json.Marshal(map[string]interface{}{
					"time":     time.Now().UTC(),
					"path":     c.OriginalURL(),
					"method":   c.Method(),
					"message":  err.Error(),
					"trace_id": GetTraceID(c),
				})
				ctx := context.Background()
				pipe := rdb.Pipeline()
				pipe.LPush(ctx, KeyErrorLog, entry)
				pipe.LTrim(ctx, KeyErrorLog, 0, errorLogSize-1)
				_, _ = pipe.Exec(ctx)
			}
		}
		if !isFiber {
			return response.Internal(c)
		}
		return response.Error(c, e.Message, code, nil)
	}
}
