package handlers

import (
	"database/sql"
	"errors"

	"github.com/gofiber/fiber/v2"

	applog "groupcart/internal/log"
	"groupcart/internal/metrics"
	"groupcart/internal/services"
)

// fail translates an error into the structured JSON error shape. Only
// the code is contractually stable; message is advisory copy.
func fail(c *fiber.Ctx, action string, err error) error {
	var se *services.Error
	if errors.As(err, &se) {
		metrics.APIErrors.WithLabelValues(se.Code).Inc()
		if se.Status >= 500 {
			applog.Error(c, action, err, nil)
		}
		body := fiber.Map{"code": se.Code, "message": se.Message}
		if se.Details != nil {
			body["details"] = se.Details
		}
		return c.Status(se.Status).JSON(fiber.Map{"error": body})
	}

	metrics.APIErrors.WithLabelValues("internal").Inc()
	applog.Error(c, action, err, nil)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": fiber.Map{"code": "internal"},
	})
}

// errNotFound maps a missing row onto the not_found code.
func errNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return services.ErrNotFound
	}
	return err
}

func badRequest(c *fiber.Ctx, details map[string]any) error {
	return fail(c, "validate", services.ErrValidation.With(details))
}

// adminResult is the admin mutation envelope the console translates
// client-side.
func adminResult(c *fiber.Ctx, code string, details map[string]any, affected int64) error {
	if details == nil {
		details = map[string]any{}
	}
	return c.JSON(fiber.Map{
		"code":             code,
		"details":          details,
		"affected_records": affected,
	})
}
