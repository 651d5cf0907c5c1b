package serverutils

import (
	"errors"

	"archelon-assistant-be/pkg/fault"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware maps errors returned by controllers onto HTTP status
// codes. Fault kinds drive the mapping; unknown errors become a 500 with a
// generic message so internals never leak.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Message))
		}

		switch {
		case fault.Is(err, fault.KindValidation):
			return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponse(err.Error()))
		case fault.Is(err, fault.KindNotFound):
			return ctx.Status(fiber.StatusNotFound).JSON(ErrorResponse(err.Error()))
		case fault.Is(err, fault.KindGeneration):
			return ctx.Status(fiber.StatusBadGateway).JSON(ErrorResponse("generation service failed"))
		case fault.Is(err, fault.KindStorage), fault.Is(err, fault.KindPersistence):
			return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse("storage failure"))
		default:
			return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse("internal server error"))
		}
	}
}
