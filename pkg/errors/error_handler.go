package errors

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"tusflow/pkg/errors/i18n"
)

// ErrorBody is the wire shape mandated by the protocol: a single "error"
// object carrying a human-readable message.
type ErrorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// HandleError writes err to the response in the protocol's error shape,
// logging the wrapped cause (if any) for operators. Unrecognized error
// types fall back to a generic 500.
func HandleError(c *fiber.Ctx, err error) error {
	if err == nil {
		return nil
	}

	if te, ok := err.(*TusError); ok {
		if te.Err != nil {
			log.Printf("tus error [%s]: %v", te.Code, te.Err)
		}
		msg := te.Message
		if localized := i18n.T(te.Code); localized != te.Code {
			msg = localized
		}
		body := ErrorBody{}
		body.Error.Message = msg
		return c.Status(te.Status).JSON(body)
	}

	log.Printf("unexpected error: %v", err)
	body := ErrorBody{}
	body.Error.Message = "internal server error"
	return c.Status(fiber.StatusInternalServerError).JSON(body)
}
