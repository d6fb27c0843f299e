package http

import "github.com/gofiber/fiber/v2"

// OK writes a 200 response with the given payload.
func OK(c *fiber.Ctx, payload any) error {
	return c.Status(fiber.StatusOK).JSON(payload)
}

// Created writes a 201 response with the given payload.
func Created(c *fiber.Ctx, payload any) error {
	return c.Status(fiber.StatusCreated).JSON(payload)
}

// NoContent writes a 204 response with no body.
func NoContent(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}

// NotFound writes a 404 response carrying the ResponseError envelope.
func NotFound(c *fiber.Ctx, code, title, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(ResponseError{Code: 404, Title: title, Message: message}.withCode(code))
}

// Conflict writes a 409 response carrying the ResponseError envelope.
func Conflict(c *fiber.Ctx, code, title, message string) error {
	return c.Status(fiber.StatusConflict).JSON(ResponseError{Code: 409, Title: title, Message: message}.withCode(code))
}

// BadRequest writes a 400 response. payload is typically a
// ValidationKnownFieldsError or ValidationUnknownFieldsError.
func BadRequest(c *fiber.Ctx, payload any) error {
	return c.Status(fiber.StatusBadRequest).JSON(payload)
}

// UnprocessableEntity writes a 422 response carrying the ResponseError envelope.
func UnprocessableEntity(c *fiber.Ctx, code, title, message string) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(ResponseError{Code: 422, Title: title, Message: message}.withCode(code))
}

// Unauthorized writes a 401 response carrying the ResponseError envelope.
func Unauthorized(c *fiber.Ctx, code, title, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(ResponseError{Code: 401, Title: title, Message: message}.withCode(code))
}

// Forbidden writes a 403 response carrying the ResponseError envelope.
func Forbidden(c *fiber.Ctx, code, title, message string) error {
	return c.Status(fiber.StatusForbidden).JSON(ResponseError{Code: 403, Title: title, Message: message}.withCode(code))
}

// InternalServerError writes a 500 response carrying the ResponseError envelope.
func InternalServerError(c *fiber.Ctx, code, title, message string) error {
	return c.Status(fiber.StatusInternalServerError).JSON(ResponseError{Code: 500, Title: title, Message: message}.withCode(code))
}

// JSONResponseError writes err.Code verbatim (falls back to 500 when unset).
func JSONResponseError(c *fiber.Ctx, err ResponseError) error {
	status := err.Code
	if status == 0 {
		status = fiber.StatusInternalServerError
	}

	return c.Status(status).JSON(err)
}

// businessCode is attached to the JSON body as an extra field carrying the stable business error
// code (distinct from the numeric HTTP status already in ResponseError.Code), mirroring how the
// teacher's error types carry both an HTTP-facing Code and a business Code.
type businessResponseError struct {
	ResponseError
	BusinessCode string `json:"businessCode,omitempty"`
}

func (r ResponseError) withCode(businessCode string) any {
	if businessCode == "" {
		return r
	}

	return businessResponseError{ResponseError: r, BusinessCode: businessCode}
}
