package common

import (
	"errors"
	"fmt"
	"strings"

	cn "github.com/mywaytech/dentstage-sync/common/constant"
)

// EntityNotFoundError records an error indicating an entity was not found in any case that caused it.
// You can use it to representing a Database not found, cache not found or any other repository.
type EntityNotFoundError struct {
	EntityType string
	Title      string
	Message    string
	Code       string
	Err        error
}

// NewEntityNotFoundError creates an instance of EntityNotFoundError.
func NewEntityNotFoundError(entityType string) EntityNotFoundError {
	return EntityNotFoundError{EntityType: entityType}
}

// WrapEntityNotFoundError creates an instance of EntityNotFoundError wrapping err.
func WrapEntityNotFoundError(entityType string, err error) EntityNotFoundError {
	return EntityNotFoundError{EntityType: entityType, Err: err}
}

// Error implements the error interface.
func (e EntityNotFoundError) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		if strings.TrimSpace(e.EntityType) != "" {
			return fmt.Sprintf("entity %s not found", e.EntityType)
		}

		if e.Err != nil {
			return e.Err.Error()
		}

		return "entity not found"
	}

	return e.Message
}

// Unwrap implements the error interface introduced in Go 1.13 to unwrap the internal error.
func (e EntityNotFoundError) Unwrap() error {
	return e.Err
}

// ValidationError records an error indicating a request or row failed validation.
type ValidationError struct {
	EntityType string
	Title      string
	Message    string
	Code       string
	Err        error
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if strings.TrimSpace(e.Code) != "" {
		return fmt.Sprintf("%s - %s", e.Code, e.Message)
	}

	return e.Message
}

// Unwrap implements the error interface introduced in Go 1.13 to unwrap the internal error.
func (e ValidationError) Unwrap() error {
	return e.Err
}

// EntityConflictError records an error indicating an entity already exists in some repository.
type EntityConflictError struct {
	EntityType string
	Title      string
	Message    string
	Code       string
	Err        error
}

// Error implements the error interface.
func (e EntityConflictError) Error() string {
	if e.Err != nil && strings.TrimSpace(e.Message) == "" {
		return e.Err.Error()
	}

	return e.Message
}

// Unwrap implements the error interface introduced in Go 1.13 to unwrap the internal error.
func (e EntityConflictError) Unwrap() error {
	return e.Err
}

// UnauthorizedError indicates an operation that couldn't be performed because there's no user authenticated.
type UnauthorizedError struct {
	EntityType string `json:"entityType,omitempty"`
	Title      string `json:"title,omitempty"`
	Message    string `json:"message,omitempty"`
	Code       string `json:"code,omitempty"`
	Err        error  `json:"err,omitempty"`
}

func (e UnauthorizedError) Error() string {
	return e.Message
}

// ForbiddenError indicates an operation that couldn't be performed because the caller has no sufficient privileges.
type ForbiddenError struct {
	EntityType string `json:"entityType,omitempty"`
	Title      string `json:"title,omitempty"`
	Message    string `json:"message,omitempty"`
	Code       string `json:"code,omitempty"`
	Err        error  `json:"err,omitempty"`
}

func (e ForbiddenError) Error() string {
	return e.Message
}

// UnprocessableOperationError indicates an operation that couldn't be performed because it's invalid.
type UnprocessableOperationError struct {
	EntityType string
	Title      string
	Message    string
	Code       string
	Err        error
}

func (e UnprocessableOperationError) Error() string {
	return e.Message
}

// HTTPError indicates an http error raised by the poller's client against the central server.
type HTTPError struct {
	EntityType string
	Title      string
	Message    string
	Code       string
	Err        error
}

func (e HTTPError) Error() string {
	return e.Message
}

// InternalServerError indicates an unexpected failure during an operation.
type InternalServerError struct {
	EntityType string `json:"entityType,omitempty"`
	Title      string `json:"title,omitempty"`
	Message    string `json:"message,omitempty"`
	Code       string `json:"code,omitempty"`
	Err        error  `json:"err,omitempty"`
}

func (e InternalServerError) Error() string {
	return e.Message
}

// ResponseError is a struct used to return errors to the client.
type ResponseError struct {
	Code    int    `json:"code,omitempty"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message,omitempty"`
}

// Error returns the message of the ResponseError.
func (r ResponseError) Error() string {
	return r.Message
}

// FieldValidations is a map of known fields and their validation errors.
type FieldValidations map[string]string

// ValidationKnownFieldsError records an error that occurred during validation of known fields.
type ValidationKnownFieldsError struct {
	EntityType string           `json:"entityType,omitempty"`
	Title      string           `json:"title,omitempty"`
	Code       string           `json:"code,omitempty"`
	Message    string           `json:"message,omitempty"`
	Fields     FieldValidations `json:"fields,omitempty"`
}

// Error returns the error message for a ValidationKnownFieldsError.
func (r ValidationKnownFieldsError) Error() string {
	return r.Message
}

// UnknownFields is a map of unknown fields and their error messages.
type UnknownFields map[string]any

// ValidationUnknownFieldsError records an error that occurred because the request carried fields
// the receiving struct does not declare.
type ValidationUnknownFieldsError struct {
	EntityType string        `json:"entityType,omitempty"`
	Title      string        `json:"title,omitempty"`
	Code       string        `json:"code,omitempty"`
	Message    string        `json:"message,omitempty"`
	Fields     UnknownFields `json:"fields,omitempty"`
}

// Error returns the error message for a ValidationUnknownFieldsError.
func (r ValidationUnknownFieldsError) Error() string {
	return r.Message
}

// ValidateInternalError wraps err into an InternalServerError. Only the envelope-validation path
// is allowed to surface an error to the transport layer per the error propagation policy —
// everything else is logged and absorbed by the caller.
func ValidateInternalError(err error, entityType string) error {
	return InternalServerError{
		EntityType: entityType,
		Code:       cn.ErrInternalServer.Error(),
		Title:      "Internal Server Error",
		Message:    "The server encountered an unexpected error. Please try again later.",
		Err:        err,
	}
}

// ValidateBadRequestFieldsError builds a ValidationUnknownFieldsError or ValidationKnownFieldsError
// depending on whether the caller sent fields the struct doesn't recognize, or recognized fields
// that failed validation.
func ValidateBadRequestFieldsError(knownInvalidFields FieldValidations, entityType string, unknownFields UnknownFields) error {
	if len(unknownFields) == 0 && len(knownInvalidFields) == 0 {
		return errors.New("expected knownInvalidFields and unknownFields to be non-empty")
	}

	if len(unknownFields) > 0 {
		return ValidationUnknownFieldsError{
			EntityType: entityType,
			Code:       cn.ErrUnexpectedFields.Error(),
			Title:      "Unexpected Fields in the Request",
			Message:    "The request body contains fields the envelope does not recognize.",
			Fields:     unknownFields,
		}
	}

	return ValidationKnownFieldsError{
		EntityType: entityType,
		Code:       cn.ErrBadRequest.Error(),
		Title:      "Bad Request",
		Message:    "The server could not understand the request due to malformed fields.",
		Fields:     knownInvalidFields,
	}
}

// ValidateBusinessError maps a sentinel business error from common/constant into the concrete,
// HTTP-mappable error type the caller should return.
func ValidateBusinessError(err error, entityType string, args ...any) error {
	switch {
	case errors.Is(err, cn.ErrMissingStoreID):
		return ValidationError{
			EntityType: entityType,
			Code:       cn.ErrMissingStoreID.Error(),
			Title:      "Missing Store Id",
			Message:    "The request is missing a storeId.",
		}
	case errors.Is(err, cn.ErrMissingStoreType):
		return ValidationError{
			EntityType: entityType,
			Code:       cn.ErrMissingStoreType.Error(),
			Title:      "Missing Store Type",
			Message:    "The request is missing a storeType.",
		}
	case errors.Is(err, cn.ErrUnknownTable):
		return ValidationError{
			EntityType: entityType,
			Code:       cn.ErrUnknownTable.Error(),
			Title:      "Unknown Table",
			Message:    fmt.Sprintf("No entity catalog entry registered for table %v.", args...),
		}
	case errors.Is(err, cn.ErrInvalidRecordID):
		return ValidationError{
			EntityType: entityType,
			Code:       cn.ErrInvalidRecordID.Error(),
			Title:      "Invalid Record Id",
			Message:    fmt.Sprintf("Record id %v does not match the table's key schema.", args...),
		}
	case errors.Is(err, cn.ErrInvalidAction):
		return ValidationError{
			EntityType: entityType,
			Code:       cn.ErrInvalidAction.Error(),
			Title:      "Invalid Action",
			Message:    fmt.Sprintf("Action %v is not one of INSERT, UPDATE, UPSERT, DELETE.", args...),
		}
	case errors.Is(err, cn.ErrPayloadRequired):
		return ValidationError{
			EntityType: entityType,
			Code:       cn.ErrPayloadRequired.Error(),
			Title:      "Payload Required",
			Message:    "A non-DELETE change requires a payload.",
		}
	case errors.Is(err, cn.ErrInvalidPayload):
		return ValidationError{
			EntityType: entityType,
			Code:       cn.ErrInvalidPayload.Error(),
			Title:      "Invalid Payload",
			Message:    "Payload does not deserialize against the table's schema.",
		}
	case errors.Is(err, cn.ErrUnrecognizedRole):
		return ValidationError{
			EntityType: entityType,
			Code:       cn.ErrUnrecognizedRole.Error(),
			Title:      "Unrecognized Role",
			Message:    fmt.Sprintf("Role %v is not recognized.", args...),
		}
	case errors.Is(err, cn.ErrEntityNotFound):
		return EntityNotFoundError{
			EntityType: entityType,
			Code:       cn.ErrEntityNotFound.Error(),
			Title:      "Entity Not Found",
			Message:    "No entity was found for the given id.",
		}
	case errors.Is(err, cn.ErrInvalidPathParameter):
		return ValidationError{
			EntityType: entityType,
			Code:       cn.ErrInvalidPathParameter.Error(),
			Title:      "Invalid Path Parameter",
			Message:    fmt.Sprintf("Invalid path parameter(s): %v.", args...),
		}
	case errors.Is(err, cn.ErrInvalidPhotoUID):
		return ValidationError{
			EntityType: entityType,
			Code:       cn.ErrInvalidPhotoUID.Error(),
			Title:      "Invalid Photo UID",
			Message:    "Photo payload is missing photoUid.",
		}
	case errors.Is(err, cn.ErrInvalidBase64Payload):
		return ValidationError{
			EntityType: entityType,
			Code:       cn.ErrInvalidBase64Payload.Error(),
			Title:      "Invalid Base64 Payload",
			Message:    "fileContentBase64 could not be decoded.",
		}
	default:
		return ValidateInternalError(err, entityType)
	}
}
