package constant

import "errors"

// Business error codes for the replication engine. Mirrors the teacher's
// convention of a stable numeric code per error paired with a sentinel.
var (
	ErrMissingStoreID       = errors.New("0001")
	ErrMissingStoreType     = errors.New("0002")
	ErrUnknownTable         = errors.New("0003")
	ErrInvalidRecordID      = errors.New("0004")
	ErrInvalidAction        = errors.New("0005")
	ErrPayloadRequired      = errors.New("0006")
	ErrInvalidPayload       = errors.New("0007")
	ErrUnrecognizedRole     = errors.New("0008")
	ErrPollerMisconfigured  = errors.New("0009")
	ErrEntityNotFound       = errors.New("0010")
	ErrInvalidPathParameter = errors.New("0011")
	ErrBadRequest           = errors.New("0012")
	ErrInternalServer       = errors.New("0013")
	ErrUnexpectedFields     = errors.New("0014")
	ErrInvalidPhotoUID      = errors.New("0015")
	ErrInvalidBase64Payload = errors.New("0016")
)
