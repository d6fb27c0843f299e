package common

import (
	"encoding/json"
	"regexp"

	"github.com/google/uuid"
)

// Contains checks if an item is in a slice. This function uses type parameters to work with any slice type.
func Contains[T comparable](slice []T, item T) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}

	return false
}

// SafeIntToUint64 safe mode to converter int to uint64
func SafeIntToUint64(val int) uint64 {
	if val < 0 {
		return uint64(1)
	}

	return uint64(val)
}

// IsUUID Validate if the string pass through is an uuid
func IsUUID(s string) bool {
	r := regexp.MustCompile("^[a-fA-F0-9]{8}-[a-fA-F0-9]{4}-[1-5][a-fA-F0-9]{3}-[89abAB][a-fA-F0-9]{3}-[a-fA-F0-9]{12}$")
	return r.MatchString(s)
}

// GenerateUUIDv7 generate a new uuid v7 using google/uuid package and return it.
func GenerateUUIDv7() uuid.UUID {
	u := uuid.Must(uuid.NewV7())

	return u
}

// StructToJSONString convert a struct to json string
func StructToJSONString(s any) (string, error) {
	jsonByte, err := json.Marshal(s)
	if err != nil {
		return "", err
	}

	return string(jsonByte), nil
}

var uuidPlaceholderPattern = regexp.MustCompile(`[a-fA-F0-9]{8}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{12}`)

// ReplaceUUIDWithPlaceholder collapses path segments that look like UUIDs, so tracing span
// names group requests by route instead of fanning out per record id.
func ReplaceUUIDWithPlaceholder(path string) string {
	return uuidPlaceholderPattern.ReplaceAllString(path, ":id")
}
