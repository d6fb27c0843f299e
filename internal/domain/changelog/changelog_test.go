package changelog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePayloadAgainstActionSkipsDelete(t *testing.T) {
	entry := Entry{Action: ActionDelete}

	err := ValidatePayloadAgainstAction(entry, func(tableName, payload string) error {
		t.Fatal("deserialize should not be called for DELETE")
		return nil
	})
	assert.NoError(t, err)
}

func TestValidatePayloadAgainstActionSkipsNilPayload(t *testing.T) {
	entry := Entry{Action: ActionUpdate, Payload: nil}

	err := ValidatePayloadAgainstAction(entry, func(tableName, payload string) error {
		t.Fatal("deserialize should not be called with a nil payload")
		return nil
	})
	assert.NoError(t, err)
}

func TestValidatePayloadAgainstActionRejectsBadPayload(t *testing.T) {
	payload := `{"not":"valid for schema"}`
	entry := Entry{Action: ActionUpdate, TableName: "orders", Payload: &payload}

	err := ValidatePayloadAgainstAction(entry, func(tableName, payload string) error {
		return errors.New("schema mismatch")
	})
	assert.Error(t, err)
}

func TestValidatePayloadAgainstActionAcceptsGoodPayload(t *testing.T) {
	payload := `{"order_uid":"ORD-1"}`
	entry := Entry{Action: ActionInsert, TableName: "orders", Payload: &payload}

	err := ValidatePayloadAgainstAction(entry, func(tableName, payload string) error {
		return nil
	})
	assert.NoError(t, err)
}
