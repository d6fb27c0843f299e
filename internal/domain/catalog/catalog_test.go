package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestResolveCaseInsensitive(t *testing.T) {
	c := New(nil, DefaultSchemas()...)

	testCases := []struct {
		name      string
		tableName string
		found     bool
	}{
		{name: "exact match", tableName: "orders", found: true},
		{name: "uppercase", tableName: "ORDERS", found: true},
		{name: "mixed case with padding", tableName: "  Quotations ", found: true},
		{name: "unknown table", tableName: "invoices", found: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			schema, ok := c.Resolve(tc.tableName)
			assert.Equal(t, tc.found, ok)

			if tc.found {
				assert.NotEmpty(t, schema.TableName)
			}
		})
	}
}

func TestParseKeySingleColumn(t *testing.T) {
	c := New(nil, DefaultSchemas()...)
	schema, ok := c.Resolve("orders")
	assert.True(t, ok)

	tuple, err := c.ParseKey(schema, "ORD-1234")
	assert.NoError(t, err)
	assert.Equal(t, KeyTuple{"ORD-1234"}, tuple)
}

func TestParseKeyArityMismatch(t *testing.T) {
	c := New(nil, DefaultSchemas()...)
	schema, ok := c.Resolve("vehicles")
	assert.True(t, ok)

	_, err := c.ParseKey(schema, "one,two")

	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "vehicles", parseErr.TableName)
}

func TestParseKeyScalarConversion(t *testing.T) {
	id := uuid.New()

	schema := Schema{
		TableName: "widgets",
		PrimaryKey: []KeyColumn{
			{Name: "widget_id", Type: ScalarUUID},
			{Name: "revision", Type: ScalarInt},
		},
	}

	c := New(nil)

	tuple, err := c.ParseKey(schema, id.String()+","+"7")
	assert.NoError(t, err)
	assert.Equal(t, id, tuple[0])
	assert.Equal(t, int64(7), tuple[1])
}

func TestParseKeyScalarConversionFailure(t *testing.T) {
	schema := Schema{
		TableName:  "widgets",
		PrimaryKey: []KeyColumn{{Name: "revision", Type: ScalarInt}},
	}

	c := New(nil)

	_, err := c.ParseKey(schema, "not-a-number")
	assert.Error(t, err)
}

func TestDeserializeDropsUnknownFields(t *testing.T) {
	schema := ordersSchema()

	row, err := Deserialize(schema, `{"order_uid":"ORD-1","status":"open","ghost_field":"drop me"}`)
	assert.NoError(t, err)
	assert.Equal(t, "ORD-1", row["order_uid"])
	assert.Equal(t, "open", row["status"])
	_, present := row["ghost_field"]
	assert.False(t, present)
}

func TestSerializeRoundTrip(t *testing.T) {
	row := map[string]any{"order_uid": "ORD-1", "status": "open"}

	payload, err := Serialize(row)
	assert.NoError(t, err)

	schema := ordersSchema()
	back, err := Deserialize(schema, payload)
	assert.NoError(t, err)
	assert.Equal(t, row["order_uid"], back["order_uid"])
	assert.Equal(t, row["status"], back["status"])
}

func TestDefaultSchemasRegistersExpectedTables(t *testing.T) {
	c := New(nil, DefaultSchemas()...)

	for _, table := range []string{"orders", "quotations", "customers", "vehicles"} {
		_, ok := c.Resolve(table)
		assert.Truef(t, ok, "expected table %q to be registered", table)
	}

	_, ok := c.Resolve("photo_data")
	assert.False(t, ok, "photo_data must never be in the generic catalog")
}
