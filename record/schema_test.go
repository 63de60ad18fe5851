package record

import (
	"errors"
	"testing"
	"time"

	"github.com/sondeo/fileindex/idxerr"
	"github.com/stretchr/testify/assert"
)

func testFields() []Field {
	return []Field{
		{Name: "id", Type: IntField},
		{Name: "name", Type: CharField, Width: 12},
		{Name: "score", Type: FloatField},
		{Name: "created", Type: DateField},
	}
}

func TestNewSchema(t *testing.T) {
	t.Run("creates a schema and derives the record width", func(t *testing.T) {
		// Execute
		schema, err := NewSchema(testFields(), "id")

		// Check
		assert.NoError(t, err, "create schema")
		assert.Equal(t, int64(1+8+12+8+8), schema.RecordWidth(), "record width includes state byte")
		assert.Equal(t, "id", schema.Key().Name, "key field resolved")
		assert.Equal(t, 0, schema.KeyIndex(), "key index resolved")
	})

	t.Run("rejects a duplicate field name", func(t *testing.T) {
		// Prepare
		fields := testFields()
		fields[1].Name = "id"

		// Execute
		_, err := NewSchema(fields, "id")

		// Check
		assert.Error(t, err, "duplicate field name rejected")
	})

	t.Run("rejects an unknown key field", func(t *testing.T) {
		// Execute
		_, err := NewSchema(testFields(), "missing")

		// Check
		assert.Error(t, err, "unknown key field rejected")
	})

	t.Run("rejects a char field without width", func(t *testing.T) {
		// Prepare
		fields := testFields()
		fields[1].Width = 0

		// Execute
		_, err := NewSchema(fields, "id")

		// Check
		assert.Error(t, err, "zero width char field rejected")
	})
}

func TestSchema_Pack(t *testing.T) {
	t.Run("packs and unpacks a record unchanged", func(t *testing.T) {
		// Prepare
		schema, err := NewSchema(testFields(), "id")
		assert.NoError(t, err, "create schema")

		created := NewDate(time.Date(2024, 5, 17, 12, 0, 0, 0, time.UTC))
		rec := New(IntValue(42), CharValue("ada"), FloatValue(3.25), created)

		// Execute
		buf, err := schema.Pack(rec, StateOccupied)
		assert.NoError(t, err, "pack record")
		got, state, err := schema.Unpack(buf)

		// Check
		assert.NoError(t, err, "unpack record")
		assert.Equal(t, StateOccupied, state, "state preserved")
		assert.Equal(t, int64(len(buf)), schema.RecordWidth(), "buffer is one record wide")
		assert.Equal(t, IntValue(42), got.Value(0), "int field preserved")
		assert.Equal(t, CharValue("ada"), got.Value(1), "char field trimmed of padding")
		assert.Equal(t, FloatValue(3.25), got.Value(2), "float field preserved")
		assert.Equal(t, created, got.Value(3), "date field preserved")
	})

	t.Run("rejects a record with the wrong shape", func(t *testing.T) {
		// Prepare
		schema, err := NewSchema(testFields(), "id")
		assert.NoError(t, err, "create schema")

		// Execute
		_, err = schema.Pack(New(IntValue(1), CharValue("x")), StateOccupied)

		// Check
		assert.True(t, errors.Is(err, idxerr.SchemaMismatch{}), "short record is a schema mismatch")
	})

	t.Run("rejects a value of the wrong kind", func(t *testing.T) {
		// Prepare
		schema, err := NewSchema(testFields(), "id")
		assert.NoError(t, err, "create schema")
		rec := New(FloatValue(1), CharValue("x"), FloatValue(2), DateValue(0))

		// Execute
		_, err = schema.Pack(rec, StateOccupied)

		// Check
		assert.True(t, errors.Is(err, idxerr.SchemaMismatch{}), "wrong kind is a schema mismatch")
	})

	t.Run("rejects a char value wider than its field", func(t *testing.T) {
		// Prepare
		schema, err := NewSchema(testFields(), "id")
		assert.NoError(t, err, "create schema")
		rec := New(IntValue(1), CharValue("a name far too long for twelve"), FloatValue(2), DateValue(0))

		// Execute
		_, err = schema.Pack(rec, StateOccupied)

		// Check
		assert.Error(t, err, "oversized char value rejected")
	})
}

func TestCompare(t *testing.T) {
	t.Run("orders values within one kind", func(t *testing.T) {
		// Execute
		intCmp, err1 := Compare(IntValue(1), IntValue(2))
		floatCmp, err2 := Compare(FloatValue(2.5), FloatValue(2.5))
		charCmp, err3 := Compare(CharValue("bob"), CharValue("ada"))
		dateCmp, err4 := Compare(DateValue(100), DateValue(200))

		// Check
		assert.NoError(t, err1, "int compare")
		assert.NoError(t, err2, "float compare")
		assert.NoError(t, err3, "char compare")
		assert.NoError(t, err4, "date compare")
		assert.Equal(t, -1, intCmp, "1 before 2")
		assert.Equal(t, 0, floatCmp, "equal floats")
		assert.Equal(t, 1, charCmp, "bob after ada")
		assert.Equal(t, -1, dateCmp, "earlier date first")
	})

	t.Run("rejects a cross kind comparison", func(t *testing.T) {
		// Execute
		_, err := Compare(IntValue(1), FloatValue(1))

		// Check
		assert.True(t, errors.Is(err, idxerr.SchemaMismatch{}), "cross kind compare is a schema mismatch")
	})

	t.Run("rejects comparing points", func(t *testing.T) {
		// Execute
		_, err := Compare(Point{X: 1, Y: 2}, Point{X: 1, Y: 2})

		// Check
		assert.True(t, errors.Is(err, idxerr.SchemaMismatch{}), "points have no order")
	})
}
