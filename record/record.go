package record

// StateEmpty - State indicating a record slot that is or has never been in use
const StateEmpty uint8 = 0

// StateOccupied - State indicating a record slot that is in use
const StateOccupied uint8 = 1

// StateDeleted - State indicating a record slot that has been in use but was deleted.
// Deleted slots are skipped by scans and reclaimed by rebuilds.
const StateDeleted uint8 = 2

// Record - An ordered tuple of typed field values matching a schema
type Record struct {
	values []Value
}

// New - Returns a Record over the given values. The value order must match the
// field order of the schema the record will be used with.
func New(values ...Value) Record {
	return Record{values: values}
}

// Values - Returns the ordered field values
func (R Record) Values() []Value {
	return R.values
}

// Value - Returns the field value at the given position
func (R Record) Value(index int) Value {
	return R.values[index]
}

// Key - Returns the value of the schema's designated key field
func (R Record) Key(schema *Schema) Value {
	return R.values[schema.KeyIndex()]
}
