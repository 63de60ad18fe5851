package record

import (
	"strings"
	"time"

	"github.com/sondeo/fileindex/idxerr"
)

// FieldType - The closed set of field types a schema may use. Every type has a fixed
// serialized width, chosen at schema creation time.
type FieldType int

const (
	IntField FieldType = iota
	FloatField
	CharField
	DateField
	PointField
)

// String - Returns a printable name for the field type
func (T FieldType) String() string {
	switch T {
	case IntField:
		return "INT"
	case FloatField:
		return "FLOAT"
	case CharField:
		return "CHAR"
	case DateField:
		return "DATE"
	case PointField:
		return "POINT"
	default:
		return "UNKNOWN"
	}
}

// Value - A single typed field value. Concrete implementations are IntValue, FloatValue,
// CharValue, DateValue and Point.
type Value interface {
	Kind() FieldType
}

// IntValue - A 64 bit signed integer field value
type IntValue int64

// Kind - Returns IntField
func (V IntValue) Kind() FieldType { return IntField }

// FloatValue - A 64 bit floating point field value
type FloatValue float64

// Kind - Returns FloatField
func (V FloatValue) Kind() FieldType { return FloatField }

// CharValue - A fixed width text field value. On disk it is NUL padded to the
// field width and trailing padding is stripped when read back.
type CharValue string

// Kind - Returns CharField
func (V CharValue) Kind() FieldType { return CharField }

// DateValue - A date field value stored as Unix seconds
type DateValue int64

// Kind - Returns DateField
func (V DateValue) Kind() FieldType { return DateField }

// NewDate - Returns a DateValue for the given time
func NewDate(t time.Time) DateValue {
	return DateValue(t.Unix())
}

// Time - Returns the DateValue as a time.Time in UTC
func (V DateValue) Time() time.Time {
	return time.Unix(int64(V), 0).UTC()
}

// Point - A two dimensional point field value, used as the spatial key of an R-Tree
type Point struct {
	X float64
	Y float64
}

// Kind - Returns PointField
func (P Point) Kind() FieldType { return PointField }

// Compare - Compares two values of the same kind and returns -1, 0 or 1.
// Values of different kinds, or of a kind with no total order (points), yield a
// SchemaMismatch error.
func Compare(a, b Value) (cmp int, err error) {
	if a == nil || b == nil || a.Kind() != b.Kind() {
		err = idxerr.SchemaMismatch{}
		return
	}

	switch va := a.(type) {
	case IntValue:
		cmp = compareOrdered(int64(va), int64(b.(IntValue)))
	case FloatValue:
		cmp = compareOrdered(float64(va), float64(b.(FloatValue)))
	case CharValue:
		cmp = strings.Compare(string(va), string(b.(CharValue)))
	case DateValue:
		cmp = compareOrdered(int64(va), int64(b.(DateValue)))
	default:
		err = idxerr.SchemaMismatch{}
	}

	return
}

func compareOrdered[T int64 | float64](a, b T) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}
