package record

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/sondeo/fileindex/idxerr"
)

// stateBytes - Number of bytes used for the record state flag, it is prepended to
// each record when written to disk
const stateBytes int64 = 1

// Field - One column of a schema.
//   - Name is the field name, unique within the schema
//   - Type is one of the closed set of field types
//   - Width is the serialized width in bytes, only used for CharField where it gives
//     the fixed text length; all other types have an implied width
type Field struct {
	Name  string
	Type  FieldType
	Width int64
}

// SerializedWidth - Returns the on-disk width in bytes of a value of this field
func (F Field) SerializedWidth() int64 {
	switch F.Type {
	case IntField, FloatField, DateField:
		return 8
	case PointField:
		return 16
	default:
		return F.Width
	}
}

// PackValue - Serializes a single value of this field into a fixed width byte slice
//   - value is the value to serialize, its kind must match the field type
//
// It returns:
//   - buf is a byte slice of exactly SerializedWidth bytes
//   - err is a SchemaMismatch if the value kind disagrees with the field type
func (F Field) PackValue(value Value) (buf []byte, err error) {
	if value == nil || value.Kind() != F.Type {
		err = idxerr.SchemaMismatch{}
		return
	}

	buf = make([]byte, F.SerializedWidth())

	switch v := value.(type) {
	case IntValue:
		binary.LittleEndian.PutUint64(buf, uint64(v))
	case FloatValue:
		binary.LittleEndian.PutUint64(buf, math.Float64bits(float64(v)))
	case DateValue:
		binary.LittleEndian.PutUint64(buf, uint64(v))
	case CharValue:
		if int64(len(v)) > F.Width {
			err = idxerr.SchemaMismatch{}
			return
		}
		copy(buf, v)
	case Point:
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v.X))
		binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(v.Y))
	}

	return
}

// UnpackValue - Deserializes a single value of this field from a fixed width byte slice
func (F Field) UnpackValue(buf []byte) Value {
	switch F.Type {
	case IntField:
		return IntValue(binary.LittleEndian.Uint64(buf))
	case FloatField:
		return FloatValue(math.Float64frombits(binary.LittleEndian.Uint64(buf)))
	case DateField:
		return DateValue(binary.LittleEndian.Uint64(buf))
	case PointField:
		return Point{
			X: math.Float64frombits(binary.LittleEndian.Uint64(buf)),
			Y: math.Float64frombits(binary.LittleEndian.Uint64(buf[8:])),
		}
	default:
		return CharValue(strings.TrimRight(string(buf[:F.Width]), "\x00"))
	}
}

// Schema - An ordered list of typed fields with exactly one designated key field.
// The serialized record width is fixed and derived from the fields at creation time.
type Schema struct {
	fields []Field
	byName map[string]int
	key    int
	width  int64
}

// NewSchema - Returns a new Schema over the given fields.
//   - fields is the ordered field list, names must be unique and CharField widths positive
//   - keyField is the name of the designated key field, it must exist and must be of an
//     ordered type (a point can not be a key)
func NewSchema(fields []Field, keyField string) (schema *Schema, err error) {
	if len(fields) == 0 {
		err = fmt.Errorf("schema must have at least one field")
		return
	}

	byName := make(map[string]int, len(fields))
	width := stateBytes
	for i, f := range fields {
		if f.Name == "" {
			err = fmt.Errorf("field %d has an empty name", i)
			return
		}
		if _, ok := byName[f.Name]; ok {
			err = fmt.Errorf("duplicate field name: %s", f.Name)
			return
		}
		if f.Type == CharField && f.Width <= 0 {
			err = fmt.Errorf("char field %s must have a positive width", f.Name)
			return
		}
		byName[f.Name] = i
		width += f.SerializedWidth()
	}

	key, ok := byName[keyField]
	if !ok {
		err = fmt.Errorf("key field %s does not exist in schema", keyField)
		return
	}
	if fields[key].Type == PointField {
		err = fmt.Errorf("key field %s must be of an ordered type", keyField)
		return
	}

	schema = &Schema{fields: fields, byName: byName, key: key, width: width}

	return
}

// Fields - Returns the ordered field list
func (S *Schema) Fields() []Field {
	return S.fields
}

// FieldIndex - Returns the position of the named field and whether it exists
func (S *Schema) FieldIndex(name string) (index int, ok bool) {
	index, ok = S.byName[name]
	return
}

// Key - Returns the designated key field
func (S *Schema) Key() Field {
	return S.fields[S.key]
}

// KeyIndex - Returns the position of the designated key field
func (S *Schema) KeyIndex() int {
	return S.key
}

// RecordWidth - Returns the fixed serialized record width in bytes, including the
// one byte state flag
func (S *Schema) RecordWidth() int64 {
	return S.width
}

// CheckShape - Verifies that the record carries exactly one value per schema field.
// Value kinds are checked field by field when the record is packed; this guards the
// positional accessors, which must never be reached with a short record.
func (S *Schema) CheckShape(rec Record) error {
	if len(rec.values) != len(S.fields) {
		return idxerr.SchemaMismatch{}
	}

	return nil
}

// Pack - Serializes a record into a fixed width byte slice with the given state flag
// in its first byte. A record whose shape disagrees with the schema yields a
// SchemaMismatch error.
func (S *Schema) Pack(rec Record, state uint8) (buf []byte, err error) {
	if err = S.CheckShape(rec); err != nil {
		return
	}

	buf = make([]byte, 0, S.width)
	buf = append(buf, state)
	for i, f := range S.fields {
		var fieldBuf []byte
		fieldBuf, err = f.PackValue(rec.values[i])
		if err != nil {
			buf = nil
			return
		}
		buf = append(buf, fieldBuf...)
	}

	return
}

// Unpack - Deserializes a record and its state flag from a fixed width byte slice
func (S *Schema) Unpack(buf []byte) (rec Record, state uint8, err error) {
	if int64(len(buf)) != S.width {
		err = idxerr.SchemaMismatch{}
		return
	}

	state = buf[0]
	offset := stateBytes
	values := make([]Value, len(S.fields))
	for i, f := range S.fields {
		w := f.SerializedWidth()
		values[i] = f.UnpackValue(buf[offset : offset+w])
		offset += w
	}
	rec = Record{values: values}

	return
}
