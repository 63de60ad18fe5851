package idxerr

// DuplicateKey - Custom error to inform that an insert carried a key that already exists
// in a structure enforcing unique keys
type DuplicateKey struct {
	msg string
}

// Error - Used to notify that the key already exists
func (E DuplicateKey) Error() string {
	if E.msg == "" {
		return "duplicate key"
	}
	return E.msg
}

// KeyNotFound - Custom error to inform that the target key of a search or delete is absent
type KeyNotFound struct {
	msg string
}

// Error - Used to notify that the key was not found
func (E KeyNotFound) Error() string {
	if E.msg == "" {
		return "key not found"
	}
	return E.msg
}

// SchemaMismatch - Custom error to inform that a record or value disagrees with the
// schema the structure was created with
type SchemaMismatch struct {
	msg string
}

// Error - Used to notify that record shape and schema disagree
func (E SchemaMismatch) Error() string {
	if E.msg == "" {
		return "record does not match schema"
	}
	return E.msg
}

// CapacityExceeded - Custom error to inform that a single record or key distribution
// exceeds what the configured block layout can hold. Fatal for the record, not for
// the structure.
type CapacityExceeded struct {
	msg string
}

// Error - Used to notify that block capacity was exceeded
func (E CapacityExceeded) Error() string {
	if E.msg == "" {
		return "block capacity exceeded"
	}
	return E.msg
}

// CorruptPage - Custom error to inform that a block read from disk disagrees in size
// or header contents with what the file header declares
type CorruptPage struct {
	msg string
}

// Error - Used to notify that a block failed its physical consistency check
func (E CorruptPage) Error() string {
	if E.msg == "" {
		return "corrupt page"
	}
	return E.msg
}
