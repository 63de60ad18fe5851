package utils

import (
	"sort"

	"github.com/sondeo/fileindex/record"
)

// SortByKey - Sorts records ascending by the schema's designated key field.
// All records are assumed to stem from the same schema, so key kinds agree.
func SortByKey(schema *record.Schema, records []record.Record) {
	sort.Slice(records, func(i, j int) bool {
		cmp, _ := record.Compare(records[i].Key(schema), records[j].Key(schema))
		return cmp < 0
	})
}

// IsSortedByKey - Returns true if the records are in strictly ascending key order
func IsSortedByKey(schema *record.Schema, records []record.Record) bool {
	for i := 1; i < len(records); i++ {
		cmp, err := record.Compare(records[i-1].Key(schema), records[i].Key(schema))
		if err != nil || cmp >= 0 {
			return false
		}
	}

	return true
}
