package loader

import (
	"sort"

	"github.com/crimson-sun/helpful/internal/model"
)

// sortedKeys gives a stable column order for fields first seen on the same
// line, since JSON object key order is lost on decode.
func sortedKeys(rec model.RawRecord) []string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
