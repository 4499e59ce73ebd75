// Package idgen generates the identifiers notamwatch assigns itself: run
// ids in the ledger and the like. NOTAM identifiers come from the source and
// never pass through here.
package idgen

import "github.com/google/uuid"

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator of RFC 9562 v7 UUIDs, which sort by creation time.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed prepends prefix to every id from gen, e.g. "run_".
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// RunID generates pipeline run identifiers.
var RunID Generator = Prefixed("run_", UUIDv7())
