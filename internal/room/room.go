// Package room derives canonical room identifiers for participant pairs.
package room

// ID names the realtime channel scoped to exactly one participant pair.
type ID string

const prefix = "room_"

// Derive computes the canonical room id for two participant ids. The pair is
// ordered lexicographically before joining, so Derive(a, b) == Derive(b, a).
// Pure and total: empty ids still produce a stable, degenerate id; callers
// that need to reject them do so before deriving.
func Derive(a, b string) ID {
	if b < a {
		a, b = b, a
	}
	return ID(prefix + a + "_" + b)
}

func (id ID) String() string { return string(id) }
