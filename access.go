package depot

import "github.com/bits-and-blooms/bitset"

// Access records which ids a query reads and writes. It is generic over the
// id space so the same type serves ComponentID and ArchetypeComponentID.
type Access[I ~uint32] struct {
	readsAll       bool
	readsAndWrites bitset.BitSet
	writes         bitset.BitSet
}

func (a *Access[I]) AddRead(id I) {
	a.readsAndWrites.Set(uint(id))
}

func (a *Access[I]) AddWrite(id I) {
	a.readsAndWrites.Set(uint(id))
	a.writes.Set(uint(id))
}

func (a *Access[I]) HasRead(id I) bool {
	return a.readsAll || a.readsAndWrites.Test(uint(id))
}

func (a *Access[I]) HasWrite(id I) bool {
	return a.writes.Test(uint(id))
}

// ReadAll marks every id as read.
func (a *Access[I]) ReadAll() {
	a.readsAll = true
}

func (a *Access[I]) ReadsAll() bool { return a.readsAll }

func (a *Access[I]) Clear() {
	a.readsAll = false
	a.readsAndWrites.ClearAll()
	a.writes.ClearAll()
}

func (a *Access[I]) Extend(other *Access[I]) {
	a.readsAll = a.readsAll || other.readsAll
	a.readsAndWrites.InPlaceUnion(&other.readsAndWrites)
	a.writes.InPlaceUnion(&other.writes)
}

// IsCompatible reports whether a and other may run at the same time: neither
// writes anything the other reads or writes.
func (a *Access[I]) IsCompatible(other *Access[I]) bool {
	if a.readsAll {
		return other.writes.None()
	}
	if other.readsAll {
		return a.writes.None()
	}
	return a.writes.IntersectionCardinality(&other.readsAndWrites) == 0 &&
		other.writes.IntersectionCardinality(&a.readsAndWrites) == 0
}

// Conflicts lists the ids that make a and other incompatible.
func (a *Access[I]) Conflicts(other *Access[I]) []I {
	var conflicts bitset.BitSet
	if a.readsAll {
		conflicts.InPlaceUnion(&other.writes)
	}
	if other.readsAll {
		conflicts.InPlaceUnion(&a.writes)
	}
	conflicts.InPlaceUnion(a.writes.Intersection(&other.readsAndWrites))
	conflicts.InPlaceUnion(other.writes.Intersection(&a.readsAndWrites))
	return collectIDs[I](&conflicts)
}

// Reads lists the ids read or written, ascending.
func (a *Access[I]) Reads() []I { return collectIDs[I](&a.readsAndWrites) }

// Writes lists the ids written, ascending.
func (a *Access[I]) Writes() []I { return collectIDs[I](&a.writes) }

func collectIDs[I ~uint32](set *bitset.BitSet) []I {
	var out []I
	for i, ok := set.NextSet(0); ok; i, ok = set.NextSet(i + 1) {
		out = append(out, I(i))
	}
	return out
}
