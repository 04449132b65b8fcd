package depot

import (
	"fmt"
	"math"
	"sync/atomic"
)

// Entity is a generational handle. A handle stays valid until the entity is
// despawned; after that its index may be reused with a bumped generation and
// the old handle no longer resolves.
type Entity struct {
	index      uint32
	generation uint32
}

// PlaceholderEntity never resolves in any world.
var PlaceholderEntity = Entity{index: math.MaxUint32, generation: math.MaxUint32}

func NewEntity(index, generation uint32) Entity {
	return Entity{index: index, generation: generation}
}

func (e Entity) Index() uint32      { return e.index }
func (e Entity) Generation() uint32 { return e.generation }

func (e Entity) String() string {
	return fmt.Sprintf("%dv%d", e.index, e.generation)
}

// Bits packs the handle into a uint64, generation in the high half.
func (e Entity) Bits() uint64 {
	return uint64(e.generation)<<32 | uint64(e.index)
}

func EntityFromBits(bits uint64) Entity {
	return Entity{index: uint32(bits), generation: uint32(bits >> 32)}
}

// Location addresses an entity's row inside its archetype.
type Location struct {
	ArchetypeID ArchetypeID
	Index       int
}

var invalidLocation = Location{ArchetypeID: invalidArchetypeID}

type entityMeta struct {
	generation uint32
	location   Location
}

// Entities allocates handles and maps them to locations.
//
// Reserve may be called from several goroutines at once as long as nothing
// else touches the allocator; reserved handles become live on the next flush.
type Entities struct {
	meta    []entityMeta
	pending []uint32 // freed indices available for reuse
	// freeCursor counts the pending indices not yet handed out by Reserve.
	// Negative values count reservations past the end of meta.
	freeCursor atomic.Int64
	len        int
}

func newEntities(capacity int) *Entities {
	return &Entities{meta: make([]entityMeta, 0, capacity)}
}

// Reserve hands out a handle without touching storage.
func (es *Entities) Reserve() Entity {
	n := es.freeCursor.Add(-1)
	if n >= 0 {
		index := es.pending[n]
		return Entity{index: index, generation: es.meta[index].generation}
	}
	return Entity{index: uint32(int64(len(es.meta)) - n - 1)}
}

func (es *Entities) needsFlush() bool {
	return es.freeCursor.Load() != int64(len(es.pending))
}

// Alloc returns a live handle whose location must be set by the caller.
// Pending reservations must have been flushed.
func (es *Entities) Alloc() Entity {
	if es.needsFlush() {
		panic("depot: entity allocation with unflushed reservations")
	}
	es.len++
	if n := len(es.pending); n > 0 {
		index := es.pending[n-1]
		es.pending = es.pending[:n-1]
		es.freeCursor.Store(int64(len(es.pending)))
		return Entity{index: index, generation: es.meta[index].generation}
	}
	index := uint32(len(es.meta))
	es.meta = append(es.meta, entityMeta{location: invalidLocation})
	return Entity{index: index}
}

// Free releases e and returns its last location. It fails for stale or
// unknown handles. An index whose generation reaches math.MaxUint32 is never
// handed out again.
func (es *Entities) Free(e Entity) (Location, bool) {
	if es.needsFlush() {
		panic("depot: entity free with unflushed reservations")
	}
	if int(e.index) >= len(es.meta) {
		return Location{}, false
	}
	meta := &es.meta[e.index]
	if meta.generation != e.generation || meta.location == invalidLocation {
		return Location{}, false
	}
	loc := meta.location
	meta.location = invalidLocation
	es.len--
	// An exhausted index is retired: recycling it would wrap the generation
	// and revive stale handles.
	if meta.generation == math.MaxUint32 {
		return loc, true
	}
	meta.generation++
	es.pending = append(es.pending, e.index)
	es.freeCursor.Store(int64(len(es.pending)))
	return loc, true
}

// Get returns e's location when e is live.
func (es *Entities) Get(e Entity) (Location, bool) {
	if int(e.index) >= len(es.meta) {
		return Location{}, false
	}
	meta := es.meta[e.index]
	if meta.generation != e.generation || meta.location == invalidLocation {
		return Location{}, false
	}
	return meta.location, true
}

func (es *Entities) Contains(e Entity) bool {
	_, ok := es.Get(e)
	return ok
}

// Len is the number of live entities, reservations excluded.
func (es *Entities) Len() int { return es.len }

func (es *Entities) setLocation(e Entity, loc Location) {
	es.meta[e.index].location = loc
}

// flush turns every outstanding reservation into a live entity, calling init
// so the owner can place it in storage.
func (es *Entities) flush(init func(Entity, *Location)) int {
	cursor := es.freeCursor.Load()
	if cursor == int64(len(es.pending)) {
		return 0
	}
	flushed := 0
	if cursor < 0 {
		oldLen := len(es.meta)
		newLen := oldLen + int(-cursor)
		for index := oldLen; index < newLen; index++ {
			es.meta = append(es.meta, entityMeta{location: invalidLocation})
			e := Entity{index: uint32(index)}
			init(e, &es.meta[index].location)
			flushed++
		}
		cursor = 0
	}
	for _, index := range es.pending[cursor:] {
		e := Entity{index: index, generation: es.meta[index].generation}
		init(e, &es.meta[index].location)
		flushed++
	}
	es.pending = es.pending[:cursor]
	es.freeCursor.Store(cursor)
	es.len += flushed
	return flushed
}
