package depot

import (
	"testing"
	"unsafe"

	"gotest.tools/v3/assert"
)

func TestComponentSparseSet(t *testing.T) {
	var drops []int
	info := newComponentInfo(0, DescriptorOf[Handle](StorageSparseSet))
	set := newComponentSparseSet(info, 0)

	entities := []Entity{NewEntity(4, 0), NewEntity(1, 2), NewEntity(9, 0)}
	for i, e := range entities {
		h := Handle{ID: i, drops: &drops}
		set.insert(e, unsafe.Pointer(&h))
	}
	assert.Equal(t, set.Len(), 3)
	assert.Assert(t, !set.Contains(NewEntity(1, 1)), "stale generation must not resolve")

	flags, ok := set.flags(entities[1])
	assert.Assert(t, ok)
	assert.Equal(t, flags, FlagAdded)

	assert.Assert(t, set.remove(entities[0]))
	assert.DeepEqual(t, drops, []int{0})
	assert.Assert(t, !set.Contains(entities[0]))
	// The last entity was moved into the hole.
	assert.Equal(t, (*Handle)(set.Get(entities[2])).ID, 2)

	p, ok := set.removeAndForget(entities[1])
	assert.Assert(t, ok)
	assert.Equal(t, (*Handle)(p).ID, 1)
	set.releaseScratch()
	assert.DeepEqual(t, drops, []int{0})
	assert.Equal(t, set.Len(), 1)

	assert.Assert(t, !set.remove(entities[1]))
	assert.Assert(t, set.fetch(entities[1], true) == nil)
}

func TestSparseSetFetchFlagsWrites(t *testing.T) {
	info := newComponentInfo(0, DescriptorOf[Health](StorageSparseSet))
	set := newComponentSparseSet(info, 2)
	e := NewEntity(0, 0)
	h := Health{Value: 1}
	set.insert(e, unsafe.Pointer(&h))
	set.clearFlags()

	set.fetch(e, false)
	flags, _ := set.flags(e)
	assert.Equal(t, flags, ComponentFlags(0))

	(*Health)(set.fetch(e, true)).Value = 5
	flags, _ = set.flags(e)
	assert.Equal(t, flags, FlagMutated)
	assert.Equal(t, (*Health)(set.Get(e)).Value, 5)

	h.Value = 6
	set.insert(e, unsafe.Pointer(&h))
	assert.Equal(t, set.Len(), 1)
	assert.Equal(t, (*Health)(set.Get(e)).Value, 6)
}
