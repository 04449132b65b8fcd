package depot

import (
	"reflect"
	"unsafe"
)

// Column is a growable, type-erased array of one component's values plus the
// per-row change flags. Backing memory is allocated as a slice of the
// component's Go type so pointers held in component values stay visible to
// the garbage collector. Rows are addressed as base + row*size.
//
// Row arguments are not bounds checked; callers own that invariant.
type Column struct {
	info  *ComponentInfo
	data  reflect.Value
	base  unsafe.Pointer
	flags []ComponentFlags
	len   int
	cap   int

	// holds the value handed out by swapRemoveAndForget until the caller
	// has copied it elsewhere
	scratch unsafe.Pointer
}

func newColumn(info *ComponentInfo, capacity int) *Column {
	c := &Column{
		info:    info,
		scratch: reflect.New(info.typ).UnsafePointer(),
	}
	if capacity > 0 {
		c.realloc(capacity)
	}
	return c
}

func (c *Column) Info() *ComponentInfo { return c.info }
func (c *Column) Len() int             { return c.len }
func (c *Column) Cap() int             { return c.cap }
func (c *Column) IsEmpty() bool        { return c.len == 0 }

// Get returns the address of row. The pointer is valid until the next
// structural change of the owning storage.
func (c *Column) Get(row int) unsafe.Pointer {
	return unsafe.Add(c.base, uintptr(row)*c.info.size)
}

// Flags returns the change flags of row.
func (c *Column) Flags(row int) ComponentFlags {
	return c.flags[row]
}

func (c *Column) realloc(capacity int) {
	data := reflect.MakeSlice(reflect.SliceOf(c.info.typ), capacity, capacity)
	if c.len > 0 {
		reflect.Copy(data, c.data.Slice(0, c.len))
	}
	flags := make([]ComponentFlags, capacity)
	copy(flags, c.flags[:c.len])

	c.data = data
	c.base = data.UnsafePointer()
	c.flags = flags
	c.cap = capacity
}

// reserve guarantees room for additional more rows.
func (c *Column) reserve(additional int) {
	need := c.len + additional
	if need <= c.cap {
		return
	}
	c.realloc(max(c.cap*2, need, 1))
}

// push appends a copy of the value at src.
func (c *Column) push(src unsafe.Pointer, flags ComponentFlags) int {
	row := c.pushUninit()
	c.info.copy(c.Get(row), src)
	c.flags[row] = flags
	return row
}

// pushUninit appends a zero-valued row the caller is expected to initialize.
func (c *Column) pushUninit() int {
	c.reserve(1)
	row := c.len
	c.len++
	c.flags[row] = 0
	return row
}

// initialize writes the first value of a freshly allocated row.
func (c *Column) initialize(row int, src unsafe.Pointer) {
	c.info.copy(c.Get(row), src)
	c.flags[row] = FlagAdded
}

// replace overwrites a live value, dropping the previous one first.
func (c *Column) replace(row int, src unsafe.Pointer) {
	dst := c.Get(row)
	if c.info.drop != nil {
		c.info.drop(dst)
	}
	c.info.copy(dst, src)
	c.flags[row] |= FlagMutated
}

// set writes src into row without dropping or touching flags.
func (c *Column) set(row int, src unsafe.Pointer, flags ComponentFlags) {
	c.info.copy(c.Get(row), src)
	c.flags[row] = flags
}

// swapRemoveAndForget moves the last row into row and returns the removed
// value without dropping it. The returned pointer stays valid until the next
// call that uses the scratch slot; call releaseScratch once it is consumed.
func (c *Column) swapRemoveAndForget(row int) (unsafe.Pointer, ComponentFlags) {
	last := c.len - 1
	removed := c.Get(row)
	flags := c.flags[row]
	c.info.copy(c.scratch, removed)
	if row != last {
		lastPtr := c.Get(last)
		c.info.copy(removed, lastPtr)
		c.flags[row] = c.flags[last]
		c.info.zero(lastPtr)
	} else {
		c.info.zero(removed)
	}
	c.flags[last] = 0
	c.len--
	return c.scratch, flags
}

func (c *Column) releaseScratch() {
	c.info.zero(c.scratch)
}

// swapRemove drops the value at row and fills the hole with the last row.
func (c *Column) swapRemove(row int) {
	last := c.len - 1
	removed := c.Get(row)
	c.info.dropValue(removed)
	if row != last {
		lastPtr := c.Get(last)
		c.info.copy(removed, lastPtr)
		c.flags[row] = c.flags[last]
		c.info.zero(lastPtr)
	}
	c.flags[last] = 0
	c.len--
}

// pop drops the last value.
func (c *Column) pop() bool {
	if c.len == 0 {
		return false
	}
	c.swapRemove(c.len - 1)
	return true
}

// clear drops every value and keeps the allocation.
func (c *Column) clear() {
	for row := 0; row < c.len; row++ {
		c.info.dropValue(c.Get(row))
		c.flags[row] = 0
	}
	c.len = 0
}

func (c *Column) clearFlags() {
	clear(c.flags[:c.len])
}
