package depot

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/rotisserie/eris"
)

// ComponentID is the dense index a World assigns to every registered
// component (and resource) type, starting at 0.
type ComponentID uint32

// MaxComponents bounds the component ids a World can hand out. Archetype
// signatures are held in a fixed-width mask.
const MaxComponents = 256

// StorageType selects where the values of a component live.
type StorageType uint8

const (
	// StorageTable keeps values in the dense columns of the archetype's table.
	StorageTable StorageType = iota
	// StorageSparseSet keeps values in a per-component sparse set keyed by entity.
	StorageSparseSet
)

func (s StorageType) String() string {
	switch s {
	case StorageTable:
		return "table"
	case StorageSparseSet:
		return "sparse_set"
	}
	return fmt.Sprintf("StorageType(%d)", uint8(s))
}

// ComponentFlags record per-value change state. They are cleared by
// (*World).ClearTrackers.
type ComponentFlags uint8

const (
	FlagAdded ComponentFlags = 1 << iota
	FlagMutated
)

// ComponentDescriptor describes a component type before registration.
type ComponentDescriptor struct {
	Name    string
	Type    reflect.Type
	Storage StorageType
	// Drop runs before a value is destroyed. Optional.
	Drop func(unsafe.Pointer)

	dynamic bool
	copy    func(dst, src unsafe.Pointer)
	zero    func(p unsafe.Pointer)
}

// DescriptorOf builds the descriptor of a Go type. Components whose pointer
// implements Dropper get their Drop hook wired automatically.
func DescriptorOf[T any](storage StorageType) ComponentDescriptor {
	t := reflect.TypeFor[T]()
	d := ComponentDescriptor{
		Name:    t.String(),
		Type:    t,
		Storage: storage,
		copy:    copyTyped[T],
		zero:    zeroTyped[T],
	}
	if _, ok := any((*T)(nil)).(Dropper); ok {
		d.Drop = dropTyped[T]
	}
	return d
}

// DynamicDescriptor builds a descriptor that is not tied to Go type identity.
// Several dynamic components may share one layout type; each registration
// yields a fresh ComponentID.
func DynamicDescriptor(name string, layout reflect.Type, storage StorageType) ComponentDescriptor {
	return ComponentDescriptor{
		Name:    name,
		Type:    layout,
		Storage: storage,
		dynamic: true,
	}
}

func copyTyped[T any](dst, src unsafe.Pointer) { *(*T)(dst) = *(*T)(src) }

func zeroTyped[T any](p unsafe.Pointer) {
	var zero T
	*(*T)(p) = zero
}

func dropTyped[T any](p unsafe.Pointer) { any((*T)(p)).(Dropper).Drop() }

// ComponentInfo is the registered, immutable view of a component type.
type ComponentInfo struct {
	id      ComponentID
	name    string
	typ     reflect.Type
	size    uintptr
	align   uintptr
	storage StorageType
	drop    func(unsafe.Pointer)
	copy    func(dst, src unsafe.Pointer)
	zero    func(p unsafe.Pointer)
}

func newComponentInfo(id ComponentID, d ComponentDescriptor) *ComponentInfo {
	info := &ComponentInfo{
		id:      id,
		name:    d.Name,
		typ:     d.Type,
		size:    d.Type.Size(),
		align:   uintptr(d.Type.Align()),
		storage: d.Storage,
		drop:    d.Drop,
		copy:    d.copy,
		zero:    d.zero,
	}
	if info.name == "" {
		info.name = d.Type.String()
	}
	typ := d.Type
	if info.copy == nil {
		info.copy = func(dst, src unsafe.Pointer) {
			reflect.NewAt(typ, dst).Elem().Set(reflect.NewAt(typ, src).Elem())
		}
	}
	if info.zero == nil {
		info.zero = func(p unsafe.Pointer) {
			reflect.NewAt(typ, p).Elem().SetZero()
		}
	}
	return info
}

func (info *ComponentInfo) ID() ComponentID          { return info.id }
func (info *ComponentInfo) Name() string             { return info.name }
func (info *ComponentInfo) Type() reflect.Type       { return info.typ }
func (info *ComponentInfo) Size() uintptr            { return info.size }
func (info *ComponentInfo) Align() uintptr           { return info.align }
func (info *ComponentInfo) StorageType() StorageType { return info.storage }

// dropValue runs the drop hook, if any, and zeroes the slot so the value no
// longer keeps anything reachable.
func (info *ComponentInfo) dropValue(p unsafe.Pointer) {
	if info.drop != nil {
		info.drop(p)
	}
	info.zero(p)
}

// Components is the per-world registry of component and resource types.
type Components struct {
	infos           []*ComponentInfo
	indices         map[reflect.Type]ComponentID
	resourceIndices map[reflect.Type]ComponentID
}

func newComponents() *Components {
	return &Components{
		indices:         make(map[reflect.Type]ComponentID),
		resourceIndices: make(map[reflect.Type]ComponentID),
	}
}

func (c *Components) add(d ComponentDescriptor) (ComponentID, error) {
	if d.Type == nil {
		return 0, eris.Wrapf(ErrInvalidDescriptor, "component %q has no layout type", d.Name)
	}
	if !d.dynamic {
		if _, ok := c.indices[d.Type]; ok {
			return 0, ComponentExistsError{Name: d.Type.String()}
		}
	}
	id := c.push(d)
	if !d.dynamic {
		c.indices[d.Type] = id
	}
	return id, nil
}

func (c *Components) push(d ComponentDescriptor) ComponentID {
	if len(c.infos) >= MaxComponents {
		panic(fmt.Sprintf("depot: cannot register %s, world already holds %d component ids", d.Name, MaxComponents))
	}
	id := ComponentID(len(c.infos))
	c.infos = append(c.infos, newComponentInfo(id, d))
	return id
}

func (c *Components) getOrInsert(t reflect.Type, describe func() ComponentDescriptor) (ComponentID, bool) {
	if id, ok := c.indices[t]; ok {
		return id, false
	}
	id := c.push(describe())
	c.indices[t] = id
	return id, true
}

func (c *Components) getOrInsertResource(t reflect.Type, describe func() ComponentDescriptor) (ComponentID, bool) {
	if id, ok := c.resourceIndices[t]; ok {
		return id, false
	}
	id := c.push(describe())
	c.resourceIndices[t] = id
	return id, true
}

// ID returns the component id registered for a Go type.
func (c *Components) ID(t reflect.Type) (ComponentID, bool) {
	id, ok := c.indices[t]
	return id, ok
}

func (c *Components) resourceID(t reflect.Type) (ComponentID, bool) {
	id, ok := c.resourceIndices[t]
	return id, ok
}

// Info returns the registered metadata of id, or nil when id is unknown.
func (c *Components) Info(id ComponentID) *ComponentInfo {
	if int(id) >= len(c.infos) {
		return nil
	}
	return c.infos[id]
}

func (c *Components) Len() int { return len(c.infos) }

func (c *Components) name(id ComponentID) string {
	if info := c.Info(id); info != nil {
		return info.name
	}
	return fmt.Sprintf("ComponentID(%d)", id)
}
