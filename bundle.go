package depot

import (
	"fmt"
	"reflect"
	"unsafe"
)

// BundleID indexes Bundles.
type BundleID uint32

// BundleInfo is the resolved, memoized shape of a bundle: its component ids
// in bundle order and where each is stored.
type BundleInfo struct {
	id           BundleID
	componentIDs []ComponentID
	storageTypes []StorageType
}

func (b *BundleInfo) ID() BundleID                { return b.id }
func (b *BundleInfo) ComponentIDs() []ComponentID { return b.componentIDs }

func (b *BundleInfo) indexOf(id ComponentID) int {
	for i, cid := range b.componentIDs {
		if cid == id {
			return i
		}
	}
	return -1
}

// bundleKey identifies a bundle either by a static Go type (one per generic
// instantiation of the spawn helpers) or by its encoded component id list.
type bundleKey struct {
	static  reflect.Type
	dynamic string
}

// Bundles is the bundle registry of a world.
type Bundles struct {
	cache *SimpleCache[bundleKey, *BundleInfo]
}

func newBundles() *Bundles {
	return &Bundles{cache: newSimpleCache[bundleKey, *BundleInfo](0)}
}

func (bs *Bundles) Len() int { return bs.cache.Len() }

// Get returns the info of id, or nil when out of range.
func (bs *Bundles) Get(id BundleID) *BundleInfo {
	if int(id) >= bs.cache.Len() {
		return nil
	}
	return *bs.cache.GetItem(int(id))
}

func (bs *Bundles) lookup(key bundleKey) (*BundleInfo, bool) {
	idx, ok := bs.cache.GetIndex(key)
	if !ok {
		return nil, false
	}
	return *bs.cache.GetItem(idx), true
}

// initInfo returns the memoized info for key, resolving ids on first use.
// A bundle naming the same component twice is a programming error and panics.
func (bs *Bundles) initInfo(key bundleKey, ids []ComponentID, components *Components) (*BundleInfo, bool) {
	if info, ok := bs.lookup(key); ok {
		return info, false
	}
	seen := make(map[ComponentID]struct{}, len(ids))
	storage := make([]StorageType, len(ids))
	for i, id := range ids {
		if _, dup := seen[id]; dup {
			panic(fmt.Sprintf("depot: bundle contains component %s more than once", components.name(id)))
		}
		seen[id] = struct{}{}
		storage[i] = components.Info(id).storage
	}
	info := &BundleInfo{
		id:           BundleID(bs.cache.Len()),
		componentIDs: append([]ComponentID(nil), ids...),
		storageTypes: storage,
	}
	if _, err := bs.cache.Register(key, info); err != nil {
		panic(err)
	}
	return info, true
}

// DynamicBundle is a runtime-assembled bundle, used for components known only
// by ComponentID. Each value must point at memory laid out as the component's
// registered type; it is copied on spawn or insert.
type DynamicBundle struct {
	ids    []ComponentID
	values []unsafe.Pointer
	types  []reflect.Type // nil for values added through Add
}

func NewDynamicBundle() *DynamicBundle {
	return &DynamicBundle{}
}

// Add adds the value at ptr under id. ptr must point to a value of the
// component's layout type; nothing checks it.
func (b *DynamicBundle) Add(id ComponentID, value unsafe.Pointer) *DynamicBundle {
	b.ids = append(b.ids, id)
	b.values = append(b.values, value)
	b.types = append(b.types, nil)
	return b
}

// AddValue adds a Go value under id. Spawning or inserting the bundle panics
// when the value's type is not the component's layout type.
func (b *DynamicBundle) AddValue(id ComponentID, value any) *DynamicBundle {
	if value == nil {
		panic("depot: nil component value")
	}
	typ := reflect.TypeOf(value)
	rv := reflect.New(typ)
	rv.Elem().Set(reflect.ValueOf(value))
	b.ids = append(b.ids, id)
	b.values = append(b.values, rv.UnsafePointer())
	b.types = append(b.types, typ)
	return b
}

func (w *World) checkBundleTypes(b *DynamicBundle) {
	for i, typ := range b.types {
		if typ == nil {
			continue
		}
		info := w.components.Info(b.ids[i])
		if typ != info.typ {
			panic(fmt.Sprintf("depot: value of type %s for component %s of type %s", typ, info.name, info.typ))
		}
	}
}

func (b *DynamicBundle) Len() int { return len(b.ids) }

func (w *World) dynamicBundleInfo(ids []ComponentID) *BundleInfo {
	for _, id := range ids {
		if w.components.Info(id) == nil {
			panic(fmt.Sprintf("depot: unknown component id %d in bundle", id))
		}
	}
	info, created := w.bundles.initInfo(bundleKey{dynamic: componentSetKey(ids)}, ids, w.components)
	if created {
		w.logBundle(info)
	}
	return info
}

// staticBundleInfo resolves the bundle keyed by the Go type K, calling ids
// only on first use.
func staticBundleInfo[K any](w *World, ids func() []ComponentID) *BundleInfo {
	key := bundleKey{static: reflect.TypeFor[K]()}
	if info, ok := w.bundles.lookup(key); ok {
		return info
	}
	info, _ := w.bundles.initInfo(key, ids(), w.components)
	w.logBundle(info)
	return info
}

func (w *World) logBundle(info *BundleInfo) {
	w.logger.Debug().
		Uint32("bundle_id", uint32(info.id)).
		Interface("component_ids", info.componentIDs).
		Msg("bundle registered")
}

// valuesBundle resolves a bundle for arbitrary Go values, registering their
// types with table storage when unseen.
func (w *World) valuesBundle(values []any) (*BundleInfo, []unsafe.Pointer) {
	ids := make([]ComponentID, len(values))
	ptrs := make([]unsafe.Pointer, len(values))
	for i, v := range values {
		if v == nil {
			panic("depot: nil component value")
		}
		t := reflect.TypeOf(v)
		id, created := w.components.getOrInsert(t, func() ComponentDescriptor {
			return descriptorForType(t, StorageTable)
		})
		if created {
			w.logComponent(id)
		}
		ids[i] = id
		rv := reflect.New(t)
		rv.Elem().Set(reflect.ValueOf(v))
		ptrs[i] = rv.UnsafePointer()
	}
	return w.dynamicBundleInfo(ids), ptrs
}

var dropperType = reflect.TypeFor[Dropper]()

// descriptorForType builds a descriptor from a runtime type, for values that
// reach the world without a type parameter.
func descriptorForType(t reflect.Type, storage StorageType) ComponentDescriptor {
	d := ComponentDescriptor{Name: t.String(), Type: t, Storage: storage}
	if reflect.PointerTo(t).Implements(dropperType) {
		d.Drop = func(p unsafe.Pointer) {
			reflect.NewAt(t, p).Interface().(Dropper).Drop()
		}
	}
	return d
}
