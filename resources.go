package depot

import (
	"reflect"
	"unsafe"
)

// resources holds world singletons, each in a one-row column so they share
// the component value machinery (drop hooks, change flags).
type resources struct {
	columns map[ComponentID]*Column
}

func newResources() *resources {
	return &resources{columns: make(map[ComponentID]*Column)}
}

// clear drops every resource.
func (r *resources) clear() {
	for id, col := range r.columns {
		col.clear()
		delete(r.columns, id)
	}
}

func (r *resources) clearFlags() {
	for _, col := range r.columns {
		col.clearFlags()
	}
}

func resourceID[T any](w *World) ComponentID {
	id, created := w.components.getOrInsertResource(reflect.TypeFor[T](), func() ComponentDescriptor {
		return DescriptorOf[T](StorageTable)
	})
	if created {
		w.logComponent(id)
	}
	return id
}

// InsertResource stores v as the world's T, replacing (and dropping) any
// previous value.
func InsertResource[T any](w *World, v T) {
	id := resourceID[T](w)
	if col, ok := w.resources.columns[id]; ok && col.Len() == 1 {
		col.replace(0, unsafe.Pointer(&v))
		return
	}
	col := newColumn(w.components.Info(id), 1)
	col.push(unsafe.Pointer(&v), FlagAdded)
	w.resources.columns[id] = col
}

func resourceColumn[T any](w *World) (*Column, error) {
	id, ok := w.components.resourceID(reflect.TypeFor[T]())
	if !ok {
		return nil, ResourceNotFoundError{Name: reflect.TypeFor[T]().String()}
	}
	col, ok := w.resources.columns[id]
	if !ok || col.Len() == 0 {
		return nil, ResourceNotFoundError{Name: reflect.TypeFor[T]().String()}
	}
	return col, nil
}

// Resource returns the world's T.
func Resource[T any](w *World) (*T, error) {
	col, err := resourceColumn[T](w)
	if err != nil {
		return nil, err
	}
	return (*T)(col.Get(0)), nil
}

// ResourceMut returns the world's T and flags it mutated.
func ResourceMut[T any](w *World) (*T, error) {
	col, err := resourceColumn[T](w)
	if err != nil {
		return nil, err
	}
	col.flags[0] |= FlagMutated
	return (*T)(col.Get(0)), nil
}

// ResourceFlags reports the change flags of the world's T.
func ResourceFlags[T any](w *World) (ComponentFlags, bool) {
	col, err := resourceColumn[T](w)
	if err != nil {
		return 0, false
	}
	return col.Flags(0), true
}

func HasResource[T any](w *World) bool {
	_, err := resourceColumn[T](w)
	return err == nil
}

// DropResource removes the world's T, running its drop hook.
func DropResource[T any](w *World) bool {
	col, err := resourceColumn[T](w)
	if err != nil {
		return false
	}
	return col.pop()
}

// RemoveResource takes the world's T out without dropping it.
func RemoveResource[T any](w *World) (T, bool) {
	var out T
	col, err := resourceColumn[T](w)
	if err != nil {
		return out, false
	}
	p, _ := col.swapRemoveAndForget(0)
	out = *(*T)(p)
	col.releaseScratch()
	return out, true
}
