package depot

import (
	"reflect"
	"slices"
	"unsafe"
)

// EntityRef is a convenience view of one entity. It resolves the entity's
// location on every call, so it stays usable across structural changes.
type EntityRef struct {
	world  *World
	entity Entity
}

// Entity returns a reference to e, or NoSuchEntityError.
func (w *World) Entity(e Entity) (EntityRef, error) {
	if !w.entities.Contains(e) {
		return EntityRef{}, NoSuchEntityError{Entity: e}
	}
	return EntityRef{world: w, entity: e}, nil
}

func (r EntityRef) ID() Entity { return r.entity }

func (r EntityRef) Valid() bool {
	return r.world != nil && r.world.entities.Contains(r.entity)
}

// Location returns the entity's location; ok is false once it is despawned.
func (r EntityRef) Location() (Location, bool) {
	return r.world.entities.Get(r.entity)
}

func (r EntityRef) Archetype() *Archetype {
	loc, ok := r.Location()
	if !ok {
		return nil
	}
	return r.world.archetypes.get(loc.ArchetypeID)
}

func (r EntityRef) Has(id ComponentID) bool {
	a := r.Archetype()
	return a != nil && a.Contains(id)
}

// Components lists the entity's component ids, ascending.
func (r EntityRef) Components() []ComponentID {
	a := r.Archetype()
	if a == nil {
		return nil
	}
	ids := make([]ComponentID, 0, len(a.tableComponents)+len(a.sparseSetComponents))
	ids = append(ids, a.tableComponents...)
	ids = append(ids, a.sparseSetComponents...)
	slices.Sort(ids)
	return ids
}

// Get returns the address of the entity's value of id without flagging it.
func (r EntityRef) Get(id ComponentID) (unsafe.Pointer, error) {
	p, _, err := r.world.componentPtr(r.entity, id)
	return p, err
}

func (r EntityRef) Insert(values ...any) error {
	return r.world.Insert(r.entity, values...)
}

func (r EntityRef) Remove(ids ...ComponentID) error {
	return r.world.RemoveIDs(r.entity, ids...)
}

func (r EntityRef) Despawn() error {
	return r.world.Despawn(r.entity)
}

func (w *World) componentPtr(e Entity, id ComponentID) (unsafe.Pointer, *ComponentFlags, error) {
	loc, ok := w.entities.Get(e)
	if !ok {
		return nil, nil, NoSuchEntityError{Entity: e}
	}
	p, flags := w.fetchComponent(loc, e, id)
	if p == nil {
		return nil, nil, MissingComponentError{Entity: e, Component: w.components.name(id)}
	}
	return p, flags, nil
}

func typedComponentPtr[T any](w *World, e Entity) (unsafe.Pointer, *ComponentFlags, error) {
	id, ok := w.components.ID(reflect.TypeFor[T]())
	if !ok {
		if !w.entities.Contains(e) {
			return nil, nil, NoSuchEntityError{Entity: e}
		}
		return nil, nil, MissingComponentError{Entity: e, Component: reflect.TypeFor[T]().String()}
	}
	return w.componentPtr(e, id)
}

// Get returns e's T. The pointer is valid until the next structural change.
func Get[T any](w *World, e Entity) (*T, error) {
	p, _, err := typedComponentPtr[T](w, e)
	if err != nil {
		return nil, err
	}
	return (*T)(p), nil
}

// GetMut is Get that flags the value mutated.
func GetMut[T any](w *World, e Entity) (*T, error) {
	p, flags, err := typedComponentPtr[T](w, e)
	if err != nil {
		return nil, err
	}
	*flags |= FlagMutated
	return (*T)(p), nil
}

// Has reports whether e is live and has T.
func Has[T any](w *World, e Entity) bool {
	_, _, err := typedComponentPtr[T](w, e)
	return err == nil
}
