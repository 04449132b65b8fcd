package depot

// AccessibleComponent is a typed handle on a registered component. It builds
// fetch terms for type-erased queries and reads values back from a Cursor or
// an entity.
type AccessibleComponent[T any] struct {
	id ComponentID
}

func (c AccessibleComponent[T]) ID() ComponentID { return c.id }

func (c AccessibleComponent[T]) Read() FetchTerm   { return FetchTerm{ID: c.id, Mode: Read} }
func (c AccessibleComponent[T]) Write() FetchTerm  { return FetchTerm{ID: c.id, Mode: Write} }
func (c AccessibleComponent[T]) Opt() FetchTerm    { return FetchTerm{ID: c.id, Mode: Opt} }
func (c AccessibleComponent[T]) OptMut() FetchTerm { return FetchTerm{ID: c.id, Mode: OptMut} }

// With and Without build filters on this component.
func (c AccessibleComponent[T]) With() Filter    { return WithID(c.id) }
func (c AccessibleComponent[T]) Without() Filter { return WithoutID(c.id) }

// GetFromCursor retrieves the component of the entity at the cursor position.
// It returns nil for an optional term the entity lacks.
func (c AccessibleComponent[T]) GetFromCursor(cursor *Cursor) *T {
	return (*T)(cursor.fetch(c.id))
}

// GetFromCursorSafe retrieves the component, reporting whether the entity at
// the cursor has it.
func (c AccessibleComponent[T]) GetFromCursorSafe(cursor *Cursor) (bool, *T) {
	if !cursor.has(c.id) {
		return false, nil
	}
	return true, c.GetFromCursor(cursor)
}

// CheckCursor determines if the entity at the cursor has the component.
func (c AccessibleComponent[T]) CheckCursor(cursor *Cursor) bool {
	return cursor.has(c.id)
}

// GetFromEntity retrieves the component of e without flagging it.
func (c AccessibleComponent[T]) GetFromEntity(w *World, e Entity) (*T, error) {
	p, _, err := w.componentPtr(e, c.id)
	if err != nil {
		return nil, err
	}
	return (*T)(p), nil
}
