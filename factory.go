package depot

type factory struct{}

// Factory groups the constructors of the package.
var Factory factory

func (f factory) NewWorld(cfg Config, opts ...WorldOption) *World {
	return NewWorld(append([]WorldOption{WithConfig(cfg)}, opts...)...)
}

func (f factory) NewQueryState(w *World, terms []FetchTerm, opts ...QueryOption) *QueryState {
	return NewQueryState(w, terms, opts...)
}

func (f factory) NewCursor(state *QueryState, w *World) *Cursor {
	return state.Cursor(w, true)
}

func (f factory) NewCommands(w *World) *Commands {
	return NewCommands(w)
}

// FactoryNewComponent returns the typed handle of T in w, registering T with
// table storage on first use.
func FactoryNewComponent[T any](w *World) AccessibleComponent[T] {
	return AccessibleComponent[T]{id: ComponentIDOf[T](w)}
}

// FactoryNewSparseComponent registers T with sparse-set storage and returns
// its handle. It fails when T is already registered.
func FactoryNewSparseComponent[T any](w *World) (AccessibleComponent[T], error) {
	id, err := w.RegisterComponent(DescriptorOf[T](StorageSparseSet))
	if err != nil {
		return AccessibleComponent[T]{}, err
	}
	return AccessibleComponent[T]{id: id}, nil
}

func FactoryNewCache[K comparable, T any](cap int) Cache[K, T] {
	return newSimpleCache[K, T](cap)
}
