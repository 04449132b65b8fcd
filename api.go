package depot

import "iter"

// Dropper is implemented (on the pointer receiver) by components that must
// release something when their value is destroyed by the world.
type Dropper interface {
	Drop()
}

// QueryOption configures a query: filters and the fetch modes of typed queries.
type QueryOption interface {
	applyQuery(cfg *queryConfig)
}

// Filter narrows the entities a query visits without fetching data. Filters
// are descriptions: each query binds its own state, so one Filter value may
// be shared by many queries.
type Filter interface {
	QueryOption
	bind(w *World) filterState
}

// Querier is implemented by every typed query.
type Querier interface {
	State() *QueryState
	Count(w *World) int
}

// Cache interns items under a key and hands out their dense index.
type Cache[K comparable, T any] interface {
	GetIndex(K) (int, bool)
	GetItem(int) *T
	Register(K, T) (int, error)
	Len() int
}

type iCursor interface {
	Entities() iter.Seq2[int, Entity]
	Next() bool
	Reset()
}

var (
	_ iCursor            = &Cursor{}
	_ Cache[string, any] = &SimpleCache[string, any]{}
	_ Querier            = &Query1[struct{}]{}
	_ Querier            = &Query2[struct{}, struct{}]{}
	_ Querier            = &Query3[struct{}, struct{}, struct{}]{}
	_ Querier            = &Query4[struct{}, struct{}, struct{}, struct{}]{}
	_ Filter             = &componentFilter{}
	_ Filter             = &compositeFilter{}
	_ filterState        = &notState{}
	_ QueryOption        = modesOption{}
)

// Compatible reports whether the given queries can iterate at the same time,
// comparing their declared component access pairwise.
func Compatible(queries ...Querier) bool {
	for i, a := range queries {
		for _, b := range queries[i+1:] {
			if !a.State().IsCompatible(b.State()) {
				return false
			}
		}
	}
	return true
}
