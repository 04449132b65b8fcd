package depot

type Position struct {
	X, Y float64
}

type Velocity struct {
	X, Y float64
}

type Health struct {
	Value int
}

type Name struct {
	Value string
}

type Marker struct{}

// Handle records its id in drops when the world destroys it.
type Handle struct {
	ID    int
	drops *[]int
}

func (h *Handle) Drop() {
	if h.drops != nil {
		*h.drops = append(*h.drops, h.ID)
	}
}
