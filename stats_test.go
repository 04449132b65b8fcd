package depot

import (
	"testing"

	json "github.com/goccy/go-json"
	"gotest.tools/v3/assert"
)

func TestWorldStats(t *testing.T) {
	w := NewWorld()
	_, err := FactoryNewSparseComponent[Marker](w)
	assert.NilError(t, err)
	w.Spawn(Position{}, Velocity{})
	w.Spawn(Position{}, Marker{})

	stats := w.Stats()
	assert.Equal(t, stats.Entities, 2)
	assert.Equal(t, len(stats.Components), 3)
	assert.Equal(t, len(stats.Archetypes), w.Archetypes().Len())
	assert.Equal(t, len(stats.Tables), w.Tables().Len())

	raw, err := stats.JSON()
	assert.NilError(t, err)
	var decoded WorldStats
	assert.NilError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, decoded.Entities, 2)
	assert.Equal(t, decoded.Components[0].Storage, StorageSparseSet.String())
}
