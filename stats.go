package depot

import json "github.com/goccy/go-json"

type ArchetypeStats struct {
	ID               ArchetypeID   `json:"id"`
	TableID          TableID       `json:"table_id"`
	Entities         int           `json:"entities"`
	TableComponents  []ComponentID `json:"table_components"`
	SparseComponents []ComponentID `json:"sparse_components"`
}

type TableStats struct {
	ID      TableID `json:"id"`
	Rows    int     `json:"rows"`
	Columns int     `json:"columns"`
}

type ComponentStats struct {
	ID      ComponentID `json:"id"`
	Name    string      `json:"name"`
	Storage string      `json:"storage"`
	Size    uintptr     `json:"size"`
}

// WorldStats is a point-in-time summary of a world's storage layout.
type WorldStats struct {
	Entities   int              `json:"entities"`
	Bundles    int              `json:"bundles"`
	Components []ComponentStats `json:"components"`
	Archetypes []ArchetypeStats `json:"archetypes"`
	Tables     []TableStats     `json:"tables"`
}

func (w *World) Stats() WorldStats {
	stats := WorldStats{
		Entities: w.entities.Len(),
		Bundles:  w.bundles.Len(),
	}
	for _, info := range w.components.infos {
		stats.Components = append(stats.Components, ComponentStats{
			ID:      info.id,
			Name:    info.name,
			Storage: info.storage.String(),
			Size:    info.size,
		})
	}
	for _, a := range w.archetypes.archetypes {
		stats.Archetypes = append(stats.Archetypes, ArchetypeStats{
			ID:               a.id,
			TableID:          a.tableID,
			Entities:         a.Len(),
			TableComponents:  a.tableComponents,
			SparseComponents: a.sparseSetComponents,
		})
	}
	for _, t := range w.tables.tables {
		stats.Tables = append(stats.Tables, TableStats{
			ID:      t.id,
			Rows:    t.Len(),
			Columns: len(t.columns),
		})
	}
	return stats
}

func (s WorldStats) JSON() ([]byte, error) {
	return json.Marshal(s)
}
