package emit

import (
	"github.com/wolfeidau/assetgraph/internal/models"
)

// Plan assigns modules to chunks: one chunk per entry in entry order and,
// when common is non-empty and a module is reachable from two or more
// entries, a shared chunk listed first. Modules keep first-discovery order.
func Plan(g *models.Graph, common string) []*models.Chunk {
	reach := make(map[models.ModuleID]int, g.Len())
	perEntry := make([][]models.ModuleID, len(g.Entries))
	for i, e := range g.Entries {
		perEntry[i] = g.Order(e.ID)
		for _, id := range perEntry[i] {
			reach[id]++
		}
	}

	shared := make(map[models.ModuleID]bool)
	var commonChunk *models.Chunk
	if common != "" && len(g.Entries) > 1 {
		commonChunk = &models.Chunk{Name: common, Ext: "js", Kind: models.ChunkCommon}
		for _, id := range g.Order() {
			if reach[id] > 1 {
				shared[id] = true
				commonChunk.Modules = append(commonChunk.Modules, id)
			}
		}
		if len(commonChunk.Modules) == 0 {
			commonChunk = nil
		}
	}

	var chunks []*models.Chunk
	if commonChunk != nil {
		chunks = append(chunks, commonChunk)
	}

	for i, e := range g.Entries {
		c := &models.Chunk{
			Name:  e.Name,
			Ext:   "js",
			Kind:  models.ChunkEntry,
			Entry: e.ID,
		}
		usesCommon := false
		for _, id := range perEntry[i] {
			if shared[id] {
				usesCommon = true
				continue
			}
			c.Modules = append(c.Modules, id)
		}
		if usesCommon {
			c.Imports = []string{commonChunk.Name}
		}
		chunks = append(chunks, c)
	}

	return chunks
}
