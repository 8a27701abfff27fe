package tracker

import (
	"fmt"
	"strings"

	"github.com/antzucaro/matchr"
)

// Entity is one tracked submission.
type Entity struct {
	ID   string
	Name string
}

// Registry is the immutable, ordered list of tracked entities for a run.
// Iteration order is the configured order and decides leader tie-breaks.
type Registry struct {
	entities []Entity
	index    map[string]int
}

// NewRegistry validates and freezes the given entities, ids must be non-empty and unique.
func NewRegistry(entities []Entity) (Registry, error) {
	if len(entities) == 0 {
		return Registry{}, fmt.Errorf("registry: at least one entity is required")
	}

	index := make(map[string]int, len(entities))
	frozen := make([]Entity, len(entities))
	for i, e := range entities {
		id := strings.TrimSpace(e.ID)
		if id == "" {
			return Registry{}, fmt.Errorf("registry: entity %d has an empty id", i)
		}
		if _, exists := index[id]; exists {
			return Registry{}, fmt.Errorf("registry: duplicate entity id %q", id)
		}
		name := strings.TrimSpace(e.Name)
		if name == "" {
			name = id
		}
		index[id] = i
		frozen[i] = Entity{ID: id, Name: name}
	}

	return Registry{entities: frozen, index: index}, nil
}

// Entities returns a copy of the entities in registry order.
func (r Registry) Entities() []Entity {
	out := make([]Entity, len(r.entities))
	copy(out, r.entities)
	return out
}

func (r Registry) Len() int {
	return len(r.entities)
}

func (r Registry) Get(id string) (Entity, bool) {
	i, ok := r.index[id]
	if !ok {
		return Entity{}, false
	}
	return r.entities[i], true
}

// minLookupSimilarity is the lowest Jaro-Winkler score a fuzzy name match may have.
const minLookupSimilarity = 0.7

// Lookup resolves a query to an entity, first by exact id, then by case-insensitive name,
// then by the most similar name.
func (r Registry) Lookup(query string) (Entity, bool) {
	query = strings.TrimSpace(query)
	if e, ok := r.Get(query); ok {
		return e, true
	}

	normalized := strings.ToLower(query)
	for _, e := range r.entities {
		if strings.ToLower(e.Name) == normalized {
			return e, true
		}
	}

	var best Entity
	var bestSimilarity float64
	for _, e := range r.entities {
		similarity := matchr.JaroWinkler(normalized, strings.ToLower(e.Name), false)
		if similarity > bestSimilarity {
			bestSimilarity = similarity
			best = e
		}
	}
	if bestSimilarity < minLookupSimilarity {
		return Entity{}, false
	}
	return best, true
}
