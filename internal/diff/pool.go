package diff

import "github.com/schemadrift/schemadrift/internal/schema"

// pool holds the still-unconsumed missing entities of one category while
// a resolution is in flight. Entries are keyed by identity and removed in
// O(1); iteration order stays the insertion order so repeated runs offer
// rename options deterministically.
type pool[T schema.Entity] struct {
	order []string
	items map[string]T
}

func poolKey(e schema.Entity) string {
	return e.EntitySchema() + "\x00" + e.EntityName()
}

func newPool[T schema.Entity](missing []T) *pool[T] {
	p := &pool[T]{
		order: make([]string, 0, len(missing)),
		items: make(map[string]T, len(missing)),
	}
	for _, e := range missing {
		key := poolKey(e)
		if _, dup := p.items[key]; dup {
			continue
		}
		p.order = append(p.order, key)
		p.items[key] = e
	}
	return p
}

// remaining returns the unconsumed entities in offer order.
func (p *pool[T]) remaining() []T {
	out := make([]T, 0, len(p.items))
	for _, key := range p.order {
		if e, ok := p.items[key]; ok {
			out = append(out, e)
		}
	}
	return out
}

// remove consumes an entity permanently. Consumed entries are never
// offered again within the same resolution.
func (p *pool[T]) remove(e T) {
	delete(p.items, poolKey(e))
}
