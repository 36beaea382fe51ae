package conform

import "github.com/canopy-network/salesdw/pkg/db/models/warehouse"

// CurrentIndex holds the current versions of one dimension grouped by natural key.
type CurrentIndex[T any] struct {
	rules Rules[T]
	byKey map[string][]warehouse.Version[T]
}

// NewCurrentIndex indexes the versions flagged current; closed versions are ignored.
func NewCurrentIndex[T any](rules Rules[T], versions []warehouse.Version[T]) *CurrentIndex[T] {
	ix := &CurrentIndex[T]{
		rules: rules,
		byKey: make(map[string][]warehouse.Version[T], len(versions)),
	}
	for _, v := range versions {
		if !v.IsCurrent {
			continue
		}
		v.Member = rules.Normalize(v.Member)
		key := rules.Key(v.Member)
		ix.byKey[key] = append(ix.byKey[key], v)
	}
	return ix
}

// Current returns the current versions stored for a natural key. More than one means the
// dimension is corrupt.
func (ix *CurrentIndex[T]) Current(naturalKey string) []warehouse.Version[T] {
	return ix.byKey[naturalKey]
}

// Lookup returns the surrogate key of the single current version whose attributes match
// member. It reports false when the key is unknown, ambiguous, or its attributes differ.
func (ix *CurrentIndex[T]) Lookup(member T) (int64, bool) {
	member = ix.rules.Normalize(member)
	versions := ix.byKey[ix.rules.Key(member)]
	if len(versions) != 1 {
		return 0, false
	}
	if !ix.rules.Equal(versions[0].Member, member) {
		return 0, false
	}
	return versions[0].SurrogateKey, true
}

// Len returns the number of natural keys with at least one current version.
func (ix *CurrentIndex[T]) Len() int {
	return len(ix.byKey)
}
