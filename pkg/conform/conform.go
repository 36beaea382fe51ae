// Package conform decides, per dimension, which staged members need a new SCD2 version.
//
// Conform is pure: it sees the staged members of one batch and the dimension's current
// versions, and returns instructions. Applying them is the historize package's job.
package conform

import (
	"time"

	"github.com/canopy-network/salesdw/pkg/batcherr"
	"github.com/canopy-network/salesdw/pkg/db/entities"
	"github.com/canopy-network/salesdw/pkg/db/models/warehouse"
)

// CloseOut ends the current version SurrogateKey of NaturalKey. StartDate is that version's
// start date; the close-out date may not precede it.
type CloseOut struct {
	NaturalKey   string    `json:"naturalKey"`
	SurrogateKey int64     `json:"surrogateKey"`
	StartDate    time.Time `json:"startDate"`
}

// Conflict records a natural key staged with more than one distinct attribute set. The last
// variant in input order is the one conformed; the earlier ones are dropped.
type Conflict struct {
	NaturalKey string `json:"naturalKey"`
	Variants   int    `json:"variants"`
}

// Plan is the ordered instruction set for one dimension. CloseOuts always precede Inserts
// when applied.
type Plan[T any] struct {
	Dimension entities.Dimension
	CloseOuts []CloseOut
	Inserts   []T
	Unchanged int
	Conflicts []Conflict
}

// IsEmpty reports whether applying the plan writes nothing.
func (p Plan[T]) IsEmpty() bool {
	return len(p.CloseOuts) == 0 && len(p.Inserts) == 0
}

// Distinct normalizes staged members and keeps one member per natural key: the last one in
// input order. Keys are returned in order of first appearance so that plans are stable
// across runs of the same input.
func Distinct[T any](rules Rules[T], staged []T) ([]T, []Conflict) {
	type entry struct {
		member   T
		variants []T
	}

	order := make([]string, 0, len(staged))
	byKey := make(map[string]*entry, len(staged))
	for _, m := range staged {
		m = rules.Normalize(m)
		key := rules.Key(m)
		e, ok := byKey[key]
		if !ok {
			byKey[key] = &entry{member: m, variants: []T{m}}
			order = append(order, key)
			continue
		}
		e.member = m
		seen := false
		for _, v := range e.variants {
			if rules.Equal(v, m) {
				seen = true
				break
			}
		}
		if !seen {
			e.variants = append(e.variants, m)
		}
	}

	out := make([]T, 0, len(order))
	var conflicts []Conflict
	for _, key := range order {
		e := byKey[key]
		out = append(out, e.member)
		if len(e.variants) > 1 {
			conflicts = append(conflicts, Conflict{NaturalKey: key, Variants: len(e.variants)})
		}
	}
	return out, conflicts
}

// Conform compares the distinct staged members with the current versions:
//   - no current version: insert only (brand-new entity);
//   - current version with identical normalized attributes: no write;
//   - current version that differs in any attribute: close it out and insert.
//
// A natural key with more than one current version fails with an IntegrityViolationError.
func Conform[T any](rules Rules[T], staged []T, current []warehouse.Version[T]) (Plan[T], error) {
	members, conflicts := Distinct(rules, staged)
	ix := NewCurrentIndex(rules, current)

	plan := Plan[T]{
		Dimension: rules.Dimension,
		Conflicts: conflicts,
	}
	for _, m := range members {
		key := rules.Key(m)
		versions := ix.Current(key)
		switch {
		case len(versions) > 1:
			return Plan[T]{}, &batcherr.IntegrityViolationError{
				Dimension:   rules.Dimension.String(),
				NaturalKey:  key,
				CurrentRows: len(versions),
				Reason:      "more than one current version in snapshot",
			}
		case len(versions) == 0:
			plan.Inserts = append(plan.Inserts, m)
		case rules.Equal(versions[0].Member, m):
			plan.Unchanged++
		default:
			plan.CloseOuts = append(plan.CloseOuts, CloseOut{
				NaturalKey:   key,
				SurrogateKey: versions[0].SurrogateKey,
				StartDate:    versions[0].StartDate,
			})
			plan.Inserts = append(plan.Inserts, m)
		}
	}
	return plan, nil
}
