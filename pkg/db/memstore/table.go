package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/canopy-network/salesdw/pkg/conform"
	models "github.com/canopy-network/salesdw/pkg/db/models/warehouse"
	"github.com/canopy-network/salesdw/pkg/historize"
)

// Table is an in-memory SCD2 dimension table. It implements historize.Tx directly; Historize
// runs the calls against a copy and swaps it in only when the whole plan applied.
type Table[T any] struct {
	mu      sync.Mutex
	rules   conform.Rules[T]
	rows    []models.Version[T]
	nextKey int64
}

var _ historize.Tx[models.Product] = (*Table[models.Product])(nil)

// NewTable returns an empty table whose first surrogate key is 1.
func NewTable[T any](rules conform.Rules[T]) *Table[T] {
	return &Table[T]{rules: rules, nextKey: 1}
}

// Put stores a version as is, bypassing every invariant. Tests use it to seed corrupt state.
func (t *Table[T]) Put(v models.Version[T]) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = append(t.rows, v)
	if v.SurrogateKey >= t.nextKey {
		t.nextKey = v.SurrogateKey + 1
	}
}

// Versions returns a copy of every stored version in insertion order.
func (t *Table[T]) Versions() []models.Version[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]models.Version[T](nil), t.rows...)
}

// Current returns a copy of the versions flagged current.
func (t *Table[T]) Current() []models.Version[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []models.Version[T]
	for _, v := range t.rows {
		if v.IsCurrent {
			out = append(out, v)
		}
	}
	return out
}

// Historize plans staged against the current versions and applies the plan atomically.
func (t *Table[T]) Historize(ctx context.Context, staged []T, today time.Time) (historize.Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	work := &Table[T]{rules: t.rules, rows: append([]models.Version[T](nil), t.rows...), nextKey: t.nextKey}

	var current []models.Version[T]
	for _, v := range work.rows {
		if v.IsCurrent {
			current = append(current, v)
		}
	}
	plan, err := conform.Conform(t.rules, staged, current)
	if err != nil {
		return historize.Result{}, err
	}
	res, err := historize.Apply(ctx, work, plan, today)
	if err != nil {
		return historize.Result{}, err
	}

	t.rows, t.nextKey = work.rows, work.nextKey
	return res, nil
}

// The historize.Tx methods below expect the caller to hold the table exclusively, either
// through Historize or by owning the table in a test.

func (t *Table[T]) CountCurrent(_ context.Context, naturalKey string) (int, error) {
	n := 0
	for _, v := range t.rows {
		if v.IsCurrent && t.rules.Key(t.rules.Normalize(v.Member)) == naturalKey {
			n++
		}
	}
	return n, nil
}

func (t *Table[T]) CloseCurrent(_ context.Context, surrogateKey int64, endDate time.Time) (bool, error) {
	for i := range t.rows {
		if t.rows[i].SurrogateKey == surrogateKey && t.rows[i].IsCurrent {
			t.rows[i].EndDate = endDate
			t.rows[i].IsCurrent = false
			return true, nil
		}
	}
	return false, nil
}

func (t *Table[T]) VersionExists(_ context.Context, surrogateKey int64) (bool, error) {
	for _, v := range t.rows {
		if v.SurrogateKey == surrogateKey {
			return true, nil
		}
	}
	return false, nil
}

func (t *Table[T]) InsertVersion(_ context.Context, member T, startDate, endDate time.Time) (int64, error) {
	sk := t.nextKey
	t.nextKey++
	t.rows = append(t.rows, models.Version[T]{
		SurrogateKey: sk,
		Member:       member,
		StartDate:    startDate,
		EndDate:      endDate,
		IsCurrent:    true,
	})
	return sk, nil
}
