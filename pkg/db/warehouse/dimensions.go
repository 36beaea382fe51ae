package warehouse

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/canopy-network/salesdw/pkg/batcherr"
	"github.com/canopy-network/salesdw/pkg/conform"
	"github.com/canopy-network/salesdw/pkg/db/entities"
	models "github.com/canopy-network/salesdw/pkg/db/models/warehouse"
	"github.com/canopy-network/salesdw/pkg/db/postgres"
	"github.com/canopy-network/salesdw/pkg/historize"
	"go.uber.org/zap"
)

// binding maps one dimension member type onto its table columns.
type binding[T any] struct {
	rules conform.Rules[T]
	// keyArg converts a natural key as produced by rules.Key back to its column type.
	keyArg func(naturalKey string) (any, error)
	// values returns the member columns in entities.Dimension.MemberColumns order.
	values func(T) []any
	// targets returns scan destinations in the same order.
	targets func(*T) []any
}

var productBinding = binding[models.Product]{
	rules:  conform.ProductRules,
	keyArg: func(k string) (any, error) { return k, nil },
	values: func(p models.Product) []any {
		return []any{p.ProductCode, p.ProductLine, p.SuggestedRetailPrice, p.PriceEach}
	},
	targets: func(p *models.Product) []any {
		return []any{&p.ProductCode, &p.ProductLine, &p.SuggestedRetailPrice, &p.PriceEach}
	},
}

var customerBinding = binding[models.Customer]{
	rules: conform.CustomerRules,
	keyArg: func(k string) (any, error) {
		return strconv.ParseInt(k, 10, 64)
	},
	values: func(c models.Customer) []any {
		return []any{c.CustomerID, c.CustomerName, c.City, c.Country, c.Territory, c.ContactLastName, c.ContactFirstName}
	},
	targets: func(c *models.Customer) []any {
		return []any{&c.CustomerID, &c.CustomerName, &c.City, &c.Country, &c.Territory, &c.ContactLastName, &c.ContactFirstName}
	},
}

var statusBinding = binding[models.Status]{
	rules:   conform.StatusRules,
	keyArg:  func(k string) (any, error) { return k, nil },
	values:  func(s models.Status) []any { return []any{s.Status} },
	targets: func(s *models.Status) []any { return []any{&s.Status} },
}

// CurrentProducts returns every current product version.
func (db *DB) CurrentProducts(ctx context.Context) ([]models.Version[models.Product], error) {
	return currentVersions(ctx, db.GetExecutor(ctx), productBinding, false)
}

// CurrentCustomers returns every current customer version.
func (db *DB) CurrentCustomers(ctx context.Context) ([]models.Version[models.Customer], error) {
	return currentVersions(ctx, db.GetExecutor(ctx), customerBinding, false)
}

// CurrentStatuses returns every current status version.
func (db *DB) CurrentStatuses(ctx context.Context) ([]models.Version[models.Status], error) {
	return currentVersions(ctx, db.GetExecutor(ctx), statusBinding, false)
}

// HistorizeProducts conforms and applies a batch of staged products.
func (db *DB) HistorizeProducts(ctx context.Context, staged []models.Product, today time.Time) (historize.Result, error) {
	return historizeDimension(ctx, db, productBinding, staged, today)
}

// HistorizeCustomers conforms and applies a batch of staged customers.
func (db *DB) HistorizeCustomers(ctx context.Context, staged []models.Customer, today time.Time) (historize.Result, error) {
	return historizeDimension(ctx, db, customerBinding, staged, today)
}

// HistorizeStatuses conforms and applies a batch of staged statuses.
func (db *DB) HistorizeStatuses(ctx context.Context, staged []models.Status, today time.Time) (historize.Result, error) {
	return historizeDimension(ctx, db, statusBinding, staged, today)
}

// historizeDimension locks the current rows of one dimension, plans against them and applies
// the plan before committing. Any error rolls the whole dimension back.
func historizeDimension[T any](ctx context.Context, db *DB, b binding[T], staged []T, today time.Time) (historize.Result, error) {
	start := time.Now()
	dim := b.rules.Dimension
	var res historize.Result

	err := db.InTx(ctx, func(ctx context.Context) error {
		exec := db.GetExecutor(ctx)

		// Row locks cannot cover natural keys that have no row yet, so concurrent loads of one
		// dimension take turns on a transaction-scoped advisory lock.
		if _, err := exec.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, dim.TableName()); err != nil {
			return fmt.Errorf("lock %s: %w", dim.TableName(), err)
		}

		current, err := currentVersions(ctx, exec, b, true)
		if err != nil {
			return err
		}

		plan, err := conform.Conform(b.rules, staged, current)
		if err != nil {
			return err
		}
		for _, c := range plan.Conflicts {
			db.Logger.Warn("Natural key staged with conflicting attributes, keeping the last row",
				zap.String("dimension", dim.String()),
				zap.String("natural_key", c.NaturalKey),
				zap.Int("variants", c.Variants),
			)
		}

		res, err = historize.Apply(ctx, &dimensionTx[T]{exec: exec, b: b}, plan, today)
		if postgres.IsUniqueViolation(err) {
			return &batcherr.IntegrityViolationError{
				Dimension:   dim.String(),
				CurrentRows: 2,
				Reason:      fmt.Sprintf("insert would add a second current version: %v", err),
			}
		}
		return err
	})
	if err != nil {
		return historize.Result{}, fmt.Errorf("historize %s: %w", dim, err)
	}

	res.DurationMs = float64(time.Since(start).Microseconds()) / 1000.0
	db.Logger.Info("Dimension historized",
		zap.String("dimension", dim.String()),
		zap.Int("closed", res.Closed),
		zap.Int("inserted", res.Inserted),
		zap.Int("unchanged", res.Unchanged),
		zap.Int("noop_close_outs", res.NoOpCloseOut),
		zap.Float64("duration_ms", res.DurationMs),
	)
	return res, nil
}

func currentVersions[T any](ctx context.Context, exec postgres.Executor, b binding[T], lock bool) ([]models.Version[T], error) {
	dim := b.rules.Dimension
	query := fmt.Sprintf(
		`SELECT %s, %s, start_date, end_date, is_current FROM %s WHERE is_current ORDER BY %s`,
		dim.SurrogateKeyColumn(), strings.Join(dim.MemberColumns(), ", "), dim.TableName(), dim.SurrogateKeyColumn(),
	)
	if lock {
		query += " FOR UPDATE"
	}

	rows, err := exec.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query current %s: %w", dim, err)
	}
	defer rows.Close()

	var out []models.Version[T]
	for rows.Next() {
		var v models.Version[T]
		dest := append([]any{&v.SurrogateKey}, b.targets(&v.Member)...)
		dest = append(dest, &v.StartDate, &v.EndDate, &v.IsCurrent)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", dim.TableName(), err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// dimensionTx is historize.Tx over one dimension table inside an open transaction.
type dimensionTx[T any] struct {
	exec postgres.Executor
	b    binding[T]
}

func (t *dimensionTx[T]) dim() entities.Dimension {
	return t.b.rules.Dimension
}

func (t *dimensionTx[T]) CountCurrent(ctx context.Context, naturalKey string) (int, error) {
	key, err := t.b.keyArg(naturalKey)
	if err != nil {
		return 0, fmt.Errorf("natural key %q: %w", naturalKey, err)
	}
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s = $1 AND is_current`,
		t.dim().TableName(), t.dim().NaturalKeyColumn())

	var n int
	if err := t.exec.QueryRow(ctx, query, key).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (t *dimensionTx[T]) CloseCurrent(ctx context.Context, surrogateKey int64, endDate time.Time) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s SET end_date = $2, is_current = FALSE WHERE %s = $1 AND is_current`,
		t.dim().TableName(), t.dim().SurrogateKeyColumn())

	tag, err := t.exec.Exec(ctx, query, surrogateKey, endDate)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (t *dimensionTx[T]) VersionExists(ctx context.Context, surrogateKey int64) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1)`,
		t.dim().TableName(), t.dim().SurrogateKeyColumn())

	var exists bool
	if err := t.exec.QueryRow(ctx, query, surrogateKey).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (t *dimensionTx[T]) InsertVersion(ctx context.Context, member T, startDate, endDate time.Time) (int64, error) {
	cols := t.dim().MemberColumns()
	values := t.b.values(member)

	placeholders := make([]string, 0, len(cols)+3)
	for i := range cols {
		placeholders = append(placeholders, "$"+strconv.Itoa(i+1))
	}
	n := len(cols)
	placeholders = append(placeholders,
		"$"+strconv.Itoa(n+1), "$"+strconv.Itoa(n+2), "TRUE")

	query := fmt.Sprintf(`INSERT INTO %s (%s, start_date, end_date, is_current) VALUES (%s) RETURNING %s`,
		t.dim().TableName(), strings.Join(cols, ", "), strings.Join(placeholders, ", "), t.dim().SurrogateKeyColumn())

	var sk int64
	args := append(values, startDate, endDate)
	if err := t.exec.QueryRow(ctx, query, args...).Scan(&sk); err != nil {
		return 0, err
	}
	return sk, nil
}
