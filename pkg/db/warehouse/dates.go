package warehouse

import (
	"context"
	"fmt"
	"time"

	models "github.com/canopy-network/salesdw/pkg/db/models/warehouse"
	"github.com/canopy-network/salesdw/pkg/historize"
	"github.com/jackc/pgx/v5"
)

// UpsertDates inserts calendar days not stored yet. Existing days are left as they are, so
// regenerating an overlapping range is harmless.
func (db *DB) UpsertDates(ctx context.Context, rows []models.DateRow) (int, error) {
	query := `
		INSERT INTO dim_date (
			date_pk, date, day_of_week, day_of_month, day_of_year,
			week_of_year, month, quarter, year, is_weekday
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (date_pk) DO NOTHING
	`

	batch := &pgx.Batch{}
	for _, d := range rows {
		batch.Queue(query,
			d.DatePK, d.Date, d.DayOfWeek, d.DayOfMonth, d.DayOfYear,
			d.WeekOfYear, d.Month, d.Quarter, d.Year, d.IsWeekday,
		)
	}
	if batch.Len() == 0 {
		return 0, nil
	}

	inserted := 0
	err := db.InTx(ctx, func(ctx context.Context) error {
		br := db.GetExecutor(ctx).SendBatch(ctx, batch)
		defer br.Close()
		for i := 0; i < batch.Len(); i++ {
			tag, err := br.Exec()
			if err != nil {
				return fmt.Errorf("insert dim_date row %d: %w", i, err)
			}
			inserted += int(tag.RowsAffected())
		}
		return br.Close()
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// DateRows returns the stored calendar days in [from, to], ordered by date.
func (db *DB) DateRows(ctx context.Context, from, to time.Time) ([]models.DateRow, error) {
	query := `
		SELECT date_pk, date, day_of_week, day_of_month, day_of_year,
			week_of_year, month, quarter, year, is_weekday
		FROM dim_date
		WHERE date BETWEEN $1 AND $2
		ORDER BY date
	`

	rows, err := db.Query(ctx, query, historize.DateOf(from), historize.DateOf(to))
	if err != nil {
		return nil, fmt.Errorf("query dim_date: %w", err)
	}
	defer rows.Close()

	var out []models.DateRow
	for rows.Next() {
		var d models.DateRow
		if err := rows.Scan(
			&d.DatePK, &d.Date, &d.DayOfWeek, &d.DayOfMonth, &d.DayOfYear,
			&d.WeekOfYear, &d.Month, &d.Quarter, &d.Year, &d.IsWeekday,
		); err != nil {
			return nil, fmt.Errorf("scan dim_date: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
