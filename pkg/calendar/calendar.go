// Package calendar generates the rows of dim_date.
package calendar

import (
	"fmt"
	"time"

	models "github.com/canopy-network/salesdw/pkg/db/models/warehouse"
)

// Default range loaded when CALENDAR_START / CALENDAR_END are not set.
var (
	DefaultStart = time.Date(2022, time.January, 1, 0, 0, 0, 0, time.UTC)
	DefaultEnd   = time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
)

// Expand returns one row per day from start to end, both inclusive. Times are truncated to
// their UTC day first.
func Expand(start, end time.Time) ([]models.DateRow, error) {
	start, end = day(start), day(end)
	if end.Before(start) {
		return nil, fmt.Errorf("calendar end %s is before start %s", end.Format(time.DateOnly), start.Format(time.DateOnly))
	}

	days := int(end.Sub(start).Hours()/24) + 1
	rows := make([]models.DateRow, 0, days)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		rows = append(rows, Row(d))
	}
	return rows, nil
}

// Row derives the dim_date attributes of one day.
func Row(d time.Time) models.DateRow {
	d = day(d)
	_, week := d.ISOWeek()
	wd := d.Weekday()
	return models.DateRow{
		DatePK:     models.DateKey(d),
		Date:       d,
		DayOfWeek:  int16(wd),
		DayOfMonth: int16(d.Day()),
		DayOfYear:  int16(d.YearDay()),
		WeekOfYear: int16(week),
		Month:      int16(d.Month()),
		Quarter:    int16((int(d.Month())-1)/3 + 1),
		Year:       int16(d.Year()),
		IsWeekday:  wd != time.Saturday && wd != time.Sunday,
	}
}

// Index maps calendar dates to their date_pk.
type Index map[time.Time]int32

// NewIndex indexes rows by their date.
func NewIndex(rows []models.DateRow) Index {
	ix := make(Index, len(rows))
	for _, r := range rows {
		ix[day(r.Date)] = r.DatePK
	}
	return ix
}

// Key returns the date_pk of d if the calendar covers it.
func (ix Index) Key(d time.Time) (int32, bool) {
	pk, ok := ix[day(d)]
	return pk, ok
}

func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
