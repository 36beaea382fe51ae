package warehouse

import "time"

// DateRow is one day of dim_date. Rows are static once generated.
type DateRow struct {
	DatePK     int32     `json:"datePk" ch:"date_pk"` // yyyymmdd
	Date       time.Time `json:"date" ch:"date"`
	DayOfWeek  int16     `json:"dayOfWeek" ch:"day_of_week"` // 0 = Sunday
	DayOfMonth int16     `json:"dayOfMonth" ch:"day_of_month"`
	DayOfYear  int16     `json:"dayOfYear" ch:"day_of_year"`
	WeekOfYear int16     `json:"weekOfYear" ch:"week_of_year"` // ISO 8601
	Month      int16     `json:"month" ch:"month"`
	Quarter    int16     `json:"quarter" ch:"quarter"`
	Year       int16     `json:"year" ch:"year"`
	IsWeekday  bool      `json:"isWeekday" ch:"is_weekday"`
}

// DateKey returns the yyyymmdd key of a calendar date.
func DateKey(t time.Time) int32 {
	return int32(t.Year()*10000 + int(t.Month())*100 + t.Day())
}
