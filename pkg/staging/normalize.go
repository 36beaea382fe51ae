// Package staging turns tabular sales exports into canonical staging records and writes the
// batch artifacts.
package staging

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/canopy-network/salesdw/pkg/batcherr"
	models "github.com/canopy-network/salesdw/pkg/db/models/warehouse"
	"github.com/shopspring/decimal"
)

// Table is a header plus string rows, as produced by a Reader.
type Table struct {
	Header []string
	Rows   [][]string
}

var nullTokens = map[string]struct{}{
	"NULL": {}, "null": {}, "NaN": {}, "nan": {},
}

var dateLayouts = []string{
	time.DateOnly,
	time.DateTime,
	time.RFC3339,
}

// Normalize converts every row of t into a StagingRecord. Columns are matched by name, so
// their order and any extra columns do not matter. The first malformed cell aborts the whole
// table with a *batcherr.MalformedInputError and no records.
func Normalize(t Table) ([]models.StagingRecord, error) {
	idx, err := headerIndex(t.Header)
	if err != nil {
		return nil, err
	}

	records := make([]models.StagingRecord, 0, len(t.Rows))
	for i, row := range t.Rows {
		line := i + 1
		if len(row) != len(t.Header) {
			return nil, &batcherr.MalformedInputError{
				Line:   line,
				Reason: fmt.Sprintf("row has %d cells, header has %d", len(row), len(t.Header)),
			}
		}
		p := rowParser{line: line, row: row, idx: idx}
		r := models.StagingRecord{
			LineID:               int64(line),
			OrderDate:            p.date(ColOrderDate),
			ShipDate:             p.date(ColShipDate),
			OrderNumber:          p.integer(ColOrderNumber),
			OrderLineNumber:      p.integer(ColOrderLineNumber),
			ProductCode:          p.str(ColProductCode),
			ProductLine:          p.str(ColProductLine),
			SuggestedRetailPrice: p.integer(ColSuggestedRetailPrice),
			CustomerID:           p.integer(ColCustomerID),
			CustomerName:         p.str(ColCustomerName),
			City:                 p.str(ColCity),
			Country:              p.str(ColCountry),
			Territory:            p.str(ColTerritory),
			ContactLastName:      p.str(ColContactLastName),
			ContactFirstName:     p.str(ColContactFirstName),
			QuantityOrdered:      p.integer(ColQuantityOrdered),
			PriceEach:            p.dec(ColPriceEach),
			Sales:                p.dec(ColSales),
			Status:               p.str(ColStatus),
		}
		if p.err != nil {
			return nil, p.err
		}
		records = append(records, r)
	}
	return records, nil
}

func headerIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(Columns))
	for i, h := range header {
		col, ok := CanonicalColumn(h)
		if !ok {
			continue
		}
		if _, dup := idx[col]; dup {
			return nil, &batcherr.MalformedInputError{Column: col, Reason: fmt.Sprintf("duplicate column %q", h)}
		}
		idx[col] = i
	}

	var missing []string
	for _, c := range Columns {
		if _, ok := idx[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &batcherr.MalformedInputError{
			Column: strings.Join(missing, ","),
			Reason: "missing required columns",
		}
	}
	return idx, nil
}

// CleanCell trims a cell and collapses the null tokens to "".
func CleanCell(v string) string {
	v = strings.TrimSpace(v)
	if _, ok := nullTokens[v]; ok {
		return ""
	}
	return v
}

// ParseDate accepts a plain date or a timestamp and keeps the calendar day.
func ParseDate(v string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("not a date in %s form", time.DateOnly)
}

// rowParser keeps the first error so a record can be built in one expression.
type rowParser struct {
	line int
	row  []string
	idx  map[string]int
	err  error
}

func (p *rowParser) cell(col string) string {
	return CleanCell(p.row[p.idx[col]])
}

func (p *rowParser) fail(col, value, reason string) {
	if p.err == nil {
		p.err = &batcherr.MalformedInputError{Line: p.line, Column: col, Value: value, Reason: reason}
	}
}

func (p *rowParser) str(col string) string {
	return p.cell(col)
}

func (p *rowParser) required(col string) (string, bool) {
	v := p.cell(col)
	if v == "" {
		p.fail(col, p.row[p.idx[col]], "value required")
		return "", false
	}
	return v, true
}

func (p *rowParser) date(col string) time.Time {
	v, ok := p.required(col)
	if !ok {
		return time.Time{}
	}
	t, err := ParseDate(v)
	if err != nil {
		p.fail(col, v, err.Error())
	}
	return t
}

// integer also accepts integral decimals such as "95.0", which spreadsheet exports produce.
func (p *rowParser) integer(col string) int64 {
	v, ok := p.required(col)
	if !ok {
		return 0
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n
	}
	d, err := decimal.NewFromString(v)
	if err != nil || !d.IsInteger() {
		p.fail(col, v, "not an integer")
		return 0
	}
	return d.IntPart()
}

func (p *rowParser) dec(col string) decimal.Decimal {
	v, ok := p.required(col)
	if !ok {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		p.fail(col, v, "not a decimal")
		return decimal.Zero
	}
	return d
}
