package staging

import (
	"strings"
	"testing"
	"time"

	"github.com/canopy-network/salesdw/pkg/batcherr"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rawHeader = []string{
	"ORDERNUMBER", "QUANTITYORDERED", "PRICEEACH", "ORDERLINENUMBER", "SALES", "ORDERDATE", "SHIPDATE",
	"STATUS", "PRODUCTLINE", "MSRP", "PRODUCTCODE", "CUSTOMERID", "CUSTOMERNAME", "PHONE", "CITY",
	"COUNTRY", "TERRITORY", "CONTACTLASTNAME", "CONTACTFIRSTNAME", "DEALSIZE",
}

func rawRow(overrides map[string]string) []string {
	base := map[string]string{
		"ORDERNUMBER": "10107", "QUANTITYORDERED": "30", "PRICEEACH": "95.70", "ORDERLINENUMBER": "2",
		"SALES": "2871.00", "ORDERDATE": "2022-02-24", "SHIPDATE": "2022-02-28 00:00:00", "STATUS": "Shipped",
		"PRODUCTLINE": "Motorcycles", "MSRP": "95", "PRODUCTCODE": "S10_1678", "CUSTOMERID": "103",
		"CUSTOMERNAME": "Land of Toys Inc.", "PHONE": "2125557818", "CITY": "NYC", "COUNTRY": "USA",
		"TERRITORY": "NA", "CONTACTLASTNAME": "Yu", "CONTACTFIRSTNAME": "Kwai", "DEALSIZE": "Small",
	}
	for k, v := range overrides {
		base[k] = v
	}
	row := make([]string, len(rawHeader))
	for i, h := range rawHeader {
		row[i] = base[h]
	}
	return row
}

func TestNormalizeRawExport(t *testing.T) {
	records, err := Normalize(Table{Header: rawHeader, Rows: [][]string{
		rawRow(nil),
		rawRow(map[string]string{"ORDERLINENUMBER": "3", "TERRITORY": " NULL ", "PRODUCTCODE": " S10_1949 "}),
	}})
	require.NoError(t, err)
	require.Len(t, records, 2)

	r := records[0]
	assert.Equal(t, int64(1), r.LineID)
	assert.Equal(t, time.Date(2022, time.February, 24, 0, 0, 0, 0, time.UTC), r.OrderDate)
	assert.Equal(t, time.Date(2022, time.February, 28, 0, 0, 0, 0, time.UTC), r.ShipDate)
	assert.Equal(t, int64(10107), r.OrderNumber)
	assert.Equal(t, int64(95), r.SuggestedRetailPrice)
	assert.True(t, r.PriceEach.Equal(decimal.RequireFromString("95.7")))
	assert.True(t, r.Sales.Equal(decimal.RequireFromString("2871")))
	assert.Equal(t, int64(103), r.CustomerID)
	assert.Equal(t, "Shipped", r.Status)

	r = records[1]
	assert.Equal(t, int64(2), r.LineID)
	assert.Equal(t, "", r.Territory)
	assert.Equal(t, "S10_1949", r.ProductCode)
}

func TestNormalizeCanonicalHeaderInAnyOrder(t *testing.T) {
	header := make([]string, len(Columns))
	copy(header, Columns)
	// Reverse to show order does not matter.
	for i, j := 0, len(header)-1; i < j; i, j = i+1, j-1 {
		header[i], header[j] = header[j], header[i]
	}
	values := map[string]string{
		ColOrderDate: "2022-05-01", ColShipDate: "2022-05-03", ColOrderNumber: "1", ColOrderLineNumber: "1",
		ColProductCode: "S12_1099", ColProductLine: "Classic Cars", ColSuggestedRetailPrice: "194.0",
		ColCustomerID: "7", ColCustomerName: "Mini Gifts", ColCity: "San Rafael", ColCountry: "USA",
		ColTerritory: "", ColContactLastName: "Nelson", ColContactFirstName: "Valarie",
		ColQuantityOrdered: "41", ColPriceEach: "100.00", ColSales: "4100.00", ColStatus: "On Hold",
	}
	row := make([]string, len(header))
	for i, h := range header {
		row[i] = values[h]
	}

	records, err := Normalize(Table{Header: header, Rows: [][]string{row}})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(194), records[0].SuggestedRetailPrice)
	assert.Equal(t, "On Hold", records[0].Status)
}

func TestNormalizeMissingColumns(t *testing.T) {
	header := []string{"ORDERNUMBER", "ORDERDATE"}
	_, err := Normalize(Table{Header: header})

	var mi *batcherr.MalformedInputError
	require.ErrorAs(t, err, &mi)
	assert.Equal(t, 0, mi.Line)
	assert.Contains(t, mi.Column, ColShipDate)
	assert.Contains(t, mi.Column, ColSuggestedRetailPrice)
	assert.NotContains(t, mi.Column, ColOrderNumber)
}

func TestNormalizeRejectsBadCells(t *testing.T) {
	cases := []struct {
		name   string
		cell   map[string]string
		column string
	}{
		{"bad date", map[string]string{"ORDERDATE": "24/02/2022"}, ColOrderDate},
		{"blank date", map[string]string{"SHIPDATE": "nan"}, ColShipDate},
		{"bad integer", map[string]string{"QUANTITYORDERED": "thirty"}, ColQuantityOrdered},
		{"fractional integer", map[string]string{"MSRP": "95.5"}, ColSuggestedRetailPrice},
		{"bad decimal", map[string]string{"PRICEEACH": "$95"}, ColPriceEach},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			records, err := Normalize(Table{Header: rawHeader, Rows: [][]string{rawRow(nil), rawRow(tc.cell)}})
			require.Nil(t, records)

			var mi *batcherr.MalformedInputError
			require.ErrorAs(t, err, &mi)
			assert.Equal(t, 2, mi.Line)
			assert.Equal(t, tc.column, mi.Column)
		})
	}
}

func TestNormalizeRowWidthMismatch(t *testing.T) {
	short := rawRow(nil)[:5]
	_, err := Normalize(Table{Header: rawHeader, Rows: [][]string{short}})

	var mi *batcherr.MalformedInputError
	require.ErrorAs(t, err, &mi)
	assert.Equal(t, 1, mi.Line)
	assert.True(t, strings.Contains(mi.Reason, "5 cells"))
}

func TestNormalizeDuplicateColumn(t *testing.T) {
	header := append(append([]string(nil), rawHeader...), "order_date")
	_, err := Normalize(Table{Header: header})
	require.True(t, batcherr.IsMalformedInput(err))
}

func TestCleanCell(t *testing.T) {
	for _, v := range []string{"NULL", "null", "NaN", "nan", "  ", ""} {
		assert.Equal(t, "", CleanCell(v), v)
	}
	assert.Equal(t, "Nantes", CleanCell(" Nantes "))
	assert.Equal(t, "None", CleanCell("None"))
}

func TestCanonicalColumn(t *testing.T) {
	for raw, want := range map[string]string{
		"ORDERDATE":        ColOrderDate,
		"Order Date":       ColOrderDate,
		"msrp":             ColSuggestedRetailPrice,
		"CONTACTFIRSTNAME": ColContactFirstName,
		"price_each":       ColPriceEach,
	} {
		got, ok := CanonicalColumn(raw)
		require.True(t, ok, raw)
		assert.Equal(t, want, got)
	}
	_, ok := CanonicalColumn("DEALSIZE")
	assert.False(t, ok)
}
