package staging

import (
	"strings"
	"testing"

	"github.com/canopy-network/salesdw/pkg/batcherr"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestCSVReader(t *testing.T) {
	src := "\ufeffORDERNUMBER,CITY\n10107,NYC\n10121,\"Reims, FR\"\n10134\n"
	table, err := CSVReader{}.Read(strings.NewReader(src))
	require.NoError(t, err)
	require.Equal(t, []string{"ORDERNUMBER", "CITY"}, table.Header)
	require.Len(t, table.Rows, 3)
	require.Equal(t, "Reims, FR", table.Rows[1][1])
	// Short rows are passed through for Normalize to report.
	require.Len(t, table.Rows[2], 1)
}

func TestCSVReaderMalformed(t *testing.T) {
	_, err := CSVReader{}.Read(strings.NewReader(""))
	require.True(t, batcherr.IsMalformedInput(err))

	_, err = CSVReader{}.Read(strings.NewReader("A,B\n1,\"unterminated\n"))
	require.True(t, batcherr.IsMalformedInput(err))
}

func TestXLSXReaderPadsTrailingBlanks(t *testing.T) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"ORDERNUMBER", "CITY", "TERRITORY"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{10107, "NYC", "NA"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{10121, "Reims"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	table, err := ReadTable("sales.xlsx", buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, []string{"ORDERNUMBER", "CITY", "TERRITORY"}, table.Header)
	require.Equal(t, [][]string{{"10107", "NYC", "NA"}, {"10121", "Reims", ""}}, table.Rows)
}

func TestReaderFor(t *testing.T) {
	require.IsType(t, XLSXReader{}, ReaderFor("s3://bucket/raw/Sales.XLSX"))
	require.IsType(t, CSVReader{}, ReaderFor("https://example.com/raw_sales2.csv"))
	require.IsType(t, CSVReader{}, ReaderFor("staging/raw_sales_2022-03-01"))
	require.IsType(t, XLSXReader{}, ReaderFor("https://bucket.s3.amazonaws.com/sales.xlsx?X-Amz-Signature=abc&X-Amz-Expires=900"))
	require.IsType(t, CSVReader{}, ReaderFor("https://example.com/export?format=.xlsx"))
	require.IsType(t, XLSXReader{}, ReaderFor("/data/in/Sales.xlsm"))
}
