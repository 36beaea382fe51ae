package staging

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/canopy-network/salesdw/pkg/batcherr"
	"github.com/xuri/excelize/v2"
)

// Reader parses one tabular document into a Table.
type Reader interface {
	Read(r io.Reader) (Table, error)
}

// ReaderFor picks a reader from the file extension of name. Anything that is not a
// spreadsheet is read as CSV, which covers the extension-less artifact keys. For URLs only
// the path counts, so query strings such as presigned signatures are ignored.
func ReaderFor(name string) Reader {
	p := name
	if u, err := url.Parse(name); err == nil && u.Path != "" {
		p = u.Path
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".xlsx", ".xlsm":
		return XLSXReader{}
	default:
		return CSVReader{}
	}
}

// CSVReader reads comma separated text with a header line.
type CSVReader struct{}

func (CSVReader) Read(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	// Width is checked by Normalize so the error carries the staging line.
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Table{}, &batcherr.MalformedInputError{Reason: "empty input"}
	}
	if err != nil {
		return Table{}, csvError(err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	t := Table{Header: header}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Table{}, csvError(err)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func csvError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &batcherr.MalformedInputError{Line: max(pe.Line-1, 0), Reason: pe.Err.Error()}
	}
	return fmt.Errorf("read csv: %w", err)
}

// XLSXReader reads a worksheet of an Excel workbook. The first sheet is used when Sheet is
// empty.
type XLSXReader struct {
	Sheet string
}

func (x XLSXReader) Read(r io.Reader) (Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Table{}, &batcherr.MalformedInputError{Reason: fmt.Sprintf("open workbook: %v", err)}
	}
	defer func() { _ = f.Close() }()

	sheet := x.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return Table{}, &batcherr.MalformedInputError{Reason: "workbook has no sheets"}
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return Table{}, &batcherr.MalformedInputError{Reason: fmt.Sprintf("read sheet %s: %v", sheet, err)}
	}
	if len(rows) == 0 {
		return Table{}, &batcherr.MalformedInputError{Reason: "empty input"}
	}

	t := Table{Header: rows[0]}
	for _, row := range rows[1:] {
		// GetRows drops trailing empty cells.
		for len(row) < len(t.Header) {
			row = append(row, "")
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// ReadTable parses raw with the reader chosen for name.
func ReadTable(name string, raw []byte) (Table, error) {
	return ReaderFor(name).Read(bytes.NewReader(raw))
}
