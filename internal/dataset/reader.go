package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	apierrors "github.com/VaishakhVipin/stattwin/internal/errors"
	"github.com/VaishakhVipin/stattwin/internal/table"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// LoadFile reads a table from path, choosing the reader by extension. XLSX
// files are read from their first non-empty sheet.
func LoadFile(path string) (*table.Table, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, apierrors.NewParsingError(path, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, apierrors.NewStorageError("open "+path, err)
	}
	defer f.Close()

	t, err := Read(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Read reads a table in the given format.
func Read(r io.Reader, format Format) (*table.Table, error) {
	switch format {
	case FormatCSV:
		return ReadCSV(r)
	case FormatJSON:
		return ReadJSON(r)
	case FormatXLSX:
		return ReadXLSX(r, "")
	default:
		return nil, apierrors.NewParsingError(fmt.Sprintf("unsupported format %q", format), nil)
	}
}

// ReadCSV reads a headed CSV document. A UTF-8 byte order mark is skipped.
func ReadCSV(r io.Reader) (*table.Table, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, apierrors.NewParsingError("read csv", err)
	}
	if len(records) == 0 {
		return nil, apierrors.NewParsingError("csv has no header row", nil)
	}
	return fromRecords(records[0], records[1:])
}

// ReadJSON reads an array of flat objects. Column order follows the first
// appearance of each key; keys absent from an object are missing values.
func ReadJSON(r io.Reader) (*table.Table, error) {
	dec := json.NewDecoder(r)

	if err := expectDelim(dec, '['); err != nil {
		return nil, err
	}

	var (
		header []string
		seen   = make(map[string]int)
		rows   []map[string]any
	)
	for dec.More() {
		if err := expectDelim(dec, '{'); err != nil {
			return nil, err
		}
		row := make(map[string]any)
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, apierrors.NewParsingError("read json key", err)
			}
			key, ok := tok.(string)
			if !ok {
				return nil, apierrors.NewParsingError(fmt.Sprintf("unexpected json token %v", tok), nil)
			}
			var v any
			if err := dec.Decode(&v); err != nil {
				return nil, apierrors.NewParsingError("read json value for "+key, err)
			}
			if _, ok := seen[key]; !ok {
				seen[key] = len(header)
				header = append(header, key)
			}
			row[key] = v
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	if err := expectDelim(dec, ']'); err != nil {
		return nil, err
	}

	values := make([][]any, len(rows))
	for i, row := range rows {
		values[i] = make([]any, len(header))
		for key, v := range row {
			values[i][seen[key]] = v
		}
	}
	t, err := table.FromRows(header, values)
	if err != nil {
		return nil, apierrors.NewParsingError("build table", err)
	}
	return t, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return apierrors.NewParsingError("read json", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return apierrors.NewParsingError(fmt.Sprintf("expected %q in json, got %v", want, tok), nil)
	}
	return nil
}

// ReadXLSX reads a workbook. An empty sheet name selects the first sheet that
// has a header row.
func ReadXLSX(r io.Reader, sheet string) (*table.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apierrors.NewParsingError("open workbook", err)
	}
	defer f.Close()

	var rows [][]string
	if sheet != "" {
		rows, err = f.GetRows(sheet)
		if err != nil {
			return nil, apierrors.NewParsingError("read sheet "+sheet, err)
		}
	} else {
		for _, name := range f.GetSheetList() {
			if candidate, err := f.GetRows(name); err == nil && len(candidate) > 0 {
				rows = candidate
				break
			}
		}
	}
	if len(rows) == 0 {
		return nil, apierrors.NewParsingError("workbook has no header row", nil)
	}

	header := rows[0]
	records := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		// trailing empty cells are not returned by GetRows
		rec := make([]string, len(header))
		copy(rec, row)
		records = append(records, rec)
	}
	return fromRecords(header, records)
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func fromRecords(header []string, records [][]string) (*table.Table, error) {
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(h)
		if names[i] == "" {
			names[i] = fmt.Sprintf("column_%d", i)
		}
	}
	t, err := table.FromRecords(names, records)
	if err != nil {
		return nil, apierrors.NewParsingError("build table", err)
	}
	return t, nil
}
