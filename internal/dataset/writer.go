package dataset

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	apierrors "github.com/VaishakhVipin/stattwin/internal/errors"
	"github.com/VaishakhVipin/stattwin/internal/table"
)

// DefaultSheet is the sheet name used for XLSX exports.
const DefaultSheet = "players"

// WriteOptions configures table export.
type WriteOptions struct {
	Format    Format
	BOMPrefix bool   // UTF-8 BOM for Excel compatibility, CSV only
	Sheet     string // XLSX only
}

// Writer exports tables to files.
type Writer struct {
	logger *slog.Logger
}

// NewWriter creates a writer.
func NewWriter(logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{logger: logger.With(slog.String("component", "dataset"))}
}

// WriteFile writes t to path in the format given by its extension,
// creating parent directories.
func (w *Writer) WriteFile(path string, t *table.Table) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return apierrors.NewStorageError(path, err)
	}
	return w.WriteFileWithOptions(path, t, WriteOptions{Format: format, BOMPrefix: format == FormatCSV})
}

// WriteFileWithOptions writes t to path.
func (w *Writer) WriteFileWithOptions(path string, t *table.Table, opts WriteOptions) error {
	w.logger.Info("writing table",
		slog.String("file_path", path),
		slog.String("format", opts.Format.String()),
		slog.Int("row_count", t.Len()),
		slog.Int("column_count", t.Width()),
	)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apierrors.NewStorageError("failed to create directory", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return apierrors.NewStorageError("failed to create file", err)
	}

	if err := Write(file, t, opts); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return apierrors.NewStorageError("failed to close file", err)
	}
	return nil
}

// Write encodes t to out.
func Write(out io.Writer, t *table.Table, opts WriteOptions) error {
	switch opts.Format {
	case FormatCSV:
		return WriteCSV(out, t, opts.BOMPrefix)
	case FormatJSON:
		return WriteJSON(out, t)
	case FormatXLSX:
		return WriteXLSX(out, t, opts.Sheet)
	default:
		return apierrors.NewStorageError(fmt.Sprintf("unsupported format %q", opts.Format), nil)
	}
}

// WriteCSV writes t with a header row. Missing cells are empty.
func WriteCSV(out io.Writer, t *table.Table, bom bool) error {
	if bom {
		if _, err := out.Write(utf8BOM); err != nil {
			return apierrors.NewStorageError("failed to write BOM", err)
		}
	}

	header, records := t.Records()
	writer := csv.NewWriter(out)
	if err := writer.Write(header); err != nil {
		return apierrors.NewStorageError("failed to write headers", err)
	}
	for i, record := range records {
		if err := writer.Write(record); err != nil {
			return apierrors.NewStorageError(fmt.Sprintf("failed to write record %d", i), err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return apierrors.NewStorageError("failed to flush csv", err)
	}
	return nil
}

// WriteJSON writes t as an array of objects whose keys keep column order.
// Missing and non-finite values are null.
func WriteJSON(out io.Writer, t *table.Table) error {
	bw := bufio.NewWriter(out)
	cols := t.Columns()

	keys := make([][]byte, len(cols))
	for j, c := range cols {
		k, err := json.Marshal(c.Name())
		if err != nil {
			return apierrors.NewStorageError("encode column name", err)
		}
		keys[j] = k
	}

	bw.WriteByte('[')
	for i := 0; i < t.Len(); i++ {
		if i > 0 {
			bw.WriteByte(',')
		}
		bw.WriteByte('{')
		for j, c := range cols {
			if j > 0 {
				bw.WriteByte(',')
			}
			bw.Write(keys[j])
			bw.WriteByte(':')
			v, err := json.Marshal(jsonValue(c, i))
			if err != nil {
				return apierrors.NewStorageError(fmt.Sprintf("encode %s row %d", c.Name(), i), err)
			}
			bw.Write(v)
		}
		bw.WriteByte('}')
	}
	bw.WriteByte(']')
	bw.WriteByte('\n')

	if err := bw.Flush(); err != nil {
		return apierrors.NewStorageError("failed to write json", err)
	}
	return nil
}

func jsonValue(c *table.Column, i int) any {
	v := c.Value(i)
	if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return nil
	}
	return v
}

// WriteXLSX writes t to a single-sheet workbook through the streaming writer.
func WriteXLSX(out io.Writer, t *table.Table, sheet string) error {
	if sheet == "" {
		sheet = DefaultSheet
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return apierrors.NewStorageError("name sheet", err)
	}
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return apierrors.NewStorageError("create stream writer", err)
	}

	cols := t.Columns()
	header := make([]interface{}, len(cols))
	for j, c := range cols {
		header[j] = c.Name()
	}
	if err := sw.SetRow("A1", header); err != nil {
		return apierrors.NewStorageError("failed to write headers", err)
	}

	for i := 0; i < t.Len(); i++ {
		row := make([]interface{}, len(cols))
		for j, c := range cols {
			row[j] = jsonValue(c, i)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return apierrors.NewStorageError("cell name", err)
		}
		if err := sw.SetRow(cell, row); err != nil {
			return apierrors.NewStorageError(fmt.Sprintf("failed to write record %d", i), err)
		}
	}
	if err := sw.Flush(); err != nil {
		return apierrors.NewStorageError("flush workbook", err)
	}
	if err := f.Write(out); err != nil {
		return apierrors.NewStorageError("write workbook", err)
	}
	return nil
}
