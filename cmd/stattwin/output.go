package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	apierrors "github.com/VaishakhVipin/stattwin/internal/errors"
	"github.com/VaishakhVipin/stattwin/internal/table"
	api "github.com/VaishakhVipin/stattwin/pkg/contracts/api/v1"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// describe flattens field-level validation errors into one message.
func describe(err error) error {
	var apiErr *apierrors.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	fields, ok := apiErr.Details.([]apierrors.ValidationError)
	if !ok || len(fields) == 0 {
		return err
	}
	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, f.Message)
	}
	return fmt.Errorf("invalid arguments: %s", strings.Join(msgs, "; "))
}

// fieldOrder lists the match fields present, preferred names first and the
// rest alphabetically.
func fieldOrder(preferred []string, matches []api.Match) []string {
	present := make(map[string]bool)
	for _, m := range matches {
		for k := range m.Fields {
			present[k] = true
		}
	}
	out := make([]string, 0, len(present))
	for _, name := range preferred {
		if present[name] {
			out = append(out, name)
			delete(present, name)
		}
	}
	rest := make([]string, 0, len(present))
	for name := range present {
		rest = append(rest, name)
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func printSimilar(w io.Writer, resp *api.SimilarResponse, order []string) error {
	label := resp.Query.PlayerID
	if resp.Query.Name != "" {
		label = fmt.Sprintf("%s (%s)", resp.Query.Name, resp.Query.PlayerID)
	}
	if label == "" {
		label = "row " + strconv.Itoa(resp.Query.Index)
	}
	fmt.Fprintf(w, "Players similar to %s by %s over %d features\n\n", label, resp.Metric, len(resp.Features))
	if len(resp.Matches) == 0 {
		fmt.Fprintln(w, "No matches.")
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header(append([]string{"RANK", "INDEX", "SCORE"}, upper(order)...))
	for _, m := range resp.Matches {
		row := []string{strconv.Itoa(m.Rank), strconv.Itoa(m.Index), strconv.FormatFloat(m.Score, 'f', 4, 64)}
		for _, name := range order {
			row = append(row, cell(m.Fields[name]))
		}
		table.Append(row)
	}
	return table.Render()
}

func printRankAll(w io.Writer, resp *api.RankAllResponse) error {
	fmt.Fprintf(w, "Ranked %d players by %s\n\n", resp.Count, resp.Metric)

	table := tablewriter.NewWriter(w)
	table.Header([]string{"PLAYER", "MATCHES"})
	for _, key := range resp.Keys {
		parts := make([]string, 0, len(resp.Results[key]))
		for _, m := range resp.Results[key] {
			parts = append(parts, fmt.Sprintf("%d (%.3f)", m.Index, m.Score))
		}
		table.Append([]string{key, strings.Join(parts, ", ")})
	}
	return table.Render()
}

func printFilter(w io.Writer, resp *api.FilterResponse) error {
	fmt.Fprintf(w, "%d of %d matching players\n\n", resp.Count, resp.Total)
	if resp.Issues != nil {
		if len(resp.Issues.MissingColumns) > 0 {
			fmt.Fprintf(w, "warning: filters skipped, missing columns: %s\n", strings.Join(resp.Issues.MissingColumns, ", "))
		}
		if len(resp.Issues.InvalidValues) > 0 {
			fmt.Fprintf(w, "warning: invalid filter values: %s\n", strings.Join(resp.Issues.InvalidValues, ", "))
		}
	}
	if len(resp.Columns) == 0 {
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header(upper(resp.Columns))
	for _, row := range resp.Rows {
		cells := make([]string, len(resp.Columns))
		for i, name := range resp.Columns {
			cells[i] = cell(row[name])
		}
		table.Append(cells)
	}
	return table.Render()
}

func printReport(w io.Writer, r *api.ReportResponse) error {
	fmt.Fprintf(w, "Source:      %s\n", r.Source)
	fmt.Fprintf(w, "Rows:        %d\n", r.Rows)
	fmt.Fprintf(w, "Columns:     %d\n", r.Columns)
	fmt.Fprintf(w, "Dropped:     %d rows\n", r.Cleaning.DroppedRows)
	fmt.Fprintf(w, "Per 90:      %s\n", strings.Join(r.Per90Columns, ", "))
	fmt.Fprintf(w, "Derived:     %s\n", strings.Join(r.DerivedColumns, ", "))
	fmt.Fprintf(w, "Normalized:  %s\n", strings.Join(r.NormalizedColumns, ", "))
	if r.Scaler != nil {
		fmt.Fprintf(w, "Scaler:      %s over %d columns\n", r.Scaler.Method, len(r.Scaler.Columns))
	}
	fmt.Fprintf(w, "Invalid minutes: %d\n", r.Validation.NegativeExposure)
	if len(r.Validation.OutOfRange) == 0 {
		return nil
	}

	names := make([]string, 0, len(r.Validation.OutOfRange))
	for name := range r.Validation.OutOfRange {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w)
	table := tablewriter.NewWriter(w)
	table.Header([]string{"COLUMN", "BELOW 0", "ABOVE 100"})
	for _, name := range names {
		v := r.Validation.OutOfRange[name]
		table.Append([]string{name, strconv.Itoa(v.Below0), strconv.Itoa(v.Above100)})
	}
	return table.Render()
}

func printLeagues(w io.Writer, resp *api.LeaguesResponse) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"ID", "NAME", "COUNTRY", "CONTINENT", "TIER", "MAJOR"})
	for _, l := range resp.Leagues {
		table.Append([]string{strconv.Itoa(l.ID), l.Name, l.Country, l.Continent, l.Tier, strconv.FormatBool(l.Major)})
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d leagues\n", resp.Count)
	return nil
}

func upper(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = strings.ToUpper(n)
	}
	return out
}

// matchesTable flattens matches into an exportable table. A non-empty key
// adds a leading query column.
func matchesTable(key string, matches []api.Match, order []string) (*table.Table, error) {
	header := []string{"rank", "index", "score"}
	if key != "" {
		header = append([]string{"query"}, header...)
	}
	header = append(header, order...)

	rows := make([][]any, 0, len(matches))
	for _, m := range matches {
		rows = append(rows, matchRow(key, m, order))
	}
	return table.FromRows(header, rows)
}

func matchRow(key string, m api.Match, order []string) []any {
	row := make([]any, 0, 4+len(order))
	if key != "" {
		row = append(row, key)
	}
	row = append(row, m.Rank, m.Index, m.Score)
	for _, name := range order {
		row = append(row, m.Fields[name])
	}
	return row
}

func rankAllTable(resp *api.RankAllResponse, order []string) (*table.Table, error) {
	header := append([]string{"query", "rank", "index", "score"}, order...)
	var rows [][]any
	for _, key := range resp.Keys {
		for _, m := range resp.Results[key] {
			rows = append(rows, matchRow(key, m, order))
		}
	}
	return table.FromRows(header, rows)
}

func rowsTable(columns []string, rows []map[string]any) (*table.Table, error) {
	out := make([][]any, len(rows))
	for i, row := range rows {
		values := make([]any, len(columns))
		for j, name := range columns {
			values[j] = row[name]
		}
		out[i] = values
	}
	return table.FromRows(columns, out)
}
