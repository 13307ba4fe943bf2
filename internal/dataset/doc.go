// Package dataset moves player tables in and out of files.
//
// Readers turn CSV, JSON and XLSX documents into a table.Table, inferring a
// numeric column wherever every non-null cell parses as a number. Writers
// export processed tables and ranked results in the same three formats.
//
// Example usage:
//
//	raw, err := dataset.LoadFile("data/players_2023.csv")
//	if err != nil {
//		return err
//	}
//
//	w := dataset.NewWriter(logger)
//	err = w.WriteFile("reports/similar.xlsx", result.Table())
//
// The Fetcher interface describes an upstream fetch-and-cache collaborator;
// MemoryCache is a small in-process implementation.
package dataset
