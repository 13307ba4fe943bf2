// Package shared holds helpers used by more than one package that belong to
// no single layer.
//
// # Test Utilities
//
// The testutil subpackage provides:
//
//	- PlayersCSV, a small player table every preprocessing default accepts
//	- WriteFile for placing fixtures in a test directory
//	- NewTestLogger, an slog logger whose records can be asserted on
//
// Example:
//
//	logger, logs := testutil.NewTestLogger(t)
//	svc := services.NewSimilarityService(pipeline, registry, ranking, logger)
//	...
//	assert.True(t, logs.ContainsMessage("dataset loaded"))
//
// testutil must only be imported from _test.go files.
package shared
