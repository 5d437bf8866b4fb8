// Package shared holds cross-cutting helpers that do not belong to a
// single domain package. Today that is only the testutil subpackage,
// which provides the buffered slog handler the package tests use to
// assert on structured log output.
//
// Code here must stay free of domain types so any package can import
// it without cycles.
package shared
