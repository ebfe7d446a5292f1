// Package core implements the CSV pipeline behind the HTTP API.
//
// The package has no knowledge of HTTP. It can be driven by web handlers,
// CLI tools, or tests without modification.
//
// # Operations
//
// [Service] exposes three operations over an uploaded document held in memory:
//
//   - [Service.ExtractHeaders] returns the first row as the column list.
//   - [Service.CollectDistinctValues] returns the sorted, trimmed, non-empty
//     values of one column.
//   - [Service.FilterAndProject] keeps rows accepted by a [FilterSpec],
//     projects them onto a [ColumnSelection] and encodes the result as an
//     [Export].
//
// Calls are independent. Each one takes a slot from the [Limiter], decodes
// the document with its own [RecordReader] and releases the slot when done.
//
// # Decoding
//
// Documents are comma-separated with double-quote escaping and a header row.
// A leading UTF-8 byte order mark is removed and invalid UTF-8 is replaced
// with '?' before decoding. Quotes are strict by default; malformed input
// fails with a [*ParseError] carrying the line and column.
//
// # Errors
//
// Every failure matches one sentinel with errors.Is: [ErrMissingFile],
// [ErrMissingParameter], [ErrInvalidSpec], [ErrParse], [ErrNoMatch] or
// [ErrEncode]. [MapError] turns any of them into a [UserMessage] with a
// support code.
//
// # Audit
//
// When an [AuditStore] is configured each call writes one row of metadata
// (sizes, counts, outcome code). Cell values are never stored.
package core
