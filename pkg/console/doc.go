// Package console renders human-readable log lines.
//
// Every logical name gets one memoized Writer (ForName), and all writers share a
// single destination (SetOutput, stdout by default). Lines look like:
//
//	[2024-01-02 15:04:05] [INFO] [ingest]: fetched 120 rows
//
// Level tags are styled with lipgloss when the destination is a terminal, or
// always/never depending on SetColor.
//
// Write failures never reach the caller. They are passed to the handler installed
// with SetErrorHandler, or printed to stderr.
//
// Tests can redirect output by calling SetOutput with a bytes.Buffer.
package console
