// Package mol provides the core record types for molecule aggregation.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import mol; mol imports nothing internal. This keeps the
// record types the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Rule tables are immutable once constructed
//   - Dotted paths address nested map[string]any payloads
//   - All timestamps are UTC and stored in a fixed-width text form so that
//     lexical and chronological order agree
//   - Canonical JSON (see canonical.go) is the only encoding used for
//     content digests
package mol
