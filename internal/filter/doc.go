// Package filter provides the task filter IR shared by every task store
// backend.
//
// Predicate is a sealed interface using the marker method pattern, so
// backends can switch exhaustively over the four node types:
//
//	Equals  field = value
//	In      field IN (values...)   (empty list matches nothing)
//	After   field > timestamp      (last_updated only)
//	And     all predicates hold    (empty And matches everything)
//
// A nil Predicate matches every task. Two backends exist: the SQL compiler
// in package filtersql and the in-memory matcher Match.
//
// Only top-level task columns may be filtered: task_id, formula, state and
// last_updated. Filters over the nested task document are not part of the
// portable fragment.
package filter
