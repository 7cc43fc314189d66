// Package chem derives descriptive metadata from molecular structures.
//
// Structures arrive in the serialized molecule form used by task records:
// a map with a "sites" list, each site carrying a "species" list of
// {element, occu} entries, plus optional "charge" and "spin_multiplicity".
// Formula conventions (electronegativity ordering, reduction by gcd,
// anonymous formulas) match the ones used to key the task store, so the
// formula_pretty of a structure equals the grouping key of its tasks.
package chem
