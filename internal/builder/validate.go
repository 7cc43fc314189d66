package builder

import "github.com/roach88/molbuild/internal/mol"

// Valid reports whether a document may be written: it must carry a
// structure.
func Valid(doc *mol.Document) bool {
	return doc != nil && doc.Has(StructureField)
}
