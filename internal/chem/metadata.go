package chem

import (
	"strings"
)

// Metadata keys written next to the structure in a molecule document.
const (
	KeyNSites             = "nsites"
	KeyElements           = "elements"
	KeyNElements          = "nelements"
	KeyComposition        = "composition"
	KeyCompositionReduced = "composition_reduced"
	KeyFormulaPretty      = "formula_pretty"
	KeyFormulaAnonymous   = "formula_anonymous"
	KeyChemsys            = "chemsys"
	KeyCharge             = "charge"
	KeySpinMultiplicity   = "spin_multiplicity"
)

// ChemsysSeparator joins element symbols in a chemical-system string.
const ChemsysSeparator = "-"

// StructureMetadata derives descriptive fields from a serialized structure.
// Charge and spin multiplicity are included only when the structure carries
// them.
func StructureMetadata(structure any) (map[string]any, error) {
	m, err := ParseMolecule(structure)
	if err != nil {
		return nil, err
	}

	comp := m.Composition()
	elements := comp.Elements()
	elemList := make([]any, len(elements))
	for i, el := range elements {
		elemList[i] = el
	}

	meta := map[string]any{
		KeyNSites:             int64(m.NumSites()),
		KeyElements:           elemList,
		KeyNElements:          int64(len(elements)),
		KeyComposition:        comp.Map(),
		KeyCompositionReduced: comp.Reduced().Map(),
		KeyFormulaPretty:      comp.ReducedFormula(),
		KeyFormulaAnonymous:   comp.AnonymousFormula(),
		KeyChemsys:            strings.Join(elements, ChemsysSeparator),
	}
	if m.HasCharge {
		meta[KeyCharge] = m.Charge
	}
	if m.HasSpin {
		meta[KeySpinMultiplicity] = m.SpinMultiplicity
	}
	return meta, nil
}

// FormulaOf returns the reduced formula of a serialized structure.
func FormulaOf(structure any) (string, error) {
	m, err := ParseMolecule(structure)
	if err != nil {
		return "", err
	}
	return m.Composition().ReducedFormula(), nil
}
