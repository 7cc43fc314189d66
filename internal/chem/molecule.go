package chem

import (
	"fmt"
	"strings"

	"github.com/roach88/molbuild/internal/mol"
)

// Molecule is the parsed subset of a serialized structure needed to derive
// metadata.
type Molecule struct {
	Sites            []Site
	Charge           any
	SpinMultiplicity any
	HasCharge        bool
	HasSpin          bool
}

// Site is one atomic site: element occupancies.
type Site struct {
	Occupancy map[string]float64
}

// ParseMolecule reads a serialized structure.
func ParseMolecule(v any) (*Molecule, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("structure is %T, want object", v)
	}
	rawSites, ok := m["sites"].([]any)
	if !ok {
		return nil, fmt.Errorf("structure has no sites list")
	}

	out := &Molecule{Sites: make([]Site, 0, len(rawSites))}
	for i, rs := range rawSites {
		site, err := parseSite(rs)
		if err != nil {
			return nil, fmt.Errorf("site %d: %w", i, err)
		}
		out.Sites = append(out.Sites, site)
	}

	if c, ok := m["charge"]; ok {
		out.Charge, out.HasCharge = c, true
	}
	if s, ok := m["spin_multiplicity"]; ok {
		out.SpinMultiplicity, out.HasSpin = s, true
	}
	return out, nil
}

func parseSite(v any) (Site, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return Site{}, fmt.Errorf("site is %T, want object", v)
	}
	species, ok := m["species"].([]any)
	if !ok || len(species) == 0 {
		return Site{}, fmt.Errorf("site has no species")
	}
	occ := make(map[string]float64, len(species))
	for _, sp := range species {
		spm, ok := sp.(map[string]any)
		if !ok {
			return Site{}, fmt.Errorf("species is %T, want object", sp)
		}
		el, _ := spm["element"].(string)
		el = strings.TrimSpace(el)
		if !IsElement(el) {
			return Site{}, fmt.Errorf("unknown element %q", el)
		}
		amt := 1.0
		if raw, ok := spm["occu"]; ok {
			f, ok := mol.ToFloat(raw)
			if !ok {
				return Site{}, fmt.Errorf("occupancy for %s is %T", el, raw)
			}
			amt = f
		}
		occ[el] += amt
	}
	return Site{Occupancy: occ}, nil
}

// NumSites returns the number of atomic sites.
func (m *Molecule) NumSites() int {
	return len(m.Sites)
}

// Composition sums element occupancies over all sites.
func (m *Molecule) Composition() Composition {
	c := make(Composition)
	for _, s := range m.Sites {
		for el, amt := range s.Occupancy {
			c[el] += amt
		}
	}
	return c
}
