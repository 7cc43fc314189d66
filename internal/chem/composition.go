package chem

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

const amountTolerance = 1e-8

// Composition maps element symbols to (possibly fractional) amounts.
type Composition map[string]float64

// specialFormulas rewrites reduced formulas of common diatomics and
// peroxides to their molecular form.
var specialFormulas = map[string]string{
	"LiO": "Li2O2",
	"NaO": "Na2O2",
	"KO":  "K2O2",
	"HO":  "H2O2",
	"CsO": "Cs2O2",
	"RbO": "Rb2O2",
	"O":   "O2",
	"N":   "N2",
	"F":   "F2",
	"Cl":  "Cl2",
	"H":   "H2",
}

// Elements returns the element symbols in alphabetical order.
func (c Composition) Elements() []string {
	out := make([]string, 0, len(c))
	for sym, amt := range c {
		if amt != 0 {
			out = append(out, sym)
		}
	}
	sort.Strings(out)
	return out
}

// Map returns the composition as a generic map for document embedding.
func (c Composition) Map() map[string]any {
	out := make(map[string]any, len(c))
	for sym, amt := range c {
		out[sym] = amt
	}
	return out
}

// bySymbolX orders symbols by electronegativity, then by symbol.
func (c Composition) bySymbolX() []string {
	syms := make([]string, 0, len(c))
	for sym := range c {
		syms = append(syms, sym)
	}
	sort.Slice(syms, func(i, j int) bool {
		xi, xj := electronegativity[syms[i]], electronegativity[syms[j]]
		if xi != xj {
			return xi < xj
		}
		return syms[i] < syms[j]
	})
	return syms
}

// ReducedFormulaAndFactor returns the reduced formula and the factor the
// composition was divided by. Fractional compositions are not reduced.
func (c Composition) ReducedFormulaAndFactor() (string, float64) {
	for _, amt := range c {
		if math.Abs(amt-math.Round(amt)) >= amountTolerance {
			var b strings.Builder
			for _, sym := range c.bySymbolX() {
				b.WriteString(sym)
				b.WriteString(formatAmount(c[sym], false))
			}
			return b.String(), 1
		}
	}

	formula, factor := reduceFormula(c)
	if special, ok := specialFormulas[formula]; ok {
		formula = special
		factor /= 2
	}
	return formula, factor
}

// ReducedFormula returns the electronegativity-ordered reduced formula.
func (c Composition) ReducedFormula() string {
	f, _ := c.ReducedFormulaAndFactor()
	return f
}

// Reduced returns the composition divided by its reduction factor.
func (c Composition) Reduced() Composition {
	_, factor := c.ReducedFormulaAndFactor()
	out := make(Composition, len(c))
	for sym, amt := range c {
		out[sym] = amt / factor
	}
	return out
}

// AnonymousFormula replaces element symbols by letters assigned in order of
// increasing amount ("H2O" becomes "AB2").
func (c Composition) AnonymousFormula() string {
	amounts := make([]float64, 0, len(c))
	for _, amt := range c {
		amounts = append(amounts, amt)
	}
	if factor, ok := integralGCD(amounts); ok && factor > 1 {
		for i := range amounts {
			amounts[i] /= float64(factor)
		}
	}
	sort.Float64s(amounts)

	var b strings.Builder
	for i, amt := range amounts {
		b.WriteByte(byte('A' + i%26))
		b.WriteString(formatAmount(amt, true))
	}
	return b.String()
}

// reduceFormula divides integral amounts by their gcd and renders the
// formula, grouping the two most electronegative elements as a polyanion
// when that pair itself reduces further.
func reduceFormula(c Composition) (string, float64) {
	syms := c.bySymbolX()
	amounts := make([]float64, len(syms))
	for i, sym := range syms {
		amounts[i] = c[sym]
	}
	factor := 1.0
	if g, ok := integralGCD(amounts); ok && g > 0 {
		factor = float64(g)
	}

	var polyanion string
	if n := len(syms); n >= 3 && electronegativity[syms[n-1]]-electronegativity[syms[n-2]] < 1.65 {
		poly := Composition{
			syms[n-2]: c[syms[n-2]] / factor,
			syms[n-1]: c[syms[n-1]] / factor,
		}
		polyForm, polyFactor := reduceFormula(poly)
		if polyFactor != 1 {
			polyanion = fmt.Sprintf("(%s)%d", polyForm, int64(polyFactor))
			syms = syms[:n-2]
		}
	}

	var b strings.Builder
	for _, sym := range syms {
		b.WriteString(sym)
		b.WriteString(formatAmount(c[sym]/factor, true))
	}
	b.WriteString(polyanion)
	return b.String(), factor
}

// integralGCD returns the gcd of amounts when every amount is an exact
// integer.
func integralGCD(amounts []float64) (int64, bool) {
	var g int64
	for _, amt := range amounts {
		if amt != math.Trunc(amt) {
			return 0, false
		}
		g = gcd(g, int64(math.Abs(amt)))
	}
	return g, true
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// formatAmount renders an element amount: integral amounts print without a
// fraction and, when ignoreOnes is set, an amount of one prints nothing.
func formatAmount(amt float64, ignoreOnes bool) string {
	if ignoreOnes && amt == 1 {
		return ""
	}
	if math.Abs(amt-math.Trunc(amt)) < amountTolerance {
		return strconv.FormatInt(int64(amt), 10)
	}
	rounded := math.Round(amt*1e8) / 1e8
	return strconv.FormatFloat(rounded, 'f', -1, 64)
}
