package staging

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Dimension is a canonical measurement axis of a small find.
type Dimension int

const (
	DimLength Dimension = iota
	DimWidth
	DimHeight
	DimThickness
	DimDiameter
	DimPerforation
	DimWeight
)

func (d Dimension) String() string {
	switch d {
	case DimLength:
		return "length"
	case DimWidth:
		return "width"
	case DimHeight:
		return "height"
	case DimThickness:
		return "thickness"
	case DimDiameter:
		return "diameter"
	case DimPerforation:
		return "perforation diameter"
	case DimWeight:
		return "weight"
	default:
		return "unknown"
	}
}

// keyAlias resolves a raw token key to its canonical dimension. Exact
// matches are tried first, then the substring rules in declaration order,
// so "perf. dia" resolves to perforation diameter rather than diameter.
type keyAlias struct {
	substring string
	dim       Dimension
}

var exactKeys = map[string]Dimension{
	"w": DimWidth,
	"l": DimLength,
	"h": DimHeight,
}

var aliasRules = []keyAlias{
	{"perf", DimPerforation},
	{"weight", DimWeight},
	{"dia", DimDiameter},
	{"len", DimLength},
	{"width", DimWidth},
	{"height", DimHeight},
	{"thick", DimThickness},
}

// Token is one parsed dimension measurement.
type Token struct {
	Dim   Dimension
	Value float64
	Unit  string // mm, cm, m, g, kg
	Raw   string // the original fragment, preserved for the sf_measures column
}

// Millimeters converts a length token's value to millimeters.
func (t Token) Millimeters() float64 {
	switch t.Unit {
	case "cm":
		return t.Value * 10
	case "m":
		return t.Value * 1000
	default:
		return t.Value
	}
}

// Grams converts a weight token's value to grams.
func (t Token) Grams() float64 {
	if t.Unit == "kg" {
		return t.Value * 1000
	}
	return t.Value
}

// Issue describes a fragment of a measurement field that could not be used.
// The fragment is dropped; the row it came from survives.
type Issue struct {
	Fragment string
	Reason   string
}

var leadingNumber = regexp.MustCompile(`^\s*(\d+(?:[.,]\d+)?)`)

// ParseMeasures parses a free-text "other dimensions" field: a `;` or `,`
// separated list of key:value tokens. Unparseable fragments and repeated
// dimensions are reported as issues and dropped; the first occurrence of a
// dimension wins.
func ParseMeasures(input string) ([]Token, []Issue) {
	var tokens []Token
	var issues []Issue
	seen := make(map[Dimension]bool)

	input = strings.ReplaceAll(input, ",", ";")
	for _, fragment := range strings.Split(input, ";") {
		if strings.TrimSpace(fragment) == "" {
			continue
		}
		tok, err := parseToken(fragment)
		if err != nil {
			issues = append(issues, Issue{Fragment: fragment, Reason: err.Error()})
			continue
		}
		if seen[tok.Dim] {
			issues = append(issues, Issue{
				Fragment: fragment,
				Reason:   fmt.Sprintf("%s given twice or more", tok.Dim),
			})
			continue
		}
		seen[tok.Dim] = true
		tokens = append(tokens, tok)
	}

	return tokens, issues
}

// parseToken interprets a single key:value fragment.
func parseToken(fragment string) (Token, error) {
	parts := strings.SplitN(fragment, ":", 2)
	if len(parts) != 2 {
		return Token{}, fmt.Errorf("missing ':' in %q", strings.TrimSpace(fragment))
	}
	key := strings.ToLower(strings.TrimSpace(parts[0]))
	value := strings.ToLower(strings.TrimSpace(parts[1]))

	dim, ok := resolveKey(key)
	if !ok {
		return Token{}, fmt.Errorf("unclear dimension %q", key)
	}

	unit, ok := findUnit(value, dim)
	if !ok {
		return Token{}, fmt.Errorf("no known measurement unit in %q", key)
	}

	m := leadingNumber.FindStringSubmatch(value)
	if m == nil {
		return Token{}, fmt.Errorf("no number in %q", strings.TrimSpace(fragment))
	}
	num, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil {
		return Token{}, fmt.Errorf("no number in %q", strings.TrimSpace(fragment))
	}

	return Token{Dim: dim, Value: num, Unit: unit, Raw: strings.TrimSpace(fragment)}, nil
}

func resolveKey(key string) (Dimension, bool) {
	if dim, ok := exactKeys[key]; ok {
		return dim, true
	}
	for _, rule := range aliasRules {
		if strings.Contains(key, rule.substring) {
			return rule.dim, true
		}
	}
	return 0, false
}

// findUnit locates a recognized unit substring in the value part. Lengths
// accept mm, cm, or a standalone m; weight additionally accepts gram units.
func findUnit(value string, dim Dimension) (string, bool) {
	switch {
	case strings.Contains(value, "mm"):
		return "mm", true
	case strings.Contains(value, "cm"):
		return "cm", true
	case strings.Contains(value, " m") || strings.HasSuffix(value, "m"):
		return "m", true
	}
	if dim == DimWeight {
		if strings.Contains(value, "kg") || strings.Contains(value, "k") {
			return "kg", true
		}
		if strings.Contains(value, "g") {
			return "g", true
		}
	}
	return "", false
}

var gramExpr = regexp.MustCompile(`^\s*([\d.,]*)\s*([A-Za-z]*)\s*$`)

// ParseGrams interprets a weight field, normalizing the result to grams.
// Accepted units are g/gr/grams (factor 1) and kg/k (factor 1000); a bare
// number is taken as grams. Anything else is a field error.
func ParseGrams(input string) (float64, error) {
	if strings.TrimSpace(input) == "" {
		return 0, fmt.Errorf("empty weight")
	}

	m := gramExpr.FindStringSubmatch(input)
	if m == nil {
		return 0, fmt.Errorf("unclear weight %q", input)
	}

	if m[1] == "" {
		return 0, fmt.Errorf("missing numerical part in %q", input)
	}
	num, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("missing numerical part in %q", input)
	}

	unit := strings.ToLower(m[2])
	switch unit {
	case "", "g", "gr", "grams":
		return num, nil
	case "kg", "k":
		return num * 1000, nil
	default:
		return 0, fmt.Errorf("unknown weight unit %q", unit)
	}
}
