package records

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NumberFormat controls locale-aware numeric parsing. Zero runes auto-detect.
type NumberFormat struct {
	DecimalSeparator   rune
	ThousandsSeparator rune
}

var missingTokens = map[string]bool{
	"": true, "na": true, "n/a": true, "nan": true, "null": true, "none": true, "-": true,
}

// IsMissing reports whether a raw cell denotes a missing value.
func IsMissing(raw string) bool {
	return missingTokens[strings.ToLower(strings.TrimSpace(raw))]
}

// ParseNumber parses a numeric cell. Missing cells yield NaN and no error.
func ParseNumber(s string, nf NumberFormat) (float64, error) {
	if IsMissing(s) {
		return math.NaN(), nil
	}
	raw := strings.TrimSpace(s)
	raw = strings.TrimSuffix(raw, "%")
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	dec := nf.DecimalSeparator
	thou := nf.ThousandsSeparator
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		switch {
		case cpos >= 0 && dpos >= 0:
			if cpos > dpos {
				dec, thou = ',', '.'
			} else {
				dec, thou = '.', ','
			}
		case cpos >= 0 && strings.Count(raw, ",") == 1 && len(raw)-cpos-1 != 3:
			// "12,5" is a decimal comma; "1,000" is a thousands group
			dec = ','
		default:
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return math.NaN(), fmt.Errorf("not a number: %q", s)
	}
	return f, nil
}
