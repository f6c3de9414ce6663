// Package scale parses ingredient amounts into exact rationals, rescales them
// for a different serving count and renders them back as cooking-friendly text.
package scale

import (
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Tolerance is how close a remainder must be to a table fraction (or to a
// whole number) to be rendered as that fraction.
const Tolerance = 0.02

// cookingDenominators are the denominators rendered as fractions: halves,
// thirds, quarters, fifths and eighths.
var cookingDenominators = []int64{2, 3, 4, 5, 8}

var (
	decimalRe  = regexp.MustCompile(`^(\d+(\.\d+)?|\.\d+)$`)
	fractionRe = regexp.MustCompile(`^\d+/\d+$`)
)

// ParseAmount parses a single amount such as "2", "1.5", "1/2", "1 1/2",
// "½" or "1½". Ranges and free text are reported as not numeric.
func ParseAmount(s string) (*big.Rat, bool) {
	s = decomposeFractions(strings.TrimSpace(s))
	if s == "" {
		return nil, false
	}
	parts := strings.Fields(s)
	switch len(parts) {
	case 1:
		return parseTerm(parts[0])
	case 2:
		if !decimalRe.MatchString(parts[0]) || strings.Contains(parts[0], ".") || !fractionRe.MatchString(parts[1]) {
			return nil, false
		}
		whole, ok := parseTerm(parts[0])
		if !ok {
			return nil, false
		}
		frac, ok := parseTerm(parts[1])
		if !ok {
			return nil, false
		}
		return whole.Add(whole, frac), true
	default:
		return nil, false
	}
}

func parseTerm(s string) (*big.Rat, bool) {
	if !decimalRe.MatchString(s) && !fractionRe.MatchString(s) {
		return nil, false
	}
	if fractionRe.MatchString(s) && strings.HasSuffix(s, "/0") {
		return nil, false
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, false
	}
	return r, true
}

// decomposeFractions rewrites vulgar fraction characters into ASCII
// "n/d" form, separating them from a preceding digit ("1½" -> "1 1/2").
func decomposeFractions(s string) string {
	if isASCII(s) {
		return s
	}
	var b strings.Builder
	var prev rune
	for _, r := range s {
		if isVulgarFraction(r) {
			if unicode.IsDigit(prev) {
				b.WriteByte(' ')
			}
			b.WriteString(norm.NFKC.String(string(r)))
		} else {
			b.WriteRune(r)
		}
		prev = r
	}
	return strings.ReplaceAll(b.String(), "⁄", "/")
}

func isVulgarFraction(r rune) bool {
	if !unicode.Is(unicode.No, r) {
		return false
	}
	return strings.ContainsRune(norm.NFKC.String(string(r)), '⁄')
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// FormatAmount renders v using whole numbers, common cooking fractions or a
// decimal with at most two places, in that order of preference.
func FormatAmount(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	neg := v < 0
	if neg {
		v = -v
	}
	out := formatPositive(v)
	if neg && out != "0" {
		out = "-" + out
	}
	return out
}

func formatPositive(v float64) string {
	whole := math.Floor(v)
	rem := v - whole
	if rem < Tolerance {
		return strconv.FormatFloat(whole, 'f', 0, 64)
	}
	if 1-rem < Tolerance {
		return strconv.FormatFloat(whole+1, 'f', 0, 64)
	}
	bestNum, bestDen := int64(0), int64(0)
	bestDiff := Tolerance
	for _, den := range cookingDenominators {
		for num := int64(1); num < den; num++ {
			if gcd(num, den) != 1 {
				continue
			}
			diff := math.Abs(rem - float64(num)/float64(den))
			if diff < bestDiff {
				bestNum, bestDen, bestDiff = num, den, diff
			}
		}
	}
	if bestDen != 0 {
		return joinMixed(int64(whole), bestNum, bestDen)
	}
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

// FormatRat renders r exactly when its denominator is a cooking denominator
// and falls back to FormatAmount otherwise.
func FormatRat(r *big.Rat) string {
	if r.IsInt() {
		return r.Num().String()
	}
	if r.Sign() > 0 && r.Denom().IsInt64() && r.Num().IsInt64() {
		den := r.Denom().Int64()
		for _, d := range cookingDenominators {
			if den == d {
				num := r.Num().Int64()
				return joinMixed(num/den, num%den, den)
			}
		}
	}
	f, _ := r.Float64()
	return FormatAmount(f)
}

func joinMixed(whole, num, den int64) string {
	frac := strconv.FormatInt(num, 10) + "/" + strconv.FormatInt(den, 10)
	if whole > 0 {
		return strconv.FormatInt(whole, 10) + " " + frac
	}
	return frac
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
