package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Thresholds tunes the fuzzy instruction filters. The defaults are carried
// over unchanged from earlier tuning and are not known to be optimal.
type Thresholds struct {
	// MinInstructionChars rejects instruction fragments of this many runes or fewer.
	MinInstructionChars int
	// MaxAttributionWords is the longest fragment still considered a bare name.
	MaxAttributionWords int
}

// DefaultThresholds returns the shipped filter settings.
func DefaultThresholds() Thresholds {
	return Thresholds{MinInstructionChars: 10, MaxAttributionWords: 3}
}

func (t Thresholds) withDefaults() Thresholds {
	d := DefaultThresholds()
	if t.MinInstructionChars <= 0 {
		t.MinInstructionChars = d.MinInstructionChars
	}
	if t.MaxAttributionWords <= 0 {
		t.MaxAttributionWords = d.MaxAttributionWords
	}
	return t
}

var (
	byPrefix     = regexp.MustCompile(`^(?i:by)\s+\p{Lu}`)
	cookingTerms = regexp.MustCompile(`(?i)\b(heat|add|stir|mix|cook|bake|simmer|boil|fry|roast|season|taste|serve|preheat|chop|dice|slice|mince|pour|drain|whisk|beat|fold|knead|roll|cut|peel|grate|zest|squeeze|melt|saute|sauté|brown|caramelize|deglaze|reduce|thicken|thaw|marinate|brine|rub|glaze|garnish|top|sprinkle|drizzle|toss|coat|dredge|flour|bread|batter|crust|filling|topping|sauce|gravy|broth|stock|marinade|dressing|vinaigrette|seasoning|spice|herb|flavor|tender|crispy|golden|caramel|syrup|honey|sugar|salt|pepper|garlic|onion|oven|pan|bowl|minutes?)`)
)

// LooksLikeAttribution reports whether text reads like an author credit
// ("By Jane Smith", "Jane Smith") rather than a cooking step.
func LooksLikeAttribution(text string, th Thresholds) bool {
	th = th.withDefaults()
	s := strings.TrimSpace(text)
	if s == "" {
		return true
	}
	if byPrefix.MatchString(s) {
		return true
	}
	words := strings.Fields(s)
	if len(words) > th.MaxAttributionWords || cookingTerms.MatchString(s) {
		return false
	}
	for i, w := range words {
		if i == len(words)-1 {
			w = strings.TrimSuffix(w, ".")
		}
		if !isTitleCaseWord(w) {
			return false
		}
	}
	return true
}

// KeepInstruction applies both the length floor and the attribution filter.
func KeepInstruction(text string, th Thresholds) bool {
	th = th.withDefaults()
	s := strings.TrimSpace(text)
	if utf8.RuneCountInString(s) <= th.MinInstructionChars {
		return false
	}
	return !LooksLikeAttribution(s, th)
}

func isTitleCaseWord(w string) bool {
	first, size := utf8.DecodeRuneInString(w)
	if first == utf8.RuneError || !unicode.IsUpper(first) {
		return false
	}
	rest := w[size:]
	if rest == "" {
		return false
	}
	for _, r := range rest {
		if !unicode.IsLower(r) {
			return false
		}
	}
	return true
}
