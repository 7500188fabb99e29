// Package arabic canonicalizes Arabic text for indexing and matching.
package arabic

import "strings"

// Letter folding table: hamza/madda alef variants to bare alef,
// taa marbuta to haa, hamza-carrying waw/yaa to their base letters.
var letterFold = map[rune]rune{
	'آ': 'ا', // alef madda
	'أ': 'ا', // alef hamza above
	'إ': 'ا', // alef hamza below
	'ٱ': 'ا', // alef wasla
	'ة': 'ه', // taa marbuta -> haa
	'ؤ': 'و', // waw hamza -> waw
	'ئ': 'ي', // yaa hamza -> yaa
}

// Normalize canonicalizes Arabic text: strips tashkeel marks, folds
// letter variants. Idempotent; empty input yields empty string.
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isTashkeel(r) {
			continue
		}
		if folded, ok := letterFold[r]; ok {
			r = folded
		}
		b.WriteRune(r)
	}
	return b.String()
}

// isTashkeel reports whether r is an Arabic diacritic or annotation mark.
func isTashkeel(r rune) bool {
	switch {
	case r >= 'ؐ' && r <= 'ؚ': // honorifics and small marks
		return true
	case r >= 'ً' && r <= 'ٟ': // fathatan..wavy hamza below
		return true
	case r == 'ٰ': // superscript (dagger) alef
		return true
	case r >= 'ۖ' && r <= 'ۭ': // Quranic annotation signs
		return true
	case r == 'ـ': // tatweel
		return true
	}
	return false
}
