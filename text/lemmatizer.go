package text

import "strings"

// lemmatize reduces an alphabetic English token to a rough base form.
// It is a small rule-based suffix stripper rather than a dictionary
// lemmatizer (see DESIGN.md for why): it only needs to collapse the
// common plural/verb-inflection noise that would otherwise fragment
// BM25 term statistics across "walk"/"walks"/"walking".
func lemmatize(token string) string {
	n := len(token)
	if n <= 3 {
		return token
	}

	switch {
	case strings.HasSuffix(token, "ies") && n > 4:
		return token[:n-3] + "y"
	case strings.HasSuffix(token, "ves") && n > 4:
		return token[:n-3] + "f"
	case strings.HasSuffix(token, "ses") && n > 4:
		return token[:n-2]
	case strings.HasSuffix(token, "xes") && n > 4:
		return token[:n-2]
	case strings.HasSuffix(token, "ing") && n > 5:
		stem := token[:n-3]
		return restoreSilentE(stem)
	case strings.HasSuffix(token, "ied") && n > 4:
		return token[:n-3] + "y"
	case strings.HasSuffix(token, "ed") && n > 4:
		stem := token[:n-2]
		return restoreSilentE(stem)
	case strings.HasSuffix(token, "s") && !strings.HasSuffix(token, "ss") && n > 3:
		return token[:n-1]
	}

	return token
}

// restoreSilentE receives the stem left after stripping "-ing"/"-ed"
// and returns it unchanged: no trailing "e" is restored, so "moving"
// lemmatizes to "mov", and a doubled final consonant is kept, so
// "running" lemmatizes to "runn".
func restoreSilentE(stem string) string {
	if stem == "" {
		return stem
	}
	last := stem[len(stem)-1]
	if isConsonant(last) && len(stem) >= 2 && isConsonant(stem[len(stem)-2]) {
		return stem
	}
	return stem
}

func isConsonant(b byte) bool {
	switch b {
	case 'a', 'e', 'i', 'o', 'u', 'A', 'E', 'I', 'O', 'U':
		return false
	default:
		return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
	}
}
