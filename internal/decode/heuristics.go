package decode

import "strings"

// ObjectFromFilename guesses the target object name from a capture file
// path. This is a heuristic fallback only; scheduler-job attribution always
// takes precedence during aggregation. The directory-token scan is tried
// before the filename-token scan, in that fixed order.
//
// Example path:
//
//	/home/user/Pictures/IC_434/Light/S/2026-02-27T00-02-21_IC_434_Light_600_secs_S.fits
func ObjectFromFilename(filename string) string {
	if filename == "" {
		return ""
	}
	parts := strings.Split(strings.ReplaceAll(filename, `\`, "/"), "/")

	// Directory layout scan: Pictures/<object>/...
	for i, part := range parts {
		if part == "Pictures" && i+1 < len(parts) {
			return strings.ReplaceAll(parts[i+1], "_", " ")
		}
	}

	// Filename token scan: <date>_<object tokens>_Light_...
	basename := parts[len(parts)-1]
	tokens := strings.Split(basename, "_")
	if len(tokens) <= 2 {
		return ""
	}
	var objTokens []string
	foundDate := false
	for _, tok := range tokens {
		if !foundDate {
			if strings.HasPrefix(tok, "20") || strings.HasPrefix(tok, "19") {
				foundDate = true
			}
			continue
		}
		if tok == "Light" {
			break
		}
		objTokens = append(objTokens, tok)
	}
	return strings.Join(objTokens, " ")
}
