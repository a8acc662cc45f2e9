package ingest

import "unicode"

// likelyGarbled reports whether extracted PDF text looks like extraction
// garbage rather than prose: too short to be a real content page, almost no
// alphanumeric characters, or riddled with control characters. Garbled pages
// are dropped with a warning instead of being indexed.
func likelyGarbled(text string) bool {
	if len(text) < 100 {
		return true
	}

	var alnum, other int
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			alnum++
		} else {
			other++
		}
	}
	if other > 0 && float64(alnum)/float64(other) < 0.1 {
		return true
	}

	// Whitespace control characters are normal in extracted text; anything
	// else in the C0 range signals a binary-ish extraction.
	var control int
	for _, r := range text {
		switch r {
		case '\n', '\r', '\t':
			continue
		}
		if r < 0x20 || r == 0x7f {
			control++
		}
	}
	return control > 10
}
