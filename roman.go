package catacombs

import "strings"

var romanValues = map[rune]int{'M': 1000, 'D': 500, 'C': 100, 'L': 50, 'X': 10, 'V': 5, 'I': 1}

// DecodeRoman decodes a roman numeral. It reports false for empty input or
// characters outside IVXLCDM.
func DecodeRoman(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	s = strings.ToUpper(s)

	total, prev := 0, 0
	for _, r := range s {
		curr, ok := romanValues[r]
		if !ok {
			return 0, false
		}
		if curr <= prev {
			total += curr
		} else {
			total += curr - 2*prev
		}
		prev = curr
	}
	return total, true
}
