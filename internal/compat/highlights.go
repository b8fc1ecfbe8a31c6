package compat

import (
	"fmt"
	"strings"
)

const (
	maxHighlightedInterests = 3
	highlightThreshold      = 0.7
)

// Highlights turns stored details into the short lines shown after a reveal.
func Highlights(d Details) []string {
	var highlights []string

	if shared := d.Strings(KeySharedInterests); len(shared) > 0 {
		shared = shared[:min(len(shared), maxHighlightedInterests)]
		highlights = append(highlights, fmt.Sprintf("You both love: %s", strings.Join(shared, ", ")))
	}
	if v, ok := d.Float(KeyValuesAlignment); ok && v > highlightThreshold {
		highlights = append(highlights, "Strong values alignment")
	}
	if v, ok := d.Float(KeyHumorCompatibility); ok && v > highlightThreshold {
		highlights = append(highlights, "Compatible sense of humor")
	}

	return highlights
}
