// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package depanalysis

import (
	"regexp"
	"strings"
)

// lineNumberOfMatch returns the 1-based line on which re first matches
// text, or 0 if it does not match.
func lineNumberOfMatch(text string, re *regexp.Regexp) int {
	loc := re.FindStringIndex(text)
	if loc == nil {
		return 0
	}
	return strings.Count(text[:loc[0]], "\n") + 1
}
