package comet

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// no markup survives
var fragmentPolicy = bluemonday.StrictPolicy()

// tags that end a line when the fragment is shown as text
var lineBreakPattern = regexp.MustCompile(`(?i)<br\s*/?>|</(div|p|li|tr|h[1-6]|pre|blockquote)\s*>`)

// converts an html content fragment to plain text for line oriented displays
func FragmentText(fragment string) string {
	if fragment == "" {
		return ""
	}
	marked := lineBreakPattern.ReplaceAllStringFunc(fragment, func(tag string) string {
		return tag + "\n"
	})
	text := html.UnescapeString(fragmentPolicy.Sanitize(marked))
	// collapse runs of blank lines left behind by nested blocks
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
