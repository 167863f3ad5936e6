package crashlog

import "regexp"

// Captures returns the capture groups of every match of re in s. The full
// match is not included. Groups that did not participate are empty.
func Captures(re *regexp.Regexp, s string) [][]string {
	var out [][]string
	for _, m := range re.FindAllStringSubmatch(s, -1) {
		out = append(out, m[1:])
	}
	return out
}

// Named returns the group called name from m, a FindStringSubmatch result of re.
func Named(re *regexp.Regexp, m []string, name string) string {
	idx := re.SubexpIndex(name)
	if idx < 0 || idx >= len(m) {
		return ""
	}
	return m[idx]
}
