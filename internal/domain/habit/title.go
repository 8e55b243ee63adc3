package habit

import (
	"regexp"
	"strconv"
	"strings"
)

var counterPattern = regexp.MustCompile(`\(\s*(\d+)\s*/\s*(\d+)\s*\)`)

// ParseTitle extracts an embedded "(current/total)" counter from a title as
// sent by older clients. The returned base title has the counter removed.
// current is clamped to total.
func ParseTitle(title string) (base string, current, total int, ok bool) {
	loc := counterPattern.FindStringSubmatchIndex(title)
	if loc == nil {
		return strings.TrimSpace(title), 0, 0, false
	}
	current, errCur := strconv.Atoi(title[loc[2]:loc[3]])
	total, errTot := strconv.Atoi(title[loc[4]:loc[5]])
	if errCur != nil || errTot != nil || total < 1 {
		return strings.TrimSpace(title), 0, 0, false
	}
	if current > total {
		current = total
	}
	base = strings.Join(strings.Fields(title[:loc[0]]+" "+title[loc[1]:]), " ")
	return base, current, total, true
}
