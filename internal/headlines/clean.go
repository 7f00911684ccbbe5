package headlines

import (
	"fmt"
	"regexp"
	"strings"
)

var listPrefix = regexp.MustCompile(`^\d+\.\s*`)

// CleanHeadline normalizes a raw model response: it trims whitespace, drops a
// single leading list number ("1. ") and one wrapping quote character on each
// side. An empty result is an error.
func CleanHeadline(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = listPrefix.ReplaceAllString(s, "")
	s = trimOne(s, true, `"`, "“")
	s = trimOne(s, false, `"`, "”")
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: empty response %q", ErrEndpointCallFailed, raw)
	}
	return s, nil
}

func trimOne(s string, prefix bool, quotes ...string) string {
	for _, q := range quotes {
		if prefix && strings.HasPrefix(s, q) {
			return s[len(q):]
		}
		if !prefix && strings.HasSuffix(s, q) {
			return s[:len(s)-len(q)]
		}
	}
	return s
}
