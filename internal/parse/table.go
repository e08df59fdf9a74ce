package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// tableRe accepts "T-03", "t-3", "T03", "03" and "3".
var tableRe = regexp.MustCompile(`(?i)^(?:T\s*-?\s*)?(\d{1,2})$`)

// TableID renders a table number in the operator-facing "T-03" format.
func TableID(number int) string {
	return fmt.Sprintf("T-%02d", number)
}

// TableNumber extracts the numeric table number from a table ID or a bare number.
func TableNumber(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	m := tableRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("unable to parse table id: %q", raw)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("unable to parse table id: %q: %w", raw, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("table number must be positive: %q", raw)
	}
	return n, nil
}
