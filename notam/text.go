package notam

import "strings"

// CleanText normalises page text: each line is trimmed, empty lines are
// dropped, lines are joined with single spaces and runs of whitespace
// collapse to one space. The result never contains a line break and
// CleanText(CleanText(s)) == CleanText(s).
func CleanText(s string) string {
	// strings.Fields splits on every Unicode space including \r and \n, which
	// covers trim, drop-empty, join and collapse in one pass.
	return strings.Join(strings.Fields(s), " ")
}

// JoinFragments cleans each fragment and joins the non-empty ones with a
// single space.
func JoinFragments(fragments []string) string {
	parts := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if c := CleanText(f); c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, " ")
}
