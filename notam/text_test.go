package notam

import (
	"strings"
	"testing"
)

func TestCleanText(t *testing.T) {
	// WHAT: lines are trimmed, empty ones dropped and whitespace collapsed.
	// WHY: stored bodies must be single-line for the viewer and for diffs.
	cases := map[string]string{
		"":                                   "",
		"  RWY 12/30  ":                      "RWY 12/30",
		"RWY 12/30\nCLSD":                    "RWY 12/30 CLSD",
		"\r\n  RWY\t\t12/30 \r\n\r\n  CLSD\n": "RWY 12/30 CLSD",
		"A)  LLBG   B) 2501011200":           "A) LLBG B) 2501011200",
	}
	for in, want := range cases {
		if got := CleanText(in); got != want {
			t.Errorf("%q: got %q, want %q", in, got, want)
		}
	}
}

func TestCleanText_IdempotentNoNewlines(t *testing.T) {
	// WHAT: CleanText(CleanText(x)) == CleanText(x) and the result has no line breaks.
	// WHY: records are re-normalized on every run; a drifting body would look like a change.
	inputs := []string{
		"one\ntwo\n\nthree",
		"\n\n\n",
		"  a  \r\n b   c\v\fd ",
		"E) TWY A CLSD\n  DUE TO WIP\n",
		strings.Repeat("x \n", 50),
	}
	for _, in := range inputs {
		once := CleanText(in)
		if twice := CleanText(once); twice != once {
			t.Errorf("%q: not idempotent: %q vs %q", in, once, twice)
		}
		if strings.ContainsAny(once, "\r\n") {
			t.Errorf("%q: output contains a line break: %q", in, once)
		}
	}
}

func TestJoinFragments(t *testing.T) {
	// WHAT: fragments are cleaned and joined with one space, blanks skipped.
	// WHY: the provisional body is built from several short-text nodes.
	got := JoinFragments([]string{" RWY 12 ", "", "\n", "CLSD\nFOR WIP"})
	if got != "RWY 12 CLSD FOR WIP" {
		t.Errorf("got %q", got)
	}
}
