// CLAUDE:SUMMARY Parses the short-form header and the A)/B)/C) and D) items of a NOTAM fragment.
// CLAUDE:EXPORTS Header, ParseHeader, ItemsABC, ParseItemsABC, ParseItemD
package notam

import (
	"regexp"
	"strings"
	"time"
)

var (
	idRe     = regexp.MustCompile(`^([ACRN])(\d{4})/(\d{2})$`)
	headerRe = regexp.MustCompile(`(?i)^([ACRN])(\d{4})/(\d{2})\s+([A-Z]{4})\s+E\)\s*(.*)$`)
	abcRe    = regexp.MustCompile(`(?i)\bA\)\s*(\w+)\s+B\)\s*(\d{10}|PERM)\s+C\)\s*(\d{10}|PERM)`)
	itemDRe  = regexp.MustCompile(`(?i)(?:^|\s)D\)\s*(.*?)\s*(?:\sE\)|$)`)
)

// Header is the short-form line that leads a notice on the page:
// "A1234/25 LLBG E) RUNWAY CLOSED".
type Header struct {
	Scope     Scope
	Number    string
	Year      string
	Location  string
	Remainder string
}

// ID returns the identifier encoded in the header.
func (h Header) ID() string {
	return string(h.Scope) + h.Number + "/" + h.Year
}

// ParseHeader matches the fixed positional grammar
// <scope><4 digits>/<2 digits> <4-letter location> E) <text>.
// Letters are compared case-insensitively and returned upper-cased.
func ParseHeader(line string) (Header, bool) {
	m := headerRe.FindStringSubmatch(CleanText(line))
	if m == nil {
		return Header{}, false
	}
	return Header{
		Scope:     Scope(strings.ToUpper(m[1])),
		Number:    m[2],
		Year:      m[3],
		Location:  strings.ToUpper(m[4]),
		Remainder: m[5],
	}, true
}

// ParseID splits an identifier such as A0814/25 into its parts.
func ParseID(id string) (scope Scope, number, year string, ok bool) {
	m := idRe.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(id)))
	if m == nil {
		return "", "", "", false
	}
	return Scope(m[1]), m[2], m[3], true
}

// NormalizeID trims and upper-cases an identifier label.
func NormalizeID(id string) string {
	return strings.ToUpper(CleanText(id))
}

// ItemsABC holds the location and validity window from the A), B) and C)
// items of an expanded notice.
type ItemsABC struct {
	Location string
	From     time.Time
	To       time.Time
}

// ParseItemsABC parses "A) <location> B) <date> C) <date>" where each date
// is a compact date or PERM. All three items must be present.
func ParseItemsABC(fragment string, now time.Time) (ItemsABC, error) {
	m := abcRe.FindStringSubmatch(CleanText(fragment))
	if m == nil {
		return ItemsABC{}, &DecodeError{Field: "A)B)C)", Input: fragment, Err: ErrNoMatch}
	}
	from, err := DecodeCompactDate(strings.ToUpper(m[2]), now)
	if err != nil {
		return ItemsABC{}, err
	}
	to, err := DecodeCompactDate(strings.ToUpper(m[3]), now)
	if err != nil {
		return ItemsABC{}, err
	}
	return ItemsABC{Location: strings.ToUpper(m[1]), From: from, To: to}, nil
}

// ParseItemD returns the schedule text of a D) item, or "" if absent.
func ParseItemD(fragment string) string {
	m := itemDRe.FindStringSubmatch(CleanText(fragment))
	if m == nil {
		return ""
	}
	return m[1]
}
