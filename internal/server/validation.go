// validation.go - Input validation and object key helpers
package server

import (
	"fmt"
	"math"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// validateEmail checks if an email address is valid
func validateEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// Column widths from the schema. VARCHAR limits count characters.
const (
	maxNameLen      = 255
	maxEmailLen     = 255
	maxPhoneLen     = 20
	maxTreatmentLen = 255
	maxTestNameLen  = 255
	maxFilenameLen  = 255
	maxKeyLen       = 500
)

type fieldLimit struct {
	name  string
	value string
	max   int
}

// tooLong returns a client message for the first field over its limit, or
// "" when every field fits.
func tooLong(fields ...fieldLimit) string {
	for _, f := range fields {
		if utf8.RuneCountInString(f.value) > f.max {
			return fmt.Sprintf("%s must be at most %d characters", f.name, f.max)
		}
	}
	return ""
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SanitizeTestName turns a free-text test name into something safe to embed
// in an object key: ASCII only, no path separators, whitespace runs folded to
// a single underscore.
func SanitizeTestName(name string) string {
	// Decompose accented letters and drop the combining marks.
	var b strings.Builder
	for _, r := range norm.NFKD.String(name) {
		if r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	s := b.String()

	s = strings.ReplaceAll(s, "/", " ")
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.Join(strings.Fields(s), "_")
	s = unsafeKeyChars.ReplaceAllString(s, "")
	s = strings.Trim(s, "._")

	if len(s) > 100 {
		s = strings.TrimRight(s[:100], "._")
	}
	if s == "" {
		s = "report"
	}
	return s
}

// NewReportKey builds reports/<patient_id>/<test>_<8-hex>.pdf.
func NewReportKey(patientID int64, testName string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("reports/%d/%s_%s.pdf", patientID, SanitizeTestName(testName), suffix)
}

// filenameFromKey is the fallback filename when the client sends none.
func filenameFromKey(key string) string {
	return path.Base(key)
}

const dateLayout = "2006-01-02"

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, strings.TrimSpace(s))
}

// flexID accepts an id sent as a JSON number or a numeric string. Zero and
// negative ids count as absent. Ids beyond the SERIAL range are rejected.
type flexID struct {
	Value int64
	Set   bool
}

func (f *flexID) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*f = flexID{}
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
		if raw == "" {
			*f = flexID{}
			return nil
		}
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n > math.MaxInt32 {
		return fmt.Errorf("invalid id %s", string(b))
	}
	if n <= 0 {
		*f = flexID{}
		return nil
	}
	*f = flexID{Value: n, Set: true}
	return nil
}

// parsePathID parses a positive integer path segment.
func parsePathID(s string) (int64, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 || n > math.MaxInt32 {
		return 0, false
	}
	return n, true
}
