package server

import (
	"encoding/json"
	"regexp"
	"strings"
	"testing"
)

func TestSanitizeTestName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Blood Test", "Blood_Test"},
		{"  CBCT   scan ", "CBCT_scan"},
		{"X-Ray (Panoramic)", "X-Ray_Panoramic"},
		{"../../etc/passwd", "etc_passwd"},
		{`a\b`, "a_b"},
		{"Röntgen Übersicht", "Rontgen_Ubersicht"},
		{"report.v2.pdf", "report.v2.pdf"},
		{"___", "report"},
		{"日本語", "report"},
		{"", "report"},
	}
	for _, tt := range tests {
		if got := SanitizeTestName(tt.in); got != tt.want {
			t.Errorf("SanitizeTestName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeTestName_Length(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	if got := SanitizeTestName(string(long)); len(got) != 100 {
		t.Fatalf("expected truncation to 100, got %d", len(got))
	}
}

func TestNewReportKey(t *testing.T) {
	pattern := regexp.MustCompile(`^reports/42/Root_Canal_[0-9a-f]{8}\.pdf$`)
	key := NewReportKey(42, "Root Canal")
	if !pattern.MatchString(key) {
		t.Fatalf("key %q does not match %s", key, pattern)
	}
	if filenameFromKey(key) != key[len("reports/42/"):] {
		t.Fatalf("filenameFromKey(%q) = %q", key, filenameFromKey(key))
	}
}

func TestValidateEmail(t *testing.T) {
	valid := []string{"a@b.co", "first.last+tag@clinic.example.org"}
	invalid := []string{"", "plain", "a@b", "@b.co", "a b@c.co"}
	for _, e := range valid {
		if !validateEmail(e) {
			t.Errorf("%q should be valid", e)
		}
	}
	for _, e := range invalid {
		if validateEmail(e) {
			t.Errorf("%q should be invalid", e)
		}
	}
}

func TestFlexID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		set     bool
		wantErr bool
	}{
		{`{"id":5}`, 5, true, false},
		{`{"id":"12"}`, 12, true, false},
		{`{"id":" 7 "}`, 7, true, false},
		{`{"id":""}`, 0, false, false},
		{`{"id":null}`, 0, false, false},
		{`{}`, 0, false, false},
		{`{"id":0}`, 0, false, false},
		{`{"id":-3}`, 0, false, false},
		{`{"id":"0"}`, 0, false, false},
		{`{"id":2147483647}`, 2147483647, true, false},
		{`{"id":2147483648}`, 0, false, true},
		{`{"id":"abc"}`, 0, false, true},
		{`{"id":5.5}`, 0, false, true},
		{`{"id":true}`, 0, false, true},
	}
	for _, tt := range tests {
		var v struct {
			ID flexID `json:"id"`
		}
		err := json.Unmarshal([]byte(tt.in), &v)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%s: expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error %v", tt.in, err)
			continue
		}
		if v.ID.Value != tt.want || v.ID.Set != tt.set {
			t.Errorf("%s: got %+v, want value=%d set=%v", tt.in, v.ID, tt.want, tt.set)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := parseDate(" 2025-04-10 ")
	if err != nil {
		t.Fatal(err)
	}
	if d.Format(dateLayout) != "2025-04-10" {
		t.Fatalf("parsed %v", d)
	}
	for _, bad := range []string{"2025-13-01", "10/04/2025", "tomorrow"} {
		if _, err := parseDate(bad); err == nil {
			t.Errorf("%q should not parse", bad)
		}
	}
}

func TestParsePathID(t *testing.T) {
	if id, ok := parsePathID("15"); !ok || id != 15 {
		t.Fatalf("parsePathID(15) = %d, %v", id, ok)
	}
	for _, bad := range []string{"", "0", "-1", "1.5", "x", "2147483648"} {
		if _, ok := parsePathID(bad); ok {
			t.Errorf("%q should be rejected", bad)
		}
	}
}

func TestTooLong(t *testing.T) {
	if msg := tooLong(
		fieldLimit{"name", "Ana", maxNameLen},
		fieldLimit{"phone", "+46 70 000 00 01", maxPhoneLen},
	); msg != "" {
		t.Fatalf("expected fields to fit, got %q", msg)
	}

	msg := tooLong(
		fieldLimit{"name", "Ana", maxNameLen},
		fieldLimit{"phone", "+1 (555) 123-4567 ext 89", maxPhoneLen},
	)
	if msg != "phone must be at most 20 characters" {
		t.Fatalf("message = %q", msg)
	}

	// Twenty accented letters are twenty characters even though they take
	// forty bytes.
	if msg := tooLong(fieldLimit{"phone", strings.Repeat("é", 20), maxPhoneLen}); msg != "" {
		t.Fatalf("rune count should be used, got %q", msg)
	}
}
