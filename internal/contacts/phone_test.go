package contacts

import "testing"

func TestNormalizePhone(t *testing.T) {
	tests := map[string]string{
		"010 1234 5678":    "010-1234-5678",
		"010-1234-5678":    "010-1234-5678",
		"(010)123.4567":    "010-123-4567",
		"0212345678":       "0212345678",
		" 011-123-4567 ":   "011-123-4567",
		"01012345":         "01012345",
		"+82 10 1234 5678": "+82 10 1234 5678",
	}
	for in, want := range tests {
		if got := NormalizePhone(in); got != want {
			t.Errorf("NormalizePhone(%q): Expected %q, got %q", in, want, got)
		}
	}
}

func TestExtractPhone(t *testing.T) {
	tests := []struct {
		text, want string
	}{
		{"고객 연락처: 010-1234-5678 (본인)", "010-1234-5678"},
		{"(010) 1234 5678", "(010) 1234 5678"},
		{"010.123.4567 / 02-555-1234", "010.123.4567"},
		{"01012345678", "01012345678"},
		{"연락처 없음", ""},
	}
	for _, tt := range tests {
		if got := ExtractPhone(tt.text); got != tt.want {
			t.Errorf("ExtractPhone(%q): Expected %q, got %q", tt.text, tt.want, got)
		}
	}
}
