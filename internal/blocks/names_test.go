package blocks

import "testing"

func TestIsValidProjectName(t *testing.T) {
	defaults := NameRules{Suffix: "님"}

	tests := []struct {
		name  string
		rules NameRules
		value string
		want  bool
	}{
		{"prefix and suffix", defaults, "멱살반 홍길동님", true},
		{"plain name", defaults, "홍길동", false},
		{"empty", defaults, "", false},
		{"whitespace", defaults, "   ", false},
		{"na marker", defaults, "#N/A", false},
		{"suffix only", defaults, "홍길동님", true},
		{"default prefix only", defaults, "스타일링대행 홍길동", true},
		{"short term prefix", defaults, "단기 홍길동", true},
		{"configured prefix replaces defaults", NameRules{Prefixes: []string{"VIP"}}, "멱살반 홍길동", false},
		{"configured prefix", NameRules{Prefixes: []string{"VIP"}}, "VIP 홍길동", true},
		{"require suffix rejects prefix only", NameRules{Suffix: "님", RequireSuffix: true}, "멱살반 홍길동", false},
		{"require suffix accepts", NameRules{Suffix: "님", RequireSuffix: true}, "홍길동님", true},
		{"allow any", NameRules{AllowAny: true}, "anything", true},
		{"allow any still rejects empty", NameRules{AllowAny: true}, "", false},
		{"allow any still rejects na", NameRules{AllowAny: true}, "#N/A", false},
	}

	for _, tt := range tests {
		if got := tt.rules.IsValid(tt.value); got != tt.want {
			t.Errorf("%s: IsValid(%q) expected %v, got %v", tt.name, tt.value, tt.want, got)
		}
	}
}
