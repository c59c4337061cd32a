package blocks

import (
	"strings"

	"homestyle_sync/internal/config"
)

// DefaultNamePrefixes apply when no prefixes are configured.
var DefaultNamePrefixes = []string{"멱살반", "반멱살", "스타일링대행", "단기"}

const naMarker = "#N/A"

// NameRules decides whether a project-name cell denotes a real project.
type NameRules struct {
	Prefixes      []string
	Suffix        string
	RequireSuffix bool
	AllowAny      bool
}

func NewNameRules(cfg config.NameValidation) NameRules {
	return NameRules{
		Prefixes:      cfg.Prefixes,
		Suffix:        cfg.Suffix,
		RequireSuffix: cfg.RequireSuffix,
		AllowAny:      cfg.AllowAny,
	}
}

func (r NameRules) IsValid(value string) bool {
	s := strings.TrimSpace(value)
	if s == "" || s == naMarker {
		return false
	}
	if r.AllowAny {
		return true
	}

	prefixes := r.Prefixes
	if len(prefixes) == 0 {
		prefixes = DefaultNamePrefixes
	}
	hasPrefix := false
	for _, p := range prefixes {
		p = strings.TrimSpace(p)
		if p != "" && strings.HasPrefix(s, p) {
			hasPrefix = true
			break
		}
	}

	hasSuffix := r.Suffix != "" && strings.Contains(s, r.Suffix)

	if r.RequireSuffix {
		return hasSuffix
	}
	return hasPrefix || hasSuffix
}
