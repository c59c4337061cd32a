package geocode

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	lotNumberPattern   = regexp.MustCompile(`^(.+?\d+(?:-\d+)?)(.*)$`)
	parenthesisPattern = regexp.MustCompile(`\([^)]*\)`)
	regionPattern      = regexp.MustCompile(`^(서울(특별시)?|경기(도)?|인천(광역시)?|대구(광역시)?|부산(광역시)?|광주(광역시)?|대전(광역시)?|울산(광역시)?|제주(특별자치도)?|강원(도)?|충청[남북]도|전라[남북]도|경상[남북]도)\s+`)
	districtPattern    = regexp.MustCompile(`^[가-힣]+구\s+`)
)

// SplitAddressExtra cuts raw after its first lot number. base is what the
// geocoder can resolve; extra is the unit/floor remainder without any
// parenthesised text.
func SplitAddressExtra(raw string) (base, extra string) {
	s := collapseSpaces(raw)
	if s == "" {
		return "", ""
	}
	m := lotNumberPattern.FindStringSubmatch(s)
	if m == nil {
		return s, ""
	}
	base = strings.TrimSpace(m[1])
	extra = collapseSpaces(parenthesisPattern.ReplaceAllString(m[2], " "))
	return base, extra
}

// CleanRegionPrefix drops a leading metropolitan region token.
func CleanRegionPrefix(text string) string {
	return strings.TrimSpace(regionPattern.ReplaceAllString(strings.TrimSpace(text), ""))
}

// DisplayAddress renders "<lot address> (<road address>)" with the road
// address losing its leading region and district tokens.
func DisplayAddress(r Result) string {
	jibun := CleanRegionPrefix(r.JibunAddress)
	if r.RoadAddress == "" {
		return jibun
	}
	road := districtPattern.ReplaceAllString(CleanRegionPrefix(r.RoadAddress), "")
	if road == "" {
		return jibun
	}
	return jibun + " (" + road + ")"
}

// MapURL fills template's %s with the URL-encoded display address.
func MapURL(template, display string) string {
	return fmt.Sprintf(template, strings.ReplaceAll(url.QueryEscape(display), "+", "%20"))
}

// IsResolved reports whether a block's address already looks converted.
func IsResolved(address, mapURL string) bool {
	return strings.Contains(address, "(") && strings.TrimSpace(mapURL) != ""
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
