package drive

import (
	"errors"
	"regexp"
	"strings"
)

// ErrNotFolderURL is returned when no folder id can be read from a URL.
var ErrNotFolderURL = errors.New("no folder id in url")

const providerHost = "drive.google.com"

var idPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/folders/([A-Za-z0-9_-]+)`),
	regexp.MustCompile(`/d/([A-Za-z0-9_-]+)`),
	regexp.MustCompile(`[?&]id=([A-Za-z0-9_-]+)`),
}

// ExtractID returns the first id matched in u, or u itself when nothing
// matches.
func ExtractID(u string) string {
	if id, err := FolderID(u); err == nil {
		return id
	}
	return strings.TrimSpace(u)
}

// FolderID is ExtractID without the verbatim fallback.
func FolderID(u string) (string, error) {
	s := strings.TrimSpace(u)
	for _, p := range idPatterns {
		if m := p.FindStringSubmatch(s); m != nil {
			return m[1], nil
		}
	}
	return "", ErrNotFolderURL
}

// IsProviderURL reports whether u points at Google Drive.
func IsProviderURL(u string) bool {
	return strings.Contains(u, providerHost)
}

func FolderURL(id string) string {
	return "https://" + providerHost + "/drive/folders/" + id
}
