package util

import (
	"github.com/blang/semver"
	"github.com/pkp/pln/constants"
	"net/url"
	"regexp"
	"strings"
)

var reVersion *regexp.Regexp = regexp.MustCompile(`^\d+(\.\d+)*`)

// Returns true if rawUrl is an absolute http or https URL.
func LooksLikeURL(rawUrl string) bool {
	parsed, err := url.Parse(rawUrl)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

// Returns true if uuid is formatted like a UUID, in either case.
func LooksLikeUUID(uuid string) bool {
	return constants.UuidPattern.MatchString(uuid)
}

// NormalizeUuid trims whitespace and upper-cases a provider or
// deposit identifier. Identifiers are stored and compared upper-cased.
func NormalizeUuid(uuid string) string {
	return strings.ToUpper(strings.TrimSpace(uuid))
}

// NormalizeVersion reduces an application version string such as
// "3.1.2.4" or "3.3.0-8" to the major.minor.patch form. Missing
// parts are filled in with zeroes. Returns an empty string if the
// version does not start with a number.
func NormalizeVersion(version string) string {
	numeric := reVersion.FindString(strings.TrimSpace(version))
	if numeric == "" {
		return ""
	}
	parts := strings.Split(numeric, ".")
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	return strings.Join(parts[0:3], ".")
}

// VersionAtLeast returns true if version is the same as or newer
// than minimum. Both are normalized first, so "3.1.2.4" and
// "3.1.2.0" compare equal. Unparseable versions are never at least
// anything.
func VersionAtLeast(version, minimum string) bool {
	v, err := semver.Parse(NormalizeVersion(version))
	if err != nil {
		return false
	}
	min, err := semver.Parse(NormalizeVersion(minimum))
	if err != nil {
		return false
	}
	return v.GTE(min)
}

// Returns true if the list of strings contains item.
func StringListContains(list []string, item string) bool {
	if list != nil {
		for i := range list {
			if list[i] == item {
				return true
			}
		}
	}
	return false
}
