package namespace

import (
	"regexp"
	"strings"
)

var (
	// nodeNamePattern is the character class shared by directories and files
	nodeNamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
	// linkNamePattern is nodeNamePattern without dots
	linkNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// reservedDirNames can never name a directory
var reservedDirNames = map[string]struct{}{
	".":  {},
	"..": {},
}

// IsValidNodeName reports whether name is valid for a file: non-empty and
// made of letters, digits, dots, hyphens and underscores only.
func IsValidNodeName(name string) bool {
	return nodeNamePattern.MatchString(name)
}

// IsValidDirectoryName is IsValidNodeName without the reserved names "." and "..".
func IsValidDirectoryName(name string) bool {
	if _, reserved := reservedDirNames[name]; reserved {
		return false
	}
	return IsValidNodeName(name)
}

// IsValidLinkName is IsValidNodeName without dots.
func IsValidLinkName(name string) bool {
	return linkNamePattern.MatchString(name)
}

// compareNames orders names lexicographically ignoring case.
func compareNames(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

// sameName reports whether two names collide within a directory
func sameName(a, b string) bool {
	return strings.EqualFold(a, b)
}
