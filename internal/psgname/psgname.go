// Package psgname parses the PSG document naming convention.
//
// Generated documents are named PSG-<folderToken>-<topicCode>-<version>,
// e.g. "PSG-7-LGPD-02". The folder token is either the numeric id of the
// destination folder or its short sigla.
package psgname

import "strings"

const systemTag = "PSG"

// Parsed holds the fields extracted from a document name (no extension).
type Parsed struct {
	SystemTag   string
	FolderToken string
	TopicCode   string
	Version     string
}

// Parse splits name on "-" and validates the PSG prefix. The boolean is
// false when the name does not follow the convention; callers treat that
// as "cannot resolve", never as a fault. Extra segments beyond the fourth
// are ignored.
func Parse(name string) (Parsed, bool) {
	parts := strings.Split(name, "-")
	if len(parts) < 2 || !strings.EqualFold(parts[0], systemTag) {
		return Parsed{}, false
	}
	parsed := Parsed{
		SystemTag:   systemTag,
		FolderToken: parts[1],
	}
	if len(parts) > 2 {
		parsed.TopicCode = parts[2]
	}
	if len(parts) > 3 {
		parsed.Version = parts[3]
	}
	return parsed, true
}

// FamilyPrefix returns the document name minus its trailing version
// segment, used to match superseded versions of the same document
// ("PSG-7-LGPD-02" -> "PSG-7-LGPD-"). Names without a separator are
// returned unchanged.
func FamilyPrefix(name string) string {
	idx := strings.LastIndex(name, "-")
	if idx < 0 {
		return name
	}
	return name[:idx+1]
}
