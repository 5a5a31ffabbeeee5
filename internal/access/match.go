package access

import "strings"

// MatchPermission checks whether a concrete permission matches a pattern.
// Permissions are "."-separated:
//
//	"meeting.join"      matches "meeting.join" exactly
//	"meeting.*"         matches "meeting.join" but not "meeting.record.start"
//	"meeting.**"        matches "meeting", "meeting.join", "meeting.record.start"
//	"meeting.*.start"   matches "meeting.record.start"
//	"**"                matches any permission
//
// "**" is only meaningful as the final segment; anywhere else it matches a
// single segment like "*".
func MatchPermission(pattern, permission string) bool {
	if pattern == "" || permission == "" {
		return false
	}
	if pattern == permission {
		return true
	}
	return matchSegments(strings.Split(pattern, "."), strings.Split(permission, "."))
}

func matchSegments(pattern, perm []string) bool {
	for i, seg := range pattern {
		if seg == "**" && i == len(pattern)-1 {
			return true
		}
		if i >= len(perm) {
			return false
		}
		if seg != "*" && seg != "**" && seg != perm[i] {
			return false
		}
	}
	return len(pattern) == len(perm)
}

// matchAny returns the first pattern matching permission.
func matchAny(patterns []string, permission string) (string, bool) {
	for _, p := range patterns {
		if MatchPermission(p, permission) {
			return p, true
		}
	}
	return "", false
}
