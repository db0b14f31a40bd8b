package domain

import "strings"

// ParseParticipants splits a comma separated list of names.
// Names are trimmed, blanks dropped and duplicates collapse to their first occurrence.
func ParseParticipants(text string) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, raw := range strings.Split(text, ",") {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// Contains reports whether name is one of the participants.
func Contains(participants []string, name string) bool {
	for _, p := range participants {
		if p == name {
			return true
		}
	}
	return false
}

// SameMembers reports whether a and b hold the same set of names.
func SameMembers(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, n := range a {
		set[n] = struct{}{}
	}
	for _, n := range b {
		if _, ok := set[n]; !ok {
			return false
		}
	}
	return true
}

// Canonical returns the members of subset that appear in participants, in participant order.
func Canonical(participants, subset []string) []string {
	out := make([]string, 0, len(subset))
	for _, p := range participants {
		if Contains(subset, p) {
			out = append(out, p)
		}
	}
	return out
}
