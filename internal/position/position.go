// Package position maps free-text playing positions onto the four canonical
// position groups used for weighting and same-position ranking.
package position

import (
	"strings"
)

// Group is a canonical position tag.
type Group string

const (
	Goalkeeper Group = "GK"
	Defender   Group = "DF"
	Midfielder Group = "MF"
	Forward    Group = "FW"
)

// String returns the tag.
func (g Group) String() string { return string(g) }

// Name returns the long form of the group.
func (g Group) Name() string {
	switch g {
	case Goalkeeper:
		return "Goalkeeper"
	case Defender:
		return "Defender"
	case Midfielder:
		return "Midfielder"
	case Forward:
		return "Forward"
	default:
		return ""
	}
}

// IsValid reports whether g is one of the four canonical groups.
func (g Group) IsValid() bool {
	return g.Name() != ""
}

// detailed maps specific role codes and long names to their group.
var detailed = map[string]Group{
	"GK": Goalkeeper, "GOALKEEPER": Goalkeeper,

	"DF": Defender, "CB": Defender, "LB": Defender, "RB": Defender,
	"WB": Defender, "SW": Defender, "DEFENDER": Defender,

	"MF": Midfielder, "DM": Midfielder, "CM": Midfielder, "AM": Midfielder,
	"LM": Midfielder, "RM": Midfielder, "WM": Midfielder, "MIDFIELDER": Midfielder,

	"FW": Forward, "ST": Forward, "CF": Forward, "LW": Forward,
	"RW": Forward, "SS": Forward, "FORWARD": Forward,
}

// Canonical resolves a single tag, case-insensitively.
func Canonical(tag string) (Group, bool) {
	g, ok := detailed[strings.ToUpper(strings.TrimSpace(tag))]
	return g, ok
}

// Parse splits a free-text position such as "FW,MF" or "DF / MF" on commas,
// slashes and whitespace and returns the recognized groups in order of first
// appearance. Unrecognized tokens are dropped.
func Parse(s string) []Group {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '/' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	var out []Group
	seen := make(map[Group]bool, len(fields))
	for _, f := range fields {
		g, ok := Canonical(f)
		if !ok || seen[g] {
			continue
		}
		seen[g] = true
		out = append(out, g)
	}
	return out
}

// Primary returns the first recognized group of s.
func Primary(s string) (Group, bool) {
	groups := Parse(s)
	if len(groups) == 0 {
		return "", false
	}
	return groups[0], true
}

// Overlaps reports whether any group appears in both lists.
func Overlaps(a, b []Group) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
