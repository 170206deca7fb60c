package staging

import (
	"regexp"
	"strings"
)

// typeRule maps a description pattern to a canonical small-find type.
// Rules are evaluated in order; the first match wins, so the more specific
// patterns ("copper.*blade") come before the generic ones ("blade").
type typeRule struct {
	pattern *regexp.Regexp
	sfType  string
}

func rule(expr, sfType string) typeRule {
	return typeRule{pattern: regexp.MustCompile(`(?i)` + expr), sfType: sfType}
}

var typeRules = []typeRule{
	rule(`coin`, "coin"),
	rule(`\bostr`, "ostracon"),
	rule(`falcon mummy`, "falcon mummy"),
	rule(`miniature vessel`, "miniature vessel"),
	rule(`vessel`, "vessel"),
	rule(`pot for ibises`, "vessel"),
	rule(`ibis jar`, "ibis jar"),
	rule(`ibis`, "ibis"),
	rule(`jar seal`, "jar sealing"),
	rule(`seal impression`, "seal impression"),
	rule(`rifle`, "weapon"),
	rule(`scarab impression`, "seal impression"),
	rule(`stopper`, "jar stopper"),
	rule(`\bjar\b`, "vessel"),
	rule(`\bsealing\b`, "sealing"),
	rule(`shabti`, "ushabti"),
	rule(`shawabti`, "ushabti"),
	rule(`amulet`, "amulet"),
	rule(`lithic`, "lithic"),
	rule(`flint`, "lithic"),
	rule(`chert`, "lithic"),
	rule(`copper.*blade`, "copper blade"),
	rule(`blade.*copper`, "copper blade"),
	rule(`blade`, "lithic"),
	rule(`bracelet`, "bracelet"),
	rule(`necklace`, "necklace"),
	rule(`pendant`, "necklace"),
	rule(`\bstela\b`, "stela"),
	rule(`\binscri`, "inscription"),
	rule(`bullet`, "bullet"),
	rule(`figurine`, "figurine"),
	rule(`sculptu`, "sculpture"),
	rule(`statue`, "sculpture"),
	rule(`coffin`, "coffin"),
	rule(`scarab`, "scarab"),
	rule(`\bdie\b`, "die"),
	rule(`cordage`, "cordage"),
	rule(`\bcup\b`, "vessel"),
	rule(`bowl`, "vessel"),
	rule(`dish`, "vessel"),
	rule(`plate`, "vessel"),
	rule(`\bpot\b`, "vessel"),
	rule(`\blids?\b`, "vessel"),
	rule(`\blamps?\b`, "vessel"),
	rule(`vase`, "vessel"),
	rule(`earring`, "earring"),
	rule(`palette`, "palette"),
	rule(`\bcloth\b`, "cloth"),
	rule(`\bbeads?\b`, "bead"),
}

// InferSmallFindType guesses the small-find type from a free-text
// description. The boolean is false when no rule matches.
func InferSmallFindType(description string) (string, bool) {
	for _, r := range typeRules {
		if r.pattern.MatchString(description) {
			return r.sfType, true
		}
	}
	return "", false
}

// materialAliases normalizes the shorthand material names the field teams
// use to the vocabulary of the production schema.
var materialAliases = map[string]string{
	"ch stone":      "chipped stone",
	"clay":          "clay/mud",
	"gr stone":      "ground stone",
	"egyptian blue": "Egyptian blue",
}

// MapMaterial resolves a material shorthand to its canonical name. Unknown
// materials pass through trimmed but otherwise unchanged.
func MapMaterial(material string) string {
	if material == "" {
		return material
	}
	trimmed := strings.TrimSpace(material)
	if mapped, ok := materialAliases[strings.ToLower(trimmed)]; ok {
		return mapped
	}
	return trimmed
}
