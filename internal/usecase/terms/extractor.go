// Package terms turns failed element identifiers into normalized search
// terms and similarity signals used throughout candidate discovery.
package terms

import (
	"regexp"
	"strings"
)

var (
	containsLiteralRe = regexp.MustCompile(`contains\([^,]+,\s*['"]([^'"]+)['"]\)`)
	equalityLiteralRe = regexp.MustCompile(`@\w+\s*=\s*['"]([^'"]+)['"]\]`)
	quotedLiteralRe   = regexp.MustCompile(`['"]([^'"]+)['"]`)
	alnumRunRe        = regexp.MustCompile(`[a-zA-Z0-9]+`)
	camelBoundaryRe   = regexp.MustCompile(`([a-z])([A-Z])`)
	nonAlnumRe        = regexp.MustCompile(`[^a-zA-Z0-9]+`)
)

const shortIdentifierLimit = 30

// Extract derives an ordered, de-duplicated set of lowercase-insensitive
// search terms from a failed identifier. XPath-shaped identifiers yield
// their quoted literals; plain identifiers are tokenized on non-alphanumeric
// runs, with snake/kebab compounds contributing their sub-tokens as well.
// The result is never empty when the identifier has alphanumeric content.
func Extract(identifier string) []string {
	var raw []string

	if strings.HasPrefix(identifier, "//") {
		for _, m := range containsLiteralRe.FindAllStringSubmatch(identifier, -1) {
			raw = append(raw, m[1])
		}
		if len(raw) == 0 {
			for _, m := range equalityLiteralRe.FindAllStringSubmatch(identifier, -1) {
				raw = append(raw, m[1])
			}
		}
		if len(raw) == 0 {
			for _, m := range quotedLiteralRe.FindAllStringSubmatch(identifier, -1) {
				raw = append(raw, m[1])
			}
		}
	} else {
		// Short plain identifiers are useful whole, ahead of their tokens.
		if len(identifier) < shortIdentifierLimit {
			raw = append(raw, identifier)
		}
		raw = append(raw, alnumRunRe.FindAllString(identifier, -1)...)
	}

	// Compounds like add_task_button also contribute add, task, button.
	for _, term := range append([]string(nil), raw...) {
		switch {
		case strings.Contains(term, "_"):
			raw = append(raw, strings.Split(term, "_")...)
		case strings.Contains(term, "-"):
			raw = append(raw, strings.Split(term, "-")...)
		}
	}

	seen := make(map[string]struct{}, len(raw))
	unique := make([]string, 0, len(raw))
	for _, term := range raw {
		if term == "" {
			continue
		}
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		unique = append(unique, term)
	}
	return unique
}

// typeKeywords maps element categories to the keywords that imply them.
// Order matters: the first category whose keyword appears wins.
var typeKeywords = []struct {
	category string
	keywords []string
}{
	{"button", []string{"button", "btn"}},
	{"input", []string{"input", "field", "text", "edit"}},
	{"checkbox", []string{"checkbox", "check"}},
	{"switch", []string{"switch", "toggle"}},
	{"image", []string{"image", "img", "icon"}},
	{"list", []string{"list", "listview", "recycler"}},
	{"text", []string{"text", "label", "textview"}},
	{"link", []string{"link"}},
}

// TypeHint guesses the element category implied by an identifier, or ""
// when no keyword matches.
func TypeHint(identifier string) string {
	lower := strings.ToLower(identifier)
	for _, entry := range typeKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.category
			}
		}
	}
	return ""
}

// TypePatterns maps an element category to the tag/class substrings that
// identify it in platform trees.
func TypePatterns(category string) []string {
	switch category {
	case "button":
		return []string{"Button", "btn"}
	case "input":
		return []string{"EditText", "TextField", "Input"}
	case "checkbox":
		return []string{"CheckBox", "Check"}
	case "switch":
		return []string{"Switch", "Toggle"}
	case "image":
		return []string{"Image", "ImageView", "ImageButton"}
	case "list":
		return []string{"ListView", "RecyclerView", "ScrollView"}
	case "text":
		return []string{"TextView", "Text", "Label"}
	case "link":
		return []string{"Link"}
	default:
		if category == "" {
			return nil
		}
		return []string{strings.ToUpper(category[:1]) + category[1:]}
	}
}

// Tokenize splits an identifier into lowercase word tokens, handling
// camelCase, snake_case and kebab-case.
func Tokenize(identifier string) []string {
	spaced := camelBoundaryRe.ReplaceAllString(identifier, "$1 $2")
	parts := nonAlnumRe.Split(spaced, -1)
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, strings.ToLower(p))
		}
	}
	return tokens
}

// TokenSimilarity is the Jaccard similarity of the two identifiers' token
// sets; 0 when either side tokenizes to nothing.
func TokenSimilarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	intersection := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range Tokenize(s) {
		set[tok] = struct{}{}
	}
	return set
}
