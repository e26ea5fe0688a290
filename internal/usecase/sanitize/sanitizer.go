// Package sanitize validates and simplifies oracle-proposed locators before
// they are handed back to the caller. The pass is a small state machine:
// raw -> xpath-checked -> priority-resolved -> empty-stripped -> final.
// It is idempotent: sanitizing its own output changes nothing.
package sanitize

import (
	"regexp"
	"strings"

	"recovery-agent/internal/domain/entity"
)

// maxXPathComplexity caps count(contains)+count(or)+count(and) in an
// accepted XPath expression.
const maxXPathComplexity = 5

var (
	containsNoSlashRe = regexp.MustCompile(`contains\(@\w+,\s*'([^/']+)'\)`)
	anyQuotedRe       = regexp.MustCompile(`'([^']+)'`)
	rootTypeRe        = regexp.MustCompile(`^//([^/\[\]]+)`)
	containsLiteralRe = regexp.MustCompile(`contains\(@\w+,\s*'([^']+)'\)`)
	textSpecialsRe    = regexp.MustCompile(`[/\[\]@=]`)
)

// Sanitize returns a cleaned copy of the locator; the input is never
// mutated. The result may be empty but is always valid for the platform.
func Sanitize(platform entity.Platform, locator entity.Locator) entity.Locator {
	if len(locator) == 0 {
		return entity.Locator{}
	}
	out := locator.Clone()

	if xpath, ok := out["xpath"]; ok {
		checked, keep := checkXPath(platform, xpath)
		if keep {
			out["xpath"] = checked
		} else {
			delete(out, "xpath")
		}
	}

	// an id-like key is strictly more reliable than any xpath
	if _, hasXPath := out["xpath"]; hasXPath {
		if _, hasID := out[platform.IDKey()]; hasID {
			delete(out, "xpath")
		}
	}

	if text, ok := out["text"]; ok && textSpecialsRe.MatchString(text) {
		out["text"] = textSpecialsRe.ReplaceAllString(text, "")
	}

	for key, value := range out {
		if len(value) == 0 {
			delete(out, key)
		}
	}
	return out
}

// checkXPath guards against self-referential and runaway expressions.
// It returns the (possibly rewritten) expression and whether to keep it.
func checkXPath(platform entity.Platform, xpath string) (string, bool) {
	// a quoted "//" inside the expression means a whole locator leaked
	// into an attribute argument; re-derive a single-condition expression
	if strings.Contains(xpath, `'//`) || strings.Contains(xpath, `"//`) {
		term := firstLiteral(xpath)
		if term == "" {
			return "", false
		}
		xpath = simpleXPath(platform, platform.GenericButtonType(), term)
	}

	complexity := strings.Count(xpath, "contains") + strings.Count(xpath, "or") + strings.Count(xpath, "and")
	if complexity > maxXPathComplexity {
		elementType := platform.GenericButtonType()
		if m := rootTypeRe.FindStringSubmatch(xpath); m != nil {
			elementType = m[1]
		}
		m := containsLiteralRe.FindStringSubmatch(xpath)
		if m == nil || strings.TrimSpace(m[1]) == "" {
			return "", false
		}
		xpath = simpleXPath(platform, elementType, strings.TrimSpace(m[1]))
	}
	return xpath, true
}

// firstLiteral recovers a usable search term from a broken expression:
// the first contains() argument without slashes, else the first quoted
// string with anything after an embedded "//" stripped.
func firstLiteral(xpath string) string {
	if m := containsNoSlashRe.FindStringSubmatch(xpath); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := anyQuotedRe.FindStringSubmatch(xpath); m != nil {
		term, _, _ := strings.Cut(m[1], "//")
		return strings.TrimSpace(term)
	}
	return ""
}

func simpleXPath(platform entity.Platform, elementType, term string) string {
	return "//" + elementType + "[contains(@" + platform.DefaultTextAttribute() + ", '" + term + "')]"
}
