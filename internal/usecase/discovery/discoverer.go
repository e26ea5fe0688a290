// Package discovery walks a parsed snapshot for nodes plausibly matching
// the search terms, then scores and ranks them.
package discovery

import (
	"strings"

	"recovery-agent/internal/domain/entity"
	"recovery-agent/internal/usecase/terms"
)

// Discover runs the three independent passes (identifier attributes, text
// attributes, element type) and concatenates their hits. Duplicates are
// resolved later by signature during ranking.
func Discover(arena *entity.NodeArena, platform entity.Platform, searchTerms []string, typeHint string) []entity.NodeID {
	ids := FindByAttributes(arena, platform.IdentifierAttributes(), searchTerms)
	ids = append(ids, FindByAttributes(arena, platform.TextAttributes(), searchTerms)...)
	ids = append(ids, FindByType(arena, platform, typeHint, searchTerms)...)
	return ids
}

// FindByAttributes collects nodes where any of the given attributes
// contains any search term, case-insensitively.
func FindByAttributes(arena *entity.NodeArena, attributes, searchTerms []string) []entity.NodeID {
	var out []entity.NodeID
	arena.Walk(func(id entity.NodeID, n *entity.TreeNode) {
		for _, attr := range attributes {
			if containsAnyTerm(n.Attr(attr), searchTerms) {
				out = append(out, id)
				return
			}
		}
	})
	return out
}

// FindByType collects nodes of the hinted element category ("button" when
// no hint was extracted). Clickability counts as the button type, but every
// candidate still needs an attribute value carrying a search term.
func FindByType(arena *entity.NodeArena, platform entity.Platform, typeHint string, searchTerms []string) []entity.NodeID {
	category := typeHint
	if category == "" {
		category = "button"
	}
	patterns := terms.TypePatterns(category)

	var out []entity.NodeID
	arena.Walk(func(id entity.NodeID, n *entity.TreeNode) {
		matchesType := tagMatches(n.Tag, patterns) ||
			tagMatches(n.Attr(platform.TypeAttribute()), patterns) ||
			(category == "button" && n.Attr("clickable") == "true")
		if !matchesType {
			return
		}
		for _, a := range n.Attrs {
			if containsAnyTerm(a.Value, searchTerms) {
				out = append(out, id)
				return
			}
		}
	})
	return out
}

func tagMatches(value string, patterns []string) bool {
	if value == "" {
		return false
	}
	lower := strings.ToLower(value)
	for _, p := range patterns {
		if strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

func containsAnyTerm(value string, searchTerms []string) bool {
	if value == "" {
		return false
	}
	lower := strings.ToLower(value)
	for _, term := range searchTerms {
		if strings.Contains(lower, strings.ToLower(term)) {
			return true
		}
	}
	return false
}
