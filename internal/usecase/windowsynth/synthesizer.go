// Package windowsynth turns ranked candidates into small, self-contained
// markup fragments the oracle can reason about.
package windowsynth

import (
	"strings"

	"recovery-agent/internal/domain/entity"
)

const contextWrapper = "context"

// Synthesize serializes each candidate's subtree, wraps it in a neutral
// root so it parses in isolation, and attaches match metadata.
func Synthesize(arena *entity.NodeArena, candidates []entity.Candidate, platform entity.Platform, searchTerms []string) []entity.Window {
	windows := make([]entity.Window, 0, len(candidates))
	for i, c := range candidates {
		windows = append(windows, entity.Window{
			Num:      i + 1,
			Match:    MatchInfo(arena, c.Node, platform, searchTerms),
			Score:    c.Score,
			Fragment: "<" + contextWrapper + ">\n" + Serialize(arena, c.Node) + "\n</" + contextWrapper + ">",
		})
	}
	return windows
}

// MatchInfo derives how a node matched, re-checking in priority order: the
// platform key attributes, then clickability/tag, then any remaining
// attribute containing a search term.
func MatchInfo(arena *entity.NodeArena, id entity.NodeID, platform entity.Platform, searchTerms []string) entity.MatchInfo {
	n := arena.Node(id)

	for _, attr := range platform.KeyAttributes() {
		value := n.Attr(attr)
		if containsAnyTerm(value, searchTerms) {
			return entity.MatchInfo{Type: entity.MatchAttribute, Attribute: attr, Value: value}
		}
	}

	if strings.Contains(n.Tag, "Button") || n.Attr("clickable") == "true" {
		return entity.MatchInfo{Type: entity.MatchElementType, Attribute: "tag", Value: n.Tag}
	}

	for _, attr := range n.Attrs {
		if containsAnyTerm(attr.Value, searchTerms) {
			return entity.MatchInfo{Type: entity.MatchAttribute, Attribute: attr.Name, Value: attr.Value}
		}
	}

	return entity.MatchInfo{Type: entity.MatchUnknown, Attribute: "unknown", Value: "unknown"}
}

// Serialize renders the subtree rooted at id back to markup, preserving
// attribute order and escaping values so the output re-parses.
func Serialize(arena *entity.NodeArena, id entity.NodeID) string {
	var sb strings.Builder
	writeNode(&sb, arena, id)
	return sb.String()
}

func writeNode(sb *strings.Builder, arena *entity.NodeArena, id entity.NodeID) {
	n := arena.Node(id)
	sb.WriteString("<")
	sb.WriteString(n.Tag)
	for _, a := range n.Attrs {
		sb.WriteString(" ")
		sb.WriteString(a.Name)
		sb.WriteString(`="`)
		sb.WriteString(escapeAttr(a.Value))
		sb.WriteString(`"`)
	}
	if len(n.Children) == 0 {
		sb.WriteString(" />")
		return
	}
	sb.WriteString(">")
	for _, c := range n.Children {
		writeNode(sb, arena, c)
	}
	sb.WriteString("</")
	sb.WriteString(n.Tag)
	sb.WriteString(">")
}

var attrEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

func escapeAttr(s string) string {
	return attrEscaper.Replace(s)
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
